// Package testdata embeds garment metadata fixtures shared by tests.
package testdata

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/ayusman/drape/internal/garment"
)

//go:embed garments/*.json
var garmentsFS embed.FS

// GarmentJSON returns the raw metadata file for a fixture name (without extension).
func GarmentJSON(name string) ([]byte, error) {
	data, err := garmentsFS.ReadFile("garments/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load garment %s: %w", name, err)
	}
	return data, nil
}

// LoadGarment parses a fixture into validated metadata.
func LoadGarment(name string) (*garment.Metadata, error) {
	data, err := GarmentJSON(name)
	if err != nil {
		return nil, err
	}
	m, err := garment.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse garment %s: %w", name, err)
	}
	return m, nil
}

// MustGarment is LoadGarment for test setup; it panics on error.
func MustGarment(name string) *garment.Metadata {
	m, err := LoadGarment(name)
	if err != nil {
		panic(err)
	}
	return m
}

// GarmentNames lists the available fixtures in sorted order.
func GarmentNames() []string {
	entries, err := garmentsFS.ReadDir("garments")
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}
