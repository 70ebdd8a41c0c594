// Package catalog keeps the garment store in sync with a directory of
// garment metadata files.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ayusman/drape/internal/garment"
	"github.com/ayusman/drape/internal/logging"
	"github.com/ayusman/drape/internal/store"
)

// SourcePrefix prefixes the store source of every garment loaded from disk.
const SourcePrefix = "file:"

// ChangeKind says what happened to a catalog garment.
type ChangeKind string

const (
	Loaded  ChangeKind = "loaded"
	Removed ChangeKind = "removed"
)

// Change is reported to the OnChange callback after the store is updated.
type Change struct {
	Kind ChangeKind
	ID   string
	Path string
}

// Catalog loads *.json garment files from a directory into a store.
type Catalog struct {
	dir   string
	store *store.Store

	mu       sync.Mutex
	ids      map[string]string // path -> garment id
	onChange func(Change)

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a Catalog for dir. Nothing is read until Scan or Watch.
func New(dir string, st *store.Store) *Catalog {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &Catalog{
		dir:   dir,
		store: st,
		ids:   make(map[string]string),
	}
}

// Dir returns the watched directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// OnChange sets the callback invoked for every loaded or removed garment.
// It runs on the watcher goroutine.
func (c *Catalog) OnChange(fn func(Change)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Source returns the store source for a garment file.
func Source(path string) string {
	return SourcePrefix + path
}

func isGarmentFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json") && !strings.HasPrefix(filepath.Base(path), ".")
}

// Scan loads every garment file in the directory and drops store entries
// whose file no longer exists. Invalid files are logged and skipped. It
// returns the number of garments loaded.
func (c *Catalog) Scan() (int, error) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return 0, fmt.Errorf("catalog dir: %w", err)
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("read catalog: %w", err)
	}

	present := make(map[string]bool)
	loaded := 0
	for _, e := range entries {
		path := filepath.Join(c.dir, e.Name())
		if e.IsDir() || !isGarmentFile(path) {
			continue
		}
		present[Source(path)] = true
		if c.load(path) {
			loaded++
		}
	}

	all, err := c.store.Garments().List()
	if err != nil {
		return loaded, err
	}
	for _, g := range all {
		if strings.HasPrefix(g.Source, SourcePrefix+c.dir+string(filepath.Separator)) && !present[g.Source] {
			c.remove(strings.TrimPrefix(g.Source, SourcePrefix))
		}
	}

	logging.For("catalog").Info("catalog scanned", "dir", c.dir, "garments", loaded)
	return loaded, nil
}

// load upserts one file. A file whose id changed drops its previous garment.
func (c *Catalog) load(path string) bool {
	log := logging.For("catalog")

	meta, err := garment.Load(path)
	if err != nil {
		log.Warn("skipping garment file", "path", path, "err", err)
		return false
	}

	c.mu.Lock()
	prev := c.ids[path]
	c.mu.Unlock()
	if prev != "" && prev != meta.ID {
		if err := c.store.Garments().Delete(prev); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Warn("drop renamed garment", "id", prev, "err", err)
		}
	}

	if _, err := c.store.Garments().Upsert(meta, Source(path)); err != nil {
		log.Error("store garment", "path", path, "err", err)
		return false
	}

	c.mu.Lock()
	c.ids[path] = meta.ID
	fn := c.onChange
	c.mu.Unlock()

	log.Debug("garment loaded", "id", meta.ID, "path", path)
	if fn != nil {
		fn(Change{Kind: Loaded, ID: meta.ID, Path: path})
	}
	return true
}

func (c *Catalog) remove(path string) {
	log := logging.For("catalog")

	c.mu.Lock()
	id := c.ids[path]
	delete(c.ids, path)
	fn := c.onChange
	c.mu.Unlock()

	if id == "" {
		// loaded by an earlier process
		if all, err := c.store.Garments().List(); err == nil {
			for _, g := range all {
				if g.Source == Source(path) {
					id = g.ID
					break
				}
			}
		}
	}

	n, err := c.store.Garments().DeleteBySource(Source(path))
	if err != nil {
		log.Error("remove garment", "path", path, "err", err)
		return
	}
	if n == 0 {
		return
	}

	log.Info("garment removed", "id", id, "path", path)
	if fn != nil {
		fn(Change{Kind: Removed, ID: id, Path: path})
	}
}

// Watch scans the directory and then follows changes until Close.
func (c *Catalog) Watch() error {
	if _, err := c.Scan(); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(c.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", c.dir, err)
	}

	c.watcher = w
	c.done = make(chan struct{})
	c.wg.Add(1)
	go c.run()
	return nil
}

func (c *Catalog) run() {
	defer c.wg.Done()
	log := logging.For("catalog")

	for {
		select {
		case e, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if !isGarmentFile(e.Name) {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if s, err := os.Stat(e.Name); err == nil && !s.IsDir() {
					c.load(e.Name)
				}
			}
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				c.remove(e.Name)
			}

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			log.Error("catalog watcher", "err", err)

		case <-c.done:
			return
		}
	}
}

// Close stops watching. It is safe to call without Watch.
func (c *Catalog) Close() error {
	if c.watcher == nil {
		return nil
	}
	close(c.done)
	c.wg.Wait()
	err := c.watcher.Close()
	c.watcher = nil
	return err
}
