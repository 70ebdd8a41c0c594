//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds and runs drape without the tray icon.
func (Run) Headless() error {
	mg.Deps(Build.Drape)
	fmt.Println("Run drape...")
	if _, err := executeCmd("bin/drape", withArgs("-tray=false"), withStream()); err != nil {
		return err
	}
	return nil
}

// Prints the effective configuration.
func (Run) Config() error {
	_, err := executeCmd("go", withArgs("run", "./cmd/drape", "-dump-config"), withStream())
	return err
}
