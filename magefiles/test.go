//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets.
type Test mg.Namespace

// All runs every test.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Race runs every test with the race detector.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Golden regenerates the golden files of the discovery manifests and the
// CLI output.
func (Test) Golden() error {
	return sh.RunV(binGo, "test", "./internal/discovery/...", "./internal/cli/...", "-update")
}
