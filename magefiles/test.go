//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every unit test with the race detector.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./..."), withStream())
	return err
}

// Runs the frame graph tests only, verbosely.
func (Test) Framegraph() error {
	_, err := executeCmd("go", withArgs("test", "-v", "-count=1", "./engine/renderer/..."), withStream())
	return err
}

// Runs go vet and go mod tidy.
func (Test) Lint() error {
	mg.Deps(tidy)
	_, err := executeCmd("go", withArgs("vet", "./..."), withStream())
	return err
}
