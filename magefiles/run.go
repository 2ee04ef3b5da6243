//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed with the config at the repository root.
func (Run) Engine() error {
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "run", "--config", "framegraph.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the testbed for a fixed number of frames and serves its metrics.
func (Run) Headless() error {
	_, err := executeCmd("go", withArgs("run", ".", "run", "--config", "framegraph.toml", "--frames", "600", "--metrics-addr", ":9090"), withStream())
	return err
}
