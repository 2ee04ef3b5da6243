//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the testbed binary into bin/.
func (Build) Engine() error {
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "framegraph"), "."), withStream())
	return err
}

// Compiles the testbed GLSL shaders to SPIR-V next to their sources. Needs glslc.
func (Build) Shaders() error {
	dir := filepath.Join("testbed", "shaders")
	shaders, err := filepath.Glob(filepath.Join(dir, "*.*"))
	if err != nil {
		return err
	}
	for _, s := range shaders {
		if filepath.Ext(s) == ".spv" {
			continue
		}
		name := filepath.Base(s)
		if _, err := executeCmd("glslc", withArgs(name, "-o", name+".spv"), withDir(dir), withStream()); err != nil {
			return err
		}
	}
	return nil
}
