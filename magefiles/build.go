//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

var tools = []string{"pofconv", "pofinspect"}

type Build mg.Namespace

// Builds every command into bin/.
func (Build) All() error {
	mg.Deps(Build.Pofconv, Build.Pofinspect)
	return nil
}

// Builds the converter.
func (Build) Pofconv() error { return buildTool("pofconv") }

// Builds the inspector.
func (Build) Pofinspect() error { return buildTool("pofinspect") }

func buildTool(name string) error {
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", name), "./cmd/"+name))
	return err
}

// Installs every command into GOBIN.
func Install() error {
	for _, t := range tools {
		if _, err := executeCmd("go", withArgs("install", "./cmd/"+t), withStream()); err != nil {
			return err
		}
	}
	return nil
}
