//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

// Runs the unit tests with the race detector.
func Test() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./..."), withStream())
	return err
}

// Runs go vet.
func Vet() error {
	_, err := executeCmd("go", withArgs("vet", "./..."), withStream())
	return err
}

// Runs vet then the tests.
func Check() {
	mg.SerialDeps(Vet, Test)
}
