//go:build mage
// +build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var Default = Build

func Build() error {
	return sh.Run(mg.GoCmd(), "build", "./...")
}

func Test() error {
	args := []string{"test"}
	if mg.Verbose() {
		args = append(args, "-v")
	}
	args = append(args, "./...")
	return sh.Run(mg.GoCmd(), args...)
}

func Vet() error {
	return sh.Run(mg.GoCmd(), "vet", "./...")
}

func Lint() error {
	return sh.RunV("staticcheck", "./...")
}

// Install builds and installs the revs command.
func Install() error {
	mg.Deps(Build)
	return sh.Run(mg.GoCmd(), "install", "./cmd/revs")
}
