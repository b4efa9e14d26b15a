//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for storagereport using Mage.
//
// Usage:
//
//	mage build             Compile storagereport binary to bin/
//	mage test:all          Run all tests (unit + integration)
//	mage test:unit         Run only unit tests (exclude integration)
//	mage test:integration  Run only integration tests (builds first)
//	mage jobspec           Render the submit description to bin/daily.sub
//	mage lint              Run golangci-lint
//	mage clean             Remove build artifacts
//	mage install           Install storagereport to GOPATH/bin
//	mage stats             Print Go LOC per package and doc word counts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "storagereport"
	binaryDir  = "bin"
	cmdDir     = "./cmd/storagereport"
	versionVar = "github.com/mesh-intelligence/storagereport/internal/cli.Version"
)

// Build compiles the storagereport binary to bin/. VERSION, when set, is
// stamped into the binary.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if v := os.Getenv("VERSION"); v != "" {
		args = append(args, "-ldflags", "-X "+versionVar+"="+v)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Jobspec builds the binary and renders its submit description to
// bin/daily.sub, pointing at the installed binary.
func Jobspec() error {
	mg.Deps(Install)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.RunWithV(
		map[string]string{"STORAGEREPORT_JOB_EXECUTABLE": filepath.Join(gopath, "bin", binaryName)},
		filepath.Join(binaryDir, binaryName), "jobspec", "-o", filepath.Join(binaryDir, "daily.sub"),
	)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
