//go:build mage

// Package main provides build targets for the concepts project using Mage.
//
// Usage:
//
//	mage build          Compile the concepts binary to bin/
//	mage test:all       Run every test
//	mage test:unit      Run tests that need no external services
//	mage test:redis     Run the redis backend tests against $CONCEPTS_TEST_REDIS_ADDR
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install concepts to GOPATH/bin
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "concepts"
	binaryDir  = "bin"
	cmdDir     = "./cmd/concepts"

	redisAddrEnv = "CONCEPTS_TEST_REDIS_ADDR"
)

// Build compiles the concepts binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test groups test targets.
type Test mg.Namespace

// All runs every test.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Unit runs the tests with the redis address cleared, so the redis contract
// suite is skipped.
func (Test) Unit() error {
	return sh.RunWithV(map[string]string{redisAddrEnv: ""}, binGo, "test", "-race", "./...")
}

// Redis runs the redis backend tests. The address must be set.
func (Test) Redis() error {
	if os.Getenv(redisAddrEnv) == "" {
		return fmt.Errorf("%s is not set", redisAddrEnv)
	}
	return sh.RunV(binGo, "test", "-v", "./internal/storage/redis/...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
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
