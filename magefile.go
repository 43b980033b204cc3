//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binary      = "bin/thumbfast"
	coverFile   = "coverage.out"
	redisEnvKey = "THUMBFAST_TEST_REDIS_ADDR"
)

// Default target when running mage without arguments.
var Default = Build

// Test groups the test targets.
type Test mg.Namespace

// Build compiles the server into bin/.
func Build() error {
	fmt.Println("Building", binary)
	return sh.Run("go", "build", "-trimpath", "-o", binary, "./cmd/server")
}

// Unit runs the unit tests with the race detector.
func (Test) Unit() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Cover writes a coverage profile and prints the per-function summary.
func (Test) Cover() error {
	if err := sh.RunV("go", "test", "-covermode=atomic", "-coverprofile="+coverFile, "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func="+coverFile)
}

// Redis runs the Redis-backed store and limiter tests. The server address
// defaults to localhost:6379.
func (Test) Redis() error {
	addr := os.Getenv(redisEnvKey)
	if addr == "" {
		addr = "localhost:6379"
	}
	env := map[string]string{redisEnvKey: addr}
	return sh.RunWithV(env, "go", "test", "-count=1", "./internal/adapter/outbound/redis/...")
}

// Lint runs go vet and golangci-lint.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// Serve builds and starts the server in the foreground.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV("./" + binary)
}

// CI runs what the pipeline runs.
func CI() {
	mg.SerialDeps(Lint, Test.Cover, Build)
}

// Clean removes build and coverage output.
func Clean() error {
	if err := sh.Rm("bin"); err != nil {
		return err
	}
	return sh.Rm(coverFile)
}
