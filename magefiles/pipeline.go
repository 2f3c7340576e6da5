//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Harvest builds the CLI and runs a harvest. Inputs come from the
// environment: REPORT, METADATA, and TARGET.
func Harvest() error {
	mg.Deps(Init, Build)

	args := []string{"harvest"}
	for flag, env := range map[string]string{"--report": "REPORT", "--metadata": "METADATA", "--target": "TARGET"} {
		if v := os.Getenv(env); v != "" {
			args = append(args, flag, v)
		}
	}
	if err := sh.RunV(binPath(), args...); err != nil {
		return fmt.Errorf("harvest: %w", err)
	}
	return nil
}

// Index loads every result table in the working directory into the context index.
func Index() error {
	mg.Deps(Init, Build)
	return sh.RunV(binPath(), "index", "store")
}

func binPath() string {
	return "./" + binDir + "/" + binName
}
