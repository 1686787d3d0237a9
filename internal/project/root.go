// Package project locates the suite directory holding the test descriptor.
package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DescriptorNames lists the accepted descriptor file names in lookup order.
var DescriptorNames = []string{"tests.json", "tests.yaml", "tests.yml"}

// ServerConfigName is the squishserver configuration file kept in the suite directory.
const ServerConfigName = "server.ini"

// ErrNoSuiteDir is returned when no descriptor is found.
var ErrNoSuiteDir = errors.New("tests.json not found: not a squish suite directory (or any parent up to the root)")

// FindDescriptor returns the path of the descriptor inside dir.
func FindDescriptor(dir string) (string, bool) {
	for _, name := range DescriptorNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// IsYAML reports whether the descriptor path uses YAML syntax.
func IsYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// FindSuiteDir walks up from the current working directory until it finds a descriptor.
func FindSuiteDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return FindSuiteDirFrom(cwd)
}

// FindSuiteDirFrom walks up from the given directory until it finds a descriptor.
func FindSuiteDirFrom(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if _, ok := FindDescriptor(dir); ok {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", ErrNoSuiteDir
		}
		dir = parent
	}
}
