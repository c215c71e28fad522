// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package test provides fakes and helpers shared by the test suite: in-memory
// versions of the object store, the indexing service and the warehouse, plus
// access to the test configuration under configs/.
package test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-video-catalog/internal/cloud"
)

var (
	configOnce sync.Once
	config     *cloud.Config
	configErr  error
)

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// ModuleRoot walks up from the working directory to the directory holding go.mod.
func ModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above the working directory")
		}
		dir = parent
	}
}

// SetupOS points the configuration loader at the module's configs directory
// and the "test" runtime overrides.
func SetupOS() error {
	root, err := ModuleRoot()
	if err != nil {
		return err
	}
	if err = os.Setenv(cloud.EnvConfigFilePrefix, filepath.Join(root, "configs")); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig loads the test configuration once and returns the cached copy.
func GetConfig(t *testing.T) *cloud.Config {
	t.Helper()
	configOnce.Do(func() {
		if configErr = SetupOS(); configErr != nil {
			return
		}
		c := cloud.NewConfig()
		if configErr = cloud.LoadConfig(c); configErr != nil {
			return
		}
		config = c
	})
	if configErr != nil {
		t.Fatalf("failed to load test configuration: %v", configErr)
	}
	return config
}
