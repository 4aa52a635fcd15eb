// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package xdg locates webauth files under the XDG base directories.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const (
	appName        = "webauth"
	configFileName = "config.yaml"
)

// ConfigDir returns the webauth config directory: $XDG_CONFIG_HOME/webauth,
// falling back to ~/.config/webauth.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigFile returns ConfigDir()/config.yaml if it exists, or "" if
// it does not.
func DefaultConfigFile() (string, error) {
	path := filepath.Join(ConfigDir(), configFileName)
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", nil
	case err != nil:
		return "", oops.Code("CONFIG_PATH_FAILED").With("path", path).Wrap(err)
	case info.IsDir():
		return "", oops.Code("CONFIG_PATH_FAILED").With("path", path).Errorf("config path is a directory")
	}
	return path, nil
}
