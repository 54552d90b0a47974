// Copyright (C) 2021 Toitware ApS.
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; version
// 2.1 only.
//
// This library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// The license can be found in the file `LICENSE` in the top level
// directory of this repository.

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// SearchPathEnv contains the colon-separated locations that are scanned
	// for installed distributions.
	SearchPathEnv = "DISTDB_PATH"
	// ConfigFileEnv, if set, is the config file that is used instead of the
	// one in the user directory.
	ConfigFileEnv = "DISTDB_CONFIG_FILE"
	// IncludeLegacyEnv enables the discovery of egg-info distributions.
	IncludeLegacyEnv = "DISTDB_INCLUDE_LEGACY"
	// NoCacheEnv disables the index cache.
	NoCacheEnv = "DISTDB_NO_CACHE"
	// UserConfigDirEnv if set, will be the directory the user config will be loaded from.
	UserConfigDirEnv = "DISTDB_USER_CONFIG_DIR"
)

func EnsureDirectory(dir string, err error) (string, error) {
	if err != nil {
		return dir, err
	}
	return dir, os.MkdirAll(dir, 0755)
}

// SearchPaths returns the locations from the SearchPathEnv variable.
// Empty segments are dropped. The boolean is false if the variable isn't set.
func SearchPaths() ([]string, bool) {
	variable, exists := os.LookupEnv(SearchPathEnv)
	if !exists {
		return nil, false
	}
	result := []string{}
	for _, part := range strings.Split(variable, string(filepath.ListSeparator)) {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result, true
}

// EnvBool returns the boolean value of the given environment variable.
// Any non-empty value that doesn't parse as a boolean counts as true.
// The second result is false if the variable isn't set or empty.
func EnvBool(envName string) (value bool, ok bool) {
	variable := strings.TrimSpace(os.Getenv(envName))
	if variable == "" {
		return false, false
	}
	if b, err := strconv.ParseBool(variable); err == nil {
		return b, true
	}
	return true, true
}
