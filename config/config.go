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

	"github.com/adrg/xdg"
)

const (
	appName        = "distdb"
	configFileName = "config.yaml"
)

// UserConfigPath returns the directory the user config is loaded from.
// UserConfigDirEnv overrides the XDG config directory.
func UserConfigPath() (string, error) {
	if path, ok := os.LookupEnv(UserConfigDirEnv); ok {
		return path, nil
	}
	return filepath.Join(xdg.ConfigHome, appName), nil
}

// UserConfigFile returns the config file in the user directory.
// The boolean is false if the directory couldn't be created.
func UserConfigFile() (string, bool) {
	if dir, err := EnsureDirectory(UserConfigPath()); err == nil {
		return filepath.Join(dir, configFileName), true
	}
	return "", false
}
