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

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toitlang/distdb/commands"
	"github.com/toitlang/distdb/config"
	"github.com/toitlang/distdb/config/store"
)

func getTrimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func main() {
	cfgFile := getTrimmedEnv(config.ConfigFileEnv)
	searchPaths, _ := config.SearchPaths()
	var includeLegacy *bool
	if legacy, ok := config.EnvBool(config.IncludeLegacyEnv); ok {
		includeLegacy = &legacy
	}
	noCache, _ := config.EnvBool(config.NoCacheEnv)

	configStore := store.NewViper(searchPaths, includeLegacy, noCache)
	cobra.OnInitialize(func() {
		if cfgFile == "" {
			cfgFile, _ = config.UserConfigFile()
		}
		configStore.Init(cfgFile)
	})

	rootCmd, err := commands.Distdb(commands.DefaultRunWrapper, configStore, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
