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

package store

import (
	"context"

	"github.com/spf13/viper"
	"github.com/toitlang/distdb/commands"
)

type Viper struct {
	searchPaths   []string
	includeLegacy *bool
	noCache       bool
}

// NewViper returns a config store that reads the config file with viper.
// The given environment settings override the ones of the config file.
// A nil searchPaths means that the environment doesn't set any.
func NewViper(searchPaths []string, includeLegacy *bool, noCache bool) *Viper {
	return &Viper{
		searchPaths:   searchPaths,
		includeLegacy: includeLegacy,
		noCache:       noCache,
	}
}

func (vc *Viper) Init(cfgFile string) error {
	viper.SetConfigFile(cfgFile)
	return viper.ReadInConfig()
}

func (vc *Viper) Load(ctx context.Context) (*commands.Config, error) {
	result := commands.Config{
		EnvSearchPaths: vc.searchPaths,
		SearchPaths:    viper.GetStringSlice(commands.ConfigKeySearchPaths),
		Ignore:         viper.GetStringSlice(commands.ConfigKeyIgnore),
		Scheme:         viper.GetString(commands.ConfigKeyScheme),
	}

	if vc.includeLegacy != nil {
		legacy := *vc.includeLegacy
		result.IncludeLegacy = &legacy
	} else if viper.IsSet(commands.ConfigKeyLegacy) {
		legacy := viper.GetBool(commands.ConfigKeyLegacy)
		result.IncludeLegacy = &legacy
	}

	if vc.noCache {
		useCache := false
		result.UseCache = &useCache
	} else if viper.IsSet(commands.ConfigKeyCache) {
		useCache := viper.GetBool(commands.ConfigKeyCache)
		result.UseCache = &useCache
	}

	return &result, nil
}

// Store writes the settings that come from the config file.
// Settings of the environment aren't written.
func (vc *Viper) Store(ctx context.Context, cfg *commands.Config) error {
	viper.Set(commands.ConfigKeySearchPaths, cfg.SearchPaths)
	if len(cfg.Ignore) > 0 {
		viper.Set(commands.ConfigKeyIgnore, cfg.Ignore)
	}
	if cfg.Scheme != "" {
		viper.Set(commands.ConfigKeyScheme, cfg.Scheme)
	}
	if cfg.IncludeLegacy != nil && vc.includeLegacy == nil {
		viper.Set(commands.ConfigKeyLegacy, *cfg.IncludeLegacy)
	}
	if cfg.UseCache != nil && !vc.noCache {
		viper.Set(commands.ConfigKeyCache, *cfg.UseCache)
	}
	return viper.WriteConfig()
}
