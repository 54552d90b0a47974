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

package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/toitlang/distdb/pkg/distdb"
	"github.com/toitlang/distdb/pkg/logging"
	"github.com/toitlang/distdb/pkg/scheme"
)

const ConfigKeySearchPaths = "index.paths"
const ConfigKeyLegacy = "index.legacy"
const ConfigKeyCache = "index.cache"
const ConfigKeyIgnore = "index.ignore"
const ConfigKeyScheme = "scheme"

type ConfigStore interface {
	Load(ctx context.Context) (*Config, error)
	Store(ctx context.Context, cfg *Config) error
}

type Config struct {
	// SearchPaths are the search locations of the config file.
	SearchPaths []string
	// EnvSearchPaths are the search locations of the environment.
	// They take precedence over SearchPaths and are never stored.
	EnvSearchPaths []string
	Ignore         []string
	Scheme         string

	// The following entries must be `nil` if they are not set in the
	// configuration.
	IncludeLegacy *bool
	UseCache      *bool
}

type indexHandler struct {
	cfg      *Config
	cfgStore ConfigStore
	ui       distdb.UI
	index    *distdb.Index
}

func (h *indexHandler) saveConfigs(ctx context.Context) error {
	return h.cfgStore.Store(ctx, h.cfg)
}

func (h *indexHandler) searchPaths(cmd *cobra.Command) ([]string, error) {
	paths, err := cmd.Flags().GetStringArray("path")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		paths = h.cfg.EnvSearchPaths
	}
	if len(paths) == 0 {
		paths = h.cfg.SearchPaths
	}
	if len(paths) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		paths = []string{cwd}
	}
	return paths, nil
}

// boolSetting returns the flag value if the flag was given, and the
// configured value otherwise.
func boolSetting(cmd *cobra.Command, flag string, configured *bool, def bool) (bool, error) {
	if cmd.Flags().Changed(flag) {
		return cmd.Flags().GetBool(flag)
	}
	if configured != nil {
		return *configured, nil
	}
	return def, nil
}

func (h *indexHandler) buildIndex(cmd *cobra.Command) (*distdb.Index, error) {
	if h.index != nil {
		return h.index, nil
	}
	paths, err := h.searchPaths(cmd)
	if err != nil {
		return nil, err
	}
	legacy, err := boolSetting(cmd, "legacy", h.cfg.IncludeLegacy, false)
	if err != nil {
		return nil, err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, err
	}
	useCache := !noCache
	if !cmd.Flags().Changed("no-cache") && h.cfg.UseCache != nil {
		useCache = *h.cfg.UseCache
	}
	schemeName := h.cfg.Scheme
	if cmd.Flags().Changed("scheme") {
		if schemeName, err = cmd.Flags().GetString("scheme"); err != nil {
			return nil, err
		}
	}
	s, err := scheme.Get(schemeName)
	if err != nil {
		return nil, h.ui.ReportError("%v", err)
	}
	ignore, err := cmd.Flags().GetStringArray("ignore")
	if err != nil {
		return nil, err
	}

	options := []distdb.IndexOption{
		distdb.WithSearchPath(paths...),
		distdb.WithLegacy(legacy),
		distdb.WithScheme(s),
		distdb.WithUI(h.ui),
		distdb.WithIgnore(append(h.cfg.Ignore, ignore...)...),
	}
	if !useCache {
		options = append(options, distdb.WithoutCache())
	}
	index, err := distdb.NewIndex(options...)
	if err != nil {
		return nil, err
	}
	h.index = index
	return index, nil
}

// Distdb returns the root command of the distribution database tool.
// If ui is nil, the logger is configured from the verbosity flag and
// messages are reported through it.
func Distdb(run Run, configStore ConfigStore, ui distdb.UI) (*cobra.Command, error) {
	handler := &indexHandler{
		cfgStore: configStore,
		ui:       ui,
	}

	// 1. Sets up the logger and the UI.
	// 2. Loads the config before invoking the command.
	// 3. Intercepts any error and checks if it is an already-reported error.
	//    If it is, replaces it with a silent error.
	//    Otherwise returns it to the caller.
	// 4. Wraps the call into the given 'run' function.
	errorCfgRun := func(f CobraErrorCommand) CobraCommand {
		return run(func(cmd *cobra.Command, args []string) error {
			if handler.ui == nil {
				verbosity, err := cmd.Flags().GetCount("verbose")
				if err != nil {
					return err
				}
				logging.SetupLogger(verbosity)
				handler.ui = NewLogUI()
			}
			if handler.cfg == nil {
				cfg, err := handler.cfgStore.Load(cmd.Context())
				if err != nil {
					return err
				}
				handler.cfg = cfg
			}

			err := f(cmd, args)

			if distdb.IsErrAlreadyReported(err) {
				return newExitError(1)
			}
			return err
		})
	}

	cmd := &cobra.Command{
		Use:   "distdb",
		Short: "Query the database of installed distributions",
		Long: `Queries the distributions that are installed in a set of search locations.

Installed distributions are '.dist-info' directories. With '--legacy'
'.egg-info' files and directories as well as '.egg' directories and archives
are found too.

If no '--path' is given, the locations of the DISTDB_PATH environment
variable are searched. Otherwise the 'index.paths' entry of the config
file is used, or, if that isn't set either, the current working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringArray("path", nil, "a search location (can be repeated)")
	cmd.PersistentFlags().Bool("legacy", false, "also find egg-info distributions")
	cmd.PersistentFlags().Bool("no-cache", false, "rescan the search locations for every query")
	cmd.PersistentFlags().String("scheme", scheme.DefaultName, "the version scheme ('default' or 'semver')")
	cmd.PersistentFlags().StringArray("ignore", nil, "a glob of directory entries to skip (can be repeated)")
	cmd.PersistentFlags().CountP("verbose", "v", "increase the log level (can be repeated)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lists all installed distributions",
		Run:   errorCfgRun(handler.list),
		Args:  cobra.NoArgs,
	}
	listCmd.Flags().StringP("output", "o", "list", "Defines the output format (valid: 'list', 'yaml', 'json')")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Shows the summary of a distribution",
		Run:   errorCfgRun(handler.show),
		Args:  cobra.ExactArgs(1),
	})

	filesCmd := &cobra.Command{
		Use:   "files <name>",
		Short: "Lists the files installed by a distribution",
		Long: `Lists the files installed by a distribution.

By default the paths are printed as recorded in the manifest. With '--shell'
the paths are resolved and quoted so they can be pasted into a shell.`,
		Run:  errorCfgRun(handler.files),
		Args: cobra.ExactArgs(1),
	}
	filesCmd.Flags().Bool("shell", false, "print resolved, shell-quoted paths")
	cmd.AddCommand(filesCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "verify <name>",
		Short: "Checks the installed files of a distribution against its manifest",
		Run:   errorCfgRun(handler.verify),
		Args:  cobra.ExactArgs(1),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "provides <name> [<version>]",
		Short: "Lists the distributions that provide the given name",
		Run:   errorCfgRun(handler.provides),
		Args:  cobra.RangeArgs(1, 2),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "obsoletes <name> [<version>]",
		Short: "Lists the distributions that obsolete the given name",
		Run:   errorCfgRun(handler.obsoletes),
		Args:  cobra.RangeArgs(1, 2),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "users <path>",
		Short: "Lists the distributions that installed the given file",
		Run:   errorCfgRun(handler.users),
		Args:  cobra.ExactArgs(1),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "exports <category> [<name>]",
		Short: "Lists the exported entries of a category",
		Run:   errorCfgRun(handler.exports),
		Args:  cobra.RangeArgs(1, 2),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path <name> <relative>",
		Short: "Prints the installed location of a resource",
		Run:   errorCfgRun(handler.resourcePath),
		Args:  cobra.ExactArgs(2),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "locate <requirement>",
		Short: "Prints the first distribution that satisfies the requirement",
		Example: `  # Find a distribution that satisfies a version constraint.
  distdb locate 'requests (>=2.0, <3)'
`,
		Run:  errorCfgRun(handler.locate),
		Args: cobra.ExactArgs(1),
	})

	graphCmd := &cobra.Command{
		Use:   "graph",
		Short: "Prints the dependency graph in the DOT language",
		Long: `Prints the dependency graph in the DOT language.

Distributions without dependencies are left out. With '--all' they are
grouped in a 'disconnected' subgraph.`,
		Run:  errorCfgRun(handler.graph),
		Args: cobra.NoArgs,
	}
	graphCmd.Flags().Bool("all", false, "include distributions without dependencies")
	cmd.AddCommand(graphCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "tree <name>",
		Short: "Prints the dependency tree of a distribution",
		Run:   errorCfgRun(handler.tree),
		Args:  cobra.ExactArgs(1),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "order",
		Short: "Prints the distributions in dependency order",
		Long: `Prints the distributions such that every distribution comes after the
distributions it depends on.

Distributions that are part of a dependency cycle are reported at the end.`,
		Run:  errorCfgRun(handler.order),
		Args: cobra.NoArgs,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "depends <name>",
		Short: "Lists the transitive dependencies of a distribution",
		Run:   errorCfgRun(handler.depends),
		Args:  cobra.ExactArgs(1),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dependents <name>",
		Short: "Lists the distributions that transitively depend on a distribution",
		Run:   errorCfgRun(handler.dependents),
		Args:  cobra.ExactArgs(1),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "missing",
		Short: "Lists requirements that no installed distribution satisfies",
		Run:   errorCfgRun(handler.missing),
		Args:  cobra.NoArgs,
	})

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manages the configuration",
	}
	cmd.AddCommand(configCmd)

	configCmd.AddCommand(&cobra.Command{
		Use:   "add-path <path>...",
		Short: "Adds search locations to the config file",
		Run:   errorCfgRun(handler.configAddPath),
		Args:  cobra.MinimumNArgs(1),
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "remove-path <path>...",
		Short: "Removes search locations from the config file",
		Run:   errorCfgRun(handler.configRemovePath),
		Args:  cobra.MinimumNArgs(1),
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "paths",
		Short: "Lists the search locations that are used",
		Run:   errorCfgRun(handler.configPaths),
		Args:  cobra.NoArgs,
	})

	return cmd, nil
}
