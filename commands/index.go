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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"github.com/toitlang/distdb/pkg/distdb"
)

const maxSuggestions = 3

func toDists(dists []distdb.DiskDist) []distdb.Dist {
	result := make([]distdb.Dist, 0, len(dists))
	for _, d := range dists {
		result = append(result, d)
	}
	return result
}

func printDists[T distdb.Dist](cmd *cobra.Command, dists []T) {
	out := cmd.OutOrStdout()
	for _, d := range dists {
		fmt.Fprintln(out, d.NameAndVersion())
	}
}

// suggestions returns the names that fuzzily match the given name, best
// match first.
func suggestions(name string, dists []distdb.DiskDist) []string {
	names := []string{}
	seen := map[string]bool{}
	for _, d := range dists {
		if !seen[d.Key()] {
			seen[d.Key()] = true
			names = append(names, d.Key())
		}
	}
	result := []string{}
	for _, match := range fuzzy.Find(strings.ToLower(name), names) {
		if len(result) == maxSuggestions {
			break
		}
		result = append(result, "'"+match.Str+"'")
	}
	return result
}

// distribution returns the distribution with the given name.
// Reports an error, with suggestions, if there is no such distribution.
func (h *indexHandler) distribution(cmd *cobra.Command, name string) (distdb.DiskDist, *distdb.Index, error) {
	index, err := h.buildIndex(cmd)
	if err != nil {
		return nil, nil, err
	}
	d, err := index.Distribution(name)
	if err != nil {
		return nil, nil, err
	}
	if d != nil {
		return d, index, nil
	}
	dists, err := index.Distributions()
	if err != nil {
		return nil, nil, err
	}
	if s := suggestions(name, dists); len(s) > 0 {
		return nil, nil, h.ui.ReportError("No distribution named '%s' found. Did you mean %s?", name, strings.Join(s, ", "))
	}
	return nil, nil, h.ui.ReportError("No distribution named '%s' found", name)
}

func (h *indexHandler) list(cmd *cobra.Command, args []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output != "list" && output != "yaml" && output != "json" {
		return h.ui.ReportError("Invalid output format '%s'", output)
	}
	index, err := h.buildIndex(cmd)
	if err != nil {
		return err
	}
	dists, err := index.Distributions()
	if err != nil {
		return err
	}
	if output == "list" {
		printDists(cmd, dists)
		return nil
	}
	summaries := distdb.Summaries{}
	for _, d := range dists {
		summaries = append(summaries, distdb.Summarize(d))
	}
	if output == "yaml" {
		return summaries.WriteYAML(cmd.OutOrStdout())
	}
	return summaries.WriteJSON(cmd.OutOrStdout())
}

func (h *indexHandler) show(cmd *cobra.Command, args []string) error {
	d, _, err := h.distribution(cmd, args[0])
	if err != nil {
		return err
	}
	return distdb.Summarize(d).WriteYAML(cmd.OutOrStdout())
}

func (h *indexHandler) files(cmd *cobra.Command, args []string) error {
	shell, err := cmd.Flags().GetBool("shell")
	if err != nil {
		return err
	}
	d, _, err := h.distribution(cmd, args[0])
	if err != nil {
		return err
	}
	entries, err := d.InstalledFiles()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, entry := range entries {
		p := entry.Path
		if shell {
			if !filepath.IsAbs(p) {
				p = filepath.Join(filepath.Dir(d.Path()), filepath.FromSlash(p))
			}
			p = shellescape.Quote(p)
		}
		fmt.Fprintln(out, p)
	}
	return nil
}

func (h *indexHandler) verify(cmd *cobra.Command, args []string) error {
	d, _, err := h.distribution(cmd, args[0])
	if err != nil {
		return err
	}
	mismatches, err := d.CheckInstalledFiles()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, m := range mismatches {
		if m.Kind == distdb.MismatchExists {
			fmt.Fprintf(out, "%s: missing\n", m.Path)
			continue
		}
		fmt.Fprintf(out, "%s: %s differs (expected %s, got %s)\n", m.Path, m.Kind, m.Expected, m.Actual)
	}
	if len(mismatches) > 0 {
		return h.ui.ReportError("%d installed files of '%s' don't match the manifest", len(mismatches), d.Name())
	}
	fmt.Fprintf(out, "%s: all installed files match\n", d.NameAndVersion())
	return nil
}

func optionalArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}

func (h *indexHandler) provides(cmd *cobra.Command, args []string) error {
	index, err := h.buildIndex(cmd)
	if err != nil {
		return err
	}
	dists, err := index.Providing(args[0], optionalArg(args, 1))
	if err != nil {
		return err
	}
	printDists(cmd, dists)
	return nil
}

func (h *indexHandler) obsoletes(cmd *cobra.Command, args []string) error {
	index, err := h.buildIndex(cmd)
	if err != nil {
		return err
	}
	dists, err := index.Obsoleting(args[0], optionalArg(args, 1))
	if err != nil {
		return err
	}
	printDists(cmd, dists)
	return nil
}

func (h *indexHandler) users(cmd *cobra.Command, args []string) error {
	index, err := h.buildIndex(cmd)
	if err != nil {
		return err
	}
	dists, err := index.FileUsers(args[0])
	if err != nil {
		return err
	}
	printDists(cmd, dists)
	return nil
}

func (h *indexHandler) exports(cmd *cobra.Command, args []string) error {
	index, err := h.buildIndex(cmd)
	if err != nil {
		return err
	}
	entries, err := index.ExportedEntries(args[0], optionalArg(args, 1))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, entry := range entries {
		if entry.Dist != nil {
			fmt.Fprintf(out, "%s (%s)\n", entry, entry.Dist.NameAndVersion())
		} else {
			fmt.Fprintln(out, entry)
		}
	}
	return nil
}

func (h *indexHandler) resourcePath(cmd *cobra.Command, args []string) error {
	index, err := h.buildIndex(cmd)
	if err != nil {
		return err
	}
	p, err := index.ResourcePath(args[0], args[1])
	if err != nil {
		return h.ui.ReportError("%v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), p)
	return nil
}

func (h *indexHandler) locate(cmd *cobra.Command, args []string) error {
	index, err := h.buildIndex(cmd)
	if err != nil {
		return err
	}
	d, err := index.Locate(args[0])
	if err != nil {
		return err
	}
	if d == nil {
		return h.ui.ReportError("No distribution satisfies '%s'", args[0])
	}
	fmt.Fprintln(cmd.OutOrStdout(), d.NameAndVersion())
	return nil
}

func (h *indexHandler) buildGraph(cmd *cobra.Command) (*distdb.DependencyGraph, *distdb.Index, error) {
	index, err := h.buildIndex(cmd)
	if err != nil {
		return nil, nil, err
	}
	dists, err := index.Distributions()
	if err != nil {
		return nil, nil, err
	}
	g, err := distdb.BuildGraph(toDists(dists), index.Scheme(), h.ui)
	if err != nil {
		return nil, nil, err
	}
	return g, index, nil
}

func (h *indexHandler) graph(cmd *cobra.Command, args []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	g, _, err := h.buildGraph(cmd)
	if err != nil {
		return err
	}
	return g.ToDot(cmd.OutOrStdout(), !all)
}

func (h *indexHandler) tree(cmd *cobra.Command, args []string) error {
	d, _, err := h.distribution(cmd, args[0])
	if err != nil {
		return err
	}
	g, _, err := h.buildGraph(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), g.ReprNode(d))
	return nil
}

func (h *indexHandler) order(cmd *cobra.Command, args []string) error {
	g, _, err := h.buildGraph(cmd)
	if err != nil {
		return err
	}
	sorted, residual := g.TopologicalSort()
	printDists(cmd, sorted)
	if len(residual) > 0 {
		names := []string{}
		for _, d := range residual {
			names = append(names, d.NameAndVersion())
		}
		h.ui.ReportWarning("Cyclic dependencies between: %s", strings.Join(names, ", "))
		printDists(cmd, residual)
	}
	return nil
}

func (h *indexHandler) transitive(cmd *cobra.Command, name string, query func([]distdb.Dist, distdb.Dist, *distdb.Index) ([]distdb.Dist, error)) error {
	d, index, err := h.distribution(cmd, name)
	if err != nil {
		return err
	}
	dists, err := index.Distributions()
	if err != nil {
		return err
	}
	result, err := query(toDists(dists), d, index)
	if err != nil {
		return err
	}
	printDists(cmd, result)
	return nil
}

func (h *indexHandler) depends(cmd *cobra.Command, args []string) error {
	return h.transitive(cmd, args[0], func(dists []distdb.Dist, d distdb.Dist, index *distdb.Index) ([]distdb.Dist, error) {
		return distdb.RequiredDists(dists, d, index.Scheme(), h.ui)
	})
}

func (h *indexHandler) dependents(cmd *cobra.Command, args []string) error {
	return h.transitive(cmd, args[0], func(dists []distdb.Dist, d distdb.Dist, index *distdb.Index) ([]distdb.Dist, error) {
		return distdb.DependentDists(dists, d, index.Scheme(), h.ui)
	})
}

func (h *indexHandler) missing(cmd *cobra.Command, args []string) error {
	g, _, err := h.buildGraph(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, d := range g.Nodes() {
		for _, req := range g.Missing(d) {
			fmt.Fprintf(out, "%s: %s\n", d.NameAndVersion(), req)
		}
	}
	return nil
}

func (h *indexHandler) configAddPath(cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		p, err := filepath.Abs(arg)
		if err != nil {
			return err
		}
		if contains(h.cfg.SearchPaths, p) {
			h.ui.ReportWarning("Search location '%s' is already configured", p)
			continue
		}
		h.cfg.SearchPaths = append(h.cfg.SearchPaths, p)
	}
	return h.saveConfigs(cmd.Context())
}

func (h *indexHandler) configRemovePath(cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		p, err := filepath.Abs(arg)
		if err != nil {
			return err
		}
		if !contains(h.cfg.SearchPaths, p) {
			return h.ui.ReportError("Search location '%s' is not configured", p)
		}
		remaining := []string{}
		for _, existing := range h.cfg.SearchPaths {
			if existing != p {
				remaining = append(remaining, existing)
			}
		}
		h.cfg.SearchPaths = remaining
	}
	return h.saveConfigs(cmd.Context())
}

func (h *indexHandler) configPaths(cmd *cobra.Command, args []string) error {
	paths, err := h.searchPaths(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
