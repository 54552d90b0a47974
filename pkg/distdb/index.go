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

package distdb

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/toitlang/distdb/pkg/logging"
	"github.com/toitlang/distdb/pkg/scheme"
)

// Index finds the distributions in a list of search locations.
//
// With caching enabled (the default), every location is scanned once, and
// later queries are answered from the cache until it is cleared. With
// caching disabled, every query rescans the locations.
//
// An Index is not safe for concurrent use.
type Index struct {
	ui      UI
	options *indexOptions

	cacheEnabled bool
	cache        *distCache
	legacyCache  *distCache
	ignore       []glob.Glob
}

type indexOptions struct {
	// The directories that are scanned for distributions, in order.
	searchPaths []string
	// Whether '.egg-info' and '.egg' distributions are found as well.
	includeLegacy bool
	scheme        scheme.Scheme
	ui            UI
	// Glob patterns of directory entries that are never considered.
	ignore  []string
	noCache bool
}

func (o *indexOptions) apply(options ...IndexOption) {
	for _, option := range options {
		option.applyIndexOption(o)
	}
}

// IndexOption defines the optional parameters for NewIndex.
type IndexOption interface {
	applyIndexOption(*indexOptions)
}

type indexOptionFunc func(*indexOptions)

func (f indexOptionFunc) applyIndexOption(o *indexOptions) {
	f(o)
}

// WithSearchPath adds locations that are scanned for distributions.
func WithSearchPath(paths ...string) IndexOption {
	return indexOptionFunc(func(o *indexOptions) {
		o.searchPaths = append(o.searchPaths, paths...)
	})
}

// WithLegacy sets whether legacy ('.egg-info', '.egg') distributions are
// found.
func WithLegacy(includeLegacy bool) IndexOption {
	return indexOptionFunc(func(o *indexOptions) {
		o.includeLegacy = includeLegacy
	})
}

// WithScheme sets the version scheme that is used for obsoletes and
// provides queries.
func WithScheme(s scheme.Scheme) IndexOption {
	return indexOptionFunc(func(o *indexOptions) {
		o.scheme = s
	})
}

func WithUI(ui UI) IndexOption {
	return indexOptionFunc(func(o *indexOptions) {
		o.ui = ui
	})
}

// WithIgnore adds glob patterns. Entries of the search locations whose name
// matches one of them are skipped.
func WithIgnore(patterns ...string) IndexOption {
	return indexOptionFunc(func(o *indexOptions) {
		o.ignore = append(o.ignore, patterns...)
	})
}

// WithoutCache creates the index with a disabled cache.
func WithoutCache() IndexOption {
	return indexOptionFunc(func(o *indexOptions) {
		o.noCache = true
	})
}

var blocklist = []string{
	".*", // Hidden entries, including the manifest lock and temporary files.
}

// NewIndex creates a new index.
// Returns an error if one of the ignore patterns is not a valid glob.
func NewIndex(options ...IndexOption) (*Index, error) {
	o := &indexOptions{
		scheme: scheme.Default,
	}
	o.apply(options...)

	ignore := []glob.Glob{}
	for _, pattern := range append(append([]string{}, blocklist...), o.ignore...) {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, invalidf("invalid ignore pattern '%s': %v", pattern, err)
		}
		ignore = append(ignore, g)
	}

	return &Index{
		ui:           orNullUI(o.ui),
		options:      o,
		cacheEnabled: !o.noCache,
		cache:        newDistCache(),
		legacyCache:  newDistCache(),
		ignore:       ignore,
	}, nil
}

// distCache indexes distributions by path and by key.
type distCache struct {
	paths  []string
	byPath map[string]DiskDist
	byKey  map[string][]DiskDist
	// Whether the cache contains all distributions of the search locations.
	generated bool
}

func newDistCache() *distCache {
	return &distCache{
		byPath: map[string]DiskDist{},
		byKey:  map[string][]DiskDist{},
	}
}

func (c *distCache) clear() {
	c.paths = nil
	c.byPath = map[string]DiskDist{}
	c.byKey = map[string][]DiskDist{}
	c.generated = false
}

// add inserts the distribution unless its path is already cached.
func (c *distCache) add(d DiskDist) {
	if _, ok := c.byPath[d.Path()]; ok {
		return
	}
	c.paths = append(c.paths, d.Path())
	c.byPath[d.Path()] = d
	c.byKey[d.Key()] = append(c.byKey[d.Key()], d)
}

func (c *distCache) all() []DiskDist {
	result := []DiskDist{}
	for _, p := range c.paths {
		result = append(result, c.byPath[p])
	}
	return result
}

// Scheme returns the version scheme of the index.
func (x *Index) Scheme() scheme.Scheme {
	return x.options.scheme
}

func (x *Index) SearchPaths() []string {
	return append([]string{}, x.options.searchPaths...)
}

func (x *Index) CacheEnabled() bool {
	return x.cacheEnabled
}

// EnableCache enables the cache. It doesn't clear it.
func (x *Index) EnableCache() {
	x.cacheEnabled = true
}

// DisableCache disables the cache. It doesn't clear it.
func (x *Index) DisableCache() {
	x.cacheEnabled = false
}

// Clear empties both caches. The next query rescans the search locations.
func (x *Index) Clear() {
	x.cache.clear()
	x.legacyCache.clear()
}

// Add inserts the given distribution into the matching cache.
// A distribution whose path is already cached is ignored.
func (x *Index) Add(d DiskDist) {
	switch d.(type) {
	case *LegacyDistribution:
		x.legacyCache.add(d)
	default:
		x.cache.add(d)
	}
}

// DistInfoDirname returns the name of the '.dist-info' directory of the
// given distribution.
func DistInfoDirname(name string, version string) string {
	return strings.ReplaceAll(name, "-", "_") + "-" + version + DistInfoExt
}

func (x *Index) isIgnored(name string) bool {
	for _, g := range x.ignore {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// scan finds all distributions in the search locations and calls found for
// each of them. Distributions that are already cached are reused instead of
// being loaded again.
func (x *Index) scan(found func(d DiskDist)) error {
	logger := logging.GetLogger("index")
	for _, searchPath := range x.options.searchPaths {
		realPath, err := filepath.EvalSymlinks(searchPath)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		if realPath, err = filepath.Abs(realPath); err != nil {
			return err
		}
		stat, err := os.Stat(realPath)
		if err != nil {
			return err
		}
		if !stat.IsDir() {
			continue
		}
		entries, err := os.ReadDir(realPath)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if x.isIgnored(entry.Name()) {
				continue
			}
			p := filepath.Join(realPath, entry.Name())
			d, err := x.load(p, entry)
			if err != nil {
				return err
			}
			if d == nil {
				continue
			}
			logger.Trace().Str("path", p).Str("dist", d.String()).Msg("Found distribution")
			found(d)
		}
	}
	return nil
}

// load returns the distribution at p, or nil if p isn't a distribution.
func (x *Index) load(p string, entry os.DirEntry) (DiskDist, error) {
	name := entry.Name()
	isDir := entry.IsDir()
	if entry.Type()&os.ModeSymlink != 0 {
		stat, err := os.Stat(p)
		if err != nil {
			return nil, nil
		}
		isDir = stat.IsDir()
	}

	switch {
	case strings.HasSuffix(name, DistInfoExt) && isDir:
		if d, ok := x.cache.byPath[p]; ok && x.cacheEnabled {
			return d, nil
		}
		md, err := ReadMetadataFile(filepath.Join(p, MetadataFileName))
		if errors.Is(err, os.ErrNotExist) {
			logger := logging.GetLogger("index")
			logger.Debug().Str("path", p).Msg("Skipping directory without metadata")
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return newInstalledDistribution(p, md)

	case x.options.includeLegacy && (strings.HasSuffix(name, EggInfoExt) || strings.HasSuffix(name, EggExt)):
		if d, ok := x.legacyCache.byPath[p]; ok && x.cacheEnabled {
			return d, nil
		}
		return NewLegacyDistribution(p, x.ui)
	}
	return nil, nil
}

// generate fills the caches, unless they were already generated.
func (x *Index) generate() error {
	needInstalled := !x.cache.generated
	needLegacy := x.options.includeLegacy && !x.legacyCache.generated
	if !needInstalled && !needLegacy {
		return nil
	}
	logger := logging.GetLogger("index")
	logger.Debug().Strs("paths", x.options.searchPaths).Msg("Generating distribution cache")
	err := x.scan(func(d DiskDist) {
		switch d.(type) {
		case *LegacyDistribution:
			if needLegacy {
				x.legacyCache.add(d)
			}
		default:
			if needInstalled {
				x.cache.add(d)
			}
		}
	})
	if err != nil {
		return err
	}
	x.cache.generated = true
	if x.options.includeLegacy {
		x.legacyCache.generated = true
	}
	return nil
}

// Distributions returns all distributions of the search locations.
// Installed distributions come first, followed by legacy distributions.
func (x *Index) Distributions() ([]DiskDist, error) {
	if !x.cacheEnabled {
		installed := []DiskDist{}
		legacy := []DiskDist{}
		err := x.scan(func(d DiskDist) {
			if _, ok := d.(*LegacyDistribution); ok {
				legacy = append(legacy, d)
			} else {
				installed = append(installed, d)
			}
		})
		if err != nil {
			return nil, err
		}
		return append(installed, legacy...), nil
	}

	if err := x.generate(); err != nil {
		return nil, err
	}
	result := x.cache.all()
	if x.options.includeLegacy {
		result = append(result, x.legacyCache.all()...)
	}
	return result, nil
}

// Distribution returns the distribution with the given name.
// The name is compared case-insensitively. If multiple distributions have
// the same name, the first one that was found is returned.
// Returns nil if there is no such distribution.
func (x *Index) Distribution(name string) (DiskDist, error) {
	key := strings.ToLower(name)
	if x.cacheEnabled {
		if err := x.generate(); err != nil {
			return nil, err
		}
		if dists := x.cache.byKey[key]; len(dists) > 0 {
			return dists[0], nil
		}
		if dists := x.legacyCache.byKey[key]; x.options.includeLegacy && len(dists) > 0 {
			return dists[0], nil
		}
		return nil, nil
	}

	dists, err := x.Distributions()
	if err != nil {
		return nil, err
	}
	for _, d := range dists {
		if d.Key() == key {
			return d, nil
		}
	}
	return nil, nil
}

// Obsoleting returns the distributions that obsolete the given name.
//
// An obsoletes entry without version constraint matches the name
// unconditionally. An entry with constraints only matches if a version is
// given and the version satisfies the constraints. Entries whose
// constraints can't be parsed are an error.
func (x *Index) Obsoleting(name string, version string) ([]DiskDist, error) {
	dists, err := x.Distributions()
	if err != nil {
		return nil, err
	}
	key := strings.ToLower(name)
	result := []DiskDist{}
	for _, d := range dists {
		obsoleted := append(d.Metadata().Get(FieldObsoletesDist), d.Metadata().Get(FieldObsoletes)...)
		for _, obs := range obsoleted {
			obsName, _, hasConstraint := strings.Cut(strings.TrimSpace(obs), " ")
			if !hasConstraint || version == "" {
				if strings.ToLower(obsName) == key {
					result = append(result, d)
					break
				}
				continue
			}
			matcher, err := x.options.scheme.Matcher(obs)
			if err != nil {
				return nil, invalidf("distribution '%s' has ill-formed obsoletes field: '%s'", d.Name(), obs)
			}
			if matcher.Key() != key {
				continue
			}
			ok, err := matcher.Match(version)
			if err != nil {
				return nil, invalidf("invalid version '%s': %v", version, err)
			}
			if ok {
				result = append(result, d)
				break
			}
		}
	}
	return result, nil
}

// Providing returns the distributions that provide the given name.
// If version is not empty, the provided version must be equal to it (as
// interpreted by the scheme); provides entries without a version then
// don't match.
// Entries whose version part isn't of the form '(version)' are skipped
// when no version is given, and are an error otherwise.
func (x *Index) Providing(name string, version string) ([]DiskDist, error) {
	var matcher scheme.Matcher
	if version != "" {
		var err error
		matcher, err = x.options.scheme.Matcher(name + " (" + version + ")")
		if err != nil {
			return nil, invalidf("invalid name or version: '%s', '%s'", name, version)
		}
	}

	dists, err := x.Distributions()
	if err != nil {
		return nil, err
	}
	key := strings.ToLower(name)
	result := []DiskDist{}
	for _, d := range dists {
		for _, p := range d.Provides() {
			pName, pVersion, err := splitProvided(p)
			if err != nil {
				if matcher != nil {
					return nil, invalidf("distribution '%s' has ill-formed provides field: '%s'", d.Name(), p)
				}
				continue
			}
			if strings.ToLower(pName) != key {
				continue
			}
			if matcher != nil {
				ok, err := matcher.Match(pVersion)
				if err != nil {
					return nil, invalidf("distribution '%s' provides an invalid version: '%s'", d.Name(), p)
				}
				if !ok {
					continue
				}
			}
			result = append(result, d)
			break
		}
	}
	return result, nil
}

// FileUsers returns the distributions that installed the given path.
// The path may be absolute or a '/'-separated relative path.
func (x *Index) FileUsers(path string) ([]DiskDist, error) {
	dists, err := x.Distributions()
	if err != nil {
		return nil, err
	}
	result := []DiskDist{}
	for _, d := range dists {
		uses, err := d.Uses(path)
		if err != nil {
			return nil, err
		}
		if uses {
			result = append(result, d)
		}
	}
	return result, nil
}

// ResourcePath returns the installed location of a resource of the given
// distribution.
// Returns an ErrNotFound error if the distribution doesn't exist, or if the
// resource isn't listed.
func (x *Index) ResourcePath(name string, relative string) (string, error) {
	d, err := x.Distribution(name)
	if err != nil {
		return "", err
	}
	if d == nil {
		return "", notFoundf("no distribution named '%s' found", name)
	}
	installed, ok := d.(*InstalledDistribution)
	if !ok {
		return "", notFoundf("no resource file with relative path '%s' is installed", relative)
	}
	return installed.ResourcePath(relative)
}

// ExportedEntries returns the exported entries of the given category of all
// distributions. If name is not empty, only entries with that name are
// returned.
func (x *Index) ExportedEntries(category string, name string) ([]*ExportEntry, error) {
	dists, err := x.Distributions()
	if err != nil {
		return nil, err
	}
	result := []*ExportEntry{}
	for _, d := range dists {
		exports, err := d.Exports()
		if err != nil {
			return nil, err
		}
		for _, entry := range exports.Entries(category) {
			if name == "" || entry.Name == name {
				result = append(result, entry)
			}
		}
	}
	return result, nil
}

// Locate returns the first distribution that matches the requirement.
// Returns nil if no distribution matches.
func (x *Index) Locate(requirement string) (DiskDist, error) {
	dists, err := x.Distributions()
	if err != nil {
		return nil, err
	}
	for _, d := range dists {
		ok, err := d.MatchesRequirement(requirement, x.options.scheme, x.ui)
		if err != nil {
			return nil, err
		}
		if ok {
			return d, nil
		}
	}
	return nil, nil
}
