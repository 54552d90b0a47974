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
	"fmt"
	"regexp"
	"strings"

	"github.com/toitlang/distdb/pkg/scheme"
	"github.com/toitlang/distdb/pkg/set"
)

// Dist is a distribution.
//
// The set of implementations is closed: *Distribution, *InstalledDistribution
// and *LegacyDistribution. Use a type switch to access the format specific
// operations.
type Dist interface {
	Name() string
	// Key is the lower-cased name, used for case-insensitive comparisons.
	Key() string
	Version() string
	Metadata() *Metadata
	DownloadURL() string
	// Provides returns the provided 'name (version)' entries. The
	// distribution always provides itself.
	Provides() []string
	// Requires returns the union of the declared requirements and the
	// requirements of the install, setup and test groups.
	Requires() []string
	// Requirements returns the requirements of the given group.
	Requirements(group string) []string
	Requested() bool
	BuildTimeDependency() bool
	Extras() []string
	// MatchesRequirement returns whether one of the provided entries
	// satisfies the requirement.
	MatchesRequirement(requirement string, s scheme.Scheme, ui UI) (bool, error)
	NameAndVersion() string
	String() string

	// identity distinguishes distributions in maps. Base distributions are
	// identified by name, version and download URL; on-disk distributions
	// by their path.
	identity() string
}

// Same returns whether a and b denote the same distribution.
func Same(a Dist, b Dist) bool {
	return a.identity() == b.identity()
}

// Distribution is a distribution described by its metadata only.
// It is also embedded by the on-disk formats.
type Distribution struct {
	metadata *Metadata

	name        string
	key         string
	version     string
	downloadURL string

	requested           bool
	buildTimeDependency bool
	extras              []string

	provides lazy[[]string]
	requires lazy[[]string]
}

var _ Dist = (*Distribution)(nil)

// NewDistribution creates a distribution from the given metadata.
// The name and version are taken from the metadata.
func NewDistribution(md *Metadata) *Distribution {
	d := &Distribution{}
	d.init(md)
	return d
}

func (d *Distribution) init(md *Metadata) {
	d.metadata = md
	d.name = md.Name()
	d.key = strings.ToLower(d.name)
	d.version = md.Version()
	d.downloadURL = md.GetOne(FieldDownloadURL)
}

func (d *Distribution) Name() string        { return d.name }
func (d *Distribution) Key() string         { return d.key }
func (d *Distribution) Version() string     { return d.version }
func (d *Distribution) Metadata() *Metadata { return d.metadata }
func (d *Distribution) DownloadURL() string { return d.downloadURL }

func (d *Distribution) Requested() bool { return d.requested }

func (d *Distribution) SetRequested(requested bool) { d.requested = requested }

// BuildTimeDependency returns whether the distribution is only needed to
// build another distribution.
func (d *Distribution) BuildTimeDependency() bool { return d.buildTimeDependency }

func (d *Distribution) SetBuildTimeDependency(b bool) { d.buildTimeDependency = b }

// Extras returns the extras that were requested for this distribution.
// Nil if none were requested.
func (d *Distribution) Extras() []string { return d.extras }

func (d *Distribution) SetExtras(extras []string) { d.extras = extras }

func (d *Distribution) identity() string {
	return d.name + "|" + d.version + "|" + d.downloadURL
}

func (d *Distribution) NameAndVersion() string {
	return fmt.Sprintf("%s (%s)", d.name, d.version)
}

func (d *Distribution) String() string {
	return d.name + " " + d.version
}

func (d *Distribution) Provides() []string {
	result, _ := d.provides.get(func() ([]string, error) {
		provides := set.NewString(d.metadata.Get(FieldProvidesDist)...)
		provides.Add(d.metadata.Get(FieldProvides)...)
		provides.Add(d.NameAndVersion())
		return provides.Values(), nil
	})
	return result
}

func (d *Distribution) Requires() []string {
	result, _ := d.requires.get(func() ([]string, error) {
		requires := set.NewString(d.metadata.Get(FieldRequiresDist)...)
		for _, group := range []string{InstallRequirements, SetupRequirements, TestRequirements} {
			requires.Add(d.metadata.Dependencies(group)...)
		}
		return requires.Values(), nil
	})
	return result
}

func (d *Distribution) Requirements(group string) []string {
	result := d.metadata.Dependencies(group)
	if result == nil {
		return []string{}
	}
	return result
}

func (d *Distribution) MatchesRequirement(requirement string, s scheme.Scheme, ui UI) (bool, error) {
	matcher, err := matcherFor(requirement, s, ui)
	if err != nil {
		return false, err
	}
	for _, p := range d.Provides() {
		name, version, err := splitProvided(p)
		if err != nil {
			continue
		}
		if strings.ToLower(name) != matcher.Key() {
			continue
		}
		ok, err := matcher.Match(version)
		if err != nil {
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// matcherFor parses the requirement.
// If the version in the requirement can't be understood by the scheme, the
// requirement degrades to a name-only requirement, and a warning is
// reported.
func matcherFor(requirement string, s scheme.Scheme, ui UI) (scheme.Matcher, error) {
	matcher, err := s.Matcher(requirement)
	if err == nil {
		return matcher, nil
	}
	if !errors.Is(err, scheme.ErrUnsupportedVersion) {
		return nil, invalidf("invalid requirement '%s': %v", requirement, err)
	}
	name := scheme.RequirementName(requirement)
	orNullUI(ui).ReportWarning("could not read version from requirement '%s': matching by name '%s' only", requirement, name)
	matcher, err = s.Matcher(name)
	if err != nil {
		return nil, invalidf("invalid requirement '%s': %v", requirement, err)
	}
	return matcher, nil
}

// splitProvided splits a provides entry into its name and its optional
// version. A version part, if present, must be parenthesized; an entry
// without one only carries a name.
// The name is returned even if the version part is ill-formed.
func splitProvided(p string) (name string, version string, err error) {
	name = strings.TrimSpace(p)
	i := strings.LastIndexByte(name, ' ')
	if i < 0 {
		return name, "", nil
	}
	name, version = strings.TrimSpace(name[:i]), name[i+1:]
	if len(version) < 3 || version[0] != '(' || version[len(version)-1] != ')' {
		return name, "", invalidf("ill-formed provides entry: '%s'", p)
	}
	return name, version[1 : len(version)-1], nil
}

var nameAndVersionRegexp = regexp.MustCompile(`^([\w .-]+?)\s*\(\s*([^\s)]+)\s*\)$`)

// ParseNameAndVersion splits a 'name (version)' entry.
func ParseNameAndVersion(s string) (name string, version string, err error) {
	m := nameAndVersionRegexp.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", invalidf("ill-formed name/version string: '%s'", s)
	}
	return strings.TrimSpace(m[1]), m[2], nil
}

// lazy is a value that is computed once, until it is reset.
type lazy[T any] struct {
	done  bool
	value T
	err   error
}

func (l *lazy[T]) get(compute func() (T, error)) (T, error) {
	if !l.done {
		l.value, l.err = compute()
		l.done = true
	}
	return l.value, l.err
}

func (l *lazy[T]) reset() {
	var zero T
	l.done = false
	l.value = zero
	l.err = nil
}
