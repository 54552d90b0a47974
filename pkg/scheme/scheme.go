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

// Package scheme parses requirement strings into matchers.
//
// A requirement has the form
//   name [extra, extra] (op version, op version)
// where the bracketed extras and the version constraints are optional, and
// the parentheses around the constraints may be omitted. Anything after a ';'
// is an environment marker and is ignored.
//
// Versions are parsed with github.com/hashicorp/go-version. The "default"
// scheme accepts loose versions (like "1.0" or "2.0b1"), the "semver" scheme
// requires strict semantic versions.
package scheme

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/hashicorp/go-version"
)

var (
	// ErrUnsupportedVersion is returned when a version could not be
	// understood by the scheme. Callers may fall back to name-only
	// matching when they see this error.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrInvalidRequirement is returned for requirements that are
	// syntactically broken.
	ErrInvalidRequirement = errors.New("invalid requirement")
)

const (
	DefaultName = "default"
	SemverName  = "semver"
)

// Matcher is a parsed requirement.
type Matcher interface {
	// Name of the requirement as written.
	Name() string
	// Key is the lower-cased name, used for case-insensitive comparisons.
	Key() string
	// Extras that were requested in brackets. Nil if there were none.
	Extras() []string
	// ExactVersion returns the version if the requirement pins a single
	// version (like "foo (1.0)" or "foo (==1.0)"), and "" otherwise.
	ExactVersion() string
	// Match returns whether the given version satisfies the requirement.
	// An empty version only satisfies requirements without constraints.
	// Returns an error wrapping ErrUnsupportedVersion if the version can't
	// be parsed.
	Match(v string) (bool, error)
	String() string
}

// Scheme creates matchers.
type Scheme interface {
	Name() string
	// Matcher parses the requirement.
	// Version tokens that can't be parsed yield an error wrapping
	// ErrUnsupportedVersion. Other syntax errors wrap ErrInvalidRequirement.
	Matcher(requirement string) (Matcher, error)
	IsValidVersion(v string) bool
}

type versionScheme struct {
	name         string
	parseVersion func(string) (*version.Version, error)
}

var (
	Default Scheme = &versionScheme{
		name:         DefaultName,
		parseVersion: version.NewVersion,
	}

	Semver Scheme = &versionScheme{
		name:         SemverName,
		parseVersion: parseStrictSemver,
	}
)

// strictSemverRegexp matches MAJOR.MINOR.PATCH with optional pre-release
// and build metadata. go-version's NewSemver alone also accepts "1", "1.0",
// "v1.2.3" and more than three segments.
var strictSemverRegexp = regexp.MustCompile(`^(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)(-[0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?(\+[0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?$`)

func parseStrictSemver(v string) (*version.Version, error) {
	if !strictSemverRegexp.MatchString(v) {
		return nil, fmt.Errorf("not a semantic version: '%s'", v)
	}
	return version.NewSemver(v)
}

// Get returns the scheme with the given name.
// The empty name is an alias for the default scheme.
func Get(name string) (Scheme, error) {
	switch name {
	case "", DefaultName:
		return Default, nil
	case SemverName:
		return Semver, nil
	}
	return nil, fmt.Errorf("unknown version scheme '%s'", name)
}

func (s *versionScheme) Name() string {
	return s.name
}

func (s *versionScheme) IsValidVersion(v string) bool {
	_, err := s.parseVersion(v)
	return err == nil
}

func (s *versionScheme) Matcher(requirement string) (Matcher, error) {
	m, err := parseRequirement(requirement, s.parseVersion)
	if err != nil {
		return nil, err
	}
	return m, nil
}
