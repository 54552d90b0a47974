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

package scheme

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"
)

var (
	requirementRegexp = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)\s*(\[([^\]]*)\])?\s*(.*?)\s*$`)
	termRegexp        = regexp.MustCompile(`^(===|==|~=|!=|<=|>=|<|>|\^)?\s*(\S+)$`)
	nameRegexp        = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)`)
)

// RequirementName returns the leading name token of a requirement.
// Returns "" if the requirement doesn't start with a valid name.
func RequirementName(requirement string) string {
	m := nameRegexp.FindStringSubmatch(requirement)
	if m == nil {
		return ""
	}
	return m[1]
}

type check func(v *version.Version, raw string) bool

type requirementMatcher struct {
	original     string
	name         string
	extras       []string
	checks       []check
	exactVersion string
	parseVersion func(string) (*version.Version, error)
}

func parseRequirement(requirement string, parseVersion func(string) (*version.Version, error)) (*requirementMatcher, error) {
	withoutMarker := requirement
	if i := strings.IndexByte(withoutMarker, ';'); i >= 0 {
		withoutMarker = withoutMarker[:i]
	}
	m := requirementRegexp.FindStringSubmatch(withoutMarker)
	if m == nil {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidRequirement, requirement)
	}
	result := &requirementMatcher{
		original:     requirement,
		name:         m[1],
		parseVersion: parseVersion,
	}
	if m[2] != "" {
		result.extras = []string{}
		for _, extra := range strings.Split(m[3], ",") {
			extra = strings.TrimSpace(extra)
			if extra != "" {
				result.extras = append(result.extras, extra)
			}
		}
	}

	rest := m[4]
	if strings.HasPrefix(rest, "(") {
		if !strings.HasSuffix(rest, ")") {
			return nil, fmt.Errorf("%w: unbalanced parenthesis in '%s'", ErrInvalidRequirement, requirement)
		}
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}
	if rest == "" {
		return result, nil
	}

	parts := strings.Split(rest, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		tm := termRegexp.FindStringSubmatch(part)
		if tm == nil {
			return nil, fmt.Errorf("%w: bad constraint '%s' in '%s'", ErrInvalidRequirement, part, requirement)
		}
		op, vStr := tm[1], tm[2]
		c, err := result.buildCheck(op, vStr)
		if err != nil {
			return nil, err
		}
		result.checks = append(result.checks, c)
		if len(parts) == 1 && (op == "" || op == "==" || op == "===") && !strings.HasSuffix(vStr, ".*") {
			result.exactVersion = vStr
		}
	}
	return result, nil
}

func (r *requirementMatcher) unsupported(vStr string) error {
	return fmt.Errorf("%w: '%s' in '%s'", ErrUnsupportedVersion, vStr, r.original)
}

func (r *requirementMatcher) buildCheck(op string, vStr string) (check, error) {
	if op == "===" {
		return func(_ *version.Version, raw string) bool {
			return raw == vStr
		}, nil
	}

	if strings.HasSuffix(vStr, ".*") {
		if op != "" && op != "==" && op != "!=" {
			return nil, fmt.Errorf("%w: wildcard not allowed with '%s' in '%s'", ErrInvalidRequirement, op, r.original)
		}
		base := strings.TrimSuffix(vStr, ".*")
		if _, err := r.parseVersion(base); err != nil {
			return nil, r.unsupported(vStr)
		}
		cs, err := parseConstraintRange(base, segmentRange)
		if err != nil {
			return nil, err
		}
		negate := op == "!="
		return func(v *version.Version, _ string) bool {
			return cs.Check(v) != negate
		}, nil
	}

	if _, err := r.parseVersion(vStr); err != nil {
		return nil, r.unsupported(vStr)
	}

	var cs version.Constraints
	var err error
	switch op {
	case "^":
		cs, err = parseConstraintRange(vStr, semverRange)
	case "~=":
		if !strings.Contains(vStr, ".") {
			return nil, fmt.Errorf("%w: '~=' needs at least two segments in '%s'", ErrInvalidRequirement, r.original)
		}
		cs, err = version.NewConstraint("~> " + vStr)
	case "", "==":
		cs, err = version.NewConstraint("= " + vStr)
	default:
		cs, err = version.NewConstraint(op + " " + vStr)
	}
	if err != nil {
		return nil, r.unsupported(vStr)
	}
	return func(v *version.Version, _ string) bool {
		return cs.Check(v)
	}, nil
}

func (r *requirementMatcher) Name() string {
	return r.name
}

func (r *requirementMatcher) Key() string {
	return strings.ToLower(r.name)
}

func (r *requirementMatcher) Extras() []string {
	return r.extras
}

func (r *requirementMatcher) ExactVersion() string {
	return r.exactVersion
}

func (r *requirementMatcher) Match(vStr string) (bool, error) {
	if len(r.checks) == 0 {
		return true, nil
	}
	if vStr == "" {
		return false, nil
	}
	v, err := r.parseVersion(vStr)
	if err != nil {
		return false, r.unsupported(vStr)
	}
	for _, c := range r.checks {
		if !c(v, vStr) {
			return false, nil
		}
	}
	return true, nil
}

func (r *requirementMatcher) String() string {
	return r.original
}
