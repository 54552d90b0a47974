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
	"strings"

	"github.com/hashicorp/go-version"
)

type rangeKind int

const (
	// A segment range means that the constraint accepts any digit for the
	// segments after the given ones.
	// For example, the wildcard "1.2.*" accepts "1.2.3" or "1.2.9".
	segmentRange rangeKind = iota
	// A semver constraint accepts all versions that are semver compatible.
	semverRange
)

// parseConstraintRange expands vStr into a '>=lower,<upper' constraint.
func parseConstraintRange(vStr string, kind rangeKind) (version.Constraints, error) {
	v, err := version.NewVersion(vStr)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedVersion, vStr)
	}
	segments := v.Segments()
	upper := ""
	if kind == semverRange {
		// '^1.2.3' is equivalent to '>=1.2.3,<2.0.0' and
		// '^0.1.2' is equivalent to '>=0.1.2,<0.2.0'
		reset := false
		for i, segment := range segments {
			if reset {
				segments[i] = 0
			} else if segment != 0 {
				segments[i] = segment + 1
				reset = true
			}
		}
		upper = joinSegments(segments)
	} else {
		// Only the segments that were written count. go-version pads
		// "1.2" to three segments.
		given := strings.Count(vStr, ".") + 1
		if given > len(segments) {
			given = len(segments)
		}
		bumped := make([]int, given)
		copy(bumped, segments[:given])
		bumped[given-1]++
		upper = joinSegments(bumped)
	}
	expandedConstraint := ">=" + vStr + ",<" + upper
	return version.NewConstraint(expandedConstraint)
}

func joinSegments(segments []int) string {
	strs := make([]string, len(segments))
	for i, segment := range segments {
		strs[i] = fmt.Sprint(segment)
	}
	return strings.Join(strs, ".")
}
