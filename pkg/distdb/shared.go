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
	"os"
	"strings"
)

// SharedLocations are the install locations recorded in a SHARED file.
type SharedLocations struct {
	// Paths maps the single-valued keys (see SharedLocationKeys) to
	// absolute paths.
	Paths map[string]string `yaml:"paths,omitempty" json:"paths,omitempty"`
	// Namespaces accumulates the values of the repeatable 'namespace' key.
	Namespaces []string `yaml:"namespaces,omitempty" json:"namespaces,omitempty"`
}

// ParseSharedLocations parses the 'key=value' lines of a SHARED file.
// Single valued keys keep the last value.
func ParseSharedLocations(data []byte) (*SharedLocations, error) {
	result := &SharedLocations{
		Paths: map[string]string{},
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, invalidf("invalid shared location line '%s'", line)
		}
		if key == SharedNamespaceKey {
			result.Namespaces = append(result.Namespaces, value)
		} else {
			result.Paths[key] = value
		}
	}
	return result, nil
}

// Encode serializes the locations.
// Only the known single-valued keys whose path is an existing directory are
// written, followed by one line per namespace.
func (s *SharedLocations) Encode() []byte {
	lines := []string{}
	for _, key := range SharedLocationKeys {
		p, ok := s.Paths[key]
		if !ok {
			continue
		}
		if stat, err := os.Stat(p); err != nil || !stat.IsDir() {
			continue
		}
		lines = append(lines, key+"="+p)
	}
	for _, ns := range s.Namespaces {
		lines = append(lines, SharedNamespaceKey+"="+ns)
	}
	return []byte(strings.Join(lines, "\n"))
}
