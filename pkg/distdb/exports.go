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
	"bytes"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

// ExportEntry is an entry point exported by a distribution.
// Its textual form is 'prefix[:suffix] [flag, flag]'.
type ExportEntry struct {
	Name   string
	Prefix string
	Suffix string
	Flags  []string
	// Dist is the distribution that exports the entry. Nil for entries that
	// haven't been read from a distribution.
	Dist Dist
}

// Exports maps categories to exported entries by name.
type Exports map[string]map[string]*ExportEntry

var entryRegexp = regexp.MustCompile(`^\s*([\w.-]+)(?::([\w.]+))?\s*(?:\[([^\]]*)\])?\s*$`)

// ParseExportEntry parses the value of an exported entry.
func ParseExportEntry(name string, value string) (*ExportEntry, error) {
	m := entryRegexp.FindStringSubmatch(value)
	if m == nil {
		return nil, invalidf("invalid export entry '%s = %s'", name, value)
	}
	result := &ExportEntry{
		Name:   name,
		Prefix: m[1],
		Suffix: m[2],
	}
	for _, flag := range strings.Split(m[3], ",") {
		flag = strings.TrimSpace(flag)
		if flag != "" {
			result.Flags = append(result.Flags, flag)
		}
	}
	return result, nil
}

// Value returns the textual form of the entry without its name.
func (e *ExportEntry) Value() string {
	result := e.Prefix
	if e.Suffix != "" {
		result += ":" + e.Suffix
	}
	if len(e.Flags) > 0 {
		result += " [" + strings.Join(e.Flags, ",") + "]"
	}
	return result
}

func (e *ExportEntry) String() string {
	return e.Name + " = " + e.Value()
}

// ReadExports parses an EXPORTS document.
// Every parsed entry is attached to the given owner, which may be nil.
func ReadExports(data []byte, owner Dist) (Exports, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
	}, data)
	if err != nil {
		return nil, invalidf("invalid exports: %v", err)
	}
	result := Exports{}
	for _, section := range cfg.Sections() {
		keys := section.Keys()
		if section.Name() == ini.DefaultSection && len(keys) == 0 {
			continue
		}
		entries := map[string]*ExportEntry{}
		for _, key := range keys {
			entry, err := ParseExportEntry(key.Name(), key.Value())
			if err != nil {
				return nil, err
			}
			entry.Dist = owner
			entries[key.Name()] = entry
		}
		result[section.Name()] = entries
	}
	return result, nil
}

// Categories returns the names of the categories, sorted.
func (exports Exports) Categories() []string {
	result := []string{}
	for category := range exports {
		result = append(result, category)
	}
	sort.Strings(result)
	return result
}

// Entries returns the entries of the given category, sorted by name.
func (exports Exports) Entries(category string) []*ExportEntry {
	entries := exports[category]
	names := []string{}
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	result := []*ExportEntry{}
	for _, name := range names {
		result = append(result, entries[name])
	}
	return result
}

// Encode serializes the exports. Categories and names are sorted.
func (exports Exports) Encode() ([]byte, error) {
	cfg := ini.Empty()
	for _, category := range exports.Categories() {
		section, err := cfg.NewSection(category)
		if err != nil {
			return nil, err
		}
		for _, entry := range exports.Entries(category) {
			if _, err := section.NewKey(entry.Name, entry.Value()); err != nil {
				return nil, err
			}
		}
	}
	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
