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
	"bufio"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"sort"
	"strings"
)

// Well known metadata fields.
const (
	FieldMetadataVersion = "Metadata-Version"
	FieldName            = "Name"
	FieldVersion         = "Version"
	FieldSummary         = "Summary"
	FieldDownloadURL     = "Download-Url"
	FieldProvidesDist    = "Provides-Dist"
	FieldProvides        = "Provides"
	FieldRequiresDist    = "Requires-Dist"
	FieldRequires        = "Requires"
	FieldObsoletesDist   = "Obsoletes-Dist"
	FieldObsoletes       = "Obsoletes"
)

// Metadata is a key to value(s) mapping describing a distribution.
//
// Keys are case-insensitive. Every key may have multiple values; single
// valued fields simply use the first one.
// Requirement groups ("install", "setup", "test") are kept separately from
// the fields, since they don't appear in the header format.
type Metadata struct {
	fields       map[string][]string
	dependencies map[string][]string
}

func NewMetadata() *Metadata {
	return &Metadata{
		fields:       map[string][]string{},
		dependencies: map[string][]string{},
	}
}

func canonicalKey(key string) string {
	return textproto.CanonicalMIMEHeaderKey(key)
}

// ReadMetadata parses a header style metadata document (like METADATA or
// PKG-INFO). Parsing stops at the first empty line; the body is ignored.
func ReadMetadata(r io.Reader) (*Metadata, error) {
	tr := textproto.NewReader(bufio.NewReader(r))
	header, err := tr.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, err
	}
	result := NewMetadata()
	for key, values := range header {
		result.fields[key] = values
	}
	return result, nil
}

// ReadMetadataFile reads the metadata document at the given path.
func ReadMetadataFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	md, err := ReadMetadata(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metadata '%s': %w", path, err)
	}
	return md, nil
}

// Get returns all values of the given field.
func (md *Metadata) Get(key string) []string {
	values := md.fields[canonicalKey(key)]
	if len(values) == 0 {
		return nil
	}
	result := make([]string, len(values))
	copy(result, values)
	return result
}

// GetOne returns the first value of the given field, or "".
func (md *Metadata) GetOne(key string) string {
	values := md.fields[canonicalKey(key)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (md *Metadata) Has(key string) bool {
	_, ok := md.fields[canonicalKey(key)]
	return ok
}

// Set replaces the values of the given field.
func (md *Metadata) Set(key string, values ...string) {
	md.fields[canonicalKey(key)] = append([]string{}, values...)
}

// Add appends values to the given field.
func (md *Metadata) Add(key string, values ...string) {
	key = canonicalKey(key)
	md.fields[key] = append(md.fields[key], values...)
}

func (md *Metadata) Delete(key string) {
	delete(md.fields, canonicalKey(key))
}

func (md *Metadata) Name() string {
	return md.GetOne(FieldName)
}

func (md *Metadata) Version() string {
	return md.GetOne(FieldVersion)
}

// Dependencies returns the requirements of the given group.
// Returns nil if the group doesn't exist.
func (md *Metadata) Dependencies(group string) []string {
	reqs := md.dependencies[group]
	if len(reqs) == 0 {
		return nil
	}
	return append([]string{}, reqs...)
}

func (md *Metadata) SetDependencies(group string, reqs ...string) {
	md.dependencies[group] = append([]string{}, reqs...)
}

// Groups returns the names of all requirement groups, sorted.
func (md *Metadata) Groups() []string {
	result := []string{}
	for group := range md.dependencies {
		result = append(result, group)
	}
	sort.Strings(result)
	return result
}

// Write serializes the fields in header format.
// Name and version come first, the remaining fields are sorted.
func (md *Metadata) Write(w io.Writer) error {
	keys := []string{}
	for key := range md.fields {
		if key == FieldMetadataVersion || key == FieldName || key == FieldVersion {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	keys = append([]string{FieldMetadataVersion, FieldName, FieldVersion}, keys...)

	for _, key := range keys {
		for _, value := range md.fields[key] {
			value = strings.ReplaceAll(value, "\n", "\n        ")
			if _, err := fmt.Fprintf(w, "%s: %s\n", key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteFile writes the metadata to the given path.
func (md *Metadata) WriteFile(path string) error {
	var sb strings.Builder
	if err := md.Write(&sb); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}
