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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type testUI struct {
	messages []string
}

func (ui *testUI) ReportError(format string, a ...interface{}) error {
	ui.messages = append(ui.messages, fmt.Sprintf("Error: "+format, a...))
	return ErrAlreadyReported
}

func (ui *testUI) ReportWarning(format string, a ...interface{}) {
	ui.messages = append(ui.messages, fmt.Sprintf("Warning: "+format, a...))
}

func (ui *testUI) ReportInfo(format string, a ...interface{}) {
	ui.messages = append(ui.messages, fmt.Sprintf("Info: "+format, a...))
}

// mkMetadata creates metadata with the given name and version.
// The fields are given as "Key: value" strings.
func mkMetadata(name string, version string, fields ...string) *Metadata {
	md := NewMetadata()
	md.Set(FieldMetadataVersion, "2.1")
	md.Set(FieldName, name)
	md.Set(FieldVersion, version)
	for _, field := range fields {
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			panic("bad field " + field)
		}
		md.Add(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return md
}

// mkDist creates a distribution with the given requirements.
func mkDist(name string, version string, requires ...string) *Distribution {
	fields := []string{}
	for _, req := range requires {
		fields = append(fields, FieldRequiresDist+": "+req)
	}
	return NewDistribution(mkMetadata(name, version, fields...))
}

func writeFile(t *testing.T, p string, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

// writeDistInfo creates a '.dist-info' directory in dir and returns its
// path.
func writeDistInfo(t *testing.T, dir string, name string, version string, fields ...string) string {
	p := filepath.Join(dir, DistInfoDirname(name, version))
	require.NoError(t, os.MkdirAll(p, 0755))
	require.NoError(t, mkMetadata(name, version, fields...).WriteFile(filepath.Join(p, MetadataFileName)))
	return p
}

// writeEggInfo creates a '.egg-info' directory in dir and returns its path.
func writeEggInfo(t *testing.T, dir string, name string, version string, requires string) string {
	p := filepath.Join(dir, name+"-"+version+EggInfoExt)
	md := mkMetadata(name, version)
	md.Set(FieldMetadataVersion, "1.0")
	require.NoError(t, os.MkdirAll(p, 0755))
	require.NoError(t, md.WriteFile(filepath.Join(p, PkgInfoFileName)))
	if requires != "" {
		writeFile(t, filepath.Join(p, RequiresFileName), requires)
	}
	return p
}

func names(dists []Dist) []string {
	result := []string{}
	for _, d := range dists {
		result = append(result, d.Name())
	}
	return result
}

func diskNames(dists []DiskDist) []string {
	result := []string{}
	for _, d := range dists {
		result = append(result, d.Name())
	}
	return result
}
