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
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseRequires(t *testing.T) {
	data := `foo>=1.0,<2
bar
# comment

baz [extra] >= 2
qux; python_version < "3"
quux (==1.5)
[section]
after
`
	ui := testUI{}
	requires := parseRequires([]byte(data), &ui)
	assert.Equal(t, []string{
		"foo (>=1.0, <2)",
		"bar",
		"baz (>=2)",
		"qux",
		"quux (==1.5)",
	}, requires)
	require.Len(t, ui.messages, 2)
	assert.Contains(t, ui.messages[0], "Extra requirements")
	assert.Contains(t, ui.messages[1], "[section]")

	assert.Empty(t, parseRequires(nil, &ui))
}

func Test_LegacyDistribution(t *testing.T) {
	t.Run("egg-info directory", func(t *testing.T) {
		site := t.TempDir()
		p := writeEggInfo(t, site, "bacon", "0.1", "truffles>=1.2\nsausage\n")
		d, err := NewLegacyDistribution(p, nil)
		require.NoError(t, err)
		assert.Equal(t, "bacon", d.Name())
		assert.Equal(t, "0.1", d.Version())
		assert.Equal(t, p, d.Path())
		assert.True(t, d.Requested())
		assert.Equal(t, []string{"truffles (>=1.2)", "sausage"}, d.Metadata().Get(FieldRequiresDist))
		assert.Equal(t, []string{"truffles (>=1.2)", "sausage"}, d.Requires())
	})

	t.Run("Metadata 1.1 with requires.txt", func(t *testing.T) {
		site := t.TempDir()
		p := filepath.Join(site, "cheese-2.0.egg-info")
		writeFile(t, filepath.Join(p, PkgInfoFileName), strings.Join([]string{
			"Metadata-Version: 1.1",
			"Name: cheese",
			"Version: 2.0",
			"Provides: cheese.extras",
			"Requires: milk",
			"Obsoletes: curd",
			"",
		}, "\n"))
		writeFile(t, filepath.Join(p, RequiresFileName), "milk>=3\n")
		d, err := NewLegacyDistribution(p, nil)
		require.NoError(t, err)
		assert.False(t, d.Metadata().Has(FieldProvides))
		assert.False(t, d.Metadata().Has(FieldRequires))
		assert.False(t, d.Metadata().Has(FieldObsoletes))
		assert.Equal(t, []string{"milk (>=3)"}, d.Metadata().Get(FieldRequiresDist))
		assert.Equal(t, []string{"cheese (2.0)"}, d.Provides())
	})

	t.Run("Metadata 1.1 without requires.txt", func(t *testing.T) {
		site := t.TempDir()
		p := filepath.Join(site, "cheese-2.0.egg-info")
		writeFile(t, filepath.Join(p, PkgInfoFileName), "Metadata-Version: 1.1\nName: cheese\nVersion: 2.0\nObsoletes: curd\n")
		d, err := NewLegacyDistribution(p, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"curd"}, d.Metadata().Get(FieldObsoletes))
	})

	t.Run("egg-info file", func(t *testing.T) {
		site := t.TempDir()
		p := filepath.Join(site, "coconuts-1.0.egg-info")
		writeFile(t, p, "Metadata-Version: 1.0\nName: coconuts\nVersion: 1.0\n")
		d, err := NewLegacyDistribution(p, nil)
		require.NoError(t, err)
		assert.Equal(t, "coconuts", d.Name())

		files, err := d.InstalledFiles()
		require.NoError(t, err)
		assert.Empty(t, files)
		distInfoFiles, err := d.ListDistInfoFiles()
		require.NoError(t, err)
		assert.Empty(t, distInfoFiles)
	})

	t.Run("egg directory", func(t *testing.T) {
		site := t.TempDir()
		p := filepath.Join(site, "banana-0.4.egg")
		writeFile(t, filepath.Join(p, EggInfoDirName, PkgInfoFileName), "Metadata-Version: 1.0\nName: banana\nVersion: 0.4\n")
		writeFile(t, filepath.Join(p, EggInfoDirName, RequiresFileName), "yellow\n")
		d, err := NewLegacyDistribution(p, nil)
		require.NoError(t, err)
		assert.Equal(t, "banana", d.Name())
		assert.Equal(t, []string{"yellow"}, d.Requires())
	})

	t.Run("egg archive", func(t *testing.T) {
		site := t.TempDir()
		p := filepath.Join(site, "strawberry-0.6.egg")
		f, err := os.Create(p)
		require.NoError(t, err)
		w := zip.NewWriter(f)
		entry, err := w.Create("EGG-INFO/PKG-INFO")
		require.NoError(t, err)
		_, err = entry.Write([]byte("Metadata-Version: 1.0\nName: strawberry\nVersion: 0.6\n"))
		require.NoError(t, err)
		entry, err = w.Create("EGG-INFO/requires.txt")
		require.NoError(t, err)
		_, err = entry.Write([]byte("cream (>=1)\n"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, f.Close())

		d, err := NewLegacyDistribution(p, nil)
		require.NoError(t, err)
		assert.Equal(t, "strawberry", d.Name())
		assert.Equal(t, "0.6", d.Version())
		assert.Equal(t, []string{"cream (>=1)"}, d.Requires())
	})

	t.Run("Unknown format", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "foo.txt")
		writeFile(t, p, "")
		_, err := NewLegacyDistribution(p, nil)
		assert.True(t, errors.Is(err, ErrInvalid))
	})
}

func Test_LegacyInstalledFiles(t *testing.T) {
	site := t.TempDir()
	p := writeEggInfo(t, site, "bacon", "0.1", "")
	writeFile(t, filepath.Join(site, "bacon", "__init__.py"), "hello")
	writeFile(t, filepath.Join(site, "bacon", "crispy.py"), "crispy")
	writeFile(t, filepath.Join(p, InstalledFilesFileName), strings.Join([]string{
		"../bacon",
		"../bacon/__init__.py",
		"../bacon/crispy.py",
		"./",
		"PKG-INFO",
		"installed-files.txt",
		"",
	}, "\n"))
	d, err := NewLegacyDistribution(p, nil)
	require.NoError(t, err)

	files, err := d.InstalledFiles()
	require.NoError(t, err)
	manifest := filepath.Join(p, InstalledFilesFileName)
	assert.Equal(t, []RecordEntry{
		{Path: filepath.Join(site, "bacon", "__init__.py"), Hash: "5d41402abc4b2a76b9719d911017c592", Size: "5"},
		{Path: filepath.Join(site, "bacon", "crispy.py"), Hash: files[1].Hash, Size: "6"},
		{Path: filepath.Join(p, PkgInfoFileName), Hash: files[2].Hash, Size: files[2].Size},
		{Path: manifest, Hash: files[3].Hash, Size: files[3].Size},
		{Path: manifest},
	}, files)

	distInfoFiles, err := d.ListDistInfoFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(p, PkgInfoFileName), manifest}, distInfoFiles)

	uses, err := d.Uses("../bacon/crispy.py")
	require.NoError(t, err)
	assert.True(t, uses)
	uses, err = d.Uses(filepath.Join(site, "bacon", "__init__.py"))
	require.NoError(t, err)
	assert.True(t, uses)
	uses, err = d.Uses(filepath.Join(site, "eggs.py"))
	require.NoError(t, err)
	assert.False(t, uses)

	mismatches, err := d.CheckInstalledFiles()
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	require.NoError(t, os.Remove(filepath.Join(site, "bacon", "crispy.py")))
	mismatches, err = d.CheckInstalledFiles()
	require.NoError(t, err)
	assert.Equal(t, []Mismatch{{
		Path:     filepath.Join(site, "bacon", "crispy.py"),
		Kind:     MismatchExists,
		Expected: "true",
		Actual:   "false",
	}}, mismatches)

	exports, err := d.Exports()
	require.NoError(t, err)
	assert.Empty(t, exports)
	shared, err := d.SharedLocations()
	require.NoError(t, err)
	assert.Empty(t, shared.Paths)
}
