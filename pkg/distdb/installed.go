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
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/toitlang/distdb/pkg/fspath"
)

// DiskDist is a distribution that lives on disk.
// It is implemented by *InstalledDistribution and *LegacyDistribution.
type DiskDist interface {
	Dist
	// Path is the absolute path of the metadata directory (or file).
	Path() string
	// InstalledFiles lists the installed files, including the manifest
	// itself.
	InstalledFiles() ([]RecordEntry, error)
	// CheckInstalledFiles compares the installed files with the manifest.
	CheckInstalledFiles() ([]Mismatch, error)
	// ListDistInfoFiles returns the absolute paths of the listed files that
	// are inside the metadata directory.
	ListDistInfoFiles() ([]string, error)
	// Uses returns whether the given path is one of the installed files.
	// The path may be absolute or '/'-separated relative.
	Uses(path string) (bool, error)
	Exports() (Exports, error)
	SharedLocations() (*SharedLocations, error)
}

// InstalledDistribution is a distribution with a '.dist-info' directory.
//
// The manifests (RECORD, EXPORTS, SHARED, RESOURCES) are read lazily and
// memoized. Writing a manifest doesn't update the memoized value; call
// Reload to see the new content.
type InstalledDistribution struct {
	Distribution

	path string

	records   lazy[[]RecordEntry]
	exports   lazy[Exports]
	shared    lazy[*SharedLocations]
	resources lazy[[][]string]
}

var _ DiskDist = (*InstalledDistribution)(nil)

// NewInstalledDistribution loads the distribution at the given
// '.dist-info' directory. The metadata is read immediately.
func NewInstalledDistribution(path string) (*InstalledDistribution, error) {
	if !strings.HasSuffix(path, DistInfoExt) {
		return nil, invalidf("path must end with '%s': '%s'", DistInfoExt, path)
	}
	md, err := ReadMetadataFile(filepath.Join(path, MetadataFileName))
	if err != nil {
		return nil, err
	}
	return newInstalledDistribution(path, md)
}

func newInstalledDistribution(path string, md *Metadata) (*InstalledDistribution, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	d := &InstalledDistribution{
		path: abs,
	}
	d.init(md)
	return d, nil
}

func (d *InstalledDistribution) Path() string { return d.path }

func (d *InstalledDistribution) identity() string {
	return "path:" + d.path
}

// base is the directory containing the '.dist-info' directory. Relative
// manifest paths are relative to it.
func (d *InstalledDistribution) base() string {
	return filepath.Dir(d.path)
}

// Requested returns whether the REQUESTED marker exists.
func (d *InstalledDistribution) Requested() bool {
	_, err := os.Stat(filepath.Join(d.path, RequestedFileName))
	return err == nil
}

// Reload drops all memoized manifests.
func (d *InstalledDistribution) Reload() {
	d.records.reset()
	d.exports.reset()
	d.shared.reset()
	d.resources.reset()
}

// DistInfoFile returns the path of the given file in the '.dist-info'
// directory.
// The name must be one of DistFiles. It may be given as a path, in which
// case its parent directory must be the '.dist-info' directory of this
// distribution.
func (d *InstalledDistribution) DistInfoFile(name string) (string, error) {
	if strings.ContainsAny(name, "/"+string(filepath.Separator)) {
		dir, file := filepath.Split(filepath.Clean(filepath.FromSlash(name)))
		if filepath.Base(dir) != filepath.Base(d.path) {
			return "", invalidf("dist-info file '%s' does not belong to the %s distribution", file, d)
		}
		name = file
	}
	for _, allowed := range DistFiles {
		if name == allowed {
			return filepath.Join(d.path, name), nil
		}
	}
	return "", invalidf("invalid path for a dist-info file: '%s'", name)
}

// readDistInfoFile returns the content of the given dist-info file.
// Returns nil without error if the file doesn't exist.
func (d *InstalledDistribution) readDistInfoFile(name string) ([]byte, error) {
	p, err := d.DistInfoFile(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// InstalledFiles returns the rows of the RECORD manifest.
// A missing RECORD yields an empty list.
func (d *InstalledDistribution) InstalledFiles() ([]RecordEntry, error) {
	return d.records.get(func() ([]RecordEntry, error) {
		data, err := d.readDistInfoFile(RecordFileName)
		if err != nil {
			return nil, err
		}
		return ReadRecords(bytes.NewReader(data))
	})
}

// WriteInstalledFiles writes the RECORD manifest for the given absolute
// paths. See WriteRecords for the handling of prefix.
func (d *InstalledDistribution) WriteInstalledFiles(paths []string, prefix string) ([]RecordEntry, error) {
	recordPath, err := d.DistInfoFile(RecordFileName)
	if err != nil {
		return nil, err
	}
	return WriteRecords(recordPath, paths, d.base(), prefix)
}

func (d *InstalledDistribution) resolve(p string) string {
	return fspath.Path(p).Resolve(d.base())
}

// CheckInstalledFiles verifies the files listed in RECORD.
// The row of the manifest itself is skipped.
func (d *InstalledDistribution) CheckInstalledFiles() ([]Mismatch, error) {
	entries, err := d.InstalledFiles()
	if err != nil {
		return nil, err
	}
	recordPath := filepath.Join(d.path, RecordFileName)
	toCheck := []RecordEntry{}
	for _, entry := range entries {
		if d.resolve(entry.Path) == recordPath {
			continue
		}
		toCheck = append(toCheck, entry)
	}
	return Verify(toCheck, d.resolve)
}

func (d *InstalledDistribution) Uses(path string) (bool, error) {
	entries, err := d.InstalledFiles()
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.Path == path || d.resolve(entry.Path) == path {
			return true, nil
		}
	}
	return false, nil
}

func (d *InstalledDistribution) ListDistInfoFiles() ([]string, error) {
	entries, err := d.InstalledFiles()
	if err != nil {
		return nil, err
	}
	result := []string{}
	for _, entry := range entries {
		p := d.resolve(entry.Path)
		if fspath.IsUnder(p, d.path) {
			result = append(result, p)
		}
	}
	return result, nil
}

// Exports returns the entries of the EXPORTS manifest.
// A missing manifest yields empty exports.
func (d *InstalledDistribution) Exports() (Exports, error) {
	return d.exports.get(func() (Exports, error) {
		data, err := d.readDistInfoFile(ExportsFileName)
		if err != nil {
			return nil, err
		}
		return ReadExports(data, d)
	})
}

// WriteExports replaces the EXPORTS manifest.
func (d *InstalledDistribution) WriteExports(exports Exports) error {
	p, err := d.DistInfoFile(ExportsFileName)
	if err != nil {
		return err
	}
	data, err := exports.Encode()
	if err != nil {
		return err
	}
	return writeManifest(p, data)
}

// SharedLocations returns the content of the SHARED manifest.
// A missing manifest yields empty locations.
func (d *InstalledDistribution) SharedLocations() (*SharedLocations, error) {
	return d.shared.get(func() (*SharedLocations, error) {
		data, err := d.readDistInfoFile(SharedFileName)
		if err != nil {
			return nil, err
		}
		return ParseSharedLocations(data)
	})
}

// WriteSharedLocations replaces the SHARED manifest.
// Returns the path of the written file.
func (d *InstalledDistribution) WriteSharedLocations(locations *SharedLocations) (string, error) {
	p, err := d.DistInfoFile(SharedFileName)
	if err != nil {
		return "", err
	}
	if err := writeManifest(p, locations.Encode()); err != nil {
		return "", err
	}
	return p, nil
}

// ResourcePath returns the installed location of a resource, as listed in
// the RESOURCES manifest.
func (d *InstalledDistribution) ResourcePath(relative string) (string, error) {
	rows, err := d.resources.get(func() ([][]string, error) {
		data, err := d.readDistInfoFile(ResourcesFileName)
		if err != nil {
			return nil, err
		}
		reader := csv.NewReader(bytes.NewReader(data))
		reader.FieldsPerRecord = -1
		return reader.ReadAll()
	})
	if err != nil {
		return "", err
	}
	for _, row := range rows {
		if len(row) >= 2 && row[0] == relative {
			return row[1], nil
		}
	}
	return "", notFoundf("no resource file with relative path '%s' is installed", relative)
}
