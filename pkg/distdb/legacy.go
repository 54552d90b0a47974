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
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/toitlang/distdb/pkg/fspath"
	"github.com/toitlang/distdb/pkg/scheme"
)

// LegacyDistribution is a distribution in the '.egg-info' or '.egg' format.
//
// The path is either a '.egg-info' directory or file, or a '.egg'
// directory or zip archive. The metadata is read eagerly.
// There is no way of knowing whether a legacy distribution was requested,
// so it always reports true.
type LegacyDistribution struct {
	Distribution

	path string
}

var _ DiskDist = (*LegacyDistribution)(nil)

// NewLegacyDistribution loads the legacy distribution at the given path.
// Warnings about unsupported lines in 'requires.txt' are reported to ui.
func NewLegacyDistribution(path string, ui UI) (*LegacyDistribution, error) {
	md, err := readLegacyMetadata(path, orNullUI(ui))
	if err != nil {
		return nil, err
	}
	return newLegacyDistribution(path, md)
}

func newLegacyDistribution(path string, md *Metadata) (*LegacyDistribution, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	d := &LegacyDistribution{
		path: abs,
	}
	d.init(md)
	d.requested = true
	return d, nil
}

func readLegacyMetadata(path string, ui UI) (*Metadata, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var metadataData, requiresData []byte
	switch {
	case strings.HasSuffix(path, EggExt) && stat.IsDir():
		metadataData, requiresData, err = readLegacyFiles(os.DirFS(filepath.Join(path, EggInfoDirName)))
	case strings.HasSuffix(path, EggExt):
		var archive *zip.ReadCloser
		archive, err = zip.OpenReader(path)
		if err != nil {
			return nil, err
		}
		defer archive.Close()
		sub, subErr := fs.Sub(archive, EggInfoDirName)
		if subErr != nil {
			return nil, subErr
		}
		metadataData, requiresData, err = readLegacyFiles(sub)
	case strings.HasSuffix(path, EggInfoExt) && stat.IsDir():
		metadataData, requiresData, err = readLegacyFiles(os.DirFS(path))
	case strings.HasSuffix(path, EggInfoExt):
		metadataData, err = os.ReadFile(path)
	default:
		return nil, invalidf("path must end with '%s' or '%s': '%s'", EggInfoExt, EggExt, path)
	}
	if err != nil {
		return nil, err
	}

	md, err := ReadMetadata(bytes.NewReader(metadataData))
	if err != nil {
		return nil, err
	}
	if requires := parseRequires(requiresData, ui); len(requires) > 0 {
		if md.GetOne(FieldMetadataVersion) == "1.1" {
			// Metadata 1.1 can't be combined with requires.txt.
			md.Delete(FieldObsoletes)
			md.Delete(FieldRequires)
			md.Delete(FieldProvides)
		}
		md.Add(FieldRequiresDist, requires...)
	}
	return md, nil
}

// readLegacyFiles reads PKG-INFO and the optional requires.txt from fsys.
func readLegacyFiles(fsys fs.FS) (metadata []byte, requires []byte, err error) {
	metadata, err = fs.ReadFile(fsys, PkgInfoFileName)
	if err != nil {
		return nil, nil, err
	}
	requires, err = fs.ReadFile(fsys, RequiresFileName)
	if errors.Is(err, fs.ErrNotExist) {
		return metadata, nil, nil
	}
	return metadata, requires, err
}

// parseRequires converts the lines of a 'requires.txt' file into
// requirements of the form 'name (constraints)'.
// Only the unsectioned requirements at the top of the file are used.
func parseRequires(data []byte, ui UI) []string {
	result := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			ui.ReportWarning("Unexpected line in %s, ignoring the rest: '%s'", RequiresFileName, line)
			break
		}
		name := scheme.RequirementName(line)
		if name == "" {
			ui.ReportWarning("Not recognized as a requirement: '%s'", line)
			continue
		}
		rest := strings.TrimSpace(line[len(name):])
		if i := strings.IndexByte(rest, ';'); i >= 0 {
			rest = strings.TrimSpace(rest[:i])
		}
		if strings.HasPrefix(rest, "[") {
			ui.ReportWarning("Extra requirements in %s are not supported: '%s'", RequiresFileName, line)
			if i := strings.IndexByte(rest, ']'); i >= 0 {
				rest = strings.TrimSpace(rest[i+1:])
			} else {
				rest = ""
			}
		}
		rest = strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")")
		if rest == "" {
			result = append(result, name)
			continue
		}
		constraints := []string{}
		for _, c := range strings.Split(rest, ",") {
			if c = strings.Join(strings.Fields(c), ""); c != "" {
				constraints = append(constraints, c)
			}
		}
		result = append(result, name+" ("+strings.Join(constraints, ", ")+")")
	}
	return result
}

func (d *LegacyDistribution) Path() string { return d.path }

func (d *LegacyDistribution) identity() string {
	return "path:" + d.path
}

func (d *LegacyDistribution) manifestPath() string {
	return filepath.Join(d.path, InstalledFilesFileName)
}

// manifestLines returns the trimmed lines of installed-files.txt.
// Returns nil if there is no such file (for example for zipped eggs).
func (d *LegacyDistribution) manifestLines() ([]string, error) {
	stat, err := os.Stat(d.path)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return nil, nil
	}
	data, err := os.ReadFile(d.manifestPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	result := []string{}
	for _, line := range strings.Split(string(data), "\n") {
		result = append(result, strings.TrimSpace(line))
	}
	return result, nil
}

func (d *LegacyDistribution) resolve(line string) string {
	return filepath.Clean(fspath.Path(line).Resolve(d.path))
}

// InstalledFiles lists the files of installed-files.txt with their md5
// hex digest and size, followed by the manifest itself.
// Directories (including the './' marker) are skipped. Files that don't
// exist are listed without hash and size.
func (d *LegacyDistribution) InstalledFiles() ([]RecordEntry, error) {
	lines, err := d.manifestLines()
	if err != nil || lines == nil {
		return []RecordEntry{}, err
	}
	result := []RecordEntry{}
	for _, line := range lines {
		p := d.resolve(line)
		stat, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			result = append(result, RecordEntry{Path: p})
			continue
		}
		if err != nil {
			return nil, err
		}
		if stat.IsDir() {
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		h := md5.New()
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return nil, err
		}
		result = append(result, RecordEntry{
			Path: p,
			Hash: hex.EncodeToString(h.Sum(nil)),
			Size: strconv.FormatInt(stat.Size(), 10),
		})
	}
	result = append(result, RecordEntry{Path: d.manifestPath()})
	return result, nil
}

// CheckInstalledFiles only checks that the listed files exist.
func (d *LegacyDistribution) CheckInstalledFiles() ([]Mismatch, error) {
	entries, err := d.InstalledFiles()
	if err != nil {
		return nil, err
	}
	result := []Mismatch{}
	for _, entry := range entries {
		if entry.Path == d.manifestPath() {
			continue
		}
		if _, err := os.Stat(entry.Path); errors.Is(err, os.ErrNotExist) {
			result = append(result, Mismatch{
				Path:     entry.Path,
				Kind:     MismatchExists,
				Expected: "true",
				Actual:   "false",
			})
		}
	}
	return result, nil
}

// ListDistInfoFiles returns the files listed after the './' marker that are
// located inside the '.egg-info' directory.
func (d *LegacyDistribution) ListDistInfoFiles() ([]string, error) {
	lines, err := d.manifestLines()
	if err != nil {
		return nil, err
	}
	result := []string{}
	afterMarker := false
	for _, line := range lines {
		if line == legacyMetadataMarker {
			afterMarker = true
			continue
		}
		if !afterMarker || line == "" {
			continue
		}
		if p := d.resolve(line); fspath.IsUnder(p, d.path) {
			result = append(result, p)
		}
	}
	return result, nil
}

func (d *LegacyDistribution) Uses(path string) (bool, error) {
	lines, err := d.manifestLines()
	if err != nil {
		return false, err
	}
	for _, line := range lines {
		if line == "" || line == legacyMetadataMarker {
			continue
		}
		if line == path || d.resolve(line) == path {
			return true, nil
		}
	}
	return false, nil
}

// Exports is always empty for legacy distributions.
func (d *LegacyDistribution) Exports() (Exports, error) {
	return Exports{}, nil
}

// SharedLocations is always empty for legacy distributions.
func (d *LegacyDistribution) SharedLocations() (*SharedLocations, error) {
	return &SharedLocations{Paths: map[string]string{}}, nil
}
