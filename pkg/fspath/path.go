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

package fspath

import (
	"path/filepath"
	"runtime"
	"strings"
)

/*
A manifest path is a path as it is stored in installation manifests
(RECORD, RESOURCES, installed-files.txt). Fundamentally it requires:
- the segment separator must be a '/'.
- relative paths are relative to the directory that contains the
  distribution's metadata directory.
*/

type Path string

func ToPath(path string) Path {
	return toManifestPath(path, runtime.GOOS == "windows")
}

func toManifestPath(path string, windows bool) Path {
	if !windows {
		return Path(path)
	}
	return Path(strings.ReplaceAll(path, "\\", "/"))
}

func (path Path) FilePath() string {
	return fromManifestPath(path, runtime.GOOS == "windows")
}

func fromManifestPath(path Path, onWindows bool) string {
	p := string(path)
	if !onWindows {
		return p
	}
	return strings.ReplaceAll(p, "/", "\\")
}

func (path Path) IsAbs() bool {
	return strings.HasPrefix(string(path), "/") || filepath.IsAbs(path.FilePath())
}

// Resolve returns the local file path of the manifest path.
// Relative paths are joined to base.
func (path Path) Resolve(base string) string {
	p := path.FilePath()
	if path.IsAbs() {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// IsUnder returns whether p is located strictly inside dir.
// Both paths are compared lexically; neither is resolved on disk.
func IsUnder(p string, dir string) bool {
	dir = filepath.Clean(dir)
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(filepath.Clean(p), dir)
}

// Rel returns p relative to base as a manifest path.
func Rel(base string, p string) (Path, error) {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return "", err
	}
	return ToPath(rel), nil
}
