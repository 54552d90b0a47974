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

// Package distdb provides the database of installed distributions and the
// dependency graph between them.
//
// Key concepts:
// * Distribution: an installed (or indexable) unit of software, identified by
//   its name and version. Its metadata declares what it provides, requires and
//   obsoletes.
// * Installed distribution: the modern on-disk form. A '.dist-info' directory
//   next to the installed files holds the metadata, the RECORD of installed
//   files (with hashes), exported entries (EXPORTS), shared install locations
//   (SHARED), and the REQUESTED marker.
// * Legacy distribution: the older '.egg-info'/'.egg' form. Metadata lives in
//   PKG-INFO, requirements in requires.txt and the list of installed files in
//   installed-files.txt.
// * Index: scans a list of search locations for distributions. The result is
//   cached until the cache is cleared explicitly.
// * Dependency graph: edges go from a distribution to the distributions that
//   satisfy its requirements. Requirements nobody satisfies are recorded as
//   missing.
//
// Requirement matching is delegated to a scheme (see package scheme), which is
// passed explicitly to everything that needs it.
//
// None of the types in this package are safe for concurrent mutation. An
// Index in particular mutates its cache while enumerating; callers must
// serialize access or use one index per goroutine.
package distdb
