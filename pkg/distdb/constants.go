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

const (
	// DistInfoExt is the suffix of the metadata directory of installed distributions.
	DistInfoExt = ".dist-info"

	EggInfoExt = ".egg-info"
	EggExt     = ".egg"

	InstallerFileName = "INSTALLER"
	MetadataFileName  = "METADATA"
	RecordFileName    = "RECORD"
	RequestedFileName = "REQUESTED"
	ResourcesFileName = "RESOURCES"
	ExportsFileName   = "EXPORTS"
	SharedFileName    = "SHARED"

	// Legacy file names.
	PkgInfoFileName        = "PKG-INFO"
	RequiresFileName       = "requires.txt"
	InstalledFilesFileName = "installed-files.txt"
	EggInfoDirName         = "EGG-INFO"

	// The line in installed-files.txt that separates the installed files
	// from the metadata files.
	legacyMetadataMarker = "./"

	// The hash algorithm that is used when writing RECORD files.
	RecordHashAlgorithm = "sha256"

	// The name of the lock file that guards manifest writes. It is created in
	// the directory that contains the distribution.
	manifestLockFileName = ".distdb_write.lock"
)

// DistFiles is the closed set of file names that may live in a
// '.dist-info' directory.
var DistFiles = []string{
	InstallerFileName,
	MetadataFileName,
	RecordFileName,
	RequestedFileName,
	ResourcesFileName,
	ExportsFileName,
	SharedFileName,
}

// Requirement groups of the metadata dependencies.
const (
	InstallRequirements = "install"
	SetupRequirements   = "setup"
	TestRequirements    = "test"
)

// SharedLocationKeys are the single-valued keys of a SHARED file, in the
// order they are written.
var SharedLocationKeys = []string{"prefix", "lib", "headers", "scripts", "data"}

// SharedNamespaceKey is the only repeatable key of a SHARED file.
const SharedNamespaceKey = "namespace"
