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
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alexflint/go-filemutex"
	"github.com/toitlang/distdb/pkg/fspath"
)

// RecordEntry is one row of a RECORD manifest.
// Hash and Size are empty for directories, compiled artifacts and the
// manifest itself.
type RecordEntry struct {
	Path string
	Hash string
	Size string
}

// Extensions of compiled artifacts. They are recorded without hash or size.
var compiledExtensions = []string{".pyc", ".pyo"}

var hashers = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha224": sha256.New224,
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

// ComputeHash returns the URL-safe base64 digest of data without padding.
//
// If algorithm is empty, md5 is used and the result has no prefix.
// Otherwise the result is prefixed with "<algorithm>=". A hash without
// prefix thus always denotes the default algorithm.
func ComputeHash(data []byte, algorithm string) (string, error) {
	prefix := algorithm + "="
	if algorithm == "" {
		algorithm = "md5"
		prefix = ""
	}
	newHasher, ok := hashers[algorithm]
	if !ok {
		return "", fmt.Errorf("unsupported hash algorithm '%s'", algorithm)
	}
	h := newHasher()
	h.Write(data)
	digest := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(h.Sum(nil))
	return prefix + digest, nil
}

// hashAlgorithm returns the algorithm of a recorded hash.
func hashAlgorithm(recorded string) string {
	if i := strings.IndexByte(recorded, '='); i >= 0 {
		return recorded[:i]
	}
	return ""
}

// ReadRecords parses a RECORD manifest.
// Rows with fewer than three columns are padded with empty values.
func ReadRecords(r io.Reader) ([]RecordEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	result := []RecordEntry{}
	for _, row := range rows {
		for len(row) < 3 {
			row = append(row, "")
		}
		result = append(result, RecordEntry{
			Path: row[0],
			Hash: row[1],
			Size: row[2],
		})
	}
	return result, nil
}

// ReadRecordsFile reads the RECORD manifest at the given path.
func ReadRecordsFile(path string) ([]RecordEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse '%s': %w", path, err)
	}
	return entries, nil
}

func isCompiledArtifact(path string) bool {
	for _, ext := range compiledExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// WriteRecords writes a RECORD manifest at recordPath for the given files.
//
// Paths under baseDir (the directory that contains the '.dist-info'
// directory) are written relative to baseDir. If baseDir is itself inside
// prefix, then all paths inside prefix are written relative to baseDir as
// well, which keeps the manifest relocatable. The manifest's own path is
// appended as last row without hash or size.
//
// All files are hashed before the manifest is touched. The manifest is
// replaced atomically.
// Returns the written rows.
func WriteRecords(recordPath string, paths []string, baseDir string, prefix string) ([]RecordEntry, error) {
	baseUnderPrefix := prefix != "" && fspath.IsUnder(baseDir, prefix)

	relocate := func(p string) (string, error) {
		if fspath.IsUnder(p, baseDir) || (baseUnderPrefix && fspath.IsUnder(p, prefix)) {
			rel, err := fspath.Rel(baseDir, p)
			if err != nil {
				return "", err
			}
			return string(rel), nil
		}
		return string(fspath.ToPath(p)), nil
	}

	entries := []RecordEntry{}
	for _, p := range paths {
		entry := RecordEntry{}
		stat, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !stat.IsDir() && !isCompiledArtifact(p) {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, err
			}
			entry.Hash, err = ComputeHash(data, RecordHashAlgorithm)
			if err != nil {
				return nil, err
			}
			entry.Size = strconv.Itoa(len(data))
		}
		entry.Path, err = relocate(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	self := string(fspath.ToPath(recordPath))
	if fspath.IsUnder(recordPath, baseDir) {
		rel, err := fspath.Rel(baseDir, recordPath)
		if err != nil {
			return nil, err
		}
		self = string(rel)
	}
	entries = append(entries, RecordEntry{Path: self})

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	for _, entry := range entries {
		if err := writer.Write([]string{entry.Path, entry.Hash, entry.Size}); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	if err := writeManifest(recordPath, buf.Bytes()); err != nil {
		return nil, err
	}
	return entries, nil
}

// MismatchKind is the dimension in which an installed file differs from
// its manifest entry.
type MismatchKind string

const (
	MismatchExists MismatchKind = "exists"
	MismatchSize   MismatchKind = "size"
	MismatchHash   MismatchKind = "hash"
)

// Mismatch describes an installed file that doesn't match its manifest
// entry.
type Mismatch struct {
	Path     string       `yaml:"path" json:"path"`
	Kind     MismatchKind `yaml:"kind" json:"kind"`
	Expected string       `yaml:"expected" json:"expected"`
	Actual   string       `yaml:"actual" json:"actual"`
}

// Verify checks the given entries against the file system.
//
// For every entry, existence is checked first, then the size (if one was
// recorded), then the hash (if one was recorded). Only the first failing
// check of an entry is reported. Directories are only checked for
// existence.
// The resolve function maps manifest paths to local file paths.
// Returns an error only if a file can't be read.
func Verify(entries []RecordEntry, resolve func(p string) string) ([]Mismatch, error) {
	result := []Mismatch{}
	for _, entry := range entries {
		p := resolve(entry.Path)
		stat, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			result = append(result, Mismatch{
				Path:     p,
				Kind:     MismatchExists,
				Expected: "true",
				Actual:   "false",
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		if stat.IsDir() {
			continue
		}

		actualSize := strconv.FormatInt(stat.Size(), 10)
		if entry.Size != "" && entry.Size != actualSize {
			result = append(result, Mismatch{
				Path:     p,
				Kind:     MismatchSize,
				Expected: entry.Size,
				Actual:   actualSize,
			})
			continue
		}
		if entry.Hash == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		actualHash, err := ComputeHash(data, hashAlgorithm(entry.Hash))
		if err != nil {
			return nil, err
		}
		if actualHash != entry.Hash {
			result = append(result, Mismatch{
				Path:     p,
				Kind:     MismatchHash,
				Expected: entry.Hash,
				Actual:   actualHash,
			})
		}
	}
	return result, nil
}

// withFileLock runs f while holding the manifest lock of the given
// directory. Writers in other processes that use the same directory are
// serialized.
func withFileLock(dir string, f func() error) error {
	m, err := filemutex.New(filepath.Join(dir, manifestLockFileName))
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Lock(); err != nil {
		return err
	}
	defer m.Unlock()
	return f()
}

// writeManifest atomically replaces the file at path with data.
// The lock is taken in the directory of the manifest, so the shared site
// directory never gets a lock file.
func writeManifest(path string, data []byte) error {
	dir := filepath.Dir(path)
	return withFileLock(dir, func() error {
		tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
		if err != nil {
			return err
		}
		tmpName := tmp.Name()
		_, err = tmp.Write(data)
		if closeErr := tmp.Close(); err == nil {
			err = closeErr
		}
		if err == nil {
			err = os.Chmod(tmpName, 0644)
		}
		if err == nil {
			err = os.Rename(tmpName, path)
		}
		if err != nil {
			os.Remove(tmpName)
			return err
		}
		return nil
	})
}
