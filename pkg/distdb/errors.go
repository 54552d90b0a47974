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
	"errors"
	"fmt"
)

var (
	// ErrInvalid is the kind of domain errors: malformed provides or
	// obsoletes entries, files that don't belong to a distribution, unknown
	// distribution formats.
	ErrInvalid = errors.New("invalid")

	// ErrNotFound is the kind of lookup misses: unknown distributions or
	// resources.
	ErrNotFound = errors.New("not found")

	// ErrNotMember is returned by the transitive graph queries when the
	// distribution isn't part of the given collection.
	ErrNotMember = errors.New("not a member of the given distributions")
)

// Error is a domain error of this package.
// Use errors.Is with one of the kinds (ErrInvalid, ErrNotFound,
// ErrNotMember) to branch on it.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, a ...interface{}) *Error {
	return &Error{
		Kind: kind,
		Msg:  fmt.Sprintf(format, a...),
	}
}

func invalidf(format string, a ...interface{}) error {
	return newError(ErrInvalid, format, a...)
}

func notFoundf(format string, a ...interface{}) error {
	return newError(ErrNotFound, format, a...)
}
