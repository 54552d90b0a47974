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

// UI allows this package to interact with the user.
//
// Degradations that are not errors (like a requirement whose version can't
// be parsed and is therefore matched by name only) are reported as warnings
// through this interface.
// If an operation fails after reporting an error, it returns
// ErrAlreadyReported so that callers don't print the message again.
type UI interface {
	// ReportError signals an error to the user.
	// The format string is compatible with fmt.Printf.
	// Returns ErrAlreadyReported.
	ReportError(format string, a ...interface{}) error

	// ReportWarning signals a warning to the user.
	// The format string is compatible with fmt.Printf.
	ReportWarning(format string, a ...interface{})

	// ReportInfo reports interesting information.
	ReportInfo(format string, a ...interface{})
}

type fmtUI struct{}

// ReportError reports errors from the distdb package.
// Returns 'ErrAlreadyReported'
func (ui fmtUI) ReportError(format string, a ...interface{}) error {
	fmt.Printf("Error: "+format+"\n", a...)
	return ErrAlreadyReported
}

// ReportWarning reports warnings from the distdb package.
func (ui fmtUI) ReportWarning(format string, a ...interface{}) {
	fmt.Printf("Warning: "+format+"\n", a...)
}

func (ui fmtUI) ReportInfo(format string, a ...interface{}) {
	fmt.Printf("Info: "+format+"\n", a...)
}

// nullUI implements a UI that does nothing.
type nullUI struct{}

func (ui nullUI) ReportError(format string, a ...interface{}) error {
	return ErrAlreadyReported
}

func (ui nullUI) ReportWarning(format string, a ...interface{}) {
}

func (ui nullUI) ReportInfo(format string, a ...interface{}) {
}

var (
	// ErrAlreadyReported can be used to signal that an error has
	// been reported, and that no further action needs to be taken.
	// In case the error gets printed anyway, we have a sensible error message
	// instead of "already reported" or similar.
	ErrAlreadyReported = errors.New("distribution database error")

	// FmtUI is simple version of UI that uses 'fmt' to report warnings and errors.
	FmtUI UI = fmtUI{}

	// NullUI discards all messages.
	NullUI UI = nullUI{}
)

// IsErrAlreadyReported returns whether 'e' is the ErrAlreadyReported error.
func IsErrAlreadyReported(e error) bool {
	return errors.Is(e, ErrAlreadyReported)
}

func orNullUI(ui UI) UI {
	if ui == nil {
		return NullUI
	}
	return ui
}
