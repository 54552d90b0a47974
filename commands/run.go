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

package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type CobraCommand func(cmd *cobra.Command, args []string)
type CobraErrorCommand func(cmd *cobra.Command, args []string) error
type Run func(CobraErrorCommand) CobraCommand

// WithSilent is implemented by errors that have already been shown to the
// user.
type WithSilent interface {
	Silent() bool
}

// WithExitCode is implemented by errors that carry the process exit code.
type WithExitCode interface {
	ExitCode() int
}

// DefaultRunWrapper prints the error of the command, unless it is silent,
// and exits with the error's exit code.
func DefaultRunWrapper(f CobraErrorCommand) CobraCommand {
	return func(cmd *cobra.Command, args []string) {
		err := f(cmd, args)
		if err == nil {
			return
		}
		var silent WithSilent
		if !errors.As(err, &silent) || !silent.Silent() {
			fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		}
		code := 1
		var withCode WithExitCode
		if errors.As(err, &withCode) {
			code = withCode.ExitCode()
		}
		os.Exit(code)
	}
}

type exitError struct {
	code int
}

func (e *exitError) ExitCode() int {
	return e.code
}

func (e *exitError) Silent() bool {
	return true
}

func (e *exitError) Error() string {
	return fmt.Sprintf("ExitError - exit code: %d", e.code)
}

func newExitError(code int) *exitError {
	return &exitError{
		code: code,
	}
}
