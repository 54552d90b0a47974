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
	"fmt"

	"github.com/rs/zerolog"
	"github.com/toitlang/distdb/pkg/distdb"
	"github.com/toitlang/distdb/pkg/logging"
)

// logUI reports messages through zerolog.
type logUI struct {
	logger zerolog.Logger
}

// NewLogUI returns a UI that reports through the "ui" component logger.
// The logger must be set up before (see logging.SetupLogger).
func NewLogUI() distdb.UI {
	return logUI{
		logger: logging.GetLogger("ui"),
	}
}

func (ui logUI) ReportError(format string, a ...interface{}) error {
	ui.logger.Error().Msg(fmt.Sprintf(format, a...))
	return distdb.ErrAlreadyReported
}

func (ui logUI) ReportWarning(format string, a ...interface{}) {
	ui.logger.Warn().Msg(fmt.Sprintf(format, a...))
}

func (ui logUI) ReportInfo(format string, a ...interface{}) {
	ui.logger.Info().Msg(fmt.Sprintf(format, a...))
}
