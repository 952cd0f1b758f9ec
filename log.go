// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package poa

import (
	"io"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

// SetupLogging sends the standard logger to w at level. Timestamps
// are dropped unless w is a terminal; job runners add their own.
func SetupLogging(w io.Writer, level log.Level) {
	logger := log.StandardLogger()
	logger.SetOutput(w)
	logger.SetLevel(level)
	if f, ok := w.(interface{ Fd() uintptr }); !ok || !isatty.IsTerminal(f.Fd()) {
		logger.Formatter = &log.TextFormatter{DisableTimestamp: true}
	}
}
