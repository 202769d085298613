/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/friendsincode/airtime/internal/logbuffer"
)

// Setup configures zerolog for the process, writing to stdout.
func Setup(environment string) zerolog.Logger {
	return SetupWithWriter(environment, os.Stdout)
}

// SetupWithBuffer is Setup with every line also captured in buf.
func SetupWithBuffer(environment string, buf *logbuffer.Buffer) zerolog.Logger {
	return setup(environment, os.Stdout, buf)
}

// SetupWithWriter configures zerolog on out. Development gets a console
// writer at debug level; every other environment gets JSON at info level.
func SetupWithWriter(environment string, out io.Writer) zerolog.Logger {
	return setup(environment, out, nil)
}

func setup(environment string, out io.Writer, buf *logbuffer.Buffer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	writer := out
	if environment == "development" {
		level = zerolog.DebugLevel
		writer = zerolog.ConsoleWriter{Out: out, NoColor: out != os.Stdout}
	}
	// The buffer sits in front of the console writer so it still sees JSON.
	if buf != nil {
		writer = logbuffer.NewWriter(buf, writer)
	}

	logger := zerolog.New(writer).With().Timestamp().Str("service", "airtime").Logger().Level(level)
	log.Logger = logger
	return logger
}
