// Copyright 2026, the FastK-go contributors.

// Package logutil provides the per-run logger used across the pipeline,
// grounded on the setupLogger/setupLog pattern repeated in every muscato
// command (e.g. muscato_screen.go, muscato_uniqify.go): a *log.Logger
// writing to a file under Config.LogDir, with progress lines gated by
// Config.Verbose.
package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// New creates a logger writing to <logDir>/<name>.log, creating logDir if
// necessary. If logDir is blank, the current directory is used.
func New(logDir, name string) (*log.Logger, *os.File, error) {
	if logDir == "" {
		logDir = "."
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, errors.Wrapf(err, "creating log directory %s", logDir)
	}

	fname := filepath.Join(logDir, name+".log")
	fid, err := os.Create(fname)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "creating log file %s", fname)
	}

	return log.New(fid, "", log.Ltime), fid, nil
}

// Progress is a small helper a verbose-gated progress line goes through,
// matching count.c's VERBOSE-gated fprintf(stderr, ...) calls.
type Progress struct {
	Verbose bool
	Out     io.Writer
	Logger  *log.Logger
}

// NewProgress builds a Progress that writes to stderr and additionally
// records every line via logger, if provided.
func NewProgress(verbose bool, logger *log.Logger) *Progress {
	return &Progress{Verbose: verbose, Out: os.Stderr, Logger: logger}
}

// Printf writes a progress line when Verbose is set, and always records it
// in the logger, if one is present.
func (p *Progress) Printf(format string, args ...interface{}) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
	if p.Verbose {
		fmt.Fprintf(p.Out, format, args...)
	}
}
