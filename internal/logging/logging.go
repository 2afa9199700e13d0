// Package logging sets up the daemon's rotated log file: append-only
// timestamped records, rotated with lumberjack to bound disk use across a
// long-running daemon process.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSizeMB  = 10
	maxBackups = 5
	maxAgeDays = 28
)

// New opens (creating parent directories as needed) daemon.log under
// stateDir, writing to both it and w (typically os.Stderr, or nil to log
// to the file only). Returned logger uses stdlib log.Logger's standard
// flags so timestamps are always present.
func New(stateDir string, w io.Writer) (*log.Logger, func() error, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, nil, err
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(stateDir, "daemon.log"),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}

	var out io.Writer = rotator
	if w != nil {
		out = io.MultiWriter(rotator, w)
	}
	logger := log.New(out, "", log.LstdFlags|log.Lmicroseconds)
	return logger, rotator.Close, nil
}
