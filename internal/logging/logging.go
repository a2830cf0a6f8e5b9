// Package logging builds the charmbracelet loggers used across the converter.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	once      sync.Once
	singleton *log.Logger
)

// Default returns the process-wide logger, writing to stderr at info level.
func Default() *log.Logger {
	once.Do(func() {
		singleton = New(os.Stderr, "info", "pofconv")
	})
	return singleton
}

// New returns a logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, level, prefix string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
		Level:           ParseLevel(level),
	})
}

// Discard returns a logger that drops everything. Tests use it to keep output clean.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

func ParseLevel(level string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
