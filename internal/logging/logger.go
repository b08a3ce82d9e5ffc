// Package logging builds the charmbracelet/log logger shared by every
// component. The TUI owns the terminal, so logs normally go to a file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// New opens a logger writing to path at the given level. An empty path logs
// to stderr. The returned close func releases the file.
func New(path, level string) (*log.Logger, func() error, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var (
		out     io.Writer = os.Stderr
		closeFn           = func() error { return nil }
	)
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = f.Close
	}

	return NewWriter(out, lvl), closeFn, nil
}

func NewWriter(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
		Prefix:          "sitebag",
	})
}

// Discard is the default for components built without a logger.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
