// Package debuglog opens the optional append-only debug log.
package debuglog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/wesm/mailtui/internal/fileutil"
)

// DefaultPath is used when debugging is enabled without an explicit path.
const DefaultPath = "logs/mailtui.debug.log"

// Logger is a debug logger and the file behind it, if any.
type Logger struct {
	*slog.Logger
	Path string
	file *os.File
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Open returns a debug logger. When enabled is false the logger discards
// everything and no file is created. Otherwise records at Debug level and
// above are appended to path, creating parent directories as needed.
func Open(path string, enabled bool) (*Logger, error) {
	if !enabled {
		return Discard(), nil
	}
	if path == "" {
		path = DefaultPath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fileutil.SecureMkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	f, err := fileutil.SecureOpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := &Logger{Logger: slog.New(handler), Path: path, file: f}
	l.Info("debug log opened", "pid", os.Getpid())
	return l, nil
}

// Close closes the log file. It is a no-op for a discard logger.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
