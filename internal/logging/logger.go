// Package logging builds the process logger: a zerolog.Logger writing a
// human-readable console stream, optionally teed as JSON lines to an
// append-only log file.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/backmassage/mediaopt/internal/config"
	"github.com/backmassage/mediaopt/internal/term"
)

// TimeFormat is the console timestamp layout.
const TimeFormat = "2006-01-02 15:04:05"

// Logger is the process logger. The embedded zerolog.Logger is passed by
// value to components; Close releases the log file.
type Logger struct {
	zerolog.Logger

	mu   sync.Mutex
	file *os.File
}

// New configures terminal colors from cfg and returns a logger writing to
// stdout, plus cfg.LogFile when set. Call Close when done.
func New(cfg *config.Config) (*Logger, error) {
	color := term.Configure(cfg.ColorMode)
	return NewWithWriter(cfg, os.Stdout, color)
}

// NewWithWriter is New with an explicit console writer.
func NewWithWriter(cfg *config.Config, out io.Writer, color bool) (*Logger, error) {
	l := &Logger{}
	console := zerolog.ConsoleWriter{Out: out, NoColor: !color, TimeFormat: TimeFormat}

	var w io.Writer = console
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
		w = zerolog.MultiLevelWriter(console, f)
	}

	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	l.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return l, nil
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.DurationFieldUnit = time.Millisecond
}
