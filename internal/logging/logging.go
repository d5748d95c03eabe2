// Package logging configures the process logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/llehouerou/segue/internal/config"
)

const logFileName = "segue/segue.log"

// Setup builds the process logger and installs it as the global one. When
// toFile is set, or cfg names a file, logs are appended to that file (the
// default lives under the XDG state dir) so they do not corrupt the
// terminal. Otherwise they go to stderr. The returned closer releases the
// file.
func Setup(cfg config.LogConfig, toFile bool) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nil, errors.Wrapf(err, "log level %q", cfg.Level)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	var closer io.Closer = nopCloser{}
	if toFile || cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		w, closer = f, f
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger, closer, nil
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		var err error
		if path, err = xdg.StateFile(logFileName); err != nil {
			return nil, errors.Wrap(err, "log file path")
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
