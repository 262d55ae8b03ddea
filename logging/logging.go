// Package logging holds the process-wide logrus logger used by the command
// line front end.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

var (
	log *logrus.Logger
	// file is the log file opened by the last Init, if any.
	file *os.File
)

// Init replaces the logger. Output goes to stderr when console is set and is
// appended to logFile when it is not empty; with neither, records are dropped.
// An unknown level falls back to info. A log file opened by an earlier Init is
// closed.
func Init(level, logFile string, console bool) error {
	if err := Close(); err != nil {
		return err
	}

	next := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	next.SetLevel(lvl)
	next.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var writers []io.Writer
	if console {
		writers = append(writers, os.Stderr)
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return errors.Wrapf(err, "creating log directory for %s", logFile)
		}

		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return errors.Wrapf(err, "opening log file %s", logFile)
		}
		file = f
		writers = append(writers, f)
	}

	switch len(writers) {
	case 0:
		next.SetOutput(io.Discard)
	case 1:
		next.SetOutput(writers[0])
	default:
		next.SetOutput(io.MultiWriter(writers...))
	}

	log = next
	return nil
}

// Close closes the log file and sends further records to stderr.
func Close() error {
	if file == nil {
		return nil
	}

	if log != nil {
		log.SetOutput(os.Stderr)
	}
	err := file.Close()
	file = nil
	return errors.Wrap(err, "closing log file")
}

// Get returns the logger, creating a default one if Init has not run.
func Get() *logrus.Logger {
	if log == nil {
		log = logrus.New()
	}
	return log
}

func Debugf(format string, args ...interface{}) {
	Get().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	Get().Infof(format, args...)
}

// Fatalf logs and exits with status 1.
func Fatalf(format string, args ...interface{}) {
	Get().Fatalf(format, args...)
}
