package main

import (
	"io"
	"time"

	"github.com/getsentry/sentry-go"
	sentrylogrus "github.com/getsentry/sentry-go/logrus"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/osbuild/langpack-composer/internal/common"
)

const sentryFlushTimeout = 5 * time.Second

// setupLogging configures logger from the configuration and returns a
// function flushing buffered events, to be called before exiting.
func setupLogging(logger *logrus.Logger, config *composerConfig, verbose bool) (flush func(), err error) {
	flush = func() {}

	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		return flush, err
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	if config.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	logger.AddHook(&common.BuildHook{RunID: uuid.NewString()})

	if config.LogJournal {
		if common.JournalAvailable() {
			logger.AddHook(&common.JournalHook{Identifier: "langpack-composer"})
			logger.SetOutput(io.Discard)
		} else {
			logger.Warn("Journal not available, logging to stderr")
		}
	}

	if config.SentryDSN != "" {
		hook, err := sentrylogrus.New([]logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		}, sentry.ClientOptions{
			Dsn:     config.SentryDSN,
			Release: "langpack-composer@" + common.BuildCommit,
		})
		if err != nil {
			return flush, err
		}
		logger.AddHook(hook)
		flush = func() {
			hook.Flush(sentryFlushTimeout)
		}
	}

	return flush, nil
}
