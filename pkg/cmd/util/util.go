package util

import (
	"os"
	"time"

	"github.com/mpapenbr/async-race-service/log"
)

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// ParseDuration returns defaultVal if s is empty or not a valid duration.
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Warn("Invalid duration value. Using default",
			log.String("value", s), log.Duration("default", defaultVal))
		return defaultVal
	}
	return d
}

// SetupLogger creates the application logger and installs it as default.
// A log config file takes precedence over format and level.
func SetupLogger(format, level, logConfig string) *log.Logger {
	if logConfig != "" {
		logger, err := loggerFromFile(logConfig)
		if err == nil {
			log.ResetDefault(logger)
			return logger
		}
		log.Warn("Could not use log config. Falling back to defaults",
			log.String("file", logConfig), log.ErrorField(err))
	}
	var logger *log.Logger
	switch format {
	case "json":
		logger = log.New(
			os.Stderr,
			ParseLogLevel(level, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			ParseLogLevel(level, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	log.ResetDefault(logger)
	return logger
}

func loggerFromFile(file string) (*log.Logger, error) {
	cfg, err := log.LoadConfig(file)
	if err != nil {
		return nil, err
	}
	return cfg.NewLogger(os.Stderr, log.WithCaller(true), log.AddCallerSkip(1))
}
