package config

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SetupLogger returns a logger writing to w at levelStr. Format "json"
// writes one JSON object per event; anything else writes human-readable
// console lines.
func SetupLogger(levelStr, format string, w io.Writer) zerolog.Logger {
	zerolog.MessageFieldName = "message"
	zerolog.LevelFieldName = "level"

	level, ok := parseLevel(levelStr)

	var logger zerolog.Logger
	if strings.ToLower(format) == "json" {
		logger = zerolog.New(w)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true})
	}
	logger = logger.Level(level).With().Timestamp().Logger()

	if !ok {
		logger.Warn().Msgf("Unknown log level '%s', defaulting to debug", levelStr)
	}
	return logger
}

// LogLevelOrDebug parses levelStr, accepting "warning" for "warn". An
// empty string gives info and unknown levels give debug.
func LogLevelOrDebug(levelStr string) zerolog.Level {
	level, _ := parseLevel(levelStr)
	return level
}

func parseLevel(levelStr string) (zerolog.Level, bool) {
	levelStr = strings.ToLower(levelStr)
	switch levelStr {
	case "":
		return zerolog.InfoLevel, true
	case "warning":
		levelStr = "warn"
	}

	var level zerolog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return zerolog.DebugLevel, false
	}
	return level, true
}
