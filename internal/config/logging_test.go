package config

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
	. "gopkg.in/check.v1"
)

type LoggingSuite struct{}

var _ = Suite(&LoggingSuite{})

func (s *LoggingSuite) TestLogLevelOrDebug(c *C) {
	for levelStr, want := range map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.DebugLevel,
	} {
		c.Check(LogLevelOrDebug(levelStr), Equals, want, Commentf("level %q", levelStr))
	}
}

func (s *LoggingSuite) TestSetupLoggerJSON(c *C) {
	var buf bytes.Buffer
	logger := SetupLogger("warn", "json", &buf)

	logger.Info().Msg("dropped")
	c.Check(buf.Len(), Equals, 0)

	logger.Warn().Str("element", "cu_qp_delta_abs").Msg("malformed syntax element, using 0")
	var event map[string]interface{}
	c.Assert(json.Unmarshal(buf.Bytes(), &event), IsNil)
	c.Check(event["level"], Equals, "warn")
	c.Check(event["message"], Equals, "malformed syntax element, using 0")
	c.Check(event["element"], Equals, "cu_qp_delta_abs")
	c.Check(event["time"], NotNil)
}

func (s *LoggingSuite) TestSetupLoggerConsole(c *C) {
	var buf bytes.Buffer
	logger := SetupLogger("debug", "default", &buf)

	logger.Debug().Int("row", 3).Msg("row decoded")
	c.Check(strings.Contains(buf.String(), "row decoded"), Equals, true)
	c.Check(strings.Contains(buf.String(), "row=3"), Equals, true)
}

func (s *LoggingSuite) TestSetupLoggerUnknownLevel(c *C) {
	var buf bytes.Buffer
	logger := SetupLogger("chatty", "json", &buf)

	c.Check(logger.GetLevel(), Equals, zerolog.DebugLevel)
	c.Check(strings.Contains(buf.String(), "Unknown log level 'chatty'"), Equals, true)
}
