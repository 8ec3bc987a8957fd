// Package logging builds the application logger. The terminal belongs to the
// TUI, so log output goes to a file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RedactedText is the replacement text for sensitive data
const RedactedText = "[REDACTED]"

// Matches a JWT (three base64url segments, header starting with `{"`),
// with or without a Bearer prefix
var jwtPattern = regexp.MustCompile(`(Bearer\s+)?eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`)

// New returns a JSON logger appending to path at the given level.
func New(path, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil

	return cfg.Build()
}

// RedactToken replaces anything that looks like a bearer token in s.
func RedactToken(s string) string {
	return jwtPattern.ReplaceAllStringFunc(s, func(m string) string {
		if len(m) > 7 && m[:7] == "Bearer " {
			return "Bearer " + RedactedText
		}
		return RedactedText
	})
}
