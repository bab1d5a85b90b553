package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
const (
	VerbosityUser  = 0 // No flags: configured level
	VerbosityInfo  = 1 // -v: info
	VerbosityDebug = 2 // -vv: debug
)

// VerbosityToLevel maps verbosity flags (-v, -vv) to zap log levels.
// A zero count returns fallback so the configured log.level applies.
//
//	0 (none)  -> fallback
//	1 (-v)    -> InfoLevel
//	2+ (-vv)  -> DebugLevel
func VerbosityToLevel(verbosity int, fallback zapcore.Level) zapcore.Level {
	switch {
	case verbosity <= VerbosityUser:
		return fallback
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
