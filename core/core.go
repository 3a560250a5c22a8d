package core

// Logger defines an optional logging interface compatible with log/slog.
// Packages in this module treat a nil Logger as silent.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Named header slots used when qualifying errors.
const (
	HeaderOriginal = "original"
	HeaderCurrent  = "current"
)
