package logger

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// New returns a logger writing to stdout at the provided level.
// It is built once in main and handed to every component that logs.
func New(level string) *Logger {
	return newZapLogger(level)
}
