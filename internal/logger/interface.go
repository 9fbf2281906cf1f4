package logger

// Logger is the subset of the package logger handed to components that
// take their logger as a dependency.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent

	// Coded variants add error_code and error_message fields.
	ErrorWithCode(err error) *LogEvent
	WarnWithCode(err error) *LogEvent
	ErrorWithContext(err error, component, operation string) *LogEvent
}
