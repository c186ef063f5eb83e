package logger

// Leveled adapts Logger to the key/value leveled logger interface used by
// HTTP client libraries. Client errors are logged as warnings since they are
// retried.
type Leveled struct {
	Inner Logger
}

func (l Leveled) Error(msg string, keysAndValues ...any) {
	l.Inner.Warn(msg, keysAndValues...)
}

func (l Leveled) Warn(msg string, keysAndValues ...any) {
	l.Inner.Warn(msg, keysAndValues...)
}

func (l Leveled) Info(msg string, keysAndValues ...any) {
	l.Inner.Debug(msg, keysAndValues...)
}

func (l Leveled) Debug(msg string, keysAndValues ...any) {
	l.Inner.Trace(msg, keysAndValues...)
}
