package log

import (
	"context"
	"io"
	"os"

	"ampyfm/internal/errors"

	"github.com/sirupsen/logrus"
)

var (
	isDebug = false
	logger  = NewLogger()
)

// Field is a single structured key/value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

type options struct {
	out  io.Writer
	json bool
	file string
}

// Option configures a Logger
type Option func(*options)

// WithOutput sends log lines to w instead of stderr
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithJSON switches to one JSON object per line
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// WithFile additionally appends log lines to the file at path
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

// Logger wraps a logrus entry so fields can be chained without touching the
// underlying logger.
type Logger struct {
	entry *logrus.Entry
	file  *os.File
}

// NewLogger creates a logger. Without options it writes text lines to
// stderr, keeping stdout for command output.
func NewLogger(opts ...Option) *Logger {
	o := &options{out: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	l := &Logger{}
	out := o.out
	if o.file != "" {
		f, err := os.OpenFile(o.file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			l.file = f
			out = io.MultiWriter(o.out, f)
		}
	}

	base := logrus.New()
	base.SetOutput(out)
	// Debug lines are gated by SetDebug, not by the logrus level.
	base.SetLevel(logrus.DebugLevel)
	if o.json {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	l.entry = logrus.NewEntry(base)
	return l
}

// Configure replaces the package-level logger
func Configure(opts ...Option) {
	logger = NewLogger(opts...)
}

// Redirect replaces the package-level logger until restore is called. A
// full-screen interface uses it to keep log lines off the terminal.
func Redirect(opts ...Option) (restore func()) {
	prev := logger
	logger = NewLogger(opts...)
	return func() {
		cur := logger
		logger = prev
		cur.Close()
	}
}

// SetDebug enables or disables debug output for every logger
func SetDebug(debug bool) {
	isDebug = debug
}

// IsDebug reports whether debug output is enabled
func IsDebug() bool {
	return isDebug
}

// With returns a logger carrying the given fields in addition to its own
func (l *Logger) With(fields ...Field) *Logger {
	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = f.Value
	}
	return &Logger{entry: l.entry.WithFields(lf), file: l.file}
}

// WithError attaches err and whatever context its type carries
func (l *Logger) WithError(err error) *Logger {
	return l.With(errorFields(err)...)
}

// WithContext is accepted for call-site symmetry; no values are read from ctx yet.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return l
}

// Info logs an informational message
func (l *Logger) Info(msg string) {
	l.entry.Info(msg)
}

// Infof logs a formatted informational message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Warn logs a warning
func (l *Logger) Warn(msg string) {
	l.entry.Warn(msg)
}

// Warnf logs a formatted warning
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.entry.Error(msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Debug logs msg only when debug output is enabled
func (l *Logger) Debug(msg string) {
	if isDebug {
		l.entry.Debug(msg)
	}
}

// Debugf logs a formatted message only when debug output is enabled
func (l *Logger) Debugf(format string, args ...interface{}) {
	if isDebug {
		l.entry.Debugf(format, args...)
	}
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func errorFields(err error) []Field {
	if err == nil {
		return []Field{F("error", "<nil>")}
	}

	fields := []Field{
		F("error", err.Error()),
		F("error_kind", errors.KindOf(err).String()),
	}

	var fileErr *errors.FileError
	if errors.As(err, &fileErr) && fileErr.Path() != "" {
		fields = append(fields, F("path", fileErr.Path()))
	}
	var configErr *errors.ConfigError
	if errors.As(err, &configErr) && configErr.Param() != "" {
		fields = append(fields, F("param", configErr.Param()))
	}
	var devErr *errors.DeviceError
	if errors.As(err, &devErr) {
		fields = append(fields, F("port", devErr.Port()))
	}
	var toolErr *errors.ToolError
	if errors.As(err, &toolErr) {
		fields = append(fields, F("subcommand", toolErr.Subcommand()), F("exit_code", toolErr.ExitCode()))
	}
	return fields
}

// Info logs an informational message
func Info(msg string) {
	logger.Info(msg)
}

// Infof logs a formatted informational message
func Infof(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

// Debug logs a message when debug output is enabled
func Debug(msg string) {
	logger.Debug(msg)
}

// Debugf logs a formatted message when debug output is enabled
func Debugf(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// Warn logs a warning
func Warn(msg string) {
	logger.Warn(msg)
}

// Warnf logs a formatted warning
func Warnf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

// Error logs an error message
func Error(msg string) {
	logger.Error(msg)
}

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

// LogWithFields returns the package logger with fields attached
func LogWithFields(fields ...Field) *Logger {
	return logger.With(fields...)
}

// LogWithError returns the package logger with err's fields attached
func LogWithError(err error) *Logger {
	return logger.WithError(err)
}

// LogError is shorthand for LogWithError(err).Error(msg)
func LogError(err error, msg string) {
	logger.WithError(err).Error(msg)
}
