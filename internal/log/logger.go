package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	"qrpdf/internal/errors"

	"github.com/sirupsen/logrus"
)

var (
	isDebug atomic.Bool
	logger  = NewLogger()
)

// Field is a single structured key/value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger wraps a logrus logger with a fixed set of fields.
type Logger struct {
	base   *logrus.Logger
	fields logrus.Fields
	file   *os.File
}

type options struct {
	out      io.Writer
	filePath string
	json     bool
}

// Option configures a Logger.
type Option func(*options)

// WithOutput sets the primary writer. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithJSON switches to one JSON object per line.
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// WithFile tees log lines into the file at path. When the primary output is
// io.Discard the file becomes the only sink.
func WithFile(path string) Option {
	return func(o *options) { o.filePath = path }
}

func NewLogger(opts ...Option) *Logger {
	o := &options{out: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	l := &Logger{
		base:   logrus.New(),
		fields: logrus.Fields{},
	}

	out := o.out
	if o.filePath != "" {
		if err := os.MkdirAll(filepath.Dir(o.filePath), 0755); err == nil {
			f, err := os.OpenFile(o.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
			if err == nil {
				l.file = f
				if out == io.Discard {
					out = f
				} else {
					out = io.MultiWriter(out, f)
				}
			} else {
				fmt.Fprintf(os.Stderr, "log: cannot open %s: %v\n", o.filePath, err)
			}
		}
	}

	l.base.SetOutput(out)
	l.base.SetLevel(logrus.DebugLevel)
	if o.json {
		l.base.SetFormatter(jsonFormatter{})
	} else {
		l.base.SetFormatter(textFormatter{})
	}
	return l
}

// Configure replaces the package-level logger.
func Configure(opts ...Option) {
	logger = NewLogger(opts...)
}

// Close releases the log file, if any.
func Close() {
	if logger.file != nil {
		logger.file.Close()
	}
}

func SetDebug(debug bool) {
	isDebug.Store(debug)
}

// With returns a child logger carrying the extra fields.
func (l *Logger) With(fields ...Field) *Logger {
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	return &Logger{base: l.base, fields: merged, file: l.file}
}

// WithError returns a child logger carrying err's fields.
func (l *Logger) WithError(err error) *Logger {
	return l.With(errorFields(err)...)
}

// WithContext is reserved for request-scoped fields; it currently returns l.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return l
}

func (l *Logger) Info(msg string) { l.log(2, logrus.InfoLevel, msg) }
func (l *Logger) Infof(format string, args ...interface{}) { l.log(2, logrus.InfoLevel, fmt.Sprintf(format, args...)) }
func (l *Logger) Warn(msg string) { l.log(2, logrus.WarnLevel, msg) }
func (l *Logger) Warnf(format string, args ...interface{}) { l.log(2, logrus.WarnLevel, fmt.Sprintf(format, args...)) }
func (l *Logger) Error(msg string) { l.log(2, logrus.ErrorLevel, msg) }
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(2, logrus.ErrorLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(msg string) {
	if isDebug.Load() {
		l.log(2, logrus.DebugLevel, msg)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if isDebug.Load() {
		l.log(2, logrus.DebugLevel, fmt.Sprintf(format, args...))
	}
}

func (l *Logger) log(skip int, level logrus.Level, msg string) {
	fields := make(logrus.Fields, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	if _, file, line, ok := runtime.Caller(skip); ok {
		fields["caller"] = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	l.base.WithFields(fields).Log(level, msg)
}

func Info(msg string) { logger.log(2, logrus.InfoLevel, msg) }
func Infof(format string, args ...interface{}) { logger.log(2, logrus.InfoLevel, fmt.Sprintf(format, args...)) }
func Warn(msg string) { logger.log(2, logrus.WarnLevel, msg) }
func Warnf(format string, args ...interface{}) { logger.log(2, logrus.WarnLevel, fmt.Sprintf(format, args...)) }
func Error(msg string) { logger.log(2, logrus.ErrorLevel, msg) }
func Errorf(format string, args ...interface{}) {
	logger.log(2, logrus.ErrorLevel, fmt.Sprintf(format, args...))
}

func Debug(msg string) {
	if isDebug.Load() {
		logger.log(2, logrus.DebugLevel, msg)
	}
}

func Debugf(format string, args ...interface{}) {
	if isDebug.Load() {
		logger.log(2, logrus.DebugLevel, fmt.Sprintf(format, args...))
	}
}

// LogWithFields returns the package logger with fields attached.
func LogWithFields(fields ...Field) *Logger {
	return logger.With(fields...)
}

// LogWithError attaches err and, for application errors, its kind and
// subject (camera, payload or config parameter).
func LogWithError(err error) *Logger {
	return logger.With(errorFields(err)...)
}

// LogError logs err at error level with msg.
func LogError(err error, msg string) {
	logger.With(errorFields(err)...).log(2, logrus.ErrorLevel, msg)
}

func errorFields(err error) []Field {
	if err == nil {
		return []Field{F("error", "<nil>")}
	}
	fields := []Field{F("error", err.Error())}
	if kind := errors.KindOf(err); kind != errors.Unknown || isApplicationError(err) {
		fields = append(fields, F("error_kind", int(kind)))
	}

	var devErr *errors.DeviceError
	if errors.As(err, &devErr) && devErr.Camera() != "" {
		fields = append(fields, F("camera", devErr.Camera()))
	}
	var scanErr *errors.ScanError
	if errors.As(err, &scanErr) && scanErr.Payload() != "" {
		fields = append(fields, F("payload", scanErr.Payload()))
	}
	var cfgErr *errors.ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Param() != "" {
		fields = append(fields, F("param", cfgErr.Param()))
	}
	return fields
}

func isApplicationError(err error) bool {
	var appErr *errors.ApplicationError
	return errors.As(err, &appErr)
}

func levelName(level logrus.Level) string {
	if level == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(level.String())
}

type textFormatter struct{}

func (textFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] %s: %s", e.Time.Format("2006-01-02 15:04:05"), levelName(e.Level), e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k != "caller" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	if caller, ok := e.Data["caller"]; ok {
		fmt.Fprintf(&b, " caller=%v", caller)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

type jsonFormatter struct{}

func (jsonFormatter) Format(e *logrus.Entry) ([]byte, error) {
	entry := make(map[string]interface{}, len(e.Data)+3)
	for k, v := range e.Data {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[k] = v
	}
	entry["level"] = levelName(e.Level)
	entry["message"] = e.Message
	entry["timestamp"] = e.Time.Format("2006-01-02T15:04:05.000Z07:00")

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal log entry: %w", err)
	}
	return append(data, '\n'), nil
}
