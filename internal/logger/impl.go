package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/julianstephens/go-utils/helpers"
	goulog "github.com/julianstephens/go-utils/logger"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

func parseLevel(s string) level {
	switch s {
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (l level) String() string {
	switch l {
	case levelDebug:
		return "DEBUG"
	case levelWarn:
		return "WARN"
	case levelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ConsoleLogger writes timestamped key=value lines to stdout, errors to
// stderr.
type ConsoleLogger struct {
	min level
	out io.Writer
	err io.Writer
}

// NewConsoleLogger creates a console logger. level is one of "debug",
// "info", "warn", "error"; anything else means "info".
func NewConsoleLogger(lvl string) Logger {
	return &ConsoleLogger{
		min: parseLevel(lvl),
		out: os.Stdout,
		err: os.Stderr,
	}
}

func (cl *ConsoleLogger) Debug(msg string, fields ...interface{}) {
	cl.write(levelDebug, msg, fields...)
}

func (cl *ConsoleLogger) Info(msg string, fields ...interface{}) {
	cl.write(levelInfo, msg, fields...)
}

func (cl *ConsoleLogger) Warn(msg string, fields ...interface{}) {
	cl.write(levelWarn, msg, fields...)
}

// Error logs regardless of the configured level.
func (cl *ConsoleLogger) Error(msg string, err error, fields ...interface{}) {
	cl.write(levelError, msg, append([]interface{}{"error", err}, fields...)...)
}

func (cl *ConsoleLogger) write(lvl level, msg string, fields ...interface{}) {
	if lvl < cl.min {
		return
	}

	line := fmt.Sprintf("[%s] %s: %s%s\n",
		time.Now().Format(time.RFC3339),
		lvl, msg, formatFields(fields),
	)

	w := cl.out
	if lvl == levelError {
		w = cl.err
	}
	fmt.Fprint(w, line) // nolint:errcheck
}

func formatFields(fields []interface{}) string {
	s := ""
	for i := 0; i+1 < len(fields); i += 2 {
		s += fmt.Sprintf(" %v=%v", fields[i], fields[i+1])
	}
	return s
}

// FileLogger writes to a rotating log file through go-utils/logger.
type FileLogger struct {
	underlying *goulog.Logger
}

// NewFileLogger creates a rotating file logger under logDir. Old logs are
// compressed and retained for 28 days.
func NewFileLogger(logDir, fileName string, maxSizeMB, maxBackups int) (Logger, error) {
	if err := helpers.Ensure(logDir, true); err != nil {
		return nil, wrapLoggerErr("create file logger", ErrLogCreate, err, logDir)
	}

	underlying := goulog.New()
	maxAge := 28
	if err := underlying.SetFileOutputWithConfig(goulog.FileRotationConfig{
		Filename:   filepath.Join(logDir, fileName),
		MaxSize:    maxSizeMB,
		MaxBackups: &maxBackups,
		MaxAge:     &maxAge,
		Compress:   true,
	}); err != nil {
		return nil, wrapLoggerErr("create file logger", ErrLogCreate, err, logDir)
	}

	return &FileLogger{underlying: underlying}, nil
}

func (fl *FileLogger) Debug(msg string, fields ...interface{}) {
	if len(fields) == 0 {
		fl.underlying.Debug(msg)
		return
	}
	fl.underlying.WithFields(fieldsToMap(fields)).Debug(msg)
}

func (fl *FileLogger) Info(msg string, fields ...interface{}) {
	if len(fields) == 0 {
		fl.underlying.Info(msg)
		return
	}
	fl.underlying.WithFields(fieldsToMap(fields)).Info(msg)
}

func (fl *FileLogger) Warn(msg string, fields ...interface{}) {
	if len(fields) == 0 {
		fl.underlying.Warn(msg)
		return
	}
	fl.underlying.WithFields(fieldsToMap(fields)).Warn(msg)
}

func (fl *FileLogger) Error(msg string, err error, fields ...interface{}) {
	all := append([]interface{}{"error", err}, fields...)
	fl.underlying.WithFields(fieldsToMap(all)).Error(msg)
}

func fieldsToMap(fields []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		m[fmt.Sprintf("%v", fields[i])] = fields[i+1]
	}
	return m
}

// Close flushes pending entries. go-utils/logger has no explicit close; the
// method keeps the Closeable shape for shutdown paths.
func (fl *FileLogger) Close() error {
	return nil
}

// MultiLogger fans every call out to all underlying loggers.
type MultiLogger struct {
	loggers []Logger
}

func NewMultiLogger(loggers ...Logger) Logger {
	return &MultiLogger{loggers: loggers}
}

func (ml *MultiLogger) Debug(msg string, fields ...interface{}) {
	for _, lg := range ml.loggers {
		lg.Debug(msg, fields...)
	}
}

func (ml *MultiLogger) Info(msg string, fields ...interface{}) {
	for _, lg := range ml.loggers {
		lg.Info(msg, fields...)
	}
}

func (ml *MultiLogger) Warn(msg string, fields ...interface{}) {
	for _, lg := range ml.loggers {
		lg.Warn(msg, fields...)
	}
}

func (ml *MultiLogger) Error(msg string, err error, fields ...interface{}) {
	for _, lg := range ml.loggers {
		lg.Error(msg, err, fields...)
	}
}

func (ml *MultiLogger) Close() error {
	var lastErr error
	for _, lg := range ml.loggers {
		if c, ok := lg.(Closeable); ok {
			if err := c.Close(); err != nil {
				lastErr = err
			}
		}
	}
	if lastErr != nil {
		return wrapLoggerErr("close multi logger", ErrLogClose, lastErr, "")
	}
	return nil
}
