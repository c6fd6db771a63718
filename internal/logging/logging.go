// Package logging configures the process-wide logrus logger and exposes the
// leveled helpers used across the module as `log`.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "agent-router.log"

var (
	setupOnce sync.Once
	rotator   *lumberjack.Logger
	outputMu  sync.Mutex
)

// LogFormatter renders "[time] [level] [file:line] message" lines.
type LogFormatter struct{}

func (f *LogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(entry.Time.Format("2006-01-02 15:04:05"))
	sb.WriteString("] [")
	sb.WriteString(strings.ToUpper(entry.Level.String()))
	sb.WriteString("] ")
	if entry.HasCaller() {
		fmt.Fprintf(&sb, "[%s:%d] ", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	sb.WriteString(strings.TrimRight(entry.Message, "\n"))
	for k, v := range entry.Data {
		fmt.Fprintf(&sb, " %s=%v", k, v)
	}
	sb.WriteByte('\n')
	return []byte(sb.String()), nil
}

// SetupBaseLogger installs the formatter and stdout output. Safe to call more
// than once.
func SetupBaseLogger() {
	setupOnce.Do(func() {
		logrus.SetOutput(os.Stdout)
		logrus.SetReportCaller(false)
		logrus.SetFormatter(&LogFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	})
}

// SetDebug toggles debug level logging.
func SetDebug(enabled bool) {
	if enabled {
		logrus.SetLevel(logrus.DebugLevel)
		return
	}
	logrus.SetLevel(logrus.InfoLevel)
}

// ConfigureLogOutput switches between stdout and a rotating file under dir.
func ConfigureLogOutput(toFile bool, dir string) error {
	outputMu.Lock()
	defer outputMu.Unlock()

	if !toFile {
		if rotator != nil {
			_ = rotator.Close()
			rotator = nil
		}
		logrus.SetOutput(os.Stdout)
		return nil
	}
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("logging: failed to create log directory: %w", err)
	}
	if rotator != nil {
		_ = rotator.Close()
	}
	rotator = &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    10,
		MaxBackups: 0,
		MaxAge:     0,
		Compress:   false,
	}
	logrus.SetOutput(rotator)
	return nil
}

func WithField(key string, value any) *logrus.Entry { return logrus.WithField(key, value) }
func WithError(err error) *logrus.Entry             { return logrus.WithError(err) }

func Debugf(format string, args ...any) { logrus.Debugf(format, args...) }
func Infof(format string, args ...any)  { logrus.Infof(format, args...) }
func Warnf(format string, args ...any)  { logrus.Warnf(format, args...) }
func Errorf(format string, args ...any) { logrus.Errorf(format, args...) }
func Debug(args ...any)                 { logrus.Debug(args...) }
func Info(args ...any)                  { logrus.Info(args...) }
func Warn(args ...any)                  { logrus.Warn(args...) }
func Error(args ...any)                 { logrus.Error(args...) }
