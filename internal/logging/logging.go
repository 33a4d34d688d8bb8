// Package logging renders pipeline diagnostics with the "[*] "/"[!] " line
// prefixes the CLI contract requires: "[*]" for progress, "[!]" for errors.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus.Logger configured with progressFormatter.
type Logger struct {
	*logrus.Logger
}

// New returns a Logger. When verbose is false, Debug-level progress lines
// (the bulk of "[*]" output) are suppressed; Info, Warn, and Error always
// print.
func New(verbose bool) *Logger {
	l := logrus.New()
	l.SetFormatter(&progressFormatter{})
	l.SetOutput(os.Stderr)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &Logger{Logger: l}
}

// Progress logs a "[*]" progress line at debug level, for per-function,
// per-pass chatter that only -v should surface.
func (l *Logger) Progress(format string, args ...interface{}) {
	l.Debugf(format, args...)
}

// Progressf logs a "[*]" progress line at info level, for milestones that
// should always print (module loaded, function written, etc).
func (l *Logger) Progressf(format string, args ...interface{}) {
	l.Infof(format, args...)
}

// Fail logs a "[!]" error line.
func (l *Logger) Fail(format string, args ...interface{}) {
	l.Errorf(format, args...)
}

// progressFormatter implements logrus.Formatter using the two-symbol prefix
// convention spec'd for this CLI instead of OPA's bracketed level name.
type progressFormatter struct{}

func (f *progressFormatter) Format(e *logrus.Entry) ([]byte, error) {
	prefix := "[*]"
	switch e.Level {
	case logrus.WarnLevel, logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		prefix = "[!]"
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(' ')
	b.WriteString(e.Message)

	if len(e.Data) > 0 {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
		}
	}

	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// DiscardLogger returns a Logger whose output is discarded, used by
// driver.Run when its Config carries no Logger.
func DiscardLogger() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{Logger: l}
}
