package logging

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestProgressFormatterPrefixes(t *testing.T) {
	f := &progressFormatter{}

	progress, err := f.Format(&logrus.Entry{Message: "hello", Level: logrus.InfoLevel, Data: logrus.Fields{}})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.HasPrefix(string(progress), "[*] hello") {
		t.Fatalf("info-level line = %q, want [*] prefix", progress)
	}

	failure, err := f.Format(&logrus.Entry{Message: "boom", Level: logrus.ErrorLevel, Data: logrus.Fields{}})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.HasPrefix(string(failure), "[!] boom") {
		t.Fatalf("error-level line = %q, want [!] prefix", failure)
	}
}

func TestProgressFormatterAppendsFields(t *testing.T) {
	f := &progressFormatter{}
	out, err := f.Format(&logrus.Entry{
		Message: "function folded",
		Level:   logrus.InfoLevel,
		Data:    logrus.Fields{"before": 42},
	})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(string(out), "before=42") {
		t.Fatalf("formatted line %q missing field suffix", out)
	}
}

func TestNewVerboseEnablesDebugLevel(t *testing.T) {
	quiet := New(false)
	if quiet.GetLevel() != logrus.InfoLevel {
		t.Fatalf("quiet logger level = %v, want Info", quiet.GetLevel())
	}

	verbose := New(true)
	if verbose.GetLevel() != logrus.DebugLevel {
		t.Fatalf("verbose logger level = %v, want Debug", verbose.GetLevel())
	}
}
