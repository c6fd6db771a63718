package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestLogFormatter(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "stream stalled\n",
		Data:    logrus.Fields{"provider": "gemini"},
	}
	out, err := (&LogFormatter{}).Format(entry)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	line := string(out)
	if !strings.HasPrefix(line, "[2025-01-02 03:04:05] [WARNING] stream stalled") {
		t.Errorf("unexpected line %q", line)
	}
	if !strings.Contains(line, "provider=gemini") || !strings.HasSuffix(line, "\n") {
		t.Errorf("unexpected line %q", line)
	}
}

func TestConfigureLogOutputToFile(t *testing.T) {
	dir := t.TempDir()
	if err := ConfigureLogOutput(true, dir); err != nil {
		t.Fatalf("ConfigureLogOutput: %v", err)
	}
	t.Cleanup(func() { _ = ConfigureLogOutput(false, "") })

	Infof("hello %s", "file")

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Errorf("log file missing message: %q", data)
	}
}
