package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInitLevel(t *testing.T) {
	if err := Init("debug", "", false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if Get().GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %v", Get().GetLevel())
	}

	if err := Init("not-a-level", "", false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if Get().GetLevel() != logrus.InfoLevel {
		t.Errorf("Unknown level should fall back to info, got %v", Get().GetLevel())
	}
}

func TestInitLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "push_constants.log")

	if err := Init("info", logFile, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { Close() })

	Infof("dispatch of %d groups", 1024)
	Debugf("hidden at info level")

	contents, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(contents), "dispatch of 1024 groups") {
		t.Errorf("log file missing info line: %q", contents)
	}
	if strings.Contains(string(contents), "hidden at info level") {
		t.Errorf("debug line written at info level: %q", contents)
	}
}

func TestInitClosesPreviousFile(t *testing.T) {
	dir := t.TempDir()
	firstPath := filepath.Join(dir, "first.log")
	secondPath := filepath.Join(dir, "second.log")

	if err := Init("info", firstPath, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	first := file

	if err := Init("info", secondPath, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := first.Write([]byte("late write\n")); !errors.Is(err, os.ErrClosed) {
		t.Errorf("Expected first log file to be closed, got %v", err)
	}

	Infof("after re-init")
	contents, err := os.ReadFile(secondPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(contents), "after re-init") {
		t.Errorf("second log file missing line: %q", contents)
	}

	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if file != nil {
		t.Error("Expected Close to forget the file")
	}
}
