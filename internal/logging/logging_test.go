package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "keytrial.log")
	logger, err := New("info", path)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debugw("hidden", "k", 1)
	logger.Infow("trial finished", "reason", "completed")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "trial finished") || !strings.Contains(out, "completed") {
		t.Fatalf("expected info entry in log, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug entry should be filtered at info level")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New("loud", "-"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("expected a usable logger")
	}
}
