package logger

import "testing"

func TestInitAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if err := Init(level); err != nil {
			t.Fatalf("init with level %q: %v", level, err)
		}
		if Logger() == nil {
			t.Fatal("expected a logger instance")
		}
	}
}

func TestInitFallsBackOnUnknownLevel(t *testing.T) {
	if err := Init("verbose-ish"); err != nil {
		t.Fatalf("expected fallback to info level, got error: %v", err)
	}
}

func TestWithModuleReturnsChild(t *testing.T) {
	if err := Init("info"); err != nil {
		t.Fatalf("init: %v", err)
	}

	child := WithModule("reaper")
	if child == nil {
		t.Fatal("expected child logger")
	}
}
