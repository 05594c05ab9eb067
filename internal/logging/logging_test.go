package logging

import "testing"

func TestConfigure(t *testing.T) {
	for _, level := range []string{"info", "debug", "warn", "error"} {
		if err := Configure(level); err != nil {
			t.Errorf("level %s: %v", level, err)
		}
	}
	if err := Configure("chatty"); err == nil {
		t.Error("expected error for an unknown level")
	}
	if Logger() == nil {
		t.Error("expected a logger")
	}
}
