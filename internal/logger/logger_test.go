package logger_test

import (
	"bytes"
	"strings"
	"testing"

	"aotc/internal/logger"

	"github.com/charmbracelet/log"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		debug    bool
		expected bool
	}{
		{false, false},
		{true, true},
	}

	for _, test := range tests {
		var buf bytes.Buffer
		logger.InitWriter(&buf, test.debug, true)
		log.Debug("probe")
		log.Warn("always")

		if got := strings.Contains(buf.String(), "probe"); got != test.expected {
			t.Errorf("debug=%v: debug output %v in %q", test.debug, got, buf.String())
		}
		if !strings.Contains(buf.String(), "AOTC") || !strings.Contains(buf.String(), "always") {
			t.Errorf("debug=%v: warning missing from %q", test.debug, buf.String())
		}
	}
}

func TestForFunction(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWriter(&buf, true, true)
	logger.ForFunction("Main.run").Debug("Inserted shadow frame", "pops", 2)

	for _, expected := range []string{"function=Main.run", "pops=2", "Inserted shadow frame"} {
		if !strings.Contains(buf.String(), expected) {
			t.Errorf("expected %q in %q", expected, buf.String())
		}
	}
}
