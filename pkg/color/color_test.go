package color_test

import (
	"strings"
	"testing"

	"aotc/pkg/color"
)

func TestColorize(t *testing.T) {
	color.EnableColor(false)
	if got := color.RedText("ret"); got != "ret" {
		t.Errorf("expected plain text, got %q", got)
	}
	if color.IsColorEnabled() {
		t.Errorf("color still enabled")
	}

	color.EnableColor(true)
	defer color.EnableColor(false)
	got := color.Colorize(color.Red, "ret")
	if got == "ret" || !strings.Contains(got, "ret") || !strings.HasPrefix(got, "\x1b[") {
		t.Errorf("expected an ANSI sequence around the text, got %q", got)
	}
}
