package utils

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDurationUS(t *testing.T) {
	d := 1234*time.Microsecond + 567*time.Nanosecond
	got := DurationUS(d)
	if math.Abs(got-1234.567) > 0.001 {
		t.Fatalf("want 1234.567µs, got %.3f", got)
	}
}

func TestLogfRespectsVerbose(t *testing.T) {
	var buf bytes.Buffer
	oldOut, oldVerbose := Output, Verbose
	defer func() { Output, Verbose = oldOut, oldVerbose }()
	Output = &buf

	Verbose = false
	Logf("epoch %d\n", 1)
	PrintTimingStats(&TimingStats{TotalTime: time.Second}, 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	Verbose = true
	Logf("epoch %d\n", 1)
	PrintTimingStats(&TimingStats{TotalTime: time.Second, EpochTime: time.Second}, 2)
	out := buf.String()
	if !strings.HasPrefix(out, "epoch 1\n") {
		t.Errorf("missing progress line in %q", out)
	}
	if !strings.Contains(out, "Epochs completed: 2") {
		t.Errorf("missing epoch count in %q", out)
	}
	if strings.Contains(out, "Split inference") {
		t.Errorf("split breakdown printed without split timings")
	}
}
