package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"cadence/internal/collector"
)

func TestNewProgress(t *testing.T) {
	c := collector.NewCollector()
	defer c.Close()

	progress := NewProgress(c, false)

	if progress.collector != c {
		t.Error("collector not assigned")
	}
	if progress.quiet {
		t.Error("quiet should be false")
	}
}

func TestProgress_QuietMode(t *testing.T) {
	c := collector.NewCollector()
	defer c.Close()

	progress := NewProgress(c, true)

	// Start and stop should not panic in quiet mode
	progress.Start()
	time.Sleep(10 * time.Millisecond)
	progress.Stop()
}

func TestProgress_DoubleStop(t *testing.T) {
	c := collector.NewCollector()
	defer c.Close()

	progress := NewProgress(c, true)
	progress.Start()

	progress.Stop()
	progress.Stop()
}

func TestProgress_StopWithoutStart(t *testing.T) {
	c := collector.NewCollector()
	defer c.Close()

	progress := NewProgress(c, false)
	progress.Stop()
}

func TestProgress_Print(t *testing.T) {
	c := collector.NewCollector()
	defer c.Close()

	var buf bytes.Buffer
	progress := NewProgress(c, false)
	progress.SetOutput(&buf)

	progress.Print("Stage: ramp (duration: 10s)")

	output := buf.String()
	if !strings.Contains(output, "\033[K") {
		t.Error("expected output to contain line clear escape sequence")
	}
	if !strings.Contains(output, "Stage: ramp (duration: 10s)\n") {
		t.Errorf("expected message with newline, got: %q", output)
	}
}

func TestProgress_Print_QuietModeDoesNotPrint(t *testing.T) {
	c := collector.NewCollector()
	defer c.Close()

	var buf bytes.Buffer
	progress := NewProgress(c, true)
	progress.SetOutput(&buf)

	progress.Print("Stage: ramp")

	if buf.String() != "" {
		t.Errorf("expected no output in quiet mode, got: %q", buf.String())
	}
}

func TestProgress_Printf(t *testing.T) {
	c := collector.NewCollector()
	defer c.Close()

	var buf bytes.Buffer
	progress := NewProgress(c, false)
	progress.SetOutput(&buf)

	progress.Printf("Stage: %s (users: %d)", "ramp", 10)

	if !strings.Contains(buf.String(), "Stage: ramp (users: 10)\n") {
		t.Errorf("expected formatted message, got: %q", buf.String())
	}
}

func TestProgress_UserCountInStatusLine(t *testing.T) {
	c := collector.NewCollector()
	defer c.Close()

	var buf bytes.Buffer
	progress := NewProgress(c, false)
	progress.SetOutput(&buf)
	progress.UserCount = func() int { return 7 }
	progress.startTime = time.Now()

	progress.printProgress()

	if !strings.Contains(buf.String(), "Users: 7") {
		t.Errorf("expected user count in status line, got: %q", buf.String())
	}
}

func TestProgress_SetOutput(t *testing.T) {
	c := collector.NewCollector()
	defer c.Close()

	var buf1, buf2 bytes.Buffer
	progress := NewProgress(c, false)

	progress.SetOutput(&buf1)
	progress.Print("message1")

	progress.SetOutput(&buf2)
	progress.Print("message2")

	if !strings.Contains(buf1.String(), "message1") {
		t.Error("expected message1 in buf1")
	}
	if !strings.Contains(buf2.String(), "message2") {
		t.Error("buf2 should contain message2")
	}
	if strings.Contains(buf1.String(), "message2") {
		t.Error("buf1 should not contain message2")
	}
}
