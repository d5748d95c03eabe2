//go:build !windows

package stderr

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestCapture_ForwardsLines(t *testing.T) {
	c, err := Start(zerolog.Nop())
	if err != nil {
		t.Skipf("stderr capture unavailable: %v", err)
	}

	_, _ = os.Stderr.WriteString("ALSA lib pcm.c: underrun occurred\n\n")

	select {
	case line := <-c.Lines:
		if line != "ALSA lib pcm.c: underrun occurred" {
			t.Errorf("line = %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Error("timed out waiting for captured line")
	}

	c.Stop()

	// Lines is closed once the reader is done.
	if _, ok := <-c.Lines; ok {
		t.Error("expected Lines to be closed after Stop")
	}
}

func TestCapture_NilIsSafe(t *testing.T) {
	var c *Capture
	c.Stop()
}
