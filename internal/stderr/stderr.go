//go:build !windows

// Package stderr captures output that C audio libraries (ALSA) write
// directly to file descriptor 2, bypassing Go's os.Stderr, so it does not
// corrupt the terminal UI. Captured lines are logged and forwarded.
package stderr

import (
	"bufio"
	"os"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Capture redirects fd 2 into a pipe until Stop.
type Capture struct {
	// Lines receives the captured lines. Lines are dropped when it is full.
	Lines <-chan string

	origStderr int
	pipeRead   *os.File
	pipeWrite  *os.File
	done       chan struct{}
}

// Start begins capturing stderr output.
// Must be called before the speaker is initialized. On error the program
// can continue without capture.
func Start(log zerolog.Logger) (*Capture, error) {
	log = log.With().Str("component", "stderr").Logger()

	r, w, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "create pipe")
	}

	// Save original stderr file descriptor
	orig, err := syscall.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return nil, errors.Wrap(err, "dup stderr")
	}

	// Redirect stderr (fd 2) to the pipe's write end
	if err := syscall.Dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		syscall.Close(orig)
		r.Close()
		w.Close()
		return nil, errors.Wrap(err, "redirect stderr")
	}

	lines := make(chan string, 100)
	c := &Capture{
		Lines:      lines,
		origStderr: orig,
		pipeRead:   r,
		pipeWrite:  w,
		done:       make(chan struct{}),
	}

	go func() {
		defer close(c.done)
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			log.Warn().Str("line", line).Msg("captured stderr")
			select {
			case lines <- line:
			default:
			}
		}
	}()

	return c, nil
}

// WriteOriginal writes directly to the original stderr, bypassing capture.
// Used for fatal errors that must be visible while the TUI is running.
func (c *Capture) WriteOriginal(msg string) {
	if c == nil {
		_, _ = os.Stderr.WriteString(msg)
		return
	}
	_, _ = syscall.Write(c.origStderr, []byte(msg))
}

// Stop restores the original stderr and waits for the reader to finish.
func (c *Capture) Stop() {
	if c == nil {
		return
	}
	_ = syscall.Dup2(c.origStderr, int(os.Stderr.Fd()))
	_ = syscall.Close(c.origStderr)

	c.pipeWrite.Close()
	<-c.done
	c.pipeRead.Close()
}
