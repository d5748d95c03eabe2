// Package loop runs work on one owning goroutine.
//
// Every engine-touching call of a player instance goes through a single Loop.
// Work posted from other goroutines is queued; Do and Call block the caller
// until the work has run, and run inline when the caller already is the loop.
package loop

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by Do and Call once the loop has been closed.
var ErrClosed = errors.New("loop closed")

// Loop is a single-goroutine FIFO executor.
type Loop struct {
	log zerolog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	running bool
	closed  bool

	id   atomic.Uint64
	done chan struct{}
}

// New starts a loop goroutine.
func New(log zerolog.Logger) *Loop {
	l := &Loop{
		log:  log.With().Str("component", "loop").Logger(),
		done: make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)

	started := make(chan struct{})
	go l.run(started)
	<-started
	return l
}

func (l *Loop) run(started chan<- struct{}) {
	l.id.Store(goid())
	close(started)
	defer close(l.done)

	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.running = true
		l.mu.Unlock()

		fn()

		l.mu.Lock()
		l.running = false
		l.cond.Broadcast()
		l.mu.Unlock()
	}
}

// OnLoop reports whether the caller is running on the loop goroutine.
func (l *Loop) OnLoop() bool {
	return goid() == l.id.Load()
}

// Post queues fn without waiting for it. Posting to a closed loop drops fn.
// A panic inside fn is not recovered.
func (l *Loop) Post(fn func()) {
	if !l.enqueue(fn) {
		l.log.Debug().Msg("dropping task posted after close")
	}
}

// PostDelayed queues fn after d. The returned cancel prevents fn from
// running if it has not started yet.
func (l *Loop) PostDelayed(d time.Duration, fn func()) (cancel func()) {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		l.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

// Do runs fn on the loop and waits for it to finish. A panic inside fn is
// re-raised on the calling goroutine.
func (l *Loop) Do(fn func()) error {
	if l.OnLoop() {
		fn()
		return nil
	}

	reply := make(chan any, 1)
	ok := l.enqueue(func() {
		defer func() {
			reply <- recover()
		}()
		fn()
	})
	if !ok {
		return ErrClosed
	}
	if p := <-reply; p != nil {
		panic(p)
	}
	return nil
}

// Call runs fn on the loop and returns its result.
func Call[T any](l *Loop, fn func() T) (T, error) {
	var v T
	err := l.Do(func() {
		v = fn()
	})
	return v, err
}

// Idle blocks until the queue is empty and no task is running.
// It must not be called from the loop goroutine.
func (l *Loop) Idle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(l.queue) > 0 || l.running {
		l.cond.Wait()
	}
}

// Close stops accepting work, drains what is queued and stops the loop.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()

	if !l.OnLoop() {
		<-l.done
	}
}

func (l *Loop) enqueue(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.queue = append(l.queue, fn)
	l.cond.Broadcast()
	return true
}

// goid parses the current goroutine id from the runtime stack header.
func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	id, _ := strconv.ParseUint(s, 10, 64)
	return id
}
