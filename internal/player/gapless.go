package player

import "github.com/llehouerou/segue/internal/decoder"

// maxHandoffs bounds the engine switches within one buffer so a chain of
// empty files cannot stall the audio callback.
const maxHandoffs = 4

// Stream implements beep.Streamer. It renders the current engine and, when
// it ends, hands over to its chained next engine in the same buffer.
func (o *Output) Stream(samples [][2]float64) (n int, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for range maxHandoffs {
		e := o.current
		if e == nil || !e.playing || n == len(samples) {
			break
		}
		filled, ended := e.render(samples[n:])
		n += filled
		if ended {
			e.handoff()
		}
	}

	clear(samples[n:])
	return len(samples), true
}

// render streams from the engine pipeline. ended is set once the source is
// exhausted.
func (e *Engine) render(samples [][2]float64) (n int, ended bool) {
	n, ok := e.volume.Stream(samples)

	// If it didn't fill the buffer, check if it's exhausted
	if n < len(samples) && ok {
		n2, ok2 := e.volume.Stream(samples[n:])
		n += n2
		ok = ok2
	}
	return n, !ok
}

// handoff runs when the engine reached the end of its source. A looping
// engine restarts; otherwise the chained next engine, if prepared, becomes
// current and reports InfoStartedAsNext before this engine completes.
func (e *Engine) handoff() {
	o := e.out
	if err := e.src.Err(); err != nil {
		o.log.Warn().Err(err).Str("path", e.locator).Msg("decoding failed")
		e.playing = false
		o.current = nil
		e.notify(func(l decoder.Listener) { l.OnError(decoder.ErrMalformed, 0) })
		return
	}

	if e.looping {
		if err := e.src.Seek(0); err != nil {
			o.log.Warn().Err(err).Str("path", e.locator).Msg("loop rewind failed")
			e.playing = false
			o.current = nil
			e.notify(func(l decoder.Listener) { l.OnError(decoder.ErrIO, 0) })
			return
		}
		e.build()
		e.discontinuity()
		return
	}

	e.playing = false
	o.current = nil
	if next := e.next; next != nil && next.prepared {
		next.params = e.params
		next.build()
		next.playing = true
		o.current = next
		o.log.Debug().Str("from", e.locator).Str("to", next.locator).Msg("gapless handoff")
		next.notify(func(l decoder.Listener) { l.OnInfo(decoder.InfoStartedAsNext, 0) })
		next.discontinuity()
	}
	e.notify(func(l decoder.Listener) { l.OnCompletion() })
}
