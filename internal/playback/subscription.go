package playback

import "sync"

const eventBufferSize = 16

// Subscription provides event channels for a subscriber. Events are dropped
// when a channel is full.
type Subscription struct {
	StateChanged    <-chan StateChange
	TrackChanged    <-chan TrackChange
	PositionChanged <-chan PositionChange
	QueueChanged    <-chan QueueChange
	ModeChanged     <-chan ModeChange
	StreamChanged   <-chan StreamChange
	ParamsChanged   <-chan ParamsChange
	LiveInfo        <-chan LiveInfo
	Error           <-chan ErrorEvent
	Done            <-chan struct{}

	// Internal write channels
	stateCh    chan StateChange
	trackCh    chan TrackChange
	positionCh chan PositionChange
	queueCh    chan QueueChange
	modeCh     chan ModeChange
	streamCh   chan StreamChange
	paramsCh   chan ParamsChange
	liveCh     chan LiveInfo
	errorCh    chan ErrorEvent
	doneCh     chan struct{}
	closeOnce  sync.Once
}

// newSubscription creates a new subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		stateCh:    make(chan StateChange, eventBufferSize),
		trackCh:    make(chan TrackChange, eventBufferSize),
		positionCh: make(chan PositionChange, eventBufferSize),
		queueCh:    make(chan QueueChange, eventBufferSize),
		modeCh:     make(chan ModeChange, eventBufferSize),
		streamCh:   make(chan StreamChange, eventBufferSize),
		paramsCh:   make(chan ParamsChange, eventBufferSize),
		liveCh:     make(chan LiveInfo, eventBufferSize),
		errorCh:    make(chan ErrorEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.StateChanged = s.stateCh
	s.TrackChanged = s.trackCh
	s.PositionChanged = s.positionCh
	s.QueueChanged = s.queueCh
	s.ModeChanged = s.modeCh
	s.StreamChanged = s.streamCh
	s.ParamsChanged = s.paramsCh
	s.LiveInfo = s.liveCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.doneCh)
	})
}

// trySend sends e without blocking and drops it if the buffer is full.
func trySend[T any](ch chan T, e T) {
	select {
	case ch <- e:
	default:
	}
}

func (s *Subscription) sendState(e StateChange)       { trySend(s.stateCh, e) }
func (s *Subscription) sendTrack(e TrackChange)       { trySend(s.trackCh, e) }
func (s *Subscription) sendPosition(e PositionChange) { trySend(s.positionCh, e) }
func (s *Subscription) sendQueue(e QueueChange)       { trySend(s.queueCh, e) }
func (s *Subscription) sendMode(e ModeChange)         { trySend(s.modeCh, e) }
func (s *Subscription) sendStream(e StreamChange)     { trySend(s.streamCh, e) }
func (s *Subscription) sendParams(e ParamsChange)     { trySend(s.paramsCh, e) }
func (s *Subscription) sendLive(e LiveInfo)           { trySend(s.liveCh, e) }
func (s *Subscription) sendError(e ErrorEvent)        { trySend(s.errorCh, e) }
