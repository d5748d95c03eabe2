// Package decoder drives an external, single-thread-affine audio engine.
//
// A Session wraps one Engine instance with a state machine and turns raw
// engine callbacks into structured events. A Pool keeps idle sessions around
// because engines are costly to create.
package decoder

// Playable is an opaque handle to a locally addressable audio resource.
type Playable interface {
	Locator() string
}

// Params are the rate settings applied to an engine atomically.
type Params struct {
	Volume float64
	Speed  float64
	Pitch  float64
}

// DefaultParams is full volume at normal speed and pitch.
var DefaultParams = Params{Volume: 1, Speed: 1, Pitch: 1}

// Info is an informational engine notification.
type Info int

const (
	InfoUnknown Info = iota
	InfoBufferingStart
	InfoBufferingEnd
	InfoStartedAsNext
	InfoNotSeekable
	InfoBadInterleaving
	InfoMetadataUpdate
	InfoAudioNotPlaying
)

// String returns the info name.
func (i Info) String() string {
	switch i {
	case InfoUnknown:
		return "Unknown"
	case InfoBufferingStart:
		return "BufferingStart"
	case InfoBufferingEnd:
		return "BufferingEnd"
	case InfoStartedAsNext:
		return "StartedAsNext"
	case InfoNotSeekable:
		return "NotSeekable"
	case InfoBadInterleaving:
		return "BadInterleaving"
	case InfoMetadataUpdate:
		return "MetadataUpdate"
	case InfoAudioNotPlaying:
		return "AudioNotPlaying"
	default:
		return "Info(?)"
	}
}

// Engine is the decoder engine boundary. Implementations are not safe for
// concurrent use; a Session serializes every call onto its loop. Listener
// callbacks may arrive on any goroutine, but never after Reset or Release
// has returned. An engine handing over to its chained next reports
// InfoStartedAsNext on the next before OnCompletion on itself.
type Engine interface {
	SetListener(l Listener)
	SetDataSource(locator string) error
	PrepareAsync() error
	Start(p Params) error
	Pause() error
	Stop() error
	SeekTo(ms int64) error
	SetParams(p Params) error
	SetLooping(looping bool)
	SetNext(next Engine) error
	Position() int64
	Duration() int64
	Reset()
	Release()
}

// Listener receives engine callbacks.
type Listener interface {
	OnPrepared()
	OnSeekComplete()
	OnCompletion()
	OnBufferingUpdate(percent int)
	OnInfo(what Info, extra int)
	OnError(code ErrorCode, extra int)
	OnTimeDiscontinuity(ts Timestamp)
	OnTimedMetadata(atMillis int64, data []byte)
}

// Factory creates a fresh engine instance.
type Factory func() (Engine, error)
