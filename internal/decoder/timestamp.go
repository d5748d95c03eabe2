package decoder

import (
	"fmt"
	"time"
)

// Timestamp anchors a media position to a wall-clock instant so the
// position can be extrapolated without querying the engine.
type Timestamp struct {
	Anchor      time.Time
	MediaMillis int64
	Rate        float64
}

// IsZero reports whether the timestamp is unset.
func (t Timestamp) IsZero() bool {
	return t.Anchor.IsZero()
}

// PositionAt extrapolates the media position at now.
func (t Timestamp) PositionAt(now time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	elapsed := now.Sub(t.Anchor)
	if elapsed < 0 {
		elapsed = 0
	}
	return t.MediaMillis + int64(float64(elapsed.Milliseconds())*t.Rate)
}

func (t Timestamp) String() string {
	return fmt.Sprintf("Timestamp{anchor=%s media=%dms rate=%.2f}",
		t.Anchor.Format(time.RFC3339Nano), t.MediaMillis, t.Rate)
}
