// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/llehouerou/segue/internal/decoder"
)

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Playback operations
	OpPlaybackStart Op = "start playback"
	OpPlaybackPlay  Op = "play track"
	OpPlaybackSeek  Op = "seek"
	OpPlaybackSkip  Op = "skip track"
	OpPlaybackRate  Op = "change playback rate"

	// Queue operations
	OpQueueLoad Op = "load queue"
	OpQueueSave Op = "save queue"
	OpQueueAdd  Op = "add to queue"
	OpQueueEdit Op = "edit queue"

	// History
	OpHistoryRecord Op = "record play"
	OpHistoryLoad   Op = "load play history"

	// Initialization
	OpInitialize Op = "initialize player"
	OpConfigLoad Op = "load configuration"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %s", op, describe(err))
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %s", op, context, describe(err))
}

// describe names engine errors by their code only; the wrapped decoder
// detail is left to the logs.
func describe(err error) string {
	var ee *decoder.EngineError
	if errors.As(err, &ee) {
		return ee.Code.String()
	}
	return err.Error()
}
