package commentary

import (
	"errors"
	"fmt"
)

var (
	ErrTextServiceUnavailable = errors.New("text service unavailable")
	ErrResponseFormat         = errors.New("malformed narration response")
	ErrEmptyNarration         = errors.New("narration is empty")
	ErrNoMoves                = errors.New("no moves to narrate")
	ErrAlreadyNarrated        = errors.New("move already narrated")
)

// CardinalityError reports a response whose element count differs from the move count.
// It matches ErrResponseFormat under errors.Is.
type CardinalityError struct {
	Expected int
	Got      int
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("narration response has %d entries for %d moves", e.Got, e.Expected)
}

func (e *CardinalityError) Unwrap() error { return ErrResponseFormat }
