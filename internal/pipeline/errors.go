package pipeline

import (
	"errors"
	"fmt"
)

type Stage string

const (
	StageAnalysis  Stage = "analysis"
	StageNarration Stage = "narration"
	StageSynthesis Stage = "synthesis"
)

var (
	ErrAnalysisFailed  = errors.New("analysis failed")
	ErrNarrationFailed = errors.New("narration failed")
	ErrNoNarrationText = errors.New("no narration text")
	ErrSynthesisFailed = errors.New("synthesis failed")
)

// StageError reports which stage stopped a run. It matches both its reason
// sentinel and the underlying cause. Narration is kept when synthesis fails.
type StageError struct {
	Stage     Stage
	Reason    error
	Err       error
	Narration string
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}
