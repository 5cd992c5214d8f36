package pipeline

import (
	"errors"

	"github.com/park285/chess-narrator/internal/domain"
	"github.com/park285/chess-narrator/internal/metrics"
)

// Outcome is what callers outside the process see of a run.
type Outcome struct {
	Status       string `json:"status"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	ErrorReason  string `json:"error_reason,omitempty"`
	Stage        Stage  `json:"stage,omitempty"`
}

func OutcomeOf(artifact *domain.NarrationArtifact, err error) Outcome {
	if err == nil && artifact != nil {
		return Outcome{Status: metrics.StatusComplete, ArtifactPath: artifact.AudioPath}
	}
	out := Outcome{Status: metrics.StatusFailed}
	if err == nil {
		out.ErrorReason = "no artifact produced"
		return out
	}
	out.ErrorReason = err.Error()
	var se *StageError
	if errors.As(err, &se) {
		out.Stage = se.Stage
	}
	return out
}
