package httpapi

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/park285/chess-narrator/internal/analysis"
	"github.com/park285/chess-narrator/internal/chesscom"
	"github.com/park285/chess-narrator/internal/commentary"
	"github.com/park285/chess-narrator/internal/pipeline"
	"github.com/park285/chess-narrator/internal/speech"
	"github.com/park285/chess-narrator/pkg/narrationdto"
)

// pipelineFailure maps a run error to a status code and body.
func pipelineFailure(err error) (int, narrationdto.Failure) {
	out := pipeline.OutcomeOf(nil, err)
	body := narrationdto.Failure{Status: out.Status, Error: out.ErrorReason, Stage: string(out.Stage)}
	var se *pipeline.StageError
	if errors.As(err, &se) {
		body.Narration = se.Narration
	}

	switch {
	case errors.Is(err, analysis.ErrInvalidGame):
		body.Code = narrationdto.CodeInvalidGame
		return fiber.StatusUnprocessableEntity, body
	case errors.Is(err, commentary.ErrResponseFormat), errors.Is(err, pipeline.ErrNoNarrationText):
		body.Code = narrationdto.CodeBadResponse
		body.Retryable = true
		return fiber.StatusUnprocessableEntity, body
	case errors.Is(err, analysis.ErrEvaluatorUnavailable),
		errors.Is(err, commentary.ErrTextServiceUnavailable),
		errors.Is(err, speech.ErrSpeechServiceUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		body.Code = narrationdto.CodeUpstream
		body.Retryable = true
		return fiber.StatusBadGateway, body
	default:
		body.Code = narrationdto.CodeInternal
		return fiber.StatusInternalServerError, body
	}
}

func archiveFailure(err error) (int, narrationdto.Failure) {
	body := narrationdto.Failure{Status: "failed", Error: err.Error()}
	switch {
	case errors.Is(err, chesscom.ErrInvalidRequest):
		body.Code = narrationdto.CodeInvalidRequest
		return fiber.StatusBadRequest, body
	case errors.Is(err, chesscom.ErrNotFound):
		body.Code = narrationdto.CodeNotFound
		return fiber.StatusNotFound, body
	default:
		body.Code = narrationdto.CodeUpstream
		body.Retryable = true
		return fiber.StatusBadGateway, body
	}
}
