package httpapi

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/park285/chess-narrator/internal/adapter/narrationpresenter"
	"github.com/park285/chess-narrator/internal/commentary"
	"github.com/park285/chess-narrator/internal/domain"
	"github.com/park285/chess-narrator/internal/pipeline"
	"github.com/park285/chess-narrator/pkg/narrationdto"
	"go.uber.org/zap"
)

func (s *Server) generateCommentary(c *fiber.Ctx) error {
	var req narrationdto.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(narrationdto.Failure{
			Status: "failed", Error: "invalid request body: " + err.Error(), Code: narrationdto.CodeInvalidRequest,
		})
	}
	req.PGN = strings.TrimSpace(req.PGN)
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(narrationdto.Failure{
			Status: "failed", Error: describeValidation(err), Code: narrationdto.CodeInvalidRequest,
		})
	}
	if req.Language == "" {
		req.Language = commentary.DefaultLanguage
	}

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	default:
		return c.Status(fiber.StatusServiceUnavailable).JSON(narrationdto.Failure{
			Status: "failed", Error: "narration capacity exhausted, try again shortly", Code: narrationdto.CodeBusy, Retryable: true,
		})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.deps.PipelineTimeout)
	defer cancel()

	artifact, err := s.deps.Runner.Run(ctx, pipeline.Request{
		PGN:      req.PGN,
		Language: req.Language,
		Voice:    domain.VoiceMode(req.VoiceMode),
		White:    req.PlayerWhite,
		Black:    req.PlayerBlack,
	})
	if err != nil {
		status, body := pipelineFailure(err)
		return c.Status(status).JSON(body)
	}

	audioURL, err := s.deps.Audio.Put(filepath.Base(artifact.AudioPath), artifact.AudioPath)
	if err != nil {
		s.log.Error("store audio failed", zap.String("path", artifact.AudioPath), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(narrationdto.Failure{
			Status: "failed", Error: "could not store audio", Stage: string(pipeline.StageSynthesis),
			Code: narrationdto.CodeInternal, Narration: artifact.Narration,
		})
	}

	if req.UserID != "" {
		rec := &domain.Recording{
			UserID:      req.UserID,
			PGN:         req.PGN,
			AudioURL:    audioURL,
			PlayerWhite: req.PlayerWhite,
			PlayerBlack: req.PlayerBlack,
			Language:    artifact.Language,
			Narration:   artifact.Narration,
			CreatedAt:   artifact.CreatedAt,
		}
		// the audio exists either way; a lost history row is not worth failing the request
		if err := s.deps.Recordings.SaveRecording(c.UserContext(), rec); err != nil {
			s.log.Warn("save recording failed", zap.String("user_id", req.UserID), zap.Error(err))
		}
	}
	return c.JSON(narrationpresenter.ToDTOArtifact(artifact, audioURL))
}

func (s *Server) listRecordings(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("user_id"))
	if userID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "user_id is required")
	}
	recs, err := s.deps.Recordings.ListRecordings(c.UserContext(), userID, c.QueryInt("limit", 0))
	if err != nil {
		s.log.Error("list recordings failed", zap.String("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(narrationdto.Failure{
			Status: "failed", Error: "failed to fetch recordings", Code: narrationdto.CodeInternal,
		})
	}
	return c.JSON(narrationdto.RecordingsResponse{Recordings: narrationpresenter.ToDTORecordings(recs)})
}

func (s *Server) gameArchives(c *fiber.Ctx) error {
	if s.deps.Games == nil {
		return fiber.NewError(fiber.StatusNotFound, "game archive lookup disabled")
	}
	out, err := s.deps.Games.Archives(c.UserContext(), c.Params("username"))
	if err != nil {
		status, body := archiveFailure(err)
		return c.Status(status).JSON(body)
	}
	return c.JSON(out)
}

func (s *Server) gamesByMonth(c *fiber.Ctx) error {
	if s.deps.Games == nil {
		return fiber.NewError(fiber.StatusNotFound, "game archive lookup disabled")
	}
	out, err := s.deps.Games.GamesByMonth(c.UserContext(), c.Params("username"), c.Params("yyyy"), c.Params("mm"))
	if err != nil {
		status, body := archiveFailure(err)
		return c.Status(status).JSON(body)
	}
	return c.JSON(out)
}
