package narrationpresenter

import (
	"github.com/park285/chess-narrator/internal/commentary"
	"github.com/park285/chess-narrator/internal/domain"
	"github.com/park285/chess-narrator/pkg/narrationdto"
)

func ToDTOMoves(moves []domain.MoveRecord) []narrationdto.Move {
	out := make([]narrationdto.Move, 0, len(moves))
	for _, m := range moves {
		dm := narrationdto.Move{
			Index:          m.Index,
			Mover:          string(m.Mover),
			SAN:            m.SAN,
			Evaluation:     commentary.Describe(m.Evaluation),
			EngineBestMove: m.EngineBestMove,
			TopMoves:       append([]string(nil), m.TopMoves...),
		}
		if m.Commentary != nil {
			dm.Commentary = m.Commentary.Text
			dm.Quality = string(m.Commentary.Quality)
		}
		out = append(out, dm)
	}
	return out
}

func ToDTOArtifact(a *domain.NarrationArtifact, audioURL string) *narrationdto.GenerateResponse {
	if a == nil {
		return nil
	}
	return &narrationdto.GenerateResponse{
		Status:    "complete",
		AudioURL:  audioURL,
		Narration: a.Narration,
		Language:  a.Language,
		Opening:   a.Opening,
		Moves:     ToDTOMoves(a.Moves),
	}
}

func ToDTORecordings(recs []domain.Recording) []narrationdto.Recording {
	out := make([]narrationdto.Recording, 0, len(recs))
	for _, r := range recs {
		out = append(out, narrationdto.Recording{
			ID:          r.ID,
			UserID:      r.UserID,
			PGN:         r.PGN,
			AudioURL:    r.AudioURL,
			PlayerWhite: r.PlayerWhite,
			PlayerBlack: r.PlayerBlack,
			Language:    r.Language,
			Narration:   r.Narration,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out
}
