package commentary

import (
	"fmt"
	"strings"

	"github.com/park285/chess-narrator/internal/domain"
)

// Merge attaches replies[i] to moves[i] and returns a new slice; moves is never modified.
// The count check runs before anything is attached.
func Merge(moves []domain.MoveRecord, replies []Reply) ([]domain.MoveRecord, error) {
	if len(replies) != len(moves) {
		return nil, &CardinalityError{Expected: len(moves), Got: len(replies)}
	}
	for _, m := range moves {
		if m.Narrated() {
			return nil, fmt.Errorf("%w: move %d", ErrAlreadyNarrated, m.Index)
		}
	}
	out := domain.CloneMoves(moves)
	for i := range out {
		out[i].Commentary = &domain.Commentary{Text: replies[i].Text, Quality: replies[i].Quality}
	}
	return out, nil
}

// JoinNarration concatenates commentary in index order, skipping blank entries.
func JoinNarration(moves []domain.MoveRecord) string {
	parts := make([]string, 0, len(moves))
	for _, m := range moves {
		if m.Commentary == nil {
			continue
		}
		if t := strings.TrimSpace(m.Commentary.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
