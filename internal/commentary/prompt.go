package commentary

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/park285/chess-narrator/internal/domain"
	"github.com/park285/chess-narrator/internal/msgcat"
)

const DefaultLanguage = "English"

// PromptMove is the compact per-move record embedded in the narration prompt.
type PromptMove struct {
	Index          int         `json:"index"`
	Mover          domain.Side `json:"mover"`
	SAN            string      `json:"san"`
	Evaluation     string      `json:"evaluation"`
	EngineBestMove string      `json:"engine_best_move,omitempty"`
	Checkmate      bool        `json:"checkmate,omitempty"`
}

// GameContext is optional background for the commentator.
type GameContext struct {
	Opening string
	White   string
	Black   string
}

func (g GameContext) empty() bool {
	return strings.TrimSpace(g.Opening+g.White+g.Black) == ""
}

func PromptMoves(moves []domain.MoveRecord) []PromptMove {
	out := make([]PromptMove, len(moves))
	for i, m := range moves {
		out[i] = PromptMove{
			Index:          m.Index,
			Mover:          m.Mover,
			SAN:            m.SAN,
			Evaluation:     Describe(m.Evaluation),
			EngineBestMove: m.EngineBestMove,
			Checkmate:      m.Evaluation.IsMate() && m.Evaluation.Value == 0,
		}
	}
	return out
}

type promptData struct {
	Language  string
	Context   string
	Qualities string
	Moves     string
	Count     int
}

// BuildPrompt renders the single batched request covering every move.
func BuildPrompt(cat *msgcat.Catalog, moves []domain.MoveRecord, language string, gc GameContext) (string, error) {
	if cat == nil {
		return "", fmt.Errorf("prompt catalog is required")
	}
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	payload, err := json.MarshalIndent(PromptMoves(moves), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode prompt moves: %w", err)
	}

	var contextText string
	if !gc.empty() {
		contextText, err = cat.Render("narration.context", gc)
		if err != nil {
			return "", err
		}
		contextText = strings.TrimSpace(contextText)
	}

	labels := make([]string, 0, 5)
	for _, q := range domain.Qualities() {
		labels = append(labels, fmt.Sprintf("%q", string(q)))
	}

	return cat.Render("narration.batch", promptData{
		Language:  strings.TrimSpace(language),
		Context:   contextText,
		Qualities: strings.Join(labels, ", "),
		Moves:     string(payload),
		Count:     len(moves),
	})
}
