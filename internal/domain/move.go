package domain

import (
	"fmt"
	"strings"
)

type Side string

const (
	White Side = "White"
	Black Side = "Black"
)

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

type EvaluationKind string

const (
	KindCentipawns EvaluationKind = "cp"
	KindMate       EvaluationKind = "mate"
)

// Evaluation is always expressed from White's point of view.
// A mate value of zero means the position on the board is already checkmate.
type Evaluation struct {
	Kind  EvaluationKind `json:"kind"`
	Value int            `json:"value"`
}

func Centipawns(v int) *Evaluation { return &Evaluation{Kind: KindCentipawns, Value: v} }

func MateIn(n int) *Evaluation { return &Evaluation{Kind: KindMate, Value: n} }

func (e *Evaluation) IsMate() bool { return e != nil && e.Kind == KindMate }

type Quality string

const (
	QualityBrilliant  Quality = "Brilliant"
	QualityGood       Quality = "Good"
	QualityInaccuracy Quality = "Inaccuracy"
	QualityBlunder    Quality = "Blunder"
	QualityCheckmate  Quality = "Checkmate"
)

var qualities = []Quality{QualityBrilliant, QualityGood, QualityInaccuracy, QualityBlunder, QualityCheckmate}

// Qualities returns the fixed label set in classification order.
func Qualities() []Quality {
	return append([]Quality(nil), qualities...)
}

// ParseQuality matches a label case-insensitively against the fixed set.
func ParseQuality(raw string) (Quality, error) {
	s := strings.TrimSpace(raw)
	for _, q := range qualities {
		if strings.EqualFold(s, string(q)) {
			return q, nil
		}
	}
	return "", fmt.Errorf("unknown move quality %q", raw)
}

// Commentary is attached to a move as a unit so text and label are set together.
type Commentary struct {
	Text    string  `json:"text"`
	Quality Quality `json:"quality"`
}

type MoveRecord struct {
	Index          int         `json:"index"`
	Mover          Side        `json:"mover"`
	SAN            string      `json:"san"`
	UCI            string      `json:"uci"`
	FEN            string      `json:"fen"`
	Evaluation     *Evaluation `json:"evaluation,omitempty"`
	EngineBestMove string      `json:"engine_best_move,omitempty"`
	BestReply      string      `json:"best_reply,omitempty"`
	TopMoves       []string    `json:"top_moves,omitempty"`
	Commentary     *Commentary `json:"commentary,omitempty"`
}

func (m MoveRecord) Narrated() bool { return m.Commentary != nil }

// CloneMoves copies records deeply enough that commentary can be attached without touching the source.
func CloneMoves(src []MoveRecord) []MoveRecord {
	if src == nil {
		return nil
	}
	out := make([]MoveRecord, len(src))
	for i, m := range src {
		cp := m
		if m.Evaluation != nil {
			ev := *m.Evaluation
			cp.Evaluation = &ev
		}
		if m.TopMoves != nil {
			cp.TopMoves = append([]string(nil), m.TopMoves...)
		}
		if m.Commentary != nil {
			c := *m.Commentary
			cp.Commentary = &c
		}
		out[i] = cp
	}
	return out
}
