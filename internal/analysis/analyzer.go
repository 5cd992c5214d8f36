package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	corechess "github.com/park285/chess-narrator/internal/chess"
	"github.com/park285/chess-narrator/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrInvalidGame          = errors.New("invalid game record")
	ErrEvaluatorUnavailable = errors.New("position evaluator unavailable")
)

type PositionEvaluator interface {
	EvaluatePosition(ctx context.Context, fen string, depth int) (corechess.PositionEval, error)
}

type Option func(*Analyzer)

func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithDefaultDepth(depth int) Option {
	return func(a *Analyzer) {
		if depth > 0 {
			a.depth = depth
		}
	}
}

// Analyzer turns a game record into evaluated move records.
type Analyzer struct {
	eval   PositionEvaluator
	depth  int
	logger *zap.Logger
}

func NewAnalyzer(eval PositionEvaluator, opts ...Option) (*Analyzer, error) {
	if eval == nil {
		return nil, fmt.Errorf("position evaluator is required")
	}
	a := &Analyzer{eval: eval, depth: corechess.DefaultDepth, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Evaluate walks the main line and evaluates every resulting position.
// The result is all-or-nothing: on any error the returned slice is nil.
func (a *Analyzer) Evaluate(ctx context.Context, pgn string, depth int) ([]domain.MoveRecord, error) {
	if depth <= 0 {
		depth = a.depth
	}
	game, err := ParseGame(pgn)
	if err != nil {
		return nil, err
	}
	positions := game.Positions()
	moves := game.Moves()

	start := time.Now()
	before, err := a.eval.EvaluatePosition(ctx, positions[0].String(), depth)
	if err != nil {
		a.logger.Warn("start position evaluation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrEvaluatorUnavailable, err)
	}

	records := make([]domain.MoveRecord, 0, len(moves))
	for i, mv := range moves {
		prev := positions[i]
		next := positions[i+1]

		rec := domain.MoveRecord{
			Index:          i + 1,
			Mover:          sideOf(prev.Turn()),
			SAN:            nchess.AlgebraicNotation{}.Encode(prev, mv),
			UCI:            mv.String(),
			FEN:            next.String(),
			EngineBestMove: uciToSAN(prev, before.BestMove),
		}

		after, err := a.eval.EvaluatePosition(ctx, rec.FEN, depth)
		if err != nil {
			a.logger.Warn("move evaluation failed",
				zap.Int("index", rec.Index),
				zap.String("san", rec.SAN),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%w: move %d: %w", ErrEvaluatorUnavailable, rec.Index, err)
		}

		rec.Evaluation = after.Evaluation
		if next.Status() == nchess.Checkmate {
			rec.Evaluation = domain.MateIn(0)
		}
		rec.BestReply = uciToSAN(next, after.BestMove)
		for _, top := range after.TopMoves {
			rec.TopMoves = append(rec.TopMoves, uciToSAN(next, top))
		}

		records = append(records, rec)
		before = after
	}

	a.logger.Info("game analyzed",
		zap.Int("moves", len(records)),
		zap.Int("depth", depth),
		zap.Duration("took", time.Since(start)),
	)
	return records, nil
}

// ParseGame reads the first game of a PGN text and requires at least one main-line move.
func ParseGame(pgn string) (*nchess.Game, error) {
	text := strings.TrimSpace(pgn)
	if text == "" {
		return nil, fmt.Errorf("%w: empty record", ErrInvalidGame)
	}
	if !hasResult(text) {
		text += " *"
	}
	opt, err := nchess.PGN(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGame, err)
	}
	game := nchess.NewGame(opt)
	if len(game.Moves()) == 0 {
		return nil, fmt.Errorf("%w: no moves", ErrInvalidGame)
	}
	return game, nil
}

// bare movetext such as "1. e4 e5" carries no termination marker
func hasResult(text string) bool {
	for _, r := range []string{"1-0", "0-1", "1/2-1/2", "*"} {
		if strings.HasSuffix(text, r) {
			return true
		}
	}
	return false
}

func sideOf(c nchess.Color) domain.Side {
	if c == nchess.Black {
		return domain.Black
	}
	return domain.White
}

// uciToSAN falls back to the raw engine notation when the move does not decode in pos.
func uciToSAN(pos *nchess.Position, move string) string {
	move = strings.TrimSpace(move)
	if move == "" || pos == nil {
		return move
	}
	mv, err := nchess.UCINotation{}.Decode(pos, move)
	if err != nil {
		return move
	}
	return nchess.AlgebraicNotation{}.Encode(pos, mv)
}
