package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/chess-narrator/internal/chess/uci"
	"github.com/park285/chess-narrator/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrEngineUnavailable = errors.New("chess engine unavailable")
	ErrInvalidPosition   = errors.New("invalid position")
)

const (
	DefaultDepth   = 15
	DefaultMultiPV = 3
	defaultHashMB  = 64
)

type EngineConfig struct {
	BinaryPath   string
	Threads      int
	HashMB       int
	MultiPV      int
	PoolCapacity int
	Logger       *zap.Logger
}

// PositionEval is the engine's view of one position, scored from White's side.
type PositionEval struct {
	Evaluation *domain.Evaluation
	BestMove   string
	TopMoves   []string
	Depth      int
	Duration   time.Duration
}

// Engine evaluates positions over a pool of engine processes and is safe for concurrent use.
type Engine struct {
	pool   *uci.Pool
	opt    uci.Options
	logger *zap.Logger
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := uci.NewPool(uci.PoolConfig{BinaryPath: cfg.BinaryPath, Capacity: cfg.PoolCapacity, Logger: logger})
	if err != nil {
		return nil, err
	}
	opt := uci.Options{Threads: cfg.Threads, HashMB: cfg.HashMB, MultiPV: cfg.MultiPV}
	if opt.HashMB <= 0 {
		opt.HashMB = defaultHashMB
	}
	if opt.MultiPV <= 0 {
		opt.MultiPV = DefaultMultiPV
	}
	return &Engine{pool: pool, opt: opt, logger: logger}, nil
}

func (e *Engine) EvaluatePosition(ctx context.Context, fen string, depth int) (PositionEval, error) {
	turn, err := sideToMove(fen)
	if err != nil {
		return PositionEval{}, err
	}
	if depth <= 0 {
		depth = DefaultDepth
	}

	start := time.Now()
	session, err := e.pool.Acquire(ctx, e.opt)
	if err != nil {
		return PositionEval{}, fmt.Errorf("%w: acquire session: %v", ErrEngineUnavailable, err)
	}
	var releaseErr error
	defer func() {
		e.pool.Release(session, releaseErr)
	}()

	if err := session.NewGame(ctx); err != nil {
		releaseErr = err
		return PositionEval{}, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	resp, err := session.Search(ctx, uci.SearchRequest{FEN: fen, Limits: uci.Limits{Depth: depth}})
	if err != nil {
		releaseErr = err
		return PositionEval{}, fmt.Errorf("%w: search: %v", ErrEngineUnavailable, err)
	}

	out := PositionEval{BestMove: resp.BestMove, Duration: time.Since(start)}
	if best, ok := resp.Best(); ok {
		out.Depth = best.Depth
		if best.HasScore {
			out.Evaluation = whitePOV(best.Score, turn)
		}
	}
	for _, c := range resp.Candidates {
		if c.Move != "" {
			out.TopMoves = append(out.TopMoves, c.Move)
		}
	}
	if out.BestMove == "" && len(out.TopMoves) > 0 {
		out.BestMove = out.TopMoves[0]
	}

	e.logger.Debug("position evaluated",
		zap.String("fen", fen),
		zap.Int("depth", out.Depth),
		zap.String("best", out.BestMove),
		zap.Duration("took", out.Duration),
	)
	return out, nil
}

func (e *Engine) Close() error {
	return e.pool.Close()
}

func whitePOV(s uci.Score, turn domain.Side) *domain.Evaluation {
	v := s.Value
	if turn == domain.Black {
		v = -v
	}
	if s.Kind == uci.ScoreMate {
		return domain.MateIn(v)
	}
	return domain.Centipawns(v)
}

func sideToMove(fen string) (domain.Side, error) {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPosition, fen)
	}
	switch fields[1] {
	case "w":
		return domain.White, nil
	case "b":
		return domain.Black, nil
	default:
		return "", fmt.Errorf("%w: side to move %q", ErrInvalidPosition, fields[1])
	}
}
