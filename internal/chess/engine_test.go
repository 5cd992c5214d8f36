package chess

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/park285/chess-narrator/internal/chess/uci"
	"github.com/park285/chess-narrator/internal/domain"
)

// Black to move, engine says +50 for the side to move.
const scriptedEngine = `#!/bin/sh
while IFS= read -r line; do
  case "$line" in
    uci) echo "uciok" ;;
    isready) echo "readyok" ;;
    go*)
      echo "info depth 15 multipv 1 score cp 50 pv e7e5 g1f3"
      echo "info depth 15 multipv 2 score cp 20 pv c7c5"
      echo "bestmove e7e5"
      ;;
  esac
done
`

func TestEvaluatePositionConvertsToWhitePOV(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}
	bin := filepath.Join(t.TempDir(), "engine")
	if err := os.WriteFile(bin, []byte(scriptedEngine), 0o755); err != nil {
		t.Fatalf("write engine: %v", err)
	}
	eng, err := NewEngine(EngineConfig{BinaryPath: bin, PoolCapacity: 1})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer eng.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := eng.EvaluatePosition(ctx, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1", 15)
	if err != nil {
		t.Fatalf("EvaluatePosition: %v", err)
	}
	if res.Evaluation == nil || res.Evaluation.Kind != domain.KindCentipawns || res.Evaluation.Value != -50 {
		t.Fatalf("unexpected evaluation: %+v", res.Evaluation)
	}
	if res.BestMove != "e7e5" {
		t.Fatalf("best move = %q", res.BestMove)
	}
	if len(res.TopMoves) != 2 || res.TopMoves[1] != "c7c5" {
		t.Fatalf("top moves = %v", res.TopMoves)
	}
}

func TestEvaluatePositionRejectsBadFEN(t *testing.T) {
	eng := &Engine{}
	if _, err := eng.EvaluatePosition(context.Background(), "garbage", 10); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
}

func TestWhitePOV(t *testing.T) {
	cases := []struct {
		score uci.Score
		turn  domain.Side
		want  domain.Evaluation
	}{
		{uci.Score{Kind: uci.ScoreCentipawns, Value: 30}, domain.White, domain.Evaluation{Kind: domain.KindCentipawns, Value: 30}},
		{uci.Score{Kind: uci.ScoreCentipawns, Value: 30}, domain.Black, domain.Evaluation{Kind: domain.KindCentipawns, Value: -30}},
		{uci.Score{Kind: uci.ScoreMate, Value: 2}, domain.Black, domain.Evaluation{Kind: domain.KindMate, Value: -2}},
		{uci.Score{Kind: uci.ScoreMate, Value: -1}, domain.Black, domain.Evaluation{Kind: domain.KindMate, Value: 1}},
	}
	for _, tc := range cases {
		got := whitePOV(tc.score, tc.turn)
		if *got != tc.want {
			t.Fatalf("whitePOV(%+v, %s) = %+v, want %+v", tc.score, tc.turn, *got, tc.want)
		}
	}
}
