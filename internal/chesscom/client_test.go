package chesscom

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/chess-narrator/internal/fastclient/fasttest"
	"github.com/valyala/fasthttp"
)

func TestArchivesAndGames(t *testing.T) {
	var agent string
	dial := fasttest.Serve(t, func(ctx *fasthttp.RequestCtx) {
		agent = string(ctx.UserAgent())
		switch string(ctx.Path()) {
		case "/pub/player/hikaru/games/archives":
			ctx.SetContentType("application/json")
			ctx.SetBodyString(`{"archives":["https://api.chess.com/pub/player/hikaru/games/2024/01"]}`)
		case "/pub/player/hikaru/games/2024/01":
			ctx.SetContentType("application/json")
			ctx.SetBodyString(`{"games":[{"url":"u","pgn":"1. e4 e5","time_class":"blitz","white":{"username":"hikaru","rating":3200,"result":"win"},"black":{"username":"x","rating":2800,"result":"resigned"}}]}`)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	})
	c := New(Config{BaseURL: "http://chess", UserAgent: "narrator-test"}, dial)

	arch, err := c.Archives(context.Background(), "hikaru")
	if err != nil {
		t.Fatalf("Archives: %v", err)
	}
	if len(arch.Archives) != 1 || agent != "narrator-test" {
		t.Fatalf("unexpected archives %+v (agent %q)", arch, agent)
	}

	games, err := c.GamesByMonth(context.Background(), "hikaru", "2024", "1")
	if err != nil {
		t.Fatalf("GamesByMonth: %v", err)
	}
	if len(games.Games) != 1 || games.Games[0].White.Rating != 3200 || games.Games[0].PGN != "1. e4 e5" {
		t.Fatalf("unexpected games %+v", games)
	}

	if _, err := c.Archives(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRequestValidation(t *testing.T) {
	c := New(Config{BaseURL: "http://unused"})
	cases := []struct{ user, y, m string }{
		{"../etc", "2024", "01"},
		{"ok", "24", "01"},
		{"ok", "2024", "13"},
		{"ok", "2024", "xx"},
	}
	for _, tc := range cases {
		if _, err := c.GamesByMonth(context.Background(), tc.user, tc.y, tc.m); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("%+v: expected ErrInvalidRequest, got %v", tc, err)
		}
	}
}

func TestUpstreamFailure(t *testing.T) {
	dial := fasttest.Serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
	})
	c := New(Config{BaseURL: "http://chess"}, dial)
	if _, err := c.Archives(context.Background(), "hikaru"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
