package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/park285/chess-narrator/internal/analysis"
	"github.com/park285/chess-narrator/internal/chesscom"
	"github.com/park285/chess-narrator/internal/commentary"
	"github.com/park285/chess-narrator/internal/domain"
	"github.com/park285/chess-narrator/internal/metrics"
	"github.com/park285/chess-narrator/internal/pipeline"
	"github.com/park285/chess-narrator/internal/storage"
	"github.com/park285/chess-narrator/pkg/narrationdto"
)

type fakeRunner struct {
	dir     string
	err     error
	block   chan struct{}
	started chan struct{}
	last    pipeline.Request
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request) (*domain.NarrationArtifact, error) {
	f.last = req
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(f.dir, "commentary_test.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		return nil, err
	}
	return &domain.NarrationArtifact{
		Moves: []domain.MoveRecord{
			{Index: 1, Mover: domain.White, SAN: "e4", Evaluation: domain.Centipawns(30), Commentary: &domain.Commentary{Text: "A", Quality: domain.QualityGood}},
			{Index: 2, Mover: domain.Black, SAN: "e5", Evaluation: domain.Centipawns(25), Commentary: &domain.Commentary{Text: "B", Quality: domain.QualityGood}},
		},
		Narration: "A B",
		AudioPath: path,
		Language:  req.Language,
		CreatedAt: time.Now(),
	}, nil
}

type fakeGames struct{}

func (fakeGames) Archives(_ context.Context, username string) (*chesscom.Archives, error) {
	if username == "ghost" {
		return nil, chesscom.ErrNotFound
	}
	return &chesscom.Archives{Archives: []string{"https://api.chess.com/pub/player/" + username + "/games/2024/01"}}, nil
}

func (fakeGames) GamesByMonth(_ context.Context, username, year, month string) (*chesscom.MonthlyGames, error) {
	if month == "13" {
		return nil, chesscom.ErrInvalidRequest
	}
	return &chesscom.MonthlyGames{Games: []chesscom.Game{{PGN: "1. e4 e5", White: chesscom.Player{Username: username}}}}, nil
}

type fixture struct {
	runner *fakeRunner
	repo   storage.Repository
	deps   Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	blobs, err := storage.NewBlobStore(filepath.Join(dir, "public"), "http://localhost:8000")
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}
	runner := &fakeRunner{dir: dir}
	repo := storage.NewMemoryRepository()
	return &fixture{
		runner: runner,
		repo:   repo,
		deps: Deps{
			Runner:          runner,
			Recordings:      repo,
			Games:           fakeGames{},
			Audio:           blobs,
			Metrics:         metrics.NewManager(),
			AllowedOrigins:  []string{"http://localhost:3000"},
			MaxConcurrent:   1,
			RateLimitPerMin: 100,
		},
	}
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	b, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("decode %q: %v", b, err)
	}
	return out
}

func TestGenerateCommentarySuccess(t *testing.T) {
	f := newFixture(t)
	app, err := NewApp(f.deps)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}

	resp, err := app.Test(postJSON("/api/v1/generate-commentary", `{"pgn":"1. e4 e5","user_id":"u1","player_white":"W","player_black":"B"}`), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[narrationdto.GenerateResponse](t, resp)
	if body.Status != "complete" || body.Narration != "A B" || len(body.Moves) != 2 {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.AudioURL != "http://localhost:8000/audio/commentary_test.wav" {
		t.Fatalf("audio url = %q", body.AudioURL)
	}
	if body.Moves[0].Quality != "Good" || body.Moves[0].Evaluation != "Advantage White (+0.30)" {
		t.Fatalf("unexpected move view %+v", body.Moves[0])
	}
	if f.runner.last.Language != commentary.DefaultLanguage || f.runner.last.White != "W" {
		t.Fatalf("request not forwarded: %+v", f.runner.last)
	}

	recs, _ := f.repo.ListRecordings(context.Background(), "u1", 10)
	if len(recs) != 1 || recs[0].AudioURL != body.AudioURL {
		t.Fatalf("recording not saved: %+v", recs)
	}

	audio, err := app.Test(httptest.NewRequest(http.MethodGet, "/audio/commentary_test.wav", nil), -1)
	if err != nil || audio.StatusCode != http.StatusOK {
		t.Fatalf("audio not served: %v %v", err, audio)
	}

	list, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/recordings/u1", nil), -1)
	got := decode[narrationdto.RecordingsResponse](t, list)
	if len(got.Recordings) != 1 || got.Recordings[0].PlayerWhite != "W" {
		t.Fatalf("unexpected recordings %+v", got)
	}
}

func TestGenerateCommentaryValidation(t *testing.T) {
	app, _ := NewApp(newFixture(t).deps)

	cases := []struct {
		body string
		want int
	}{
		{`{"language":"English"}`, http.StatusUnprocessableEntity},
		{`{"pgn":"1. e4","voice_mode":"robot"}`, http.StatusUnprocessableEntity},
		{`{"pgn":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp, err := app.Test(postJSON("/api/v1/generate-commentary", tc.body), -1)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.body, resp.StatusCode, tc.want)
		}
		if body := decode[narrationdto.Failure](t, resp); body.Code != narrationdto.CodeInvalidRequest {
			t.Fatalf("%s: code = %q", tc.body, body.Code)
		}
	}
}

func TestGenerateCommentaryFailureMapping(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		want  int
		stage pipeline.Stage
	}{
		{"bad game", &pipeline.StageError{Stage: pipeline.StageAnalysis, Reason: pipeline.ErrAnalysisFailed, Err: analysis.ErrInvalidGame}, http.StatusUnprocessableEntity, pipeline.StageAnalysis},
		{"engine down", &pipeline.StageError{Stage: pipeline.StageAnalysis, Reason: pipeline.ErrAnalysisFailed, Err: analysis.ErrEvaluatorUnavailable}, http.StatusBadGateway, pipeline.StageAnalysis},
		{"cardinality", &pipeline.StageError{Stage: pipeline.StageNarration, Reason: pipeline.ErrNarrationFailed, Err: &commentary.CardinalityError{Expected: 2, Got: 1}}, http.StatusUnprocessableEntity, pipeline.StageNarration},
		{"llm down", &pipeline.StageError{Stage: pipeline.StageNarration, Reason: pipeline.ErrNarrationFailed, Err: commentary.ErrTextServiceUnavailable}, http.StatusBadGateway, pipeline.StageNarration},
		{"other", &pipeline.StageError{Stage: pipeline.StageSynthesis, Reason: pipeline.ErrSynthesisFailed, Err: fmt.Errorf("disk full"), Narration: "A B"}, http.StatusInternalServerError, pipeline.StageSynthesis},
	}
	for _, tc := range cases {
		f := newFixture(t)
		f.runner.err = tc.err
		app, _ := NewApp(f.deps)
		resp, err := app.Test(postJSON("/api/v1/generate-commentary", `{"pgn":"1. e4 e5"}`), -1)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, resp.StatusCode, tc.want)
		}
		body := decode[narrationdto.Failure](t, resp)
		if body.Status != "failed" || body.Stage != string(tc.stage) || body.Error == "" {
			t.Fatalf("%s: unexpected body %+v", tc.name, body)
		}
		if tc.stage == pipeline.StageSynthesis && body.Narration != "A B" {
			t.Fatalf("%s: narration should be returned", tc.name)
		}
	}
}

func TestGenerateCommentarySaturated(t *testing.T) {
	f := newFixture(t)
	f.runner.block = make(chan struct{})
	f.runner.started = make(chan struct{}, 1)
	app, _ := NewApp(f.deps)

	done := make(chan int, 1)
	go func() {
		resp, err := app.Test(postJSON("/api/v1/generate-commentary", `{"pgn":"1. e4 e5"}`), -1)
		if err != nil {
			done <- 0
			return
		}
		done <- resp.StatusCode
	}()
	<-f.runner.started

	resp, err := app.Test(postJSON("/api/v1/generate-commentary", `{"pgn":"1. e4 e5"}`), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	close(f.runner.block)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("first request status = %d", code)
	}
}

func TestGameArchiveRoutes(t *testing.T) {
	app, _ := NewApp(newFixture(t).deps)

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/games/archives/hikaru", nil), -1)
	arch := decode[chesscom.Archives](t, resp)
	if resp.StatusCode != http.StatusOK || len(arch.Archives) != 1 {
		t.Fatalf("unexpected archives %d %+v", resp.StatusCode, arch)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/games/archives/ghost", nil), -1)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/games/by-month/hikaru/2024/01", nil), -1)
	games := decode[chesscom.MonthlyGames](t, resp)
	if len(games.Games) != 1 || games.Games[0].White.Username != "hikaru" {
		t.Fatalf("unexpected games %+v", games)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/games/by-month/hikaru/2024/13", nil), -1)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestHealthMetricsAndRateLimit(t *testing.T) {
	f := newFixture(t)
	f.deps.RateLimitPerMin = 2
	app, _ := NewApp(f.deps)

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	if h := decode[narrationdto.HealthResponse](t, resp); h.Status != "ok" {
		t.Fatalf("health = %+v", h)
	}
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}

	var last int
	for i := 0; i < 3; i++ {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/recordings/u1", nil), -1)
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil), -1)
	if body := decode[narrationdto.Failure](t, resp); resp.StatusCode != http.StatusNotFound || body.Code != narrationdto.CodeNotFound {
		t.Fatalf("unexpected 404 body %+v", body)
	}
}

func TestNewAppRequiresDeps(t *testing.T) {
	if _, err := NewApp(Deps{}); err == nil {
		t.Fatalf("expected error for missing deps")
	}
}

func TestCORSWildcardOrigin(t *testing.T) {
	f := newFixture(t)
	f.deps.AllowedOrigins = []string{"*"}
	app, err := NewApp(f.deps)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("credentials must be off for a wildcard, got %q", got)
	}
}

func TestCORSExplicitOriginAllowsCredentials(t *testing.T) {
	f := newFixture(t)
	app, _ := NewApp(f.deps)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, _ := app.Test(req, -1)
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:3000" || resp.Header.Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("unexpected cors headers %v", resp.Header)
	}
}
