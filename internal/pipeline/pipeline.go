package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chess-narrator/internal/analysis"
	"github.com/park285/chess-narrator/internal/commentary"
	"github.com/park285/chess-narrator/internal/domain"
	"github.com/park285/chess-narrator/internal/metrics"
	"github.com/park285/chess-narrator/internal/speech"
	"go.uber.org/zap"
)

type MoveEvaluator interface {
	Evaluate(ctx context.Context, pgn string, depth int) ([]domain.MoveRecord, error)
}

type MoveNarrator interface {
	Narrate(ctx context.Context, moves []domain.MoveRecord, language string, gc commentary.GameContext) ([]domain.MoveRecord, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req speech.Request) (speech.Result, error)
}

type Config struct {
	// OutputDir receives generated audio when a request has no output path.
	OutputDir    string
	Depth        int
	DefaultVoice string
}

type Request struct {
	PGN            string
	Language       string
	Voice          domain.VoiceMode
	ReferenceVoice string
	OutputPath     string
	Playback       bool
	White          string
	Black          string
}

type Option func(*Pipeline)

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func withClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline runs analysis, narration and synthesis in order for one game at a time.
// A single Pipeline may serve concurrent runs; runs share only the injected adapters.
type Pipeline struct {
	analyzer MoveEvaluator
	narrator MoveNarrator
	synth    SpeechSynthesizer
	cfg      Config
	metrics  *metrics.Manager
	logger   *zap.Logger
	now      func() time.Time
}

func New(analyzer MoveEvaluator, narrator MoveNarrator, synth SpeechSynthesizer, cfg Config, opts ...Option) (*Pipeline, error) {
	switch {
	case analyzer == nil:
		return nil, errors.New("pipeline: analyzer is required")
	case narrator == nil:
		return nil, errors.New("pipeline: narrator is required")
	case synth == nil:
		return nil, errors.New("pipeline: synthesizer is required")
	}
	p := &Pipeline{
		analyzer: analyzer,
		narrator: narrator,
		synth:    synth,
		cfg:      cfg,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Pipeline) Run(ctx context.Context, req Request) (*domain.NarrationArtifact, error) {
	done := p.metrics.Track()
	defer done()

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = commentary.DefaultLanguage
	}
	log := p.logger.With(zap.String("language", language))

	start := p.now()
	moves, err := p.analyzer.Evaluate(ctx, req.PGN, p.cfg.Depth)
	p.metrics.ObserveStage(string(StageAnalysis), time.Since(start))
	if err == nil && len(moves) == 0 {
		err = analysis.ErrInvalidGame
	}
	if err != nil {
		return nil, p.fail(log, &StageError{Stage: StageAnalysis, Reason: ErrAnalysisFailed, Err: err})
	}
	p.metrics.ObserveMoves(len(moves))
	log.Info("game analyzed", zap.Int("moves", len(moves)), zap.Duration("took", time.Since(start)))

	session := domain.GameSession{Moves: moves, Language: language}
	if op, ok := analysis.OpeningOf(req.PGN); ok {
		session.Opening = op.String()
	}
	gc := commentary.GameContext{Opening: session.Opening, White: req.White, Black: req.Black}

	start = p.now()
	narrated, err := p.narrator.Narrate(ctx, session.Moves, session.Language, gc)
	p.metrics.ObserveStage(string(StageNarration), time.Since(start))
	if err != nil {
		return nil, p.fail(log, &StageError{Stage: StageNarration, Reason: ErrNarrationFailed, Err: err})
	}
	text := commentary.JoinNarration(narrated)
	if strings.TrimSpace(text) == "" {
		return nil, p.fail(log, &StageError{Stage: StageNarration, Reason: ErrNoNarrationText, Err: commentary.ErrEmptyNarration})
	}

	res, err := p.Synthesize(ctx, text, req)
	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			return nil, p.fail(log, se)
		}
		return nil, p.fail(log, &StageError{Stage: StageSynthesis, Reason: ErrSynthesisFailed, Err: err, Narration: text})
	}

	p.metrics.RunFinished(metrics.StatusComplete)
	log.Info("narration complete", zap.String("path", res.Path), zap.Int("chars", len(text)))
	return &domain.NarrationArtifact{
		Moves:        narrated,
		Narration:    text,
		AudioPath:    res.Path,
		Language:     session.Language,
		LanguageCode: res.LanguageCode,
		Opening:      session.Opening,
		CreatedAt:    p.now(),
	}, nil
}

// Synthesize re-runs only the speech stage for an existing narration.
func (p *Pipeline) Synthesize(ctx context.Context, narration string, req Request) (speech.Result, error) {
	sreq := speech.Request{
		Text:       narration,
		Language:   req.Language,
		Mode:       req.Voice,
		OutputPath: req.OutputPath,
		Playback:   req.Playback,
	}
	ref := strings.TrimSpace(req.ReferenceVoice)
	if ref == "" {
		ref = p.cfg.DefaultVoice
	}
	if sreq.Mode == "" {
		sreq.Mode = domain.VoiceFixed
		if ref != "" {
			sreq.Mode = domain.VoiceCloned
		}
	}
	if sreq.Mode == domain.VoiceCloned {
		sreq.ReferenceVoice = ref
	}
	if sreq.OutputPath == "" && p.cfg.OutputDir != "" {
		sreq.OutputPath = p.outputPath()
	}

	start := p.now()
	res, err := p.synth.Synthesize(ctx, sreq)
	p.metrics.ObserveStage(string(StageSynthesis), time.Since(start))
	if err != nil {
		return res, &StageError{Stage: StageSynthesis, Reason: ErrSynthesisFailed, Err: err, Narration: narration}
	}
	return res, nil
}

func (p *Pipeline) outputPath() string {
	name := fmt.Sprintf("commentary_%s_%s.wav", p.now().Format("20060102_150405"), uuid.NewString()[:8])
	return filepath.Join(p.cfg.OutputDir, name)
}

func (p *Pipeline) fail(log *zap.Logger, se *StageError) error {
	p.metrics.StageFailed(string(se.Stage))
	p.metrics.RunFinished(metrics.StatusFailed)
	log.Warn("pipeline failed", zap.String("stage", string(se.Stage)), zap.Error(se))
	return se
}
