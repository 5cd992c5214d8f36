package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/park285/chess-narrator/internal/domain"
	"go.uber.org/zap"
)

const DefaultSpeaker = "Claribel Dervla"

// Voice selects either a built-in speaker or a reference sample to clone.
type Voice struct {
	Speaker   string
	Reference string
}

type Engine interface {
	SynthesizeToFile(ctx context.Context, text, outputPath string, voice Voice, language string) error
}

type Player interface {
	Play(ctx context.Context, path string) error
}

type Request struct {
	Text           string
	Language       string
	Mode           domain.VoiceMode
	ReferenceVoice string
	OutputPath     string
	Playback       bool
}

type Result struct {
	// Path is empty when the audio only lived in a temporary file for playback.
	Path         string
	LanguageCode string
	Played       bool
	Duration     time.Duration
}

type Option func(*Synthesizer)

func WithPlayer(p Player) Option {
	return func(s *Synthesizer) { s.player = p }
}

func WithSpeaker(name string) Option {
	return func(s *Synthesizer) {
		if strings.TrimSpace(name) != "" {
			s.speaker = strings.TrimSpace(name)
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Synthesizer) {
		if l != nil {
			s.logger = l
		}
	}
}

type Synthesizer struct {
	engine  Engine
	player  Player
	speaker string
	logger  *zap.Logger
}

func NewSynthesizer(engine Engine, opts ...Option) (*Synthesizer, error) {
	if engine == nil {
		return nil, fmt.Errorf("speech engine is required")
	}
	s := &Synthesizer{engine: engine, speaker: DefaultSpeaker, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Synthesizer) Speaker() string { return s.speaker }

// Synthesize writes text as audio. Cloned voice requires an existing reference sample;
// fixed voice uses the configured speaker and may block on local playback.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (Result, error) {
	res := Result{LanguageCode: LanguageCode(req.Language)}
	if strings.TrimSpace(req.Text) == "" {
		return res, fmt.Errorf("%w: empty text", ErrSynthesisFailed)
	}

	mode := req.Mode
	if mode == "" {
		mode = domain.VoiceFixed
		if req.ReferenceVoice != "" {
			mode = domain.VoiceCloned
		}
	}

	var voice Voice
	switch mode {
	case domain.VoiceCloned:
		ref := strings.TrimSpace(req.ReferenceVoice)
		if ref == "" {
			return res, fmt.Errorf("%w: %w: no reference given", ErrSynthesisFailed, ErrReferenceVoiceMissing)
		}
		if fi, err := os.Stat(ref); err != nil || fi.IsDir() {
			return res, fmt.Errorf("%w: %w: %s", ErrSynthesisFailed, ErrReferenceVoiceMissing, ref)
		}
		voice.Reference = ref
	case domain.VoiceFixed:
		voice.Speaker = s.speaker
	default:
		return res, fmt.Errorf("%w: unknown voice mode %q", ErrSynthesisFailed, mode)
	}

	out := strings.TrimSpace(req.OutputPath)
	temporary := false
	if out == "" {
		// only fixed-voice playback can do without a file that outlives the call
		if !req.Playback || mode != domain.VoiceFixed {
			return res, fmt.Errorf("%w: output path required", ErrSynthesisFailed)
		}
		f, err := os.CreateTemp("", "narration-*.wav")
		if err != nil {
			return res, fmt.Errorf("%w: temp file: %v", ErrSynthesisFailed, err)
		}
		out = f.Name()
		_ = f.Close()
		temporary = true
		defer os.Remove(out)
	} else if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return res, fmt.Errorf("%w: output dir: %v", ErrSynthesisFailed, err)
	}

	start := time.Now()
	if err := s.engine.SynthesizeToFile(ctx, req.Text, out, voice, res.LanguageCode); err != nil {
		s.logger.Warn("speech synthesis failed",
			zap.String("mode", string(mode)),
			zap.String("language", res.LanguageCode),
			zap.Error(err),
		)
		if errors.Is(err, ErrSpeechServiceUnavailable) {
			return res, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
		}
		return res, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	res.Duration = time.Since(start)
	if !temporary {
		res.Path = out
	}
	s.logger.Info("speech synthesized",
		zap.String("mode", string(mode)),
		zap.String("language", res.LanguageCode),
		zap.String("path", out),
		zap.Duration("took", res.Duration),
	)

	if req.Playback && mode == domain.VoiceFixed {
		if err := s.play(ctx, out); err != nil {
			// audio is already on disk; playback trouble is not a synthesis failure
			s.logger.Warn("playback failed", zap.Error(err))
		} else {
			res.Played = true
		}
	}
	return res, nil
}

func (s *Synthesizer) play(ctx context.Context, path string) error {
	if s.player == nil {
		return fmt.Errorf("%w: no player configured", ErrPlaybackFailed)
	}
	if err := s.player.Play(ctx, path); err != nil {
		return fmt.Errorf("%w: %v", ErrPlaybackFailed, err)
	}
	return nil
}
