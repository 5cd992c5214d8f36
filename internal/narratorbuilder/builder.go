package narratorbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/chess-narrator/internal/analysis"
	"github.com/park285/chess-narrator/internal/cache"
	corechess "github.com/park285/chess-narrator/internal/chess"
	"github.com/park285/chess-narrator/internal/chesscom"
	"github.com/park285/chess-narrator/internal/commentary"
	"github.com/park285/chess-narrator/internal/config"
	"github.com/park285/chess-narrator/internal/llm/gemini"
	"github.com/park285/chess-narrator/internal/metrics"
	"github.com/park285/chess-narrator/internal/msgcat"
	"github.com/park285/chess-narrator/internal/pipeline"
	"github.com/park285/chess-narrator/internal/speech"
	"github.com/park285/chess-narrator/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the long-lived handles one process shares across pipeline runs.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Engine   *corechess.Engine
	Redis    *redis.Client
	Metrics  *metrics.Manager
}

type ServerDeps struct {
	*Deps
	Recordings storage.Repository
	Audio      *storage.BlobStore
	Games      *chesscom.Client
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.StockfishPath) == "" {
		return nil, fmt.Errorf("STOCKFISH_PATH is required for chess engine")
	}

	m := metrics.NewManager()
	d := &Deps{Metrics: m}

	engine, err := corechess.NewEngine(corechess.EngineConfig{
		BinaryPath:   cfg.StockfishPath,
		Threads:      cfg.EngineThreads,
		HashMB:       cfg.EngineHashMB,
		MultiPV:      cfg.AnalysisMultiPV,
		PoolCapacity: cfg.EnginePoolSize,
		Logger:       logger.Named("engine"),
	})
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}
	d.Engine = engine

	analyzer, err := analysis.NewAnalyzer(engine,
		analysis.WithLogger(logger.Named("analysis")),
		analysis.WithDefaultDepth(cfg.AnalysisDepth),
	)
	if err != nil {
		d.Close()
		return nil, err
	}

	llm, err := gemini.New(gemini.Config{
		BaseURL:          cfg.GeminiBaseURL,
		Model:            cfg.GeminiModel,
		APIKey:           cfg.GeminiAPIKey,
		Timeout:          cfg.GeminiTimeout(),
		ResponseMIMEType: "application/json",
		Logger:           logger.Named("gemini"),
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("init gemini: %w", err)
	}

	catalog, err := msgcat.New(cfg.PromptDir)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	narratorOpts := []commentary.Option{
		commentary.WithCatalog(catalog),
		commentary.WithLogger(logger.Named("narration")),
		commentary.WithMetrics(m),
	}

	// Redis is optional; without it every run asks the text service.
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err := cache.Open(ctx, cfg.RedisURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("init cache: %w", err)
		}
		d.Redis = rdb
		store, err := cache.NewNarrationStore(rdb, cfg.NarrationCacheTTL())
		if err != nil {
			d.Close()
			return nil, err
		}
		narratorOpts = append(narratorOpts, commentary.WithCache(store))
	} else {
		logger.Info("REDIS_URL not set; narration cache disabled")
	}
	narrator, err := commentary.NewNarrator(llm, narratorOpts...)
	if err != nil {
		d.Close()
		return nil, err
	}

	tts, err := speech.NewXTTSClient(speech.XTTSConfig{
		BaseURL: cfg.TTSBaseURL,
		Timeout: cfg.TTSTimeout(),
		Logger:  logger.Named("tts"),
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("init tts: %w", err)
	}
	synth, err := speech.NewSynthesizer(tts,
		speech.WithSpeaker(cfg.TTSSpeaker),
		speech.WithPlayer(speech.CommandPlayer{Command: speech.ParseCommand(cfg.PlaybackCommand)}),
		speech.WithLogger(logger.Named("speech")),
	)
	if err != nil {
		d.Close()
		return nil, err
	}
	logger.Debug("speech ready", zap.String("tts", cfg.TTSBaseURL), zap.String("speaker", synth.Speaker()))

	p, err := pipeline.New(analyzer, narrator, synth, pipeline.Config{
		OutputDir:    cfg.OutputDir,
		Depth:        cfg.AnalysisDepth,
		DefaultVoice: cfg.DefaultVoicePath,
	}, pipeline.WithLogger(logger.Named("pipeline")), pipeline.WithMetrics(m))
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Pipeline = p
	return d, nil
}

// NewServer adds the storage and chess.com handles the HTTP API needs.
func NewServer(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*ServerDeps, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	core, err := New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	repo, err := storage.Open(ctx, cfg.DatabaseURL, logger.Named("storage"))
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("init repository: %w", err)
	}
	audio, err := storage.NewBlobStore(cfg.OutputDir, cfg.PublicBaseURL)
	if err != nil {
		core.Close()
		_ = repo.Close()
		return nil, err
	}
	games := chesscom.New(chesscom.Config{
		BaseURL:   cfg.ChessComBaseURL,
		UserAgent: cfg.ChessComUserAgent,
		Logger:    logger.Named("chesscom"),
	})
	return &ServerDeps{Deps: core, Recordings: repo, Audio: audio, Games: games}, nil
}

func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Engine != nil {
		errs = append(errs, d.Engine.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	return errors.Join(errs...)
}

func (s *ServerDeps) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.Recordings != nil {
		errs = append(errs, s.Recordings.Close())
	}
	errs = append(errs, s.Deps.Close())
	return errors.Join(errs...)
}
