package commentary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/park285/chess-narrator/internal/domain"
	"github.com/park285/chess-narrator/internal/metrics"
	"github.com/park285/chess-narrator/internal/msgcat"
	"go.uber.org/zap"
)

// TextGenerator sends one prompt to a generative text service.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ResponseCache stores raw responses that parsed and merged cleanly.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type Option func(*Narrator)

func WithCatalog(c *msgcat.Catalog) Option {
	return func(n *Narrator) {
		if c != nil {
			n.catalog = c
		}
	}
}

func WithCache(c ResponseCache) Option {
	return func(n *Narrator) { n.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(n *Narrator) {
		if l != nil {
			n.logger = l
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(n *Narrator) { n.metrics = m }
}

// Narrator issues exactly one text-service request per game.
type Narrator struct {
	gen     TextGenerator
	catalog *msgcat.Catalog
	cache   ResponseCache
	metrics *metrics.Manager
	logger  *zap.Logger
}

func NewNarrator(gen TextGenerator, opts ...Option) (*Narrator, error) {
	if gen == nil {
		return nil, fmt.Errorf("text generator is required")
	}
	n := &Narrator{gen: gen, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	if n.catalog == nil {
		cat, err := msgcat.New("")
		if err != nil {
			return nil, fmt.Errorf("load prompts: %w", err)
		}
		n.catalog = cat
	}
	return n, nil
}

// Narrate returns a copy of moves with commentary attached to every record.
func (n *Narrator) Narrate(ctx context.Context, moves []domain.MoveRecord, language string, gc GameContext) ([]domain.MoveRecord, error) {
	if len(moves) == 0 {
		return nil, ErrNoMoves
	}
	prompt, err := BuildPrompt(n.catalog, moves, language, gc)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}
	key := cacheKey(prompt)

	if merged, ok := n.fromCache(ctx, key, moves); ok {
		return merged, nil
	}

	start := time.Now()
	raw, err := n.gen.Generate(ctx, prompt)
	if err != nil {
		n.logger.Warn("narration request failed", zap.Int("moves", len(moves)), zap.Error(err))
		if errors.Is(err, ErrTextServiceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrTextServiceUnavailable, err)
	}

	replies, err := ParseResponse(raw)
	if err != nil {
		n.logger.Warn("narration response unparsable", zap.Int("response_len", len(raw)), zap.Error(err))
		return nil, err
	}
	merged, err := Merge(moves, replies)
	if err != nil {
		n.logger.Warn("narration merge rejected", zap.Error(err))
		return nil, err
	}

	n.logger.Info("narration generated",
		zap.Int("moves", len(moves)),
		zap.String("language", language),
		zap.Duration("took", time.Since(start)),
	)
	if n.cache != nil {
		if err := n.cache.Set(ctx, key, raw); err != nil {
			n.logger.Warn("narration cache store failed", zap.Error(err))
		}
	}
	return merged, nil
}

func (n *Narrator) fromCache(ctx context.Context, key string, moves []domain.MoveRecord) ([]domain.MoveRecord, bool) {
	if n.cache == nil {
		return nil, false
	}
	raw, ok, err := n.cache.Get(ctx, key)
	if err != nil {
		n.metrics.CacheLookup(metrics.CacheError)
		n.logger.Warn("narration cache lookup failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		n.metrics.CacheLookup(metrics.CacheMiss)
		return nil, false
	}
	replies, err := ParseResponse(raw)
	if err == nil {
		var merged []domain.MoveRecord
		if merged, err = Merge(moves, replies); err == nil {
			n.metrics.CacheLookup(metrics.CacheHit)
			n.logger.Debug("narration served from cache", zap.Int("moves", len(moves)))
			return merged, true
		}
	}
	n.metrics.CacheLookup(metrics.CacheError)
	n.logger.Warn("cached narration unusable", zap.Error(err))
	return nil, false
}

func cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
