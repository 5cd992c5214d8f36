package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chess-narrator/internal/domain"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("recording not found")

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Repository persists generated recordings. Lists are newest first.
type Repository interface {
	SaveRecording(ctx context.Context, rec *domain.Recording) error
	ListRecordings(ctx context.Context, userID string, limit int) ([]domain.Recording, error)
	GetRecording(ctx context.Context, id string) (*domain.Recording, error)
	Close() error
}

// Open picks a backend from the URL scheme: postgres://, sqlite://<path>, or empty for memory.
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dsn := strings.TrimSpace(databaseURL)
	switch {
	case dsn == "" || dsn == "memory" || dsn == "memory://":
		logger.Warn("DATABASE_URL not set; recordings are kept in memory only")
		return NewMemoryRepository(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme: %q", dsn)
	}
}

func prepare(rec *domain.Recording) error {
	if rec == nil {
		return fmt.Errorf("nil recording payload")
	}
	if strings.TrimSpace(rec.UserID) == "" {
		return fmt.Errorf("recording user_id is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
