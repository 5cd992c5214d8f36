package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/park285/chess-narrator/internal/domain"
	_ "modernc.org/sqlite"
)

type sqliteRepository struct {
	db *sqlx.DB
}

// created_at is stored as unix milliseconds; the driver's text timestamps sort poorly.
type sqliteRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	PGN         string `db:"pgn"`
	AudioURL    string `db:"audio_url"`
	PlayerWhite string `db:"player_white"`
	PlayerBlack string `db:"player_black"`
	Language    string `db:"language"`
	Narration   string `db:"narration"`
	CreatedAt   int64  `db:"created_at"`
}

func (r sqliteRow) recording() domain.Recording {
	return domain.Recording{
		ID:          r.ID,
		UserID:      r.UserID,
		PGN:         r.PGN,
		AudioURL:    r.AudioURL,
		PlayerWhite: r.PlayerWhite,
		PlayerBlack: r.PlayerBlack,
		Language:    r.Language,
		Narration:   r.Narration,
		CreatedAt:   time.UnixMilli(r.CreatedAt).UTC(),
	}
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS recordings (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		pgn          TEXT NOT NULL,
		audio_url    TEXT NOT NULL,
		player_white TEXT NOT NULL DEFAULT '',
		player_black TEXT NOT NULL DEFAULT '',
		language     TEXT NOT NULL DEFAULT '',
		narration    TEXT NOT NULL DEFAULT '',
		created_at   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_recordings_user_created ON recordings(user_id, created_at);`

// OpenSQLite opens or creates the database file at path.
func OpenSQLite(ctx context.Context, path string) (Repository, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &sqliteRepository{db: db}, nil
}

func (r *sqliteRepository) SaveRecording(ctx context.Context, rec *domain.Recording) error {
	if err := prepare(rec); err != nil {
		return err
	}
	row := sqliteRow{
		ID:          rec.ID,
		UserID:      rec.UserID,
		PGN:         rec.PGN,
		AudioURL:    rec.AudioURL,
		PlayerWhite: rec.PlayerWhite,
		PlayerBlack: rec.PlayerBlack,
		Language:    rec.Language,
		Narration:   rec.Narration,
		CreatedAt:   rec.CreatedAt.UnixMilli(),
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO recordings (id, user_id, pgn, audio_url, player_white, player_black, language, narration, created_at)
		VALUES (:id, :user_id, :pgn, :audio_url, :player_white, :player_black, :language, :narration, :created_at)
		ON CONFLICT(id) DO UPDATE SET audio_url = excluded.audio_url, narration = excluded.narration`, row)
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	return nil
}

func (r *sqliteRepository) ListRecordings(ctx context.Context, userID string, limit int) ([]domain.Recording, error) {
	var rows []sqliteRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, pgn, audio_url, player_white, player_black, language, narration, created_at
		FROM recordings
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	out := make([]domain.Recording, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.recording())
	}
	return out, nil
}

func (r *sqliteRepository) GetRecording(ctx context.Context, id string) (*domain.Recording, error) {
	var row sqliteRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, user_id, pgn, audio_url, player_white, player_black, language, narration, created_at
		FROM recordings WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	rec := row.recording()
	return &rec, nil
}

func (r *sqliteRepository) Close() error { return r.db.Close() }
