package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/chess-narrator/internal/domain"
)

type postgresRepository struct {
	db *sql.DB
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS recordings (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		pgn          TEXT NOT NULL,
		audio_url    TEXT NOT NULL,
		player_white TEXT NOT NULL DEFAULT '',
		player_black TEXT NOT NULL DEFAULT '',
		language     TEXT NOT NULL DEFAULT '',
		narration    TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_recordings_user_created ON recordings (user_id, created_at DESC);`

func OpenPostgres(ctx context.Context, dsn string) (Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return NewPostgresRepository(db), nil
}

func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) SaveRecording(ctx context.Context, rec *domain.Recording) error {
	if err := prepare(rec); err != nil {
		return err
	}
	const query = `
		INSERT INTO recordings (
			id,
			user_id,
			pgn,
			audio_url,
			player_white,
			player_black,
			language,
			narration,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			audio_url = EXCLUDED.audio_url,
			narration = EXCLUDED.narration`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.PGN,
		rec.AudioURL,
		rec.PlayerWhite,
		rec.PlayerBlack,
		rec.Language,
		rec.Narration,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	return nil
}

const recordingColumns = `id, user_id, pgn, audio_url, player_white, player_black, language, narration, created_at`

func (r *postgresRepository) ListRecordings(ctx context.Context, userID string, limit int) ([]domain.Recording, error) {
	query := `SELECT ` + recordingColumns + `
		FROM recordings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Recording, 0)
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recordings: %w", err)
	}
	return out, nil
}

func (r *postgresRepository) GetRecording(ctx context.Context, id string) (*domain.Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings WHERE id = $1`
	rec, err := scanRecording(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (r *postgresRepository) Close() error { return r.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanRecording(s scanner) (*domain.Recording, error) {
	var rec domain.Recording
	err := s.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.PGN,
		&rec.AudioURL,
		&rec.PlayerWhite,
		&rec.PlayerBlack,
		&rec.Language,
		&rec.Narration,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan recording: %w", err)
	}
	return &rec, nil
}
