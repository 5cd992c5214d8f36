package domain

import "time"

type VoiceMode string

const (
	VoiceCloned VoiceMode = "cloned"
	VoiceFixed  VoiceMode = "fixed"
)

// GameSession is one analyzed game on its way to narration. It is never persisted.
type GameSession struct {
	Moves    []MoveRecord
	Language string
	Opening  string
}

type NarrationArtifact struct {
	Moves        []MoveRecord
	Narration    string
	AudioPath    string
	Language     string
	LanguageCode string
	Opening      string
	CreatedAt    time.Time
}

type Recording struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	PGN         string    `json:"pgn" db:"pgn"`
	AudioURL    string    `json:"audio_url" db:"audio_url"`
	PlayerWhite string    `json:"player_white" db:"player_white"`
	PlayerBlack string    `json:"player_black" db:"player_black"`
	Language    string    `json:"language" db:"language"`
	Narration   string    `json:"narration" db:"narration"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
