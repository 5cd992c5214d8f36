package narrationdto

import "time"

type Recording struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	PGN         string    `json:"pgn"`
	AudioURL    string    `json:"audio_url"`
	PlayerWhite string    `json:"player_white,omitempty"`
	PlayerBlack string    `json:"player_black,omitempty"`
	Language    string    `json:"language,omitempty"`
	Narration   string    `json:"narration,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
