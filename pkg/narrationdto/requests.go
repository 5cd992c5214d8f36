package narrationdto

type GenerateRequest struct {
	PGN         string `json:"pgn" validate:"required,max=65536"`
	Language    string `json:"language" validate:"omitempty,max=32"`
	UserID      string `json:"user_id" validate:"omitempty,max=128"`
	PlayerWhite string `json:"player_white" validate:"omitempty,max=64"`
	PlayerBlack string `json:"player_black" validate:"omitempty,max=64"`
	VoiceMode   string `json:"voice_mode" validate:"omitempty,oneof=cloned fixed"`
}

type GenerateResponse struct {
	Status    string `json:"status"`
	AudioURL  string `json:"audio_url"`
	Narration string `json:"narration"`
	Language  string `json:"language"`
	Opening   string `json:"opening,omitempty"`
	Moves     []Move `json:"moves"`
}

type RecordingsResponse struct {
	Recordings []Recording `json:"recordings"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
