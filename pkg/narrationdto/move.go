package narrationdto

// Move is one narrated ply as shown to clients.
type Move struct {
	Index          int      `json:"index"`
	Mover          string   `json:"mover"`
	SAN            string   `json:"san"`
	Evaluation     string   `json:"evaluation"`
	EngineBestMove string   `json:"engine_best_move,omitempty"`
	TopMoves       []string `json:"top_moves,omitempty"`
	Commentary     string   `json:"commentary"`
	Quality        string   `json:"move_quality"`
}
