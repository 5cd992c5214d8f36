package analysis

import (
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

func (o Opening) String() string {
	if o.Code == "" {
		return o.Title
	}
	return o.Code + " " + o.Title
}

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

// IdentifyOpening finds the deepest ECO entry matching the game's main line.
func IdentifyOpening(game *nchess.Game) (Opening, bool) {
	if game == nil {
		return Opening{}, false
	}
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	if ecoBook == nil {
		return Opening{}, false
	}
	if eco := ecoBook.Find(game.Moves()); eco != nil {
		return Opening{Code: eco.Code(), Title: eco.Title()}, true
	}
	return Opening{}, false
}

// OpeningOf parses pgn and looks up its opening; unparseable records have none.
func OpeningOf(pgn string) (Opening, bool) {
	game, err := ParseGame(pgn)
	if err != nil {
		return Opening{}, false
	}
	return IdentifyOpening(game)
}
