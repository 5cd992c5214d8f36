package commentary

import (
	"fmt"
	"math"

	"github.com/park285/chess-narrator/internal/domain"
)

const equalThreshold = 0.2

// Describe renders an evaluation as the short phrase used in prompts.
// Advantages under a fifth of a pawn read as "Equal".
func Describe(ev *domain.Evaluation) string {
	if ev == nil {
		return "N/A"
	}
	switch ev.Kind {
	case domain.KindCentipawns:
		adv := float64(ev.Value) / 100.0
		if math.Abs(adv) < equalThreshold {
			return "Equal"
		}
		return fmt.Sprintf("Advantage %s (%+.2f)", leadingSide(ev.Value), adv)
	case domain.KindMate:
		n := ev.Value
		if n < 0 {
			n = -n
		}
		return fmt.Sprintf("%s has mate in %d", leadingSide(ev.Value), n)
	default:
		return "Unknown"
	}
}

func leadingSide(v int) domain.Side {
	if v > 0 {
		return domain.White
	}
	return domain.Black
}
