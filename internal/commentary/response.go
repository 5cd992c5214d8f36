package commentary

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/park285/chess-narrator/internal/domain"
)

// Reply is one parsed element of the narration response.
type Reply struct {
	Text    string
	Quality domain.Quality
}

type rawReply struct {
	Commentary  string `json:"commentary"`
	MoveQuality string `json:"move_quality"`
}

// ExtractArray returns the span from the first '[' to the last ']'.
// Prose and code fences around the array are ignored.
func ExtractArray(raw string) (string, error) {
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end < 0 || end < start {
		return "", fmt.Errorf("%w: no array in response", ErrResponseFormat)
	}
	return raw[start : end+1], nil
}

// ParseResponse decodes the whole array or fails; there is no partial result.
func ParseResponse(raw string) ([]Reply, error) {
	payload, err := ExtractArray(raw)
	if err != nil {
		return nil, err
	}
	var items []*rawReply
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseFormat, err)
	}
	out := make([]Reply, len(items))
	for i, it := range items {
		if it == nil {
			return nil, fmt.Errorf("%w: entry %d is null", ErrResponseFormat, i+1)
		}
		q, err := domain.ParseQuality(it.MoveQuality)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrResponseFormat, i+1, err)
		}
		out[i] = Reply{Text: strings.TrimSpace(it.Commentary), Quality: q}
	}
	return out, nil
}
