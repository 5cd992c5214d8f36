package analysis

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed samples/*.pgn
var sampleFiles embed.FS

// SampleNames lists the bundled demo games.
func SampleNames() []string {
	entries, err := fs.ReadDir(sampleFiles, "samples")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".pgn"))
	}
	sort.Strings(names)
	return names
}

func Sample(name string) (string, error) {
	raw, err := fs.ReadFile(sampleFiles, path.Join("samples", strings.TrimSpace(name)+".pgn"))
	if err != nil {
		return "", fmt.Errorf("unknown sample game %q", name)
	}
	return string(raw), nil
}
