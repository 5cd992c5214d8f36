package speech

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var DefaultPlaybackCommand = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"}

// CommandPlayer plays a file by running a local command with the path appended, blocking until it exits.
type CommandPlayer struct {
	Command []string
}

// ParseCommand splits a whitespace-separated command line.
func ParseCommand(line string) []string {
	return strings.Fields(line)
}

func (p CommandPlayer) Play(ctx context.Context, path string) error {
	cmdline := p.Command
	if len(cmdline) == 0 {
		cmdline = DefaultPlaybackCommand
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("audio file: %w", err)
	}
	args := append(append([]string(nil), cmdline[1:]...), path)
	cmd := exec.CommandContext(ctx, cmdline[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", cmdline[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
