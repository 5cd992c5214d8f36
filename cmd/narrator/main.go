package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/park285/chess-narrator/internal/analysis"
	appcfg "github.com/park285/chess-narrator/internal/config"
	"github.com/park285/chess-narrator/internal/domain"
	"github.com/park285/chess-narrator/internal/narratorbuilder"
	"github.com/park285/chess-narrator/internal/obslog"
	"github.com/park285/chess-narrator/internal/pipeline"
	"go.uber.org/zap"
)

type options struct {
	pgnFile  string
	sample   string
	language string
	voice    string
	out      string
	play     bool
	depth    int
	list     bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("narrator", flag.ContinueOnError)
	fs.StringVar(&o.pgnFile, "pgn", "", "PGN file to narrate (default: stdin)")
	fs.StringVar(&o.sample, "sample", "", "built-in sample game: "+strings.Join(analysis.SampleNames(), ", "))
	fs.StringVar(&o.language, "language", "English", "narration language")
	fs.StringVar(&o.voice, "voice", "", "reference WAV for a cloned voice; empty uses the fixed speaker")
	fs.StringVar(&o.out, "out", "", "output WAV path (default: OUTPUT_DIR/commentary_<time>_<id>.wav)")
	fs.BoolVar(&o.play, "play", true, "play the audio when using the fixed speaker")
	fs.IntVar(&o.depth, "depth", 0, "engine depth (default: ANALYSIS_DEPTH)")
	fs.BoolVar(&o.list, "list-samples", false, "print sample names and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.pgnFile != "" && o.sample != "" {
		return o, errors.New("use either -pgn or -sample, not both")
	}
	return o, nil
}

// readGame picks the PGN source: -pgn file, then -sample, then stdin.
func readGame(o options, stdin io.Reader) (string, error) {
	switch {
	case o.pgnFile != "":
		b, err := os.ReadFile(o.pgnFile)
		if err != nil {
			return "", fmt.Errorf("read pgn: %w", err)
		}
		return string(b), nil
	case o.sample != "":
		return analysis.Sample(o.sample)
	case stdin != nil:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if strings.TrimSpace(string(b)) == "" {
			return "", errors.New("no game given: pass -pgn, -sample or pipe a PGN on stdin")
		}
		return string(b), nil
	default:
		return "", errors.New("no game given: pass -pgn, -sample or pipe a PGN on stdin")
	}
}

func (o options) request(pgn string) pipeline.Request {
	req := pipeline.Request{PGN: pgn, Language: o.language, OutputPath: o.out}
	if o.voice != "" {
		req.Voice = domain.VoiceCloned
		req.ReferenceVoice = o.voice
	} else {
		req.Voice = domain.VoiceFixed
		req.Playback = o.play
	}
	return req
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("%v", err)
	}
	if o.list {
		for _, n := range analysis.SampleNames() {
			fmt.Println(n)
		}
		return
	}

	var stdin io.Reader
	if fi, err := os.Stdin.Stat(); err == nil && fi.Mode()&os.ModeCharDevice == 0 {
		stdin = os.Stdin
	}
	pgn, err := readGame(o, stdin)
	if err != nil {
		log.Fatalf("%v", err)
	}

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if o.depth > 0 {
		cfg.AnalysisDepth = o.depth
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.PipelineTimeout())
	defer cancel()

	deps, err := narratorbuilder.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("narrator init error: %v", err)
	}

	artifact, err := deps.Pipeline.Run(ctx, o.request(pgn))
	_ = deps.Close()
	if err != nil {
		out := pipeline.OutcomeOf(nil, err)
		logger.Error("narration failed", zap.String("stage", string(out.Stage)), zap.Error(err))
		fmt.Fprintf(os.Stderr, "%s failed: %s\n", out.Stage, out.ErrorReason)
		var se *pipeline.StageError
		if errors.As(err, &se) && se.Narration != "" {
			fmt.Println(se.Narration)
		}
		os.Exit(1)
	}

	if artifact.Opening != "" {
		fmt.Printf("Opening: %s\n\n", artifact.Opening)
	}
	fmt.Println(artifact.Narration)
	if artifact.AudioPath != "" {
		fmt.Printf("\nAudio: %s\n", artifact.AudioPath)
	}
}
