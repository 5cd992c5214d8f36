package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReadyTimeout  = 4 * time.Second
	newGameRetryAttempts = 3
	newGameRetryDelay    = 150 * time.Millisecond
)

type Options struct {
	Threads int
	HashMB  int
	MultiPV int
}

type Limits struct {
	Depth          int
	MoveTimeMillis int
	NodeCap        int
}

type ScoreKind string

const (
	ScoreCentipawns ScoreKind = "cp"
	ScoreMate       ScoreKind = "mate"
)

// Score is relative to the side to move, exactly as the engine prints it.
type Score struct {
	Kind  ScoreKind
	Value int
}

type Candidate struct {
	Move      string
	Score     Score
	HasScore  bool
	Depth     int
	Principal []string
}

type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	logger *zap.Logger
	mu     sync.Mutex
	search sync.Mutex
}

// NewSession starts the engine process. The process outlives ctx; only the handshake is bounded by it.
func NewSession(ctx context.Context, binaryPath string, opt Options, logger *zap.Logger) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdoutPipe),
		logger: logger,
	}

	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

type SearchRequest struct {
	FEN    string
	Moves  []string
	Limits Limits
}

type SearchResponse struct {
	Candidates []Candidate
	BestMove   string
}

// Best returns the first-ranked line, if the engine printed one.
func (r SearchResponse) Best() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	s.search.Lock()
	defer s.search.Unlock()

	goTokens, err := buildGoTokens(req.Limits)
	if err != nil {
		return SearchResponse{}, err
	}

	positionCmd := buildPositionCommand(req.FEN, req.Moves)
	if err := s.send(positionCmd); err != nil {
		return SearchResponse{}, fmt.Errorf("send position: %w", err)
	}

	goCmd := strings.Join(goTokens, " ")
	if err := s.send(goCmd + "\n"); err != nil {
		return SearchResponse{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, computeSearchTimeout(req.Limits))
	defer cancel()

	candidates := make(map[int]Candidate)
	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			s.logger.Warn("uci read failed",
				zap.String("position", strings.TrimSpace(positionCmd)),
				zap.String("go", goCmd),
				zap.Error(err),
			)
			return SearchResponse{}, fmt.Errorf("read line: %w", err)
		}
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "info "):
			if pv, cand, ok := parseInfo(line); ok {
				candidates[pv] = mergeCandidate(candidates[pv], cand)
			}
		case strings.HasPrefix(line, "bestmove"):
			var best string
			parts := strings.Fields(line)
			if len(parts) >= 2 && parts[1] != "(none)" {
				best = parts[1]
			}
			return SearchResponse{Candidates: collapseCandidates(candidates), BestMove: best}, nil
		}
	}
}

func buildPositionCommand(fen string, moves []string) string {
	var sb strings.Builder
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(strings.TrimSpace(fen))
	}
	if len(moves) > 0 {
		sb.WriteString(" moves ")
		sb.WriteString(strings.Join(moves, " "))
	}
	sb.WriteString("\n")
	return sb.String()
}

func validateOptions(opt Options) error {
	if opt.Threads < 0 {
		return fmt.Errorf("threads must be >= 0: %d", opt.Threads)
	}
	if opt.HashMB <= 0 {
		return fmt.Errorf("hash size must be > 0: %d", opt.HashMB)
	}
	if opt.MultiPV <= 0 {
		return fmt.Errorf("multipv must be > 0: %d", opt.MultiPV)
	}
	return nil
}

func buildGoTokens(l Limits) ([]string, error) {
	args := []string{"go"}
	if l.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(l.Depth))
	}
	if l.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(l.MoveTimeMillis))
	}
	if l.NodeCap > 0 {
		args = append(args, "nodes", strconv.Itoa(l.NodeCap))
	}
	if len(args) == 1 {
		return nil, fmt.Errorf("no search limits specified")
	}
	return args, nil
}

func computeSearchTimeout(l Limits) time.Duration {
	if l.MoveTimeMillis > 0 {
		ms := l.MoveTimeMillis + 2000
		return time.Duration(ms) * time.Millisecond * 3
	}
	if l.Depth > 0 {
		base := time.Duration(l.Depth) * 500 * time.Millisecond
		if base < 6*time.Second {
			base = 6 * time.Second
		}
		if base > 60*time.Second {
			base = 60 * time.Second
		}
		return base
	}
	return 6 * time.Second
}

// parseInfo reads one "info" line. Lines without a score or pv still report what they carry.
func parseInfo(line string) (int, Candidate, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return 0, Candidate{}, false
	}
	var (
		multipv = 1
		cand    Candidate
		seen    bool
	)

	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					cand.Depth = v
				}
				i++
			}
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					multipv = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				v, err := strconv.Atoi(parts[i+2])
				if err == nil {
					switch parts[i+1] {
					case "cp":
						cand.Score = Score{Kind: ScoreCentipawns, Value: v}
						cand.HasScore = true
						seen = true
					case "mate":
						cand.Score = Score{Kind: ScoreMate, Value: v}
						cand.HasScore = true
						seen = true
					}
				}
				i += 2
			}
		case "pv":
			if i+1 < len(parts) {
				cand.Principal = append([]string(nil), parts[i+1:]...)
				cand.Move = cand.Principal[0]
				seen = true
			}
			i = len(parts)
		case "string":
			// "info string ..." is free text.
			return 0, Candidate{}, false
		}
	}
	if !seen {
		return 0, Candidate{}, false
	}
	return multipv, cand, true
}

// mergeCandidate keeps the latest score and line, carrying older fields forward when a newer line omits them.
func mergeCandidate(prev, next Candidate) Candidate {
	if !next.HasScore && prev.HasScore {
		next.Score = prev.Score
		next.HasScore = true
	}
	if next.Move == "" {
		next.Move = prev.Move
		next.Principal = prev.Principal
	}
	if next.Depth == 0 {
		next.Depth = prev.Depth
	}
	return next
}

func collapseCandidates(m map[int]Candidate) []Candidate {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	result := make([]Candidate, 0, len(keys))
	for _, k := range keys {
		result = append(result, m[k])
	}
	return result
}

func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) NewGame(ctx context.Context) error {
	if err := s.send("ucinewgame\n"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}

	for attempt := 1; attempt <= newGameRetryAttempts; attempt++ {
		err := s.EnsureReady(ctx)
		if err == nil {
			return nil
		}
		if attempt == newGameRetryAttempts {
			return err
		}
		s.logger.Debug("uci ensure ready retry",
			zap.Int("attempt", attempt),
			zap.Int("max", newGameRetryAttempts),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(newGameRetryDelay):
		}
	}
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdin != nil {
		_, _ = io.WriteString(s.stdin, "quit\n")
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	if s.cmd != nil {
		err := s.cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// killed on purpose
			return nil
		}
		return err
	}
	return nil
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	if err := s.applyOptions(opt); err != nil {
		return err
	}

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) applyOptions(opt Options) error {
	threadCount := opt.Threads
	if threadCount <= 0 {
		threadCount = 1
	}
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d\n", threadCount),
		fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB),
		fmt.Sprintf("setoption name MultiPV value %d\n", opt.MultiPV),
		"setoption name UCI_AnalyseMode value true\n",
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

// readLine abandons the pending read on cancellation; the session must then be discarded.
func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := s.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}
