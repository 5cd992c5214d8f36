package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

type PoolConfig struct {
	BinaryPath string
	// Capacity caps engine processes per search setup; zero sizes it from the CPU count.
	Capacity int
	Logger   *zap.Logger
}

// Pool keeps analysis engines alive between positions. Engines are grouped by
// their Threads/Hash/MultiPV setup; setoption is only sent at start.
type Pool struct {
	binaryPath string
	capacity   int
	logger     *zap.Logger

	mu     sync.Mutex
	groups map[string]*engineGroup
	leased map[*Session]*engineGroup
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("engine binary path required")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("engine binary: %w", err)
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = cpuCapacity()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		binaryPath: cfg.BinaryPath,
		capacity:   capacity,
		logger:     logger,
		groups:     make(map[string]*engineGroup),
		leased:     make(map[*Session]*engineGroup),
	}, nil
}

// Acquire leases an engine for opt. An idle engine is reused after an isready
// check; otherwise a new one is started while the group has room, else the
// call waits for a release or for ctx.
func (p *Pool) Acquire(ctx context.Context, opt Options) (*Session, error) {
	g := p.group(opt)
	for {
		select {
		case s := <-g.idle:
			if p.revive(ctx, g, s) {
				return s, nil
			}
			continue
		default:
		}

		s, err := g.start(ctx)
		if err == nil {
			p.lease(s, g)
			return s, nil
		}
		if !errors.Is(err, errGroupFull) {
			return nil, err
		}

		select {
		case s := <-g.idle:
			if p.revive(ctx, g, s) {
				return s, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// revive leases s if it still answers; dead engines free their slot.
func (p *Pool) revive(ctx context.Context, g *engineGroup, s *Session) bool {
	if s == nil {
		return false
	}
	if err := s.EnsureReady(ctx); err != nil {
		p.logger.Debug("idle analysis engine did not answer isready; replacing it", zap.Error(err))
		g.retire(s)
		return false
	}
	p.lease(s, g)
	return true
}

// Release returns s to its group. A non-nil err means the search went wrong,
// so the process is stopped instead of reused.
func (p *Pool) Release(s *Session, err error) {
	if s == nil {
		return
	}
	p.mu.Lock()
	g, ok := p.leased[s]
	delete(p.leased, s)
	p.mu.Unlock()

	if !ok {
		_ = s.Close()
		return
	}
	if err != nil {
		p.logger.Debug("analysis engine retired after failed search", zap.Error(err))
		g.retire(s)
		return
	}
	if !g.park(s) {
		g.retire(s)
	}
}

// Close stops idle engines. Leased engines are stopped when released.
func (p *Pool) Close() error {
	p.mu.Lock()
	groups := make([]*engineGroup, 0, len(p.groups))
	for _, g := range p.groups {
		groups = append(groups, g)
	}
	p.leased = make(map[*Session]*engineGroup)
	p.mu.Unlock()

	var errs []error
	for _, g := range groups {
		errs = append(errs, g.drain()...)
	}
	return errors.Join(errs...)
}

func (p *Pool) lease(s *Session, g *engineGroup) {
	p.mu.Lock()
	p.leased[s] = g
	p.mu.Unlock()
}

func (p *Pool) group(opt Options) *engineGroup {
	key := setupKey(opt)
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.groups[key]
	if !ok {
		g = newEngineGroup(p.binaryPath, opt, p.capacity, p.logger)
		p.groups[key] = g
	}
	return g
}

var errGroupFull = errors.New("analysis engines at capacity")

// engineGroup is every engine started with one search setup.
type engineGroup struct {
	binaryPath string
	opt        Options
	logger     *zap.Logger

	mu      sync.Mutex
	running int
	limit   int
	idle    chan *Session
}

func newEngineGroup(binaryPath string, opt Options, limit int, logger *zap.Logger) *engineGroup {
	if limit <= 0 {
		limit = 1
	}
	return &engineGroup{
		binaryPath: binaryPath,
		opt:        opt,
		logger:     logger,
		limit:      limit,
		idle:       make(chan *Session, limit),
	}
}

func (g *engineGroup) start(ctx context.Context) (*Session, error) {
	g.mu.Lock()
	if g.running >= g.limit {
		g.mu.Unlock()
		return nil, errGroupFull
	}
	g.running++
	g.mu.Unlock()

	s, err := NewSession(ctx, g.binaryPath, g.opt, g.logger)
	if err != nil {
		g.release()
		return nil, err
	}
	return s, nil
}

func (g *engineGroup) park(s *Session) bool {
	select {
	case g.idle <- s:
		return true
	default:
		return false
	}
}

func (g *engineGroup) retire(s *Session) {
	if s != nil {
		_ = s.Close()
	}
	g.release()
}

func (g *engineGroup) release() {
	g.mu.Lock()
	if g.running > 0 {
		g.running--
	}
	g.mu.Unlock()
}

func (g *engineGroup) drain() []error {
	var errs []error
	for {
		select {
		case s := <-g.idle:
			if s == nil {
				continue
			}
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
			g.release()
		default:
			return errs
		}
	}
}

func setupKey(opt Options) string {
	return fmt.Sprintf("threads=%d/hash=%dMB/multipv=%d", opt.Threads, opt.HashMB, opt.MultiPV)
}

// between 2 and 4
func cpuCapacity() int {
	return min(max(runtime.NumCPU(), 2), 4)
}
