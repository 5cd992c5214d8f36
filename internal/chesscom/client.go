package chesscom

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/park285/chess-narrator/internal/fastclient"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.chess.com"

// the public API answers parallel bursts with 429s
const maxConns = 2

var (
	ErrInvalidRequest = errors.New("invalid chess.com request")
	ErrNotFound       = errors.New("chess.com player or archive not found")
	ErrUnavailable    = errors.New("chess.com unavailable")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Logger    *zap.Logger
}

type Player struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Result   string `json:"result"`
}

type Game struct {
	URL         string `json:"url"`
	PGN         string `json:"pgn"`
	TimeControl string `json:"time_control"`
	TimeClass   string `json:"time_class"`
	Rules       string `json:"rules"`
	EndTime     int64  `json:"end_time"`
	Rated       bool   `json:"rated"`
	White       Player `json:"white"`
	Black       Player `json:"black"`
}

type Archives struct {
	Archives []string `json:"archives"`
}

type MonthlyGames struct {
	Games []Game `json:"games"`
}

// Client reads the public chess.com API.
type Client struct {
	http   *fastclient.Client
	logger *zap.Logger
}

func New(cfg Config, opts ...fastclient.Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base := []fastclient.Option{
		fastclient.WithTimeout(cfg.Timeout),
		fastclient.WithRetry(2),
		fastclient.WithLogger(logger),
		fastclient.WithMaxConnsPerHost(maxConns),
	}
	if cfg.UserAgent != "" {
		base = append(base, fastclient.WithUserAgent(cfg.UserAgent))
	}
	return &Client{http: fastclient.New(cfg.BaseURL, append(base, opts...)...), logger: logger}
}

func (c *Client) Archives(ctx context.Context, username string) (*Archives, error) {
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username %q", ErrInvalidRequest, username)
	}
	var out Archives
	if err := c.get(ctx, "/pub/player/"+username+"/games/archives", &out); err != nil {
		return nil, err
	}
	if out.Archives == nil {
		out.Archives = []string{}
	}
	return &out, nil
}

// GamesByMonth lists a player's games for one calendar month.
func (c *Client) GamesByMonth(ctx context.Context, username, year, month string) (*MonthlyGames, error) {
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username %q", ErrInvalidRequest, username)
	}
	y, err := strconv.Atoi(year)
	if err != nil || len(year) != 4 {
		return nil, fmt.Errorf("%w: year %q", ErrInvalidRequest, year)
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return nil, fmt.Errorf("%w: month %q", ErrInvalidRequest, month)
	}
	var out MonthlyGames
	path := fmt.Sprintf("/pub/player/%s/games/%04d/%02d", username, y, m)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	if out.Games == nil {
		out.Games = []Game{}
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	err := c.http.DoJSON(ctx, fasthttp.MethodGet, path, nil, nil, out, true)
	if err == nil {
		return nil
	}
	var se *fastclient.StatusError
	if errors.As(err, &se) && se.Status == fasthttp.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	c.logger.Warn("chess.com request failed", zap.String("path", path), zap.Error(err))
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
