package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/park285/chess-narrator/internal/fastclient"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"
)

var (
	ErrUnavailable   = errors.New("gemini unavailable")
	ErrRejected      = errors.New("gemini rejected request")
	ErrEmptyResponse = errors.New("gemini returned no text")
)

type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
	// ResponseMIMEType asks the model for a specific output format; empty leaves it free.
	ResponseMIMEType string
	Logger           *zap.Logger
}

// Client implements a single-turn generateContent call.
type Client struct {
	http   *fastclient.Client
	path   string
	mime   string
	logger *zap.Logger
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func New(cfg Config, opts ...fastclient.Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	key := strings.TrimSpace(cfg.APIKey)
	base := []fastclient.Option{
		fastclient.WithTimeout(cfg.Timeout),
		fastclient.WithRetry(3),
		fastclient.WithLogger(logger),
		// key travels as a header so it never shows up in logged URLs
		fastclient.WithHeaderProvider(func() map[string]string {
			return map[string]string{"x-goog-api-key": key}
		}),
	}
	return &Client{
		http:   fastclient.New(cfg.BaseURL, append(base, opts...)...),
		path:   "/v1beta/models/" + url.PathEscape(cfg.Model) + ":generateContent",
		mime:   cfg.ResponseMIMEType,
		logger: logger,
	}, nil
}

// Generate returns the concatenated text parts of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}}
	if c.mime != "" {
		req.GenerationConfig = &generationConfig{ResponseMIMEType: c.mime}
	}

	start := time.Now()
	var resp generateResponse
	err := c.http.DoJSON(ctx, fasthttp.MethodPost, c.path, nil, req, &resp, true)
	if err != nil {
		if fastclient.IsUnavailable(err) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return "", fmt.Errorf("%w: %w", ErrRejected, err)
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", ErrEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: finish reason %s", ErrEmptyResponse, resp.Candidates[0].FinishReason)
	}

	c.logger.Debug("gemini response",
		zap.Int("prompt_len", len(prompt)),
		zap.Int("response_len", len(text)),
		zap.Duration("took", time.Since(start)),
	)
	return text, nil
}
