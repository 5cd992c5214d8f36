package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/park285/chess-narrator/internal/fastclient"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type XTTSConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// XTTSClient talks to an XTTS-v2 HTTP server: POST /tts returns WAV bytes.
type XTTSClient struct {
	http   *fastclient.Client
	logger *zap.Logger
}

type ttsRequest struct {
	Text       string `json:"text"`
	Language   string `json:"language"`
	Speaker    string `json:"speaker,omitempty"`
	SpeakerWav string `json:"speaker_wav,omitempty"`
}

func NewXTTSClient(cfg XTTSConfig, opts ...fastclient.Option) (*XTTSClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("tts base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base := []fastclient.Option{
		fastclient.WithTimeout(cfg.Timeout),
		fastclient.WithRetry(1),
		fastclient.WithLogger(logger),
	}
	return &XTTSClient{http: fastclient.New(cfg.BaseURL, append(base, opts...)...), logger: logger}, nil
}

func (c *XTTSClient) SynthesizeToFile(ctx context.Context, text, outputPath string, voice Voice, language string) error {
	req := ttsRequest{Text: text, Language: language, Speaker: voice.Speaker}
	if voice.Reference != "" {
		sample, err := os.ReadFile(voice.Reference)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrReferenceVoiceMissing, err)
		}
		req.SpeakerWav = base64.StdEncoding.EncodeToString(sample)
		req.Speaker = ""
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode tts request: %w", err)
	}

	audio, err := c.http.Do(ctx, fastclient.Request{
		Method:      fasthttp.MethodPost,
		Path:        "/tts",
		ContentType: "application/json",
		Accept:      "audio/wav",
		Body:        body,
		Retry:       true,
	})
	if err != nil {
		if fastclient.IsUnavailable(err) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %w", ErrSpeechServiceUnavailable, err)
		}
		return err
	}
	if !bytes.HasPrefix(audio, []byte("RIFF")) {
		return fmt.Errorf("tts returned %d bytes that are not WAV audio", len(audio))
	}
	return writeAtomic(outputPath, audio)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tts-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close audio: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("rename audio: %w", err)
	}
	return nil
}
