package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileEnv names the optional YAML file layered between defaults and env.
const ConfigFileEnv = "NARRATOR_CONFIG"

type AppConfig struct {
	StockfishPath string `koanf:"stockfish_path"`
	GeminiAPIKey  string `koanf:"gemini_api_key"`
	TTSBaseURL    string `koanf:"tts_base_url"`

	HTTPAddr       string   `koanf:"http_addr"`
	PublicBaseURL  string   `koanf:"public_base_url"`
	AllowedOrigins []string `koanf:"allowed_origins"`

	AnalysisDepth   int `koanf:"analysis_depth"`
	AnalysisMultiPV int `koanf:"analysis_multipv"`
	EngineThreads   int `koanf:"engine_threads"`
	EngineHashMB    int `koanf:"engine_hash_mb"`
	EnginePoolSize  int `koanf:"engine_pool_size"`

	GeminiModel      string `koanf:"gemini_model"`
	GeminiBaseURL    string `koanf:"gemini_base_url"`
	GeminiTimeoutSec int    `koanf:"gemini_timeout_sec"`

	TTSSpeaker       string `koanf:"tts_speaker"`
	TTSTimeoutSec    int    `koanf:"tts_timeout_sec"`
	DefaultVoicePath string `koanf:"default_voice_path"`
	PlaybackCommand  string `koanf:"playback_command"`
	OutputDir        string `koanf:"output_dir"`
	PromptDir        string `koanf:"prompt_dir"`

	RedisURL             string `koanf:"redis_url"`
	NarrationCacheTTLSec int    `koanf:"narration_cache_ttl_sec"`
	DatabaseURL          string `koanf:"database_url"`

	MaxConcurrentPipelines int `koanf:"max_concurrent_pipelines"`
	PipelineTimeoutSec     int `koanf:"pipeline_timeout_sec"`
	RateLimitPerMin        int `koanf:"rate_limit_per_min"`

	ChessComBaseURL   string `koanf:"chesscom_base_url"`
	ChessComUserAgent string `koanf:"chesscom_user_agent"`
}

func Defaults() *AppConfig {
	return &AppConfig{
		HTTPAddr:               ":8000",
		PublicBaseURL:          "http://127.0.0.1:8000",
		AllowedOrigins:         []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AnalysisDepth:          15,
		AnalysisMultiPV:        3,
		EngineThreads:          1,
		EngineHashMB:           64,
		GeminiModel:            "gemini-2.5-flash",
		GeminiTimeoutSec:       120,
		TTSSpeaker:             "Claribel Dervla",
		TTSTimeoutSec:          300,
		DefaultVoicePath:       "models/voice_samples/default_voice.wav",
		PlaybackCommand:        "ffplay -nodisp -autoexit -loglevel quiet",
		OutputDir:              "output/audio",
		NarrationCacheTTLSec:   86400,
		MaxConcurrentPipelines: 2,
		PipelineTimeoutSec:     600,
		RateLimitPerMin:        30,
		ChessComBaseURL:        "https://api.chess.com",
		ChessComUserAgent:      "chess-narrator/1.0",
	}
}

var knownKeys = func() map[string]struct{} {
	keys := []string{
		"stockfish_path", "gemini_api_key", "tts_base_url",
		"http_addr", "public_base_url", "allowed_origins",
		"analysis_depth", "analysis_multipv", "engine_threads", "engine_hash_mb", "engine_pool_size",
		"gemini_model", "gemini_base_url", "gemini_timeout_sec",
		"tts_speaker", "tts_timeout_sec", "default_voice_path", "playback_command", "output_dir", "prompt_dir",
		"redis_url", "narration_cache_ttl_sec", "database_url",
		"max_concurrent_pipelines", "pipeline_timeout_sec", "rate_limit_per_min",
		"chesscom_base_url", "chesscom_user_agent",
	}
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}()

// Load layers defaults, the YAML file at NARRATOR_CONFIG, then environment variables.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// STOCKFISH_PATH -> stockfish_path; anything else in the environment is ignored
	envProvider := env.ProviderWithValue("", ".", func(s, v string) (string, interface{}) {
		key := strings.ToLower(s)
		if _, ok := knownKeys[key]; !ok {
			return "", nil
		}
		if key == "allowed_origins" {
			return key, strings.Split(v, ",")
		}
		return key, v
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *Defaults()
	// slices decode into existing elements, so the default list is applied afterwards
	cfg.AllowedOrigins = nil
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}
	cfg.normalize()

	if cfg.StockfishPath == "" {
		return nil, errors.New("STOCKFISH_PATH is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	if cfg.TTSBaseURL == "" {
		return nil, errors.New("TTS_BASE_URL is required")
	}
	return &cfg, nil
}

func (c *AppConfig) normalize() {
	c.StockfishPath = strings.TrimSpace(c.StockfishPath)
	c.GeminiAPIKey = strings.TrimSpace(c.GeminiAPIKey)
	c.TTSBaseURL = strings.TrimRight(strings.TrimSpace(c.TTSBaseURL), "/")
	c.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")

	var origins []string
	for _, o := range c.AllowedOrigins {
		for _, part := range strings.Split(o, ",") {
			if s := strings.TrimSpace(part); s != "" {
				origins = append(origins, s)
			}
		}
	}
	c.AllowedOrigins = origins

	d := Defaults()
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = d.AllowedOrigins
	}
	if c.AnalysisDepth <= 0 {
		c.AnalysisDepth = d.AnalysisDepth
	}
	if c.AnalysisMultiPV <= 0 {
		c.AnalysisMultiPV = d.AnalysisMultiPV
	}
	if c.MaxConcurrentPipelines <= 0 {
		c.MaxConcurrentPipelines = d.MaxConcurrentPipelines
	}
	if c.RateLimitPerMin <= 0 {
		c.RateLimitPerMin = d.RateLimitPerMin
	}
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (c *AppConfig) GeminiTimeout() time.Duration     { return seconds(c.GeminiTimeoutSec) }
func (c *AppConfig) TTSTimeout() time.Duration        { return seconds(c.TTSTimeoutSec) }
func (c *AppConfig) NarrationCacheTTL() time.Duration { return seconds(c.NarrationCacheTTLSec) }
func (c *AppConfig) PipelineTimeout() time.Duration   { return seconds(c.PipelineTimeoutSec) }
