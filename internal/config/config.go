package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Web        WebConfig        `yaml:"web"`
	Transcript TranscriptConfig `yaml:"transcript"`
}

type LLMConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	ApiKey  string `yaml:"apiKey"`
}

type TelemetryConfig struct {
	// BaseURL of the scan engine's websocket endpoint,
	// e.g. ws://127.0.0.1:8060.
	BaseURL string `yaml:"base_url"`
}

type WebConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type TranscriptConfig struct {
	// ServiceURL of the transcript persistence service. Empty means the
	// in-memory store.
	ServiceURL string `yaml:"service_url"`
}

func Load() (*Config, error) {
	// A missing .env is fine; env vars may come from the environment itself.
	_ = godotenv.Load()

	return &Config{
		LLM: LLMConfig{
			Model:   os.Getenv("LLM_MODEL"),
			BaseURL: os.Getenv("LLM_BASE_URL"),
			ApiKey:  os.Getenv("API_KEY"),
		},
		Telemetry: TelemetryConfig{
			BaseURL: os.Getenv("TELEMETRY_BASE_URL"),
		},
		Web: WebConfig{
			ListenAddr: os.Getenv("WEB_LISTEN_ADDR"),
		},
		Transcript: TranscriptConfig{
			ServiceURL: os.Getenv("TRANSCRIPT_SERVICE_URL"),
		},
	}, nil
}
