package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Engine  EngineConfig
	OpenAI  OpenAIConfig
	Ollama  OllamaConfig
	Memory  MemoryConfig
	Profile ProfileConfig
	Log     LogConfig
	MCP     MCPConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type StorageConfig struct {
	DataDir string
}

type EngineConfig struct {
	// Backend is "openai", "ollama" or empty to pick one from the
	// available credentials.
	Backend string
}

type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	ChatModel  string
	EmbedModel string
}

type OllamaConfig struct {
	BaseURL    string
	ChatModel  string
	EmbedModel string
}

type MemoryConfig struct {
	SearchLimit int
}

type ProfileConfig struct {
	ConfidenceThreshold float64
}

type LogConfig struct {
	Level string
}

type MCPConfig struct {
	Enabled bool
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		OpenAI: OpenAIConfig{
			BaseURL:    "https://api.openai.com/v1/",
			ChatModel:  "gpt-4o-mini",
			EmbedModel: "text-embedding-3-small",
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			ChatModel:  "llama3.1",
			EmbedModel: "nomic-embed-text",
		},
		Memory: MemoryConfig{
			SearchLimit: 100,
		},
		Profile: ProfileConfig{
			ConfidenceThreshold: 0.7,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Models returns the chat and embedding models configured for backend.
func (c Config) Models(backend string) (chat, embed string) {
	if backend == "openai" {
		return c.OpenAI.ChatModel, c.OpenAI.EmbedModel
	}
	return c.Ollama.ChatModel, c.Ollama.EmbedModel
}

// Load reads configuration from the platform-native backend, a .env file in
// the working directory, environment variables, and the platform secret
// store, in increasing order of precedence (secrets only fill gaps).
//
// On macOS the backend is UserDefaults (domain: com.chefmate.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/chefmate/config.json
// and secrets fall back to $XDG_DATA_HOME/chefmate/secrets.json.
//
// .env never overrides variables already set in the environment.
// Environment variables (CHEFMATE_*) override backend values on all platforms.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "[WARN] could not load .env: %v\n", err)
	}
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.OpenAI.APIKey == "" {
		if key, err := kc.Get("chefmate", "openai_api_key"); err == nil && key != "" {
			cfg.OpenAI.APIKey = key
		}
	}
	if cfg.Server.APIToken == "" {
		if tok, err := kc.Get("chefmate", "api_token"); err == nil && tok != "" {
			cfg.Server.APIToken = tok
		}
	}

	cfg.Engine.Backend = strings.ToLower(strings.TrimSpace(cfg.Engine.Backend))
	if cfg.Engine.Backend == "openai" && cfg.OpenAI.APIKey == "" {
		msg := "missing required config: OpenAI API key for engine.backend=openai. " +
			"Set it via environment variable CHEFMATE_OPENAI_API_KEY" +
			apiKeyHint()
		return Config{}, fmt.Errorf("%s", msg)
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
