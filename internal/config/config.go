package config

import (
	"os"
	"strconv"
	"strings"
)

// Version is reported by GET /api/version and the version subcommand.
const Version = "0.1.0"

// DefaultModels is the catalog served when OLLAMA_CLAUDE_MODELS is unset.
var DefaultModels = []string{
	"claude-sonnet-4-20250514",
	"claude-opus-4-20250514",
	"claude-3-5-haiku-20241022",
	"claude-3-5-sonnet-20241022",
	"claude-3-opus-20240229",
	"claude-3-sonnet-20240229",
	"claude-3-haiku-20240307",
}

// ServerConfig holds all server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	APIKey          string
	DefaultMaxTurns int
	Models          []string
	ClaudeBinary    string
	WorkDir         string
	Verbose         bool
	Debug           bool
}

// DefaultFromEnv creates a ServerConfig with defaults from OLLAMA_CLAUDE_*
// environment variables. The default port matches Ollama's own.
func DefaultFromEnv() *ServerConfig {
	return &ServerConfig{
		Host:            envOrDefault("OLLAMA_CLAUDE_HOST", "0.0.0.0"),
		Port:            envInt("OLLAMA_CLAUDE_PORT", 11434),
		APIKey:          strings.TrimSpace(os.Getenv("OLLAMA_CLAUDE_API_KEY")),
		DefaultMaxTurns: envInt("OLLAMA_CLAUDE_MAX_TURNS", 10),
		Models:          envList("OLLAMA_CLAUDE_MODELS", DefaultModels),
		ClaudeBinary:    envOrDefault("OLLAMA_CLAUDE_BINARY", "claude"),
		WorkDir:         strings.TrimSpace(os.Getenv("OLLAMA_CLAUDE_WORKDIR")),
		Verbose:         envBool("OLLAMA_CLAUDE_VERBOSE"),
		Debug:           envBool("OLLAMA_CLAUDE_DEBUG"),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func envList(key string, defaultVal []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
