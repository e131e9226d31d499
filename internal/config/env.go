package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// APIKeyEnv is the variable holding the OpenAI API key.
const APIKeyEnv = "OPENAI_API_KEY"

// BaseURLEnv optionally overrides the OpenAI endpoint.
const BaseURLEnv = "OPENAI_BASE_URL"

// LoadEnv fills secrets from the given .env files (".env" when none are given), falling back
// to the process environment. Values found in a .env file win. Missing files are skipped.
func LoadEnv(cfg *Config, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	values := make(map[string]string)
	for _, f := range files {
		m, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to read env file %s: %w", f, err)
		}
		for k, v := range m {
			if _, ok := values[k]; !ok {
				values[k] = v
			}
		}
	}
	lookup := func(key string) string {
		if v, ok := values[key]; ok && v != "" {
			return v
		}
		return os.Getenv(key)
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = lookup(APIKeyEnv)
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = lookup(BaseURLEnv)
	}
	return nil
}
