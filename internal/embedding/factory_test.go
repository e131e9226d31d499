package embedding

import (
	"testing"

	"github.com/hyperjump/kotae/internal/config"
)

func TestNew(t *testing.T) {
	cfg := &config.Config{Embedding: config.EmbeddingConfig{Provider: config.ProviderHash}}
	config.ApplyDefaults(cfg)
	e, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*HashEmbedder); !ok || e.Dimensions() != 512 {
		t.Errorf("got %T with %d dims", e, e.Dimensions())
	}

	cfg = &config.Config{}
	config.ApplyDefaults(cfg)
	if e, err := New(cfg, nil); err != nil || e.Dimensions() != 1536 {
		t.Errorf("openai without an API key should still build: %v", err)
	}
	cfg.OpenAI.APIKey = "sk-test"
	if _, err := New(cfg, nil); err != nil {
		t.Errorf("openai: %v", err)
	}

	cfg.Embedding.Provider = "word2vec"
	if _, err := New(cfg, nil); err == nil {
		t.Error("unknown provider should fail")
	}
}
