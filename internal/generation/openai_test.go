package generation

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/generation/generationtest"
	"github.com/hyperjump/kotae/internal/models"
)

func TestOpenAIGenerator_Generate(t *testing.T) {
	srv := generationtest.NewServer(func(prompt string) string {
		return "  echo: " + prompt + "\n"
	})
	defer srv.Close()

	g := NewOpenAIGenerator(OpenAIConfig{APIKey: "test", BaseURL: srv.BaseURL(), Logger: zap.NewNop()})
	if g.Model() != DefaultModel {
		t.Errorf("Model() = %s, want %s", g.Model(), DefaultModel)
	}
	got, err := g.Generate(context.Background(), "where?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "echo: where?" {
		t.Errorf("Generate() = %q", got)
	}
	if p := srv.Prompts(); len(p) != 1 || p[0] != "where?" {
		t.Errorf("server saw prompts %q", p)
	}
}

func TestOpenAIGenerator_emptyReply(t *testing.T) {
	srv := generationtest.NewServer(func(string) string { return "" })
	defer srv.Close()

	g := NewOpenAIGenerator(OpenAIConfig{APIKey: "test", BaseURL: srv.BaseURL()})
	if _, err := g.Generate(context.Background(), "q"); !errors.Is(err, models.ErrGeneration) {
		t.Errorf("expected ErrGeneration, got %v", err)
	}
}

func TestOpenAIGenerator_apiError(t *testing.T) {
	srv := generationtest.NewServer(func(string) string { return "unused" })
	defer srv.Close()
	srv.FailWith(http.StatusServiceUnavailable)

	g := NewOpenAIGenerator(OpenAIConfig{APIKey: "test", BaseURL: srv.BaseURL()})
	_, err := g.Generate(context.Background(), "q")
	if !errors.Is(err, models.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestOpenAIGenerator_canceled(t *testing.T) {
	srv := generationtest.NewServer(func(string) string { return "late" })
	defer srv.Close()

	g := NewOpenAIGenerator(OpenAIConfig{APIKey: "test", BaseURL: srv.BaseURL()})
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)
	_, err := g.Generate(ctx, "q")
	if !errors.Is(err, models.ErrGeneration) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected ErrGeneration and DeadlineExceeded, got %v", err)
	}
}
