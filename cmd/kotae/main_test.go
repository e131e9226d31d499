package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/extract/extracttest"
	"github.com/hyperjump/kotae/internal/generation/generationtest"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/session"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after question are moved first",
			args:     []string{"what is the total", "-file", "budget.xlsx"},
			expected: []string{"-file", "budget.xlsx", "what is the total"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-file", "budget.xlsx", "what is the total"},
			expected: []string{"-file", "budget.xlsx", "what is the total"},
		},
		{
			name:     "question only returns unchanged",
			args:     []string{"what is the total"},
			expected: []string{"what is the total"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"how", "many", "-top-k", "5"},
			expected: []string{"-top-k", "5", "how", "many"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildQuestion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"summary"}, "summary"},
		{"multiple words", []string{"who", "signed", "it"}, "who signed it"},
		{"single quoted phrase", []string{"who signed it"}, "who signed it"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildQuestion(tt.args)
			if got != tt.expected {
				t.Errorf("buildQuestion(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath, "")
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPathAndEnvFile(t *testing.T) {
	t.Setenv(config.APIKeyEnv, "")
	dir := t.TempDir()
	configPath := filepath.Join(dir, "kotae.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	envPath := filepath.Join(dir, "secrets.env")
	if err := os.WriteFile(envPath, []byte("OPENAI_API_KEY=sk-from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath, envPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.OpenAI.APIKey != "sk-from-file" {
		t.Errorf("api key = %q, want sk-from-file", cfg.OpenAI.APIKey)
	}
}

func TestLoadConfig_missingExplicitPathFails(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Embedding.Provider = config.ProviderHash
	cfg.Embedding.Dimensions = 64
	cfg.OpenAI.BaseURL = baseURL
	config.ApplyDefaults(cfg)
	return cfg
}

func TestInitializeComponents_missingKeyFailsOnUpload(t *testing.T) {
	var auth []string
	var mu sync.Mutex
	openaiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = append(auth, r.Header.Get("Authorization"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"You didn't provide an API key.","type":"invalid_request_error"}}`))
	}))
	defer openaiSrv.Close()

	cfg := &config.Config{}
	cfg.OpenAI.BaseURL = openaiSrv.URL + "/v1"
	config.ApplyDefaults(cfg)
	components, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("a missing key should not stop startup: %v", err)
	}
	defer components.Close()

	sess, err := components.Sessions.Create()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "guide.pdf")
	if err := os.WriteFile(path, extracttest.PDF("The quarry lies north."), 0600); err != nil {
		t.Fatal(err)
	}
	_, err = sess.Upload(context.Background(), session.Upload{Name: "guide.pdf", Path: path})
	if !errors.Is(err, models.ErrEmbeddingService) {
		t.Fatalf("upload err = %v, want ErrEmbeddingService", err)
	}
	if sess.State() != session.StateAwaitingUpload {
		t.Errorf("state = %s, want %s", sess.State(), session.StateAwaitingUpload)
	}
	if msg := sess.Explain(err); !strings.Contains(msg, "embedding service") || !strings.Contains(msg, "Please upload") {
		t.Errorf("message = %q", msg)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(auth) == 0 {
		t.Error("the upload should reach the provider and fail there")
	}
}

func TestAsk_answersFromDocument(t *testing.T) {
	gen := generationtest.NewServer(func(prompt string) string {
		return "The quarry lies north."
	})
	defer gen.Close()

	components, err := initializeComponents(testConfig(gen.BaseURL()), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()

	path := filepath.Join(t.TempDir(), "guide.pdf")
	pdf := extracttest.PDF("The volcanic basalt quarry lies north of the village.")
	if err := os.WriteFile(path, pdf, 0600); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	q := models.Question{Content: "Where is the quarry?"}
	if err := ask(context.Background(), components.Sessions, path, q, &buf, cli.OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "The quarry lies north.\n\nSources: source_0") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "basalt quarry") {
		t.Errorf("output should show the cited segment:\n%s", out)
	}
	if components.Sessions.Len() != 0 {
		t.Errorf("ask should close its session, %d left", components.Sessions.Len())
	}
	prompts := gen.Prompts()
	if len(prompts) != 1 || !strings.Contains(prompts[0], "Where is the quarry?") {
		t.Errorf("unexpected prompts: %q", prompts)
	}
}

func TestAsk_unsupportedFile(t *testing.T) {
	gen := generationtest.NewServer(func(string) string { return "unused" })
	defer gen.Close()

	components, err := initializeComponents(testConfig(gen.BaseURL()), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0600); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	err = ask(context.Background(), components.Sessions, path, models.Question{Content: "anything"}, &buf, cli.OutputText)
	if err == nil {
		t.Fatal("expected error for unsupported file")
	}
	if len(gen.Prompts()) != 0 {
		t.Error("generator should not be called")
	}
}

func TestStatusViaHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/status" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sessions":       2,
			"sessions_state": map[string]int{"ready": 1, "awaiting_upload": 1},
			"uptime_seconds": 42,
			"config":         map[string]any{"generation_model": "gpt-4", "inbox_dir": ""},
		})
	}))
	defer srv.Close()

	status, err := statusViaHTTP(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	if status.Sessions != 2 || status.UptimeSeconds != 42 {
		t.Errorf("unexpected status: %+v", status)
	}

	var buf bytes.Buffer
	if err := writeStatus(&buf, status, cli.OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"sessions:           2", "ready:", "awaiting_upload:", "generation_model:   gpt-4"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "inbox_dir") {
		t.Errorf("empty config values should be hidden:\n%s", out)
	}
}

func TestStatusViaHTTP_serverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := statusViaHTTP(srv.URL); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestChatLogger(t *testing.T) {
	logger, err := chatLogger("", false)
	if err != nil {
		t.Fatal(err)
	}
	if logger.Core().Enabled(zap.ErrorLevel) {
		t.Error("logger without a file should discard everything")
	}

	path := filepath.Join(t.TempDir(), "chat.log")
	logger, err = chatLogger(path, false)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello")
	_ = logger.Sync()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file missing entry: %s", data)
	}
}
