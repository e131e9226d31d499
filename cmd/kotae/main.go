// Package main is the kotae CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/session"
	"github.com/hyperjump/kotae/internal/tui"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path and fills secrets from envFile (".env" when empty).
// When path is the default, config.yaml in the current directory wins if it exists.
// A missing file at the default path yields the defaults. Returns the path that was used.
func loadConfig(path, envFile string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
	}
	var (
		cfg *config.Config
		err error
	)
	if path == defaultConfigPath {
		cfg, err = config.LoadOrDefault(path)
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, "", err
	}
	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}
	if err := config.LoadEnv(cfg, envFiles...); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "chat":
		runChat()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	envFile := fs.String("env", "", "env file with OPENAI_API_KEY (default .env)")
	inbox := fs.String("inbox", "", "directory whose new files each open a session (overrides ingest.inbox_dir)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath, *envFile)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *inbox != "" {
		cfg.Ingest.InboxDir = *inbox
	}
	debugMode := cfg.Debug || *debug
	cfg.Debug = debugMode
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Ingest.InboxDir != "" {
		w := watcher.NewWatcher(cfg.Ingest.InboxDir, extract.SupportedExtensions(), func(path string) {
			openInboxSession(ctx, components.Sessions, path, logger)
		}, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start inbox watcher", zap.Error(err))
		}
		defer w.Stop()
		w.SyncExistingFiles()
		logger.Info("watching inbox", zap.String("dir", w.Dir()))
	}

	srv := server.NewServer(components.Sessions, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// openInboxSession starts a session for a file dropped into the inbox.
func openInboxSession(ctx context.Context, sessions *session.Manager, path string, logger *zap.Logger) {
	sess, err := sessions.Create()
	if err != nil {
		logger.Warn("inbox session failed", zap.String("path", path), zap.Error(err))
		return
	}
	res, err := sess.Upload(ctx, session.Upload{Name: filepath.Base(path), Path: path})
	if err != nil {
		logger.Warn("inbox upload failed", zap.String("path", path), zap.String("session", sess.ID()), zap.Error(err))
		_ = sessions.Close(sess.ID())
		return
	}
	logger.Info("inbox session ready",
		zap.String("session", sess.ID()),
		zap.String("name", res.Name),
		zap.Int("segments", res.Segments))
}

// chatLogger logs to path, or nowhere when path is empty, so the terminal stays clean.
func chatLogger(path string, debug bool) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.OutputPaths = []string{path}
	zcfg.ErrorOutputPaths = []string{path}
	return zcfg.Build()
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	envFile := fs.String("env", "", "env file with OPENAI_API_KEY (default .env)")
	file := fs.String("file", "", "document to upload when the chat starts")
	inbox := fs.String("inbox", "", "directory to watch for the document to upload")
	logFile := fs.String("log-file", "", "write logs to this file")
	debug := fs.Bool("debug", false, "enable debug logging (with --log-file)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := chatLogger(*logFile, cfg.Debug || *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()
	sess, err := components.Sessions.Create()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start session: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts := []tui.Option{tui.WithContext(ctx)}
	if *file != "" {
		opts = append(opts, tui.WithFile(*file))
	}
	dir := *inbox
	if dir == "" {
		dir = cfg.Ingest.InboxDir
	}
	if dir != "" {
		files := make(chan string, 4)
		w := watcher.NewWatcher(dir, extract.SupportedExtensions(), func(path string) {
			select {
			case files <- path:
			default:
				logger.Warn("inbox busy, skipping file", zap.String("path", path))
			}
		}, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to watch %s: %v\n", dir, err)
			os.Exit(1)
		}
		defer w.Stop()
		opts = append(opts, tui.WithInbox(files))
	}

	p := tea.NewProgram(tui.New(sess, opts...), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
		os.Exit(1)
	}
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves flags (and their values) that appear after the question to the
// front so flag.Parse sees them; the flag package stops at the first positional arg.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	envFile := fs.String("env", "", "env file with OPENAI_API_KEY (default .env)")
	file := fs.String("file", "", "document to ask about (required)")
	topK := fs.Int("top-k", 0, "number of segments to retrieve (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: kotae ask --file <document> [flags] <question>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	question := buildQuestion(fs.Args())
	if *file == "" || question == "" {
		fs.Usage()
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := zap.NewNop()
	if cfg.Debug || *debug {
		if logger, err = utils.NewLogger(true); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := ask(ctx, components.Sessions, *file, models.Question{Content: question, TopK: *topK}, os.Stdout, format); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n(%v)\n", session.UserMessage(err), err)
		components.Close()
		os.Exit(1)
	}
}

// ask answers one question about path in a throwaway session.
func ask(ctx context.Context, sessions *session.Manager, path string, q models.Question, w io.Writer, format cli.OutputFormat) error {
	sess, err := sessions.Create()
	if err != nil {
		return err
	}
	defer sessions.Close(sess.ID())

	res, err := sess.Upload(ctx, session.Upload{Name: filepath.Base(path), Path: path})
	if err != nil {
		return err
	}
	ans, err := sess.AskQuestion(ctx, q)
	if err != nil {
		return err
	}
	return cli.WriteAnswer(w, res, ans, format)
}

type statusResponse struct {
	Sessions      int            `json:"sessions"`
	SessionsState map[string]int `json:"sessions_state"`
	UptimeSeconds int            `json:"uptime_seconds"`
	Config        map[string]any `json:"config"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	status, err := statusViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := writeStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func writeStatus(w io.Writer, s *statusResponse, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		return cli.WriteJSON(w, s)
	}
	fmt.Fprintf(w, "sessions:           %d   # open conversations\n", s.Sessions)
	for _, state := range []session.State{session.StateAwaitingUpload, session.StateIngesting, session.StateReady} {
		if n := s.SessionsState[string(state)]; n > 0 {
			fmt.Fprintf(w, "  %-17s %d\n", string(state)+":", n)
		}
	}
	fmt.Fprintf(w, "uptime_seconds:     %d\n", s.UptimeSeconds)
	if len(s.Config) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		keys := make([]string, 0, len(s.Config))
		for k := range s.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v := s.Config[k]; v != nil && v != "" {
				fmt.Fprintf(w, "%-20s%v\n", k+":", v)
			}
		}
	}
	return nil
}

func printUsage() {
	fmt.Println(`kotae - ask questions about a PDF, Word, or Excel document

Usage:
  kotae server [flags]                       Start the HTTP chat API
  kotae chat [flags]                         Chat in the terminal
  kotae ask --file <doc> [flags] <question>  Answer one question and exit
  kotae status [flags]                       Show server status
  kotae version                              Show version
  kotae help                                 Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --env string       Env file holding OPENAI_API_KEY (default: .env)
  --debug            Enable debug logging

Server Flags:
  --inbox string     Open a session for every document dropped into this directory

Chat Flags:
  --file string      Upload this document when the chat starts
  --inbox string     Upload the first document dropped into this directory
  --log-file string  Write logs to this file

Ask Flags:
  --file string      Document to ask about (required)
  --top-k int        Segments to retrieve (default from config, 4)
  --output string    Output format: text or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Examples:
  kotae server
  kotae chat --file report.pdf
  kotae ask --file budget.xlsx "What is the largest expense?"
  kotae ask --output json --file handbook.docx how many vacation days do we get
  kotae status --output json`)
}
