package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/n0madic/go-ollama-claude/internal/config"
	"github.com/n0madic/go-ollama-claude/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: go-ollama-claude <command> [flags]")
		fmt.Fprintln(os.Stderr, "Commands: serve, check, version")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		os.Exit(cmdServe())
	case "check":
		os.Exit(cmdCheck())
	case "version":
		fmt.Println(config.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Commands: serve, check, version")
		os.Exit(1)
	}
}

func cmdServe() int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg := config.DefaultFromEnv()

	fs.StringVar(&cfg.Host, "host", cfg.Host, "Bind host")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Listen port")
	fs.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "Require this Bearer token on /api routes")
	fs.IntVar(&cfg.DefaultMaxTurns, "max-turns", cfg.DefaultMaxTurns, "Agent turn budget per request")
	fs.StringVar(&cfg.ClaudeBinary, "claude-bin", cfg.ClaudeBinary, "Path to the claude CLI binary")
	fs.StringVar(&cfg.WorkDir, "workdir", cfg.WorkDir, "Working directory for CLI invocations")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose logging")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	fs.Parse(os.Args[2:])

	if cfg.Debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	srv := server.New(cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	slog.Info("Ollama-Claude bridge starting",
		"host", cfg.Host,
		"port", cfg.Port,
		"models", len(cfg.Models),
		"binary", cfg.ClaudeBinary,
	)
	if err := srv.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
		slog.Error("server error", "error", err)
		return 1
	}
	return 0
}

// cmdCheck verifies that the claude CLI is reachable before anyone points a
// client at the bridge.
func cmdCheck() int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	cfg := config.DefaultFromEnv()
	fs.StringVar(&cfg.ClaudeBinary, "claude-bin", cfg.ClaudeBinary, "Path to the claude CLI binary")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, cfg.ClaudeBinary, "--version").CombinedOutput()
	if err != nil {
		slog.Error("claude CLI is not usable", "binary", cfg.ClaudeBinary, "error", err)
		if len(out) > 0 {
			fmt.Fprintln(os.Stderr, strings.TrimSpace(string(out)))
		}
		return 1
	}
	fmt.Printf("claude CLI found: %s\n", strings.TrimSpace(string(out)))
	fmt.Printf("models served: %s\n", strings.Join(cfg.Models, ", "))
	return 0
}
