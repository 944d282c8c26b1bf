package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/kgbridge/internal/api"
	"github.com/mattjoyce/kgbridge/internal/auth"
	"github.com/mattjoyce/kgbridge/internal/config"
	"github.com/mattjoyce/kgbridge/internal/events"
	"github.com/mattjoyce/kgbridge/internal/history"
	"github.com/mattjoyce/kgbridge/internal/lock"
	"github.com/mattjoyce/kgbridge/internal/log"
	"github.com/mattjoyce/kgbridge/internal/storage"
	"github.com/mattjoyce/kgbridge/internal/supervisor"
	"github.com/mattjoyce/kgbridge/internal/tui/watch"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	// --- NOUNS ---
	case "system":
		os.Exit(runSystemNoun(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "agent":
		os.Exit(runAgentNoun(args))
	case "history":
		os.Exit(runHistoryNoun(args))

	case "watch":
		os.Exit(runWatch(args))
	case "version":
		fmt.Printf("kgbridge version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`kgbridge - Supervised bridge to a knowledge-graph agent process

Usage:
  kgbridge <noun> <action> [flags]

Core Resources (Nouns):
  system    Daemon lifecycle and health
  config    System configuration and integrity
  agent     Supervised agent process control
  history   Session and exit records

System Commands:
  system start      Start the daemon in foreground
  system status     Show daemon health

Config Commands:
  config lock       Authorize current state (update integrity hashes)
  config check      Validate syntax, policy, and integrity

Agent Commands:
  agent start       Spawn the agent process
  agent stop        Stop the agent process gracefully
  agent send        Write one line to the agent's stdin
  agent status      Show supervisor state

History Commands:
  history sessions  List recent agent sessions
  history exits <session>  List exits for a session

General:
  watch             Live terminal dashboard
  version           Show version information
  help              Show this help message

Use 'kgbridge <noun> help' for resource-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runSystemNoun(args []string) int {
	if len(args) < 1 || isHelpToken(args[0]) {
		fmt.Print(`System commands:
  kgbridge system start  [--config PATH]   Start the daemon in foreground
  kgbridge system status [--config PATH]   Show daemon health
`)
		if len(args) < 1 {
			return 1
		}
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		return runSystemStart(actionArgs)
	case "status":
		return runSystemStatus(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 || isHelpToken(args[0]) {
		fmt.Print(`Config commands:
  kgbridge config check [--config PATH]   Validate syntax and integrity
  kgbridge config lock  [--config PATH]   Update integrity hashes
`)
		if len(args) < 1 {
			return 1
		}
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		return runConfigCheck(actionArgs)
	case "lock", "hash-update":
		return runConfigLock(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func isHelpToken(s string) bool {
	return s == "help" || s == "--help" || s == "-h"
}

// --- SYSTEM ACTIONS ---

func runSystemStart(args []string) int {
	cfg, configPath, code := loadConfigFromArgs("start", args)
	if cfg == nil {
		return code
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("kgbridge starting", "version", version, "config", configPath)

	pidLock, err := lock.Acquire(cfg.Service.LockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)",
			"path", cfg.Service.LockPath, "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLock.Path())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.State.Path, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.State.Path)

	hist := history.NewStore(db)
	hub := events.NewHub()

	sup := supervisor.New(supervisor.Options{
		Agent:      cfg.Agent,
		Supervisor: cfg.Supervisor,
		Hub:        hub,
		History:    hist,
	})

	// Every child must die with the daemon, whatever the exit path.
	registry := supervisor.NewRegistry()
	registry.Add("agent", sup)
	defer registry.Shutdown()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 2)

	if cfg.API.Enabled {
		tokens := make([]auth.TokenConfig, 0, len(cfg.API.Auth.Tokens))
		for _, t := range cfg.API.Auth.Tokens {
			tokens = append(tokens, auth.TokenConfig{
				Token:  t.Token,
				Scopes: t.Scopes,
			})
		}
		apiConfig := api.Config{
			Listen: cfg.API.Listen,
			APIKey: cfg.API.Auth.APIKey,
			Tokens: tokens,
		}
		apiServer := api.New(apiConfig, sup, hub, hist, log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	}

	if cfg.Agent.Autostart {
		if !sup.Start() {
			logger.Error("agent autostart failed")
		}
	}

	logger.Info("kgbridge running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		registry.Shutdown()
		return 1
	}

	registry.Shutdown()
	logger.Info("kgbridge stopped")
	return 0
}

func runSystemStatus(args []string) int {
	client, code := clientFromArgs("status", args)
	if client == nil {
		return code
	}
	return client.printHealth()
}

// --- CONFIG ACTIONS ---

func runConfigCheck(args []string) int {
	cfg, configPath, code := loadConfigFromArgs("check", args)
	if cfg == nil {
		return code
	}
	fmt.Printf("Config OK: %s\n", configPath)

	locked, err := config.VerifyChecksums(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Integrity check FAILED: %v\n", err)
		return 1
	}
	if locked {
		fmt.Println("Integrity: locked and verified")
	} else {
		fmt.Println("Integrity: not locked (run 'kgbridge config lock' to authorize)")
	}
	return 0
}

func runConfigLock(args []string) int {
	cfg, configPath, code := loadConfigFromArgs("lock", args)
	if cfg == nil {
		return code
	}
	if err := config.WriteChecksums(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write checksums: %v\n", err)
		return 1
	}
	fmt.Printf("Locked: %s\n", configPath)
	return 0
}

// --- WATCH ---

func runWatch(args []string) int {
	client, code := clientFromArgs("watch", args)
	if client == nil {
		return code
	}

	model := watch.New(client.baseURL, client.apiKey)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Watch failed: %v\n", err)
		return 1
	}
	return 0
}
