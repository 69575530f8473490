// Package main provides the interactive Ollama web-research agent CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/LiteObject/ollama-agent/pkg/agent"
	configpkg "github.com/LiteObject/ollama-agent/pkg/config"
	loggerpkg "github.com/LiteObject/ollama-agent/pkg/logger"
)

func main() {
	cfg, err := parseCLIConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	appLogger := loggerpkg.NewWriterLogger(os.Stderr)
	app, err := agent.New(context.Background(), cfg, agent.WithLogger(appLogger))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := runREPL(app, replOptions{
		SearchEnabled: cfg.APIKey != "",
		MaxIterations: cfg.MaxIterations,
	}, os.Stdin, os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseCLIConfig resolves env + file configuration, then applies flags,
// which carry explicit user intent and win over everything.
func parseCLIConfig() (configpkg.Config, error) {
	cfg, err := configpkg.Load()
	if err != nil {
		return configpkg.Config{}, err
	}

	model := flag.String("model", cfg.Model, "Ollama model to chat with")
	host := flag.String("host", cfg.Host, "Ollama base URL")
	maxIterations := flag.Int("max_iterations", cfg.MaxIterations, "Max model invocations per question")
	reasoning := flag.String("reasoning", cfg.ReasoningEffort, "Reasoning effort (low, medium, high; empty to disable)")
	verbose := flag.Bool("verbose", cfg.Verbose, "Verbose request/tool logging")
	flag.Parse()

	cfg.Model = *model
	cfg.Host = *host
	cfg.MaxIterations = *maxIterations
	cfg.ReasoningEffort = *reasoning
	cfg.Verbose = *verbose
	return configpkg.Normalize(cfg), nil
}
