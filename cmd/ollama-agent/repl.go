package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/LiteObject/ollama-agent/pkg/agent"
)

// questionRunner is the loop surface the REPL drives.
type questionRunner interface {
	Run(input string) (agent.Result, error)
	Reset()
}

// replOptions configures REPL behavior.
type replOptions struct {
	SearchEnabled bool
	MaxIterations int
}

// runREPL starts an interactive session, resolving one question at a
// time until quit/exit or end of input.
func runREPL(app questionRunner, opts replOptions, in io.Reader, out io.Writer) error {
	if app == nil {
		return fmt.Errorf("agent is required")
	}
	if in == nil {
		return fmt.Errorf("input reader is required")
	}
	if out == nil {
		out = io.Discard
	}

	scanner := bufio.NewScanner(in)
	printWelcome(out, opts)

	for {
		_, _ = fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if isQuit(input) {
			_, _ = fmt.Fprintln(out, "Goodbye!")
			break
		}
		if strings.HasPrefix(input, "/") {
			handled, shouldQuit := handleCommand(input, app, out)
			if shouldQuit {
				break
			}
			if handled {
				continue
			}
		}

		result, err := app.Run(input)
		if err != nil {
			_, _ = fmt.Fprintf(out, "Error: %v\n", err)
			_, _ = fmt.Fprintln(out, "Check that Ollama is running (`ollama serve`) and the model is pulled.")
			_, _ = fmt.Fprintln(out)
			continue
		}

		printResult(out, result, opts)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// isQuit recognizes bare quit/exit input, case-insensitively.
func isQuit(input string) bool {
	switch strings.ToLower(input) {
	case "quit", "exit":
		return true
	}
	return false
}

// printResult echoes iteration progress, tool activity, and the answer.
func printResult(out io.Writer, result agent.Result, opts replOptions) {
	multi := len(result.Events) > 1
	for _, ev := range result.Events {
		if multi {
			_, _ = fmt.Fprintf(out, "--- Iteration %d/%d ---\n", ev.Iteration, opts.MaxIterations)
		}
		if ev.Thinking != "" {
			_, _ = fmt.Fprintf(out, "Thinking: %s\n", ev.Thinking)
		}
		// Intermediate assistant content accompanies tool calls; the
		// final answer is printed once below.
		if len(ev.ToolCalls) > 0 && ev.Content != "" {
			_, _ = fmt.Fprintln(out, ev.Content)
		}
		for _, tc := range ev.ToolCalls {
			_, _ = fmt.Fprintf(out, "Tool call: %s %s\n", tc.Name, tc.Arguments)
			_, _ = fmt.Fprintf(out, "  Result: %s\n", tc.ResultPreview)
		}
	}

	if result.Capped {
		_, _ = fmt.Fprintf(out, "Reached the iteration limit (%d) without a final answer; showing the last response.\n", result.Iterations)
	}
	if result.Content != "" {
		_, _ = fmt.Fprintln(out, result.Content)
	}
	_, _ = fmt.Fprintln(out)
}

func printWelcome(out io.Writer, opts replOptions) {
	_, _ = fmt.Fprintln(out, "=== Ollama Agent with Web Search ===")
	if !opts.SearchEnabled {
		_, _ = fmt.Fprintln(out, "Note: OLLAMA_API_KEY is not set, so web_search is disabled.")
	}
	_, _ = fmt.Fprintln(out, "Type your question and press Enter. Commands:")
	_, _ = fmt.Fprintln(out, "  /help  - Show this help message")
	_, _ = fmt.Fprintln(out, "  /clear - Clear conversation history")
	_, _ = fmt.Fprintln(out, "  quit   - Exit the program (also: exit, /quit, /exit)")
	_, _ = fmt.Fprintln(out)
}

func handleCommand(input string, app questionRunner, out io.Writer) (bool, bool) {
	cmd := strings.ToLower(input)
	switch cmd {
	case "/help", "/h":
		printHelp(out)
		return true, false
	case "/clear", "/c":
		app.Reset()
		_, _ = fmt.Fprintln(out, "Conversation history cleared.")
		_, _ = fmt.Fprintln(out)
		return true, false
	case "/quit", "/exit", "/q":
		_, _ = fmt.Fprintln(out, "Goodbye!")
		return true, true
	default:
		_, _ = fmt.Fprintf(out, "Unknown command: %s. Type /help for available commands.\n\n", input)
		return true, false
	}
}

func printHelp(out io.Writer) {
	_, _ = fmt.Fprintln(out, "Commands:")
	_, _ = fmt.Fprintln(out, "  /help  - Show this help message")
	_, _ = fmt.Fprintln(out, "  /clear - Clear conversation history")
	_, _ = fmt.Fprintln(out, "  quit   - Exit the program (also: exit, /quit, /exit)")
	_, _ = fmt.Fprintln(out)
}
