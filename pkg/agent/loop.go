// Package agent drives one user question at a time through the model
// and tool-dispatch loop against an Ollama-hosted model.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/LiteObject/ollama-agent/pkg/config"
	loggerpkg "github.com/LiteObject/ollama-agent/pkg/logger"
	toolspkg "github.com/LiteObject/ollama-agent/pkg/tools"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// previewLimit bounds tool result previews surfaced to the caller.
const previewLimit = 200

// Agent holds the conversation state and dependencies for one session.
// The history is append-only for the lifetime of a question; it only
// shrinks when a transport failure abandons the question entirely.
type Agent struct {
	config config.Config
	client openai.Client
	tools  *toolspkg.Dispatcher

	SystemPrompt string
	history      []openai.ChatCompletionMessageParamUnion

	ctx     context.Context
	logger  loggerpkg.Logger
	verbose bool
}

// ToolCallEvent describes one executed tool call for display.
type ToolCallEvent struct {
	Name          string
	Arguments     string
	ResultPreview string
}

// Event describes one model iteration for display. Thinking text is
// surfaced here only; it is never re-injected into the conversation.
type Event struct {
	Iteration int
	Thinking  string
	Content   string
	ToolCalls []ToolCallEvent
}

// Result is the outcome of one user question.
type Result struct {
	// Content is the final answer, or the best-effort last assistant
	// content when Capped is set.
	Content string
	// Capped reports that the iteration limit was reached before the
	// model produced a plain answer.
	Capped bool
	// Iterations is the number of model invocations spent.
	Iterations int
	Events     []Event
}

// New initializes an Agent with the provided context and configuration.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Agent, error) {
	cfg = config.Normalize(cfg)
	if ctx == nil {
		ctx = context.Background()
	}

	deps := agentDeps{logger: loggerpkg.NopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}

	loggerpkg.Debug(cfg.Verbose, deps.logger, "agent init", map[string]any{
		"model":             cfg.Model,
		"host":              cfg.Host,
		"max_iterations":    cfg.MaxIterations,
		"tool_result_limit": cfg.ToolResultLimit,
		"search_enabled":    cfg.APIKey != "",
	})

	httpClient := deps.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	dispatcher := toolspkg.NewDispatcher(toolspkg.Context{
		HTTPClient:  httpClient,
		APIKey:      cfg.APIKey,
		SearchURL:   cfg.SearchURL,
		ResultLimit: cfg.ToolResultLimit,
		Verbose:     cfg.Verbose,
		Ctx:         ctx,
		Logger:      deps.logger,
	})

	systemPrompt := BuildSystemPrompt()

	return &Agent{
		config:       cfg,
		client:       newOpenAIClient(cfg),
		tools:        dispatcher,
		SystemPrompt: systemPrompt,
		history:      []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)},
		ctx:          ctx,
		logger:       deps.logger,
		verbose:      cfg.Verbose,
	}, nil
}

// newOpenAIClient points the SDK at Ollama's OpenAI-compatible API.
func newOpenAIClient(cfg config.Config) openai.Client {
	opts := []option.RequestOption{
		option.WithBaseURL(cfg.Host + "/v1"),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return openai.NewClient(opts...)
}

// Run processes one user question to completion. The returned Result is
// terminal: either a plain answer or a capped best-effort response. A
// transport error abandons the question, leaving the history as it was
// before the call.
func (a *Agent) Run(userInput string) (Result, error) {
	userInput = strings.TrimSpace(userInput)
	if userInput == "" {
		return Result{}, errors.New("user input is required")
	}

	previousLen := len(a.history)
	a.history = append(a.history, openai.UserMessage(userInput))

	result, err := a.runLoop()
	if err != nil {
		a.history = a.history[:previousLen]
		return Result{}, err
	}
	return result, nil
}

// runLoop repeatedly invokes the model and dispatches tool calls until
// the model answers without requesting tools or the iteration cap hits.
func (a *Agent) runLoop() (Result, error) {
	var result Result
	var lastContent string

	for iteration := 1; iteration <= a.config.MaxIterations; iteration++ {
		a.debugf("[verbose] iteration %d/%d: %d message(s)", iteration, a.config.MaxIterations, len(a.history))

		message, err := a.runOnce(a.newChatParams())
		if err != nil {
			return Result{}, err
		}

		event := Event{
			Iteration: iteration,
			Thinking:  reasoningText(message),
			Content:   message.Content,
		}
		if strings.TrimSpace(message.Content) != "" {
			lastContent = message.Content
		}

		a.history = append(a.history, message.ToParam())

		if len(message.ToolCalls) == 0 {
			result.Events = append(result.Events, event)
			result.Content = message.Content
			result.Iterations = iteration
			return result, nil
		}

		a.debugf("[verbose] iteration %d: assistant requested %d tool call(s)", iteration, len(message.ToolCalls))

		// Tool calls execute strictly in the order the model emitted
		// them, one tool turn appended per call before the next
		// model invocation.
		for _, call := range message.ToolCalls {
			output, err := a.tools.Execute(call)
			if err != nil {
				output = fmt.Sprintf(`{"ok":false,"error":%q}`, err.Error())
			}
			event.ToolCalls = append(event.ToolCalls, ToolCallEvent{
				Name:          call.Function.Name,
				Arguments:     call.Function.Arguments,
				ResultPreview: preview(output),
			})
			a.history = append(a.history, openai.ToolMessage(output, call.ID))
		}
		result.Events = append(result.Events, event)
	}

	result.Capped = true
	result.Content = lastContent
	result.Iterations = a.config.MaxIterations
	return result, nil
}

// runOnce performs one model completion request.
func (a *Agent) runOnce(params openai.ChatCompletionNewParams) (openai.ChatCompletionMessage, error) {
	completion, err := a.client.Chat.Completions.New(a.ctx, params)
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return openai.ChatCompletionMessage{}, errors.New("empty completion choices")
	}
	return completion.Choices[0].Message, nil
}

// Reset clears the conversation, keeping only the system prompt.
func (a *Agent) Reset() {
	a.history = []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(a.SystemPrompt)}
}

func (a *Agent) newChatParams() openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.config.Model),
		Messages: a.history,
		Tools:    a.tools.Definitions(),
	}
	if a.config.ReasoningEffort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(a.config.ReasoningEffort)
	}
	return params
}

func (a *Agent) debugf(format string, args ...any) {
	loggerpkg.Debugf(a.verbose, a.logger, format, args...)
}

// reasoningText extracts the model's visible reasoning. Ollama returns
// it as an extra field on the message, outside the OpenAI schema.
func reasoningText(message openai.ChatCompletionMessage) string {
	for _, key := range []string{"reasoning", "reasoning_content", "thinking"} {
		field, ok := message.JSON.ExtraFields[key]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal([]byte(field.Raw()), &text); err != nil {
			continue
		}
		if text != "" {
			return text
		}
	}
	return ""
}

// preview bounds tool output for display.
func preview(output string) string {
	runes := []rune(output)
	if len(runes) <= previewLimit {
		return output
	}
	return string(runes[:previewLimit]) + "..."
}
