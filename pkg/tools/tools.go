// Package tools implements the web_search and web_fetch tools the model
// may call during a conversation. Tool failures never escape as errors;
// they are normalized into the JSON response re-injected as a tool turn.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	loggerpkg "github.com/LiteObject/ollama-agent/pkg/logger"
	"github.com/openai/openai-go"
)

// Name identifies a tool. The set is closed: dispatch is an exhaustive
// switch, so adding a tool is a compile-time-visible change.
type Name string

const (
	WebSearch Name = "web_search"
	WebFetch  Name = "web_fetch"
)

// DefaultResultLimit caps tool result text re-injected into the
// conversation, protecting the model's context window.
const DefaultResultLimit = 8000

const truncationMarker = "... [truncated]"

// Context provides shared dependencies for tool execution.
type Context struct {
	// HTTPClient performs search and fetch requests. Tests inject a
	// stubbed client here.
	HTTPClient *http.Client
	// APIKey authenticates web_search. Empty yields an instructional
	// failure result instead of a request.
	APIKey string
	// SearchURL is the hosted web search endpoint.
	SearchURL string
	// ResultLimit caps result text length in characters.
	ResultLimit int
	Verbose     bool
	Ctx         context.Context
	Logger      loggerpkg.Logger
}

func (c Context) debugf(format string, args ...any) {
	loggerpkg.Debugf(c.Verbose, c.Logger, format, args...)
}

// Dispatcher translates tool calls into tool responses.
type Dispatcher struct {
	ctx    Context
	params []openai.ChatCompletionToolParam
}

// toolResponse is the wrapper sent back to the model after execution.
type toolResponse struct {
	OK   bool        `json:"ok"`
	Tool string      `json:"tool,omitempty"`
	Data interface{} `json:"data,omitempty"`
	Err  string      `json:"error,omitempty"`
}

// NewDispatcher builds a dispatcher for the fixed tool set.
func NewDispatcher(ctx Context) *Dispatcher {
	if ctx.Logger == nil {
		ctx.Logger = loggerpkg.NopLogger{}
	}
	if ctx.HTTPClient == nil {
		ctx.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if ctx.ResultLimit <= 0 {
		ctx.ResultLimit = DefaultResultLimit
	}
	return &Dispatcher{
		ctx:    ctx,
		params: []openai.ChatCompletionToolParam{searchDefinition(), fetchDefinition()},
	}
}

// Definitions returns the tool schema advertised to the model.
func (d *Dispatcher) Definitions() []openai.ChatCompletionToolParam {
	return d.params
}

// Execute runs one tool call and returns the JSON payload to append as a
// tool turn. The error return is reserved for marshaling failures; tool
// problems (auth, network, bad arguments, unknown name) come back inside
// the payload with ok=false.
func (d *Dispatcher) Execute(call openai.ChatCompletionMessageToolCall) (string, error) {
	if d.ctx.Ctx != nil {
		select {
		case <-d.ctx.Ctx.Done():
			return marshalToolResponse(call.Function.Name, nil, d.ctx.Ctx.Err())
		default:
		}
	}

	d.ctx.debugf("[verbose] executing tool: %s", call.Function.Name)

	switch Name(call.Function.Name) {
	case WebSearch:
		return d.executeSearch(call.Function.Arguments)
	case WebFetch:
		return d.executeFetch(call.Function.Arguments)
	default:
		return marshalToolResponse(call.Function.Name, nil, fmt.Errorf("unknown tool: %s", call.Function.Name))
	}
}

// requestCtx is the context applied to outbound tool requests.
func (d *Dispatcher) requestCtx() context.Context {
	if d.ctx.Ctx != nil {
		return d.ctx.Ctx
	}
	return context.Background()
}

// marshalToolResponse encodes a tool response as JSON.
func marshalToolResponse(toolName string, data interface{}, err error) (string, error) {
	resp := toolResponse{
		OK:   err == nil,
		Tool: toolName,
		Data: data,
	}
	if err != nil {
		resp.Err = err.Error()
	}
	payload, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		return "", marshalErr
	}
	return string(payload), nil
}

// truncate bounds text to at most limit characters, ending in a marker
// when anything was cut. The marker counts against the limit so the
// result never exceeds the ceiling. Counting is by runes so a
// multi-byte character is never split.
func truncate(text string, limit int) (string, bool) {
	if limit <= 0 {
		return text, false
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text, false
	}
	marker := []rune(truncationMarker)
	if limit <= len(marker) {
		return string(runes[:limit]), true
	}
	return string(runes[:limit-len(marker)]) + truncationMarker, true
}
