package agent

import (
	"net/http"

	loggerpkg "github.com/LiteObject/ollama-agent/pkg/logger"
)

// Option configures optional runtime dependencies for Agent.
type Option func(*agentDeps)

type agentDeps struct {
	logger     loggerpkg.Logger
	httpClient *http.Client
}

// WithLogger injects a logger dependency.
func WithLogger(l loggerpkg.Logger) Option {
	return func(d *agentDeps) {
		d.logger = l
	}
}

// WithHTTPClient overrides the HTTP client used for tool requests.
func WithHTTPClient(c *http.Client) Option {
	return func(d *agentDeps) {
		d.httpClient = c
	}
}
