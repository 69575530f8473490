// web_search tool backed by Ollama's hosted search API.
package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
)

// defaultMaxSearchResults bounds how many results one query returns.
const defaultMaxSearchResults = 5

const missingKeyHelp = "web search is disabled: no API key is configured. " +
	"Create a key at https://ollama.com/settings/keys and set OLLAMA_API_KEY " +
	"in the environment or the .env file, then restart the agent."

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

func searchDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        string(WebSearch),
			Description: openai.String("Search the web and return the most relevant results with title, URL, and content."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The search query.",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

func (d *Dispatcher) executeSearch(argText string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(argText), &args); err != nil {
		d.ctx.debugf("[verbose] web_search: failed to parse arguments: %v", err)
		return marshalToolResponse(string(WebSearch), nil, fmt.Errorf("parse arguments: %w", err))
	}

	query := strings.TrimSpace(args.Query)
	if query == "" {
		return marshalToolResponse(string(WebSearch), nil, errors.New("query is required"))
	}
	if d.ctx.APIKey == "" {
		return marshalToolResponse(string(WebSearch), nil, errors.New(missingKeyHelp))
	}

	d.ctx.debugf("[verbose] web_search: query=%q", query)

	body, err := json.Marshal(searchRequest{Query: query, MaxResults: defaultMaxSearchResults})
	if err != nil {
		return marshalToolResponse(string(WebSearch), nil, err)
	}

	req, err := http.NewRequestWithContext(d.requestCtx(), http.MethodPost, d.ctx.SearchURL, bytes.NewReader(body))
	if err != nil {
		return marshalToolResponse(string(WebSearch), nil, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+d.ctx.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.ctx.HTTPClient.Do(req)
	if err != nil {
		return marshalToolResponse(string(WebSearch), nil, fmt.Errorf("search request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return marshalToolResponse(string(WebSearch), nil, fmt.Errorf("search authentication failed (%s): check OLLAMA_API_KEY", resp.Status))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return marshalToolResponse(string(WebSearch), nil, fmt.Errorf("search request failed: %s", resp.Status))
	}

	var decoded searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 5<<20)).Decode(&decoded); err != nil {
		return marshalToolResponse(string(WebSearch), nil, fmt.Errorf("decode search response: %w", err))
	}

	content, truncated := truncate(renderSearchResults(query, decoded.Results), d.ctx.ResultLimit)
	d.ctx.debugf("[verbose] web_search: %d result(s), truncated=%v", len(decoded.Results), truncated)

	result := struct {
		Query     string `json:"query"`
		Results   int    `json:"results"`
		Truncated bool   `json:"truncated"`
		Content   string `json:"content"`
	}{
		Query:     query,
		Results:   len(decoded.Results),
		Truncated: truncated,
		Content:   content,
	}
	return marshalToolResponse(string(WebSearch), result, nil)
}

// renderSearchResults formats results as a numbered text block for the
// model to read.
func renderSearchResults(query string, results []searchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for %q.", query)
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, strings.TrimSpace(r.Title))
		if r.URL != "" {
			fmt.Fprintf(&sb, "   %s\n", r.URL)
		}
		if content := strings.TrimSpace(r.Content); content != "" {
			fmt.Fprintf(&sb, "   %s\n", content)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}
