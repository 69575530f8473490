// web_fetch tool: retrieve a URL and extract its readable text.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/openai/openai-go"
	"golang.org/x/net/html/charset"
)

// maxFetchBytes bounds how much of a response body is read before text
// extraction.
const maxFetchBytes = 5 << 20

const fetchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/124.0.0.0 Safari/537.36"

func fetchDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        string(WebFetch),
			Description: openai.String("Fetch a web page by URL and return its readable text content."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "The absolute http or https URL to fetch.",
					},
				},
				"required": []string{"url"},
			},
		},
	}
}

func (d *Dispatcher) executeFetch(argText string) (string, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(argText), &args); err != nil {
		d.ctx.debugf("[verbose] web_fetch: failed to parse arguments: %v", err)
		return marshalToolResponse(string(WebFetch), nil, fmt.Errorf("parse arguments: %w", err))
	}

	target := strings.TrimSpace(args.URL)
	if target == "" {
		return marshalToolResponse(string(WebFetch), nil, errors.New("url is required"))
	}
	u, err := url.ParseRequestURI(target)
	if err != nil {
		return marshalToolResponse(string(WebFetch), nil, fmt.Errorf("invalid url: %w", err))
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return marshalToolResponse(string(WebFetch), nil, fmt.Errorf("invalid url %q: only absolute http and https URLs are supported", target))
	}

	d.ctx.debugf("[verbose] web_fetch: url=%s", u.String())

	req, err := http.NewRequestWithContext(d.requestCtx(), http.MethodGet, u.String(), nil)
	if err != nil {
		return marshalToolResponse(string(WebFetch), nil, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := d.ctx.HTTPClient.Do(req)
	if err != nil {
		return marshalToolResponse(string(WebFetch), nil, fmt.Errorf("fetch failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return marshalToolResponse(string(WebFetch), nil, fmt.Errorf("fetch failed: %s", resp.Status))
	}

	ctype := resp.Header.Get("Content-Type")
	if ctype != "" &&
		!strings.Contains(ctype, "text/html") &&
		!strings.Contains(ctype, "application/xhtml+xml") &&
		!strings.Contains(ctype, "text/plain") {
		return marshalToolResponse(string(WebFetch), nil, fmt.Errorf("unsupported content-type: %s", ctype))
	}

	var r io.Reader = io.LimitReader(resp.Body, maxFetchBytes)
	if cr, err := charset.NewReader(r, ctype); err == nil {
		r = cr
	}

	var text string
	if strings.Contains(ctype, "text/plain") {
		raw, err := io.ReadAll(r)
		if err != nil {
			return marshalToolResponse(string(WebFetch), nil, fmt.Errorf("read body: %w", err))
		}
		text = strings.TrimSpace(string(raw))
	} else {
		text, err = extractText(r)
		if err != nil {
			return marshalToolResponse(string(WebFetch), nil, fmt.Errorf("extract text: %w", err))
		}
	}

	content, truncated := truncate(text, d.ctx.ResultLimit)
	d.ctx.debugf("[verbose] web_fetch: extracted %d chars, truncated=%v", len(text), truncated)

	result := struct {
		URL       string `json:"url"`
		Truncated bool   `json:"truncated"`
		Content   string `json:"content"`
	}{
		URL:       u.String(),
		Truncated: truncated,
		Content:   content,
	}
	return marshalToolResponse(string(WebFetch), result, nil)
}
