// Tests for tool dispatch and the web tools.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/openai/openai-go"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func stubResponse(t *testing.T, statusCode int, header map[string]string, body string) *http.Response {
	t.Helper()
	h := make(http.Header, len(header))
	for k, v := range header {
		h.Set(k, v)
	}
	return &http.Response{
		StatusCode: statusCode,
		Status:     fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestDispatcher(rt http.RoundTripper, mutate func(*Context)) *Dispatcher {
	ctx := Context{
		HTTPClient: &http.Client{Transport: rt},
		APIKey:     "test-key",
		SearchURL:  "https://search.test/api/web_search",
	}
	if mutate != nil {
		mutate(&ctx)
	}
	return NewDispatcher(ctx)
}

func makeCall(name, args string) openai.ChatCompletionMessageToolCall {
	return openai.ChatCompletionMessageToolCall{
		ID: "call_1",
		Function: openai.ChatCompletionMessageToolCallFunction{
			Name:      name,
			Arguments: args,
		},
	}
}

// parsedResponse mirrors the JSON wrapper appended as a tool turn.
type parsedResponse struct {
	OK   bool            `json:"ok"`
	Tool string          `json:"tool"`
	Data json.RawMessage `json:"data"`
	Err  string          `json:"error"`
}

func execute(t *testing.T, d *Dispatcher, name, args string) parsedResponse {
	t.Helper()
	payload, err := d.Execute(makeCall(name, args))
	if err != nil {
		t.Fatalf("execute %s: %v", name, err)
	}
	var resp parsedResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func TestExecuteUnknownTool(t *testing.T) {
	d := newTestDispatcher(nil, nil)
	resp := execute(t, d, "telepathy", `{}`)
	if resp.OK {
		t.Fatal("expected failure for unknown tool")
	}
	if !strings.Contains(resp.Err, "telepathy") {
		t.Fatalf("error should name the unknown tool: %q", resp.Err)
	}
}

func TestWebSearchMissingKey(t *testing.T) {
	d := newTestDispatcher(nil, func(c *Context) { c.APIKey = "" })
	resp := execute(t, d, string(WebSearch), `{"query":"latest go release"}`)
	if resp.OK {
		t.Fatal("expected failure without API key")
	}
	if !strings.Contains(resp.Err, "OLLAMA_API_KEY") {
		t.Fatalf("error should explain how to set the key: %q", resp.Err)
	}
}

func TestWebSearchEmptyQuery(t *testing.T) {
	d := newTestDispatcher(nil, nil)
	resp := execute(t, d, string(WebSearch), `{"query":"  "}`)
	if resp.OK || !strings.Contains(resp.Err, "query") {
		t.Fatalf("expected query-required failure, got ok=%v err=%q", resp.OK, resp.Err)
	}
}

func TestWebSearchSuccess(t *testing.T) {
	var gotAuth, gotQuery string
	rt := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		gotAuth = r.Header.Get("Authorization")
		var req searchRequest
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode search request: %v", err)
		}
		gotQuery = req.Query
		resp := stubResponse(t, http.StatusOK, map[string]string{"Content-Type": "application/json"},
			`{"results":[
				{"title":"Go 1.25 Release Notes","url":"https://go.dev/doc/go1.25","content":"Go 1.25 adds ..."},
				{"title":"The Go Blog","url":"https://go.dev/blog","content":"Announcements"}
			]}`)
		resp.Request = r
		return resp, nil
	})

	d := newTestDispatcher(rt, nil)
	resp := execute(t, d, string(WebSearch), `{"query":"go 1.25"}`)
	if !resp.OK {
		t.Fatalf("search failed: %s", resp.Err)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotQuery != "go 1.25" {
		t.Fatalf("unexpected query: %q", gotQuery)
	}

	var data struct {
		Query     string `json:"query"`
		Results   int    `json:"results"`
		Truncated bool   `json:"truncated"`
		Content   string `json:"content"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Results != 2 {
		t.Fatalf("expected 2 results, got %d", data.Results)
	}
	for _, want := range []string{"1. Go 1.25 Release Notes", "https://go.dev/doc/go1.25", "2. The Go Blog"} {
		if !strings.Contains(data.Content, want) {
			t.Fatalf("content missing %q:\n%s", want, data.Content)
		}
	}
}

func TestWebSearchAuthFailure(t *testing.T) {
	rt := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return stubResponse(t, http.StatusUnauthorized, nil, `{}`), nil
	})
	d := newTestDispatcher(rt, nil)
	resp := execute(t, d, string(WebSearch), `{"query":"anything"}`)
	if resp.OK || !strings.Contains(resp.Err, "authentication") {
		t.Fatalf("expected auth failure, got ok=%v err=%q", resp.OK, resp.Err)
	}
}

func TestWebSearchTruncatesContent(t *testing.T) {
	long := strings.Repeat("x", 500)
	rt := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		body := fmt.Sprintf(`{"results":[{"title":"t","url":"https://a.test","content":"%s"}]}`, long)
		return stubResponse(t, http.StatusOK, nil, body), nil
	})
	d := newTestDispatcher(rt, func(c *Context) { c.ResultLimit = 100 })
	resp := execute(t, d, string(WebSearch), `{"query":"q"}`)
	if !resp.OK {
		t.Fatalf("search failed: %s", resp.Err)
	}
	var data struct {
		Truncated bool   `json:"truncated"`
		Content   string `json:"content"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if !data.Truncated {
		t.Fatal("expected truncation")
	}
	if len(data.Content) != 100 {
		t.Fatalf("expected exactly 100 chars, got %d", len(data.Content))
	}
	if !strings.HasSuffix(data.Content, truncationMarker) {
		t.Fatalf("missing truncation marker: %q", data.Content[len(data.Content)-30:])
	}
}

func TestWebFetchExtractsText(t *testing.T) {
	rt := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		body := "<html><head><script>var x=1;</script></head><body>" +
			"<h1>Hello World</h1>" +
			"<p>This is some text</p>" +
			"</body></html>"
		return stubResponse(t, http.StatusOK, map[string]string{"Content-Type": "text/html; charset=utf-8"}, body), nil
	})
	d := newTestDispatcher(rt, nil)
	resp := execute(t, d, string(WebFetch), `{"url":"https://example.test/page"}`)
	if !resp.OK {
		t.Fatalf("fetch failed: %s", resp.Err)
	}
	var data struct {
		URL     string `json:"url"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Content != "Hello World\nThis is some text" {
		t.Fatalf("unexpected content: %q", data.Content)
	}
	if strings.Contains(data.Content, "var x=1") {
		t.Fatal("script content leaked into extracted text")
	}
}

func TestWebFetchPlainText(t *testing.T) {
	rt := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return stubResponse(t, http.StatusOK, map[string]string{"Content-Type": "text/plain"}, "just text\n"), nil
	})
	d := newTestDispatcher(rt, nil)
	resp := execute(t, d, string(WebFetch), `{"url":"https://example.test/robots.txt"}`)
	if !resp.OK {
		t.Fatalf("fetch failed: %s", resp.Err)
	}
	var data struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Content != "just text" {
		t.Fatalf("unexpected content: %q", data.Content)
	}
}

func TestWebFetchRejectsInvalidURL(t *testing.T) {
	d := newTestDispatcher(nil, nil)
	for _, bad := range []string{"not a url", "ftp://files.test/doc", "/relative/path", ""} {
		resp := execute(t, d, string(WebFetch), fmt.Sprintf(`{"url":%q}`, bad))
		if resp.OK {
			t.Fatalf("expected failure for url %q", bad)
		}
	}
}

func TestWebFetchBadStatus(t *testing.T) {
	rt := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return stubResponse(t, http.StatusNotFound, nil, "nope"), nil
	})
	d := newTestDispatcher(rt, nil)
	resp := execute(t, d, string(WebFetch), `{"url":"https://example.test/missing"}`)
	if resp.OK || !strings.Contains(resp.Err, "404") {
		t.Fatalf("expected 404 failure, got ok=%v err=%q", resp.OK, resp.Err)
	}
}

func TestWebFetchTransportError(t *testing.T) {
	rt := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	d := newTestDispatcher(rt, nil)
	resp := execute(t, d, string(WebFetch), `{"url":"https://unreachable.test"}`)
	if resp.OK {
		t.Fatal("expected failure on transport error")
	}
	if !strings.Contains(resp.Err, "connection refused") {
		t.Fatalf("error should summarize the network failure: %q", resp.Err)
	}
}

func TestWebFetchUnsupportedContentType(t *testing.T) {
	rt := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return stubResponse(t, http.StatusOK, map[string]string{"Content-Type": "image/png"}, "\x89PNG"), nil
	})
	d := newTestDispatcher(rt, nil)
	resp := execute(t, d, string(WebFetch), `{"url":"https://example.test/logo.png"}`)
	if resp.OK || !strings.Contains(resp.Err, "content-type") {
		t.Fatalf("expected content-type failure, got ok=%v err=%q", resp.OK, resp.Err)
	}
}

func TestTruncateIsDeterministic(t *testing.T) {
	text := strings.Repeat("ab", 50)
	first, cut1 := truncate(text, 20)
	second, cut2 := truncate(text, 20)
	if first != second || cut1 != cut2 {
		t.Fatal("truncation must be deterministic")
	}
	if !cut1 || first != "ababa"+truncationMarker {
		t.Fatalf("unexpected truncation: %q", first)
	}

	short, cut := truncate("abc", 10)
	if cut || short != "abc" {
		t.Fatalf("short text must pass through, got %q (cut=%v)", short, cut)
	}
}

func TestTruncateNeverExceedsCeiling(t *testing.T) {
	got, cut := truncate(strings.Repeat("x", 9000), DefaultResultLimit)
	if !cut {
		t.Fatal("expected truncation")
	}
	if n := len([]rune(got)); n != DefaultResultLimit {
		t.Fatalf("expected exactly %d chars, got %d", DefaultResultLimit, n)
	}
	if !strings.HasSuffix(got, truncationMarker) {
		t.Fatal("missing truncation marker")
	}

	// A limit too small to hold the marker still bounds the output.
	tiny, cut := truncate("abcdefghij", 5)
	if !cut || tiny != "abcde" {
		t.Fatalf("unexpected tiny-limit truncation: %q (cut=%v)", tiny, cut)
	}
}
