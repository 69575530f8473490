// HTML to plain-text extraction for web_fetch.
package tools

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// skipTags are subtrees that never contribute readable text.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
	"iframe":   true,
	"svg":      true,
	"canvas":   true,
	"template": true,
}

// blockTags force a line break between surrounding text.
var blockTags = map[string]bool{
	"p":       true,
	"div":     true,
	"li":      true,
	"section": true,
	"article": true,
	"h1":      true,
	"h2":      true,
	"h3":      true,
	"h4":      true,
	"h5":      true,
	"h6":      true,
	"header":  true,
	"footer":  true,
	"nav":     true,
	"br":      true,
	"ul":      true,
	"ol":      true,
	"tr":      true,
	"table":   true,
}

// extractText tokenizes HTML and returns its readable text with
// collapsed whitespace and block-level line breaks.
func extractText(r io.Reader) (string, error) {
	tokenizer := html.NewTokenizer(r)

	skipDepth := 0
	var text strings.Builder

	breakLine := func() {
		s := text.String()
		if len(s) > 0 && s[len(s)-1] != '\n' {
			text.WriteByte('\n')
		}
	}

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			if tokenizer.Err() == io.EOF {
				break
			}
			return "", fmt.Errorf("tokenize html: %w", tokenizer.Err())
		}

		switch tt {
		case html.StartTagToken, html.EndTagToken:
			token := tokenizer.Token()
			name := strings.ToLower(token.Data)
			if skipTags[name] {
				if tt == html.StartTagToken {
					skipDepth++
				} else if skipDepth > 0 {
					skipDepth--
				}
			}
			if blockTags[name] {
				breakLine()
			}
		case html.SelfClosingTagToken:
			token := tokenizer.Token()
			if blockTags[strings.ToLower(token.Data)] {
				breakLine()
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			fields := bytes.Fields(tokenizer.Text())
			if len(fields) == 0 {
				continue
			}
			if s := text.String(); len(s) > 0 && s[len(s)-1] != '\n' {
				text.WriteByte(' ')
			}
			text.Write(bytes.Join(fields, []byte(" ")))
		}
	}

	out := strings.TrimSpace(text.String())
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return out, nil
}
