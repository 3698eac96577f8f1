// Package search provides document search over Meilisearch with a
// PostgreSQL fallback.
package search

import (
	"encoding/json"
	"strings"
)

// DocumentRecord is the indexed shape of a document.
type DocumentRecord struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Text            string   `json:"text"`
	Status          string   `json:"status"`
	BoardID         string   `json:"boardId"`
	OwnerID         string   `json:"ownerId"`
	CollaboratorIDs []string `json:"collaboratorIds"`
}

// Query is a caller-scoped search request. UserID restricts results to
// documents the caller owns or collaborates on.
type Query struct {
	Text   string
	UserID string
	Limit  int
	Offset int
}

// Result is a single search hit.
type Result struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Status  string `json:"status"`
	BoardID string `json:"boardId,omitempty"`
}

// Response is the search payload returned to the API.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// PlainText flattens a rich-content tree into the text the index stores.
// The tree is opaque; anything under a "text" key is collected in order.
func PlainText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}
	var node any
	if err := json.Unmarshal(content, &node); err != nil {
		return ""
	}
	var b strings.Builder
	collectText(node, &b)
	return strings.TrimSpace(b.String())
}

func collectText(node any, b *strings.Builder) {
	switch v := node.(type) {
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
		if content, ok := v["content"].([]any); ok {
			for _, child := range content {
				collectText(child, b)
			}
		}
	case []any:
		for _, child := range v {
			collectText(child, b)
		}
	}
}

func snippet(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "…"
}
