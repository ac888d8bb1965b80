// Package retrieval exposes the guideline retriever: a thin query
// facade over the embedding index that produces consistently formatted
// snippets for the generation agents.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"brandstudio/internal/index"
	"brandstudio/internal/logging"
)

// DefaultTopK is the number of snippets retrieved when the caller does
// not ask for a specific count.
const DefaultTopK = 3

// Snippet is one retrieved guideline fragment.
type Snippet struct {
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
	Rank      int     `json:"rank"`
}

// Retriever wraps an index for query-facing consumers.
type Retriever struct {
	index *index.Index
	topK  int
}

// New creates a retriever. topK <= 0 falls back to DefaultTopK.
func New(ix *index.Index, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{index: ix, topK: topK}
}

// Retrieve returns up to k ranked snippets for the query. k <= 0 uses
// the retriever's default. The query is passed to the embedding model
// unmodified, including the degenerate empty string; whatever the model
// does with it is what the caller gets.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Snippet, error) {
	if k <= 0 {
		k = r.topK
	}

	results, err := r.index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("guideline search: %w", err)
	}

	snippets := make([]Snippet, len(results))
	for i, res := range results {
		snippets[i] = Snippet{Text: res.Text, Relevance: res.Relevance, Rank: res.Rank}
	}

	logging.Retrieval("retrieved %d snippets for query (len=%d)", len(snippets), len(query))
	return snippets, nil
}

// FormatSnippets renders snippets as the agent-facing context block.
func FormatSnippets(snippets []Snippet) string {
	if len(snippets) == 0 {
		return "No relevant brand guideline information found."
	}

	var b strings.Builder
	b.WriteString("Brand Guideline Information:\n\n")
	for _, s := range snippets {
		fmt.Fprintf(&b, "[Result %d - Relevance: %.2f%%]\n", s.Rank, s.Relevance*100)
		b.WriteString(s.Text)
		b.WriteString("\n\n")
		b.WriteString(strings.Repeat("-", 60))
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
