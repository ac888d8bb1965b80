// Package generation produces marketing copy through an LLM backend.
// The Generator interface keeps the orchestrator independent of the
// concrete provider; responses are cached on disk keyed by prompt.
package generation

import "context"

// Request carries everything a single copy-generation call needs. The
// guideline context is the retriever's formatted snippet block and may
// be empty when no index is available.
type Request struct {
	CampaignName     string
	Brand            string
	Objective        string
	Audience         string
	GuidelineContext string
}

// Generator produces marketing copy for a campaign request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
