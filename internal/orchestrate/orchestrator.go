// Package orchestrate runs the full campaign pipeline: guideline
// retrieval feeds the generator, the validator judges each draft, and
// the regeneration controller retries rejected drafts with escalating
// corrective emphasis. Every stage leaves an audit trail in the store.
package orchestrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"brandstudio/internal/generation"
	"brandstudio/internal/logging"
	"brandstudio/internal/regen"
	"brandstudio/internal/retrieval"
	"brandstudio/internal/store"
	"brandstudio/internal/validator"
)

// CampaignResult is the terminal outcome of one orchestrated run.
type CampaignResult struct {
	CampaignID string           `json:"campaign_id"`
	Status     string           `json:"status"`
	Attempts   int              `json:"attempts"`
	Content    string           `json:"content"`
	ImageURL   string           `json:"image_url,omitempty"`
	Validation validator.Result `json:"validation"`
	Feedback   []string         `json:"feedback"`
}

// Orchestrator coordinates one campaign run end to end.
type Orchestrator struct {
	retriever  *retrieval.Retriever
	generator  generation.Generator
	validator  *validator.Validator
	controller *regen.Controller
	store      *store.Store
	imageGen   generation.ImageGenerator
}

// New creates an orchestrator. retriever may be nil when no guideline
// index is available; generation then runs without brand context.
// st may be nil to skip persistence (CLI one-shot runs).
func New(r *retrieval.Retriever, g generation.Generator, v *validator.Validator, c *regen.Controller, st *store.Store) *Orchestrator {
	return &Orchestrator{retriever: r, generator: g, validator: v, controller: c, store: st}
}

// SetImageGenerator enables the visual-asset stage. When set, an
// approved campaign also gets one generated image, persisted alongside
// the text. Image failures never fail the run; the copy is the product,
// the visual is best-effort.
func (o *Orchestrator) SetImageGenerator(ig generation.ImageGenerator) {
	o.imageGen = ig
}

// Run executes the pipeline for a stored campaign. The campaign must
// already exist when a store is configured.
func (o *Orchestrator) Run(ctx context.Context, campaignID string, in regen.Inputs, maxAttempts int) (*CampaignResult, error) {
	logging.Regen("orchestrating campaign %q (max attempts %d)", in.CampaignName, maxAttempts)

	guidelineContext := o.retrieveContext(ctx, in)

	var lastValidation validator.Result
	generate := func(ctx context.Context, current regen.Inputs, attempt int) (string, error) {
		started := time.Now()

		content, err := o.generator.Generate(ctx, generation.Request{
			CampaignName:     current.CampaignName,
			Brand:            current.Brand,
			Objective:        current.Objective,
			Audience:         current.Audience,
			GuidelineContext: guidelineContext,
		})
		if err != nil {
			o.recordRun(ctx, campaignID, "writer", current.Objective, err.Error(), started, "error")
			return "", err
		}
		o.recordRun(ctx, campaignID, "writer", current.Objective, summarize(content), started, "ok")

		result := o.validator.Validate(content)
		lastValidation = result
		o.persistAttempt(ctx, campaignID, content, current.Objective, result, attempt)

		return content + "\n\n" + verdictBlock(result), nil
	}

	outcome, err := o.controller.Run(ctx, generate, in, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("campaign %q: %w", in.CampaignName, err)
	}

	result := &CampaignResult{
		CampaignID: campaignID,
		Status:     outcome.Status,
		Attempts:   outcome.Attempts,
		Content:    stripVerdict(outcome.Result),
		Validation: lastValidation,
		Feedback:   outcome.Feedback,
	}

	if outcome.Status == regen.StatusApproved {
		result.ImageURL = o.generateImage(ctx, campaignID, in)
	}
	return result, nil
}

// generateImage runs the optional visual-asset stage for an approved
// campaign. Returns the image URL, or "" when no generator is set or
// generation failed.
func (o *Orchestrator) generateImage(ctx context.Context, campaignID string, in regen.Inputs) string {
	if o.imageGen == nil {
		return ""
	}

	started := time.Now()
	prompt := generation.BuildImagePrompt(generation.Request{
		CampaignName: in.CampaignName,
		Brand:        in.Brand,
		Objective:    in.Objective,
	})

	url, err := o.imageGen.GenerateImage(ctx, prompt)
	if err != nil {
		logging.Generation("WARN: image generation failed for campaign %q: %v", in.CampaignName, err)
		o.recordRun(ctx, campaignID, "image_gen", prompt, err.Error(), started, "error")
		return ""
	}
	o.recordRun(ctx, campaignID, "image_gen", prompt, url, started, "ok")

	if o.store != nil && campaignID != "" {
		ic := &store.ImageContent{
			CampaignID:        campaignID,
			GeneratedImageURL: url,
			PromptUsed:        prompt,
			AgentName:         "image_gen",
			ValidationStatus:  "approved",
		}
		if err := o.store.SaveImageContent(ctx, ic); err != nil {
			logging.Store("WARN: failed to persist image content: %v", err)
		}
	}
	return url
}

// retrieveContext queries the guideline index for the campaign's
// objective. Retrieval failures degrade to contextless generation
// rather than failing the run.
func (o *Orchestrator) retrieveContext(ctx context.Context, in regen.Inputs) string {
	if o.retriever == nil {
		return ""
	}

	query := fmt.Sprintf("Brand voice and messaging guidelines for %s: %s", in.Brand, in.Objective)
	snippets, err := o.retriever.Retrieve(ctx, query, 0)
	if err != nil {
		logging.Retrieval("WARN: guideline retrieval failed, generating without context: %v", err)
		return ""
	}
	return retrieval.FormatSnippets(snippets)
}

// persistAttempt stores the draft and its validation outcome.
func (o *Orchestrator) persistAttempt(ctx context.Context, campaignID, content, prompt string, result validator.Result, attempt int) {
	if o.store == nil || campaignID == "" {
		return
	}

	status := "rejected"
	if result.IsValid {
		status = "approved"
	}

	tc := &store.TextContent{
		CampaignID:       campaignID,
		GeneratedText:    content,
		PromptUsed:       prompt,
		AgentName:        "writer",
		ValidationStatus: status,
	}
	if err := o.store.SaveTextContent(ctx, tc); err != nil {
		logging.Store("WARN: failed to persist attempt %d: %v", attempt, err)
		return
	}

	vr := &store.ValidationRecord{
		CampaignID:  campaignID,
		ContentType: "text",
		ContentID:   tc.ID,
		Status:      status,
		IssuesFound: result.Violations,
	}
	if err := o.store.SaveValidationResult(ctx, vr); err != nil {
		logging.Store("WARN: failed to persist validation for attempt %d: %v", attempt, err)
	}
}

func (o *Orchestrator) recordRun(ctx context.Context, campaignID, agent, input, output string, started time.Time, status string) {
	if o.store == nil || campaignID == "" {
		return
	}
	run := &store.AgentRun{
		CampaignID:    campaignID,
		AgentName:     agent,
		InputSummary:  summarize(input),
		OutputSummary: summarize(output),
		DurationMS:    time.Since(started).Milliseconds(),
		Status:        status,
	}
	if err := o.store.RecordAgentRun(ctx, run); err != nil {
		logging.Store("WARN: failed to record agent run: %v", err)
	}
}

// verdictBlock renders the validator outcome in the form the
// regeneration controller parses.
func verdictBlock(result validator.Result) string {
	if result.IsValid {
		return "Validation: APPROVED"
	}
	return fmt.Sprintf("Validation: REJECTED\nViolations: %s",
		strings.Join(result.Violations, "; "))
}

// stripVerdict removes the trailing verdict block so callers see clean
// content.
func stripVerdict(result string) string {
	if i := strings.LastIndex(result, "\n\nValidation: "); i >= 0 {
		return result[:i]
	}
	return result
}

// summarize truncates text for audit columns.
func summarize(text string) string {
	const limit = 200
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
