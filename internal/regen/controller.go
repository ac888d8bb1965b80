// Package regen drives the generate-validate-retry loop. A Controller
// invokes a caller-supplied generation function, parses the compliance
// verdict out of its output, and on rejection feeds escalating
// corrective emphasis back into the next attempt's inputs.
package regen

import (
	"context"
	"fmt"
	"strings"

	"brandstudio/internal/kb"
	"brandstudio/internal/logging"
)

// Terminal statuses reported by Run.
const (
	StatusApproved         = "approved"
	StatusFailedAfterRetry = "failed_after_retries"
)

// Verdicts extracted from generated output.
const (
	VerdictApproved = "APPROVED"
	VerdictRejected = "REJECTED"
)

// Inputs are the campaign parameters handed to each generation attempt.
// The controller never mutates the caller's copy; enhancement operates
// on a fresh value per attempt.
type Inputs struct {
	CampaignName string `json:"campaign_name"`
	Brand        string `json:"brand"`
	Objective    string `json:"objective"`
	Audience     string `json:"audience"`
}

// GenerateFunc produces campaign content for one attempt. The returned
// string carries both the content and a validation verdict for the
// controller to parse.
type GenerateFunc func(ctx context.Context, in Inputs, attempt int) (string, error)

// Outcome is the terminal result of a Run.
type Outcome struct {
	Status   string   `json:"status"`
	Attempts int      `json:"attempts"`
	Result   string   `json:"result"`
	Feedback []string `json:"feedback"`
}

// Controller owns the retry policy and the corrective-feedback
// vocabulary injected between attempts.
type Controller struct {
	forbiddenWords   []string
	requiredKeywords []string
}

// Default corrective vocabulary, used when the caller does not supply
// rule lists of its own.
var (
	defaultForbidden = []string{"cheap", "scam", "fraud", "terrible", "worst", "hate"}
	defaultRequired  = []string{"innovation", "quality", "premium"}
)

// NewController creates a controller. Nil rule lists fall back to the
// defaults.
func NewController(forbiddenWords, requiredKeywords []string) *Controller {
	if forbiddenWords == nil {
		forbiddenWords = defaultForbidden
	}
	if requiredKeywords == nil {
		requiredKeywords = defaultRequired
	}
	return &Controller{forbiddenWords: forbiddenWords, requiredKeywords: requiredKeywords}
}

// NewControllerFromKB derives the corrective vocabulary from the brand
// knowledge base, so the escalation text names the brand's actual
// banned terms and encouraged phrases. Empty policies fall back to the
// static defaults.
func NewControllerFromKB(loader *kb.Loader) *Controller {
	forbidden := loader.AllForbiddenTerms()
	if len(forbidden) == 0 {
		forbidden = nil
	}
	required := loader.AllAllowedPhrases()
	if len(required) == 0 {
		required = nil
	}
	return NewController(forbidden, required)
}

// Run executes up to maxAttempts generation rounds, stopping early on
// approval. Attempt counting is 1-based in the Outcome; the enhancement
// tier passed between rounds saturates so the final-attempt emphasis
// repeats if maxAttempts exceeds the tier count.
func (c *Controller) Run(ctx context.Context, generate GenerateFunc, in Inputs, maxAttempts int) (Outcome, error) {
	if maxAttempts < 1 {
		return Outcome{}, fmt.Errorf("maxAttempts must be at least 1, got %d", maxAttempts)
	}

	timer := logging.StartTimer(logging.CategoryRegen, "Run")
	defer timer.Stop()

	current := in
	var feedback []string
	var lastResult string

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}

		logging.Regen("campaign %q attempt %d/%d", in.CampaignName, attempt, maxAttempts)
		result, err := generate(ctx, current, attempt)
		if err != nil {
			return Outcome{}, fmt.Errorf("generation attempt %d: %w", attempt, err)
		}
		lastResult = result

		verdict := c.ParseVerdict(result)
		if verdict == VerdictApproved {
			logging.Regen("campaign %q approved on attempt %d", in.CampaignName, attempt)
			return Outcome{
				Status:   StatusApproved,
				Attempts: attempt,
				Result:   result,
				Feedback: feedback,
			}, nil
		}

		note := fmt.Sprintf("Attempt %d rejected", attempt)
		feedback = append(feedback, note)
		logging.Regen("campaign %q rejected on attempt %d, enhancing inputs", in.CampaignName, attempt)
		// Emphasis accumulates: each round extends the previous round's
		// objective rather than starting over from the original.
		current = c.EnhanceInputs(current, attempt)
	}

	logging.Regen("campaign %q failed after %d attempts", in.CampaignName, maxAttempts)
	return Outcome{
		Status:   StatusFailedAfterRetry,
		Attempts: maxAttempts,
		Result:   lastResult,
		Feedback: feedback,
	}, nil
}

// ParseVerdict scans generated output for a compliance verdict.
// Rejection markers win over approval markers; output carrying neither
// is treated as approved, with the ambiguity logged for audit.
func (c *Controller) ParseVerdict(result string) string {
	lower := strings.ToLower(result)

	for _, marker := range []string{"rejected", "invalid", "failed"} {
		if strings.Contains(lower, marker) {
			return VerdictRejected
		}
	}
	for _, marker := range []string{"approved", "valid"} {
		if strings.Contains(lower, marker) {
			return VerdictApproved
		}
	}

	logging.Regen("WARN: no verdict marker in output (len=%d), treating as approved", len(result))
	return VerdictApproved
}

// Emphasis tiers appended to the objective after a rejection. The tier
// index is min(attempt, len-1), so emphasis escalates then holds.
var emphasisTiers = []string{
	"IMPORTANT: The previous attempt was rejected for compliance violations. " +
		"Strictly avoid these words: %s. Naturally include these keywords: %s.",
	"CRITICAL: Content has been rejected multiple times. " +
		"Under no circumstances use any of these words: %s. " +
		"The copy MUST include: %s.",
	"FINAL ATTEMPT: Every previous version failed brand compliance. " +
		"Produce conservative, on-brand copy. Banned words: %s. Required keywords: %s.",
}

// EnhanceInputs returns a copy of in whose objective carries the
// corrective emphasis for the given rejected attempt (1-based): the
// first rejection gets the mildest tier, later rejections escalate and
// then hold at the final tier.
func (c *Controller) EnhanceInputs(in Inputs, attempt int) Inputs {
	tier := attempt - 1
	if tier > len(emphasisTiers)-1 {
		tier = len(emphasisTiers) - 1
	}
	if tier < 0 {
		tier = 0
	}

	emphasis := fmt.Sprintf(emphasisTiers[tier],
		strings.Join(c.forbiddenWords, ", "),
		strings.Join(c.requiredKeywords, ", "))

	out := in
	out.Objective = strings.TrimSpace(in.Objective) + "\n\n" + emphasis
	return out
}
