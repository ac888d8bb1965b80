package orchestrate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"brandstudio/internal/generation"
	"brandstudio/internal/regen"
	"brandstudio/internal/store"
	"brandstudio/internal/validator"
)

// scriptedGenerator returns canned drafts in order, repeating the last
// one when the script runs out.
type scriptedGenerator struct {
	drafts []string
	calls  int
	seen   []generation.Request
}

func (g *scriptedGenerator) Generate(_ context.Context, req generation.Request) (string, error) {
	g.seen = append(g.seen, req)
	i := g.calls
	if i >= len(g.drafts) {
		i = len(g.drafts) - 1
	}
	g.calls++
	return g.drafts[i], nil
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func campaignInputs() regen.Inputs {
	return regen.Inputs{
		CampaignName: "Spring Launch",
		Brand:        "Acme",
		Objective:    "Announce the premium spring line with quality and innovation.",
		Audience:     "existing customers",
	}
}

func TestRun_ApprovedFirstAttempt(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c, err := s.CreateCampaign(ctx, "Spring Launch", "Acme", "Announce.", "")
	require.NoError(t, err)

	gen := &scriptedGenerator{drafts: []string{
		"Experience premium quality and innovation this spring.",
	}}
	o := New(nil, gen, validator.NewStatic(nil, nil), regen.NewController(nil, nil), s)

	result, err := o.Run(ctx, c.ID, campaignInputs(), 3)
	require.NoError(t, err)
	require.Equal(t, regen.StatusApproved, result.Status)
	require.Equal(t, 1, result.Attempts)
	require.Equal(t, 1, gen.calls)
	require.True(t, result.Validation.IsValid)
	require.Equal(t, "Experience premium quality and innovation this spring.", result.Content)

	// The approved draft and its validation landed in the store.
	latest, err := s.LatestTextContent(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "approved", latest.ValidationStatus)

	records, err := s.ValidationResults(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Empty(t, records[0].IssuesFound)
}

func TestRun_RejectedDraftsRetryWithEmphasis(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c, err := s.CreateCampaign(ctx, "Spring Launch", "Acme", "Announce.", "")
	require.NoError(t, err)

	gen := &scriptedGenerator{drafts: []string{
		"This cheap deal is unbeatable.",
		"Experience premium quality this spring.",
	}}
	o := New(nil, gen, validator.NewStatic(nil, nil), regen.NewController(nil, nil), s)

	result, err := o.Run(ctx, c.ID, campaignInputs(), 3)
	require.NoError(t, err)
	require.Equal(t, regen.StatusApproved, result.Status)
	require.Equal(t, 2, result.Attempts)
	require.Equal(t, 2, gen.calls)

	// The second request carried corrective emphasis.
	require.Contains(t, gen.seen[1].Objective, "IMPORTANT:")
	require.NotContains(t, gen.seen[0].Objective, "IMPORTANT:")

	// Both attempts are on record.
	records, err := s.ValidationResults(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "rejected", records[0].Status)
	require.Equal(t, "approved", records[1].Status)
}

func TestRun_ExhaustsAttempts(t *testing.T) {
	gen := &scriptedGenerator{drafts: []string{"Only a terrible scam here."}}
	o := New(nil, gen, validator.NewStatic(nil, nil), regen.NewController(nil, nil), nil)

	result, err := o.Run(context.Background(), "", campaignInputs(), 2)
	require.NoError(t, err)
	require.Equal(t, regen.StatusFailedAfterRetry, result.Status)
	require.Equal(t, 2, result.Attempts)
	require.Equal(t, 2, gen.calls)
	require.False(t, result.Validation.IsValid)
	require.NotEmpty(t, result.Validation.Violations)
	require.Equal(t, "Only a terrible scam here.", result.Content)
}

// stubImageGenerator records prompts and returns a fixed URL.
type stubImageGenerator struct {
	prompts []string
	err     error
}

func (g *stubImageGenerator) GenerateImage(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return "https://img.example/out.webp", nil
}

func TestRun_ApprovedCampaignGetsImage(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c, err := s.CreateCampaign(ctx, "Spring Launch", "Acme", "Announce.", "")
	require.NoError(t, err)

	gen := &scriptedGenerator{drafts: []string{"Premium quality this spring."}}
	img := &stubImageGenerator{}
	o := New(nil, gen, validator.NewStatic(nil, nil), regen.NewController(nil, nil), s)
	o.SetImageGenerator(img)

	result, err := o.Run(ctx, c.ID, campaignInputs(), 3)
	require.NoError(t, err)
	require.Equal(t, regen.StatusApproved, result.Status)
	require.Equal(t, "https://img.example/out.webp", result.ImageURL)
	require.Len(t, img.prompts, 1)
	require.Contains(t, img.prompts[0], "Acme")

	latest, err := s.LatestImageContent(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "https://img.example/out.webp", latest.GeneratedImageURL)
	require.Equal(t, "image_gen", latest.AgentName)
}

func TestRun_ImageFailureDoesNotFailCampaign(t *testing.T) {
	gen := &scriptedGenerator{drafts: []string{"Premium quality this spring."}}
	img := &stubImageGenerator{err: context.DeadlineExceeded}
	o := New(nil, gen, validator.NewStatic(nil, nil), regen.NewController(nil, nil), nil)
	o.SetImageGenerator(img)

	result, err := o.Run(context.Background(), "", campaignInputs(), 3)
	require.NoError(t, err)
	require.Equal(t, regen.StatusApproved, result.Status)
	require.Empty(t, result.ImageURL)
}

func TestRun_FailedCampaignSkipsImage(t *testing.T) {
	gen := &scriptedGenerator{drafts: []string{"Only a terrible scam here."}}
	img := &stubImageGenerator{}
	o := New(nil, gen, validator.NewStatic(nil, nil), regen.NewController(nil, nil), nil)
	o.SetImageGenerator(img)

	result, err := o.Run(context.Background(), "", campaignInputs(), 2)
	require.NoError(t, err)
	require.Equal(t, regen.StatusFailedAfterRetry, result.Status)
	require.Empty(t, img.prompts, "rejected campaigns get no visual asset")
}

func TestRun_NilRetrieverGeneratesWithoutContext(t *testing.T) {
	gen := &scriptedGenerator{drafts: []string{"Premium quality, always."}}
	o := New(nil, gen, validator.NewStatic(nil, nil), regen.NewController(nil, nil), nil)

	_, err := o.Run(context.Background(), "", campaignInputs(), 1)
	require.NoError(t, err)
	require.Empty(t, gen.seen[0].GuidelineContext)
}
