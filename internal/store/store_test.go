package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCampaignLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCampaign(ctx, "Spring Launch", "Acme", "Announce.", "customers")
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)
	require.False(t, c.CreatedAt.IsZero())

	got, err := s.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "Spring Launch", got.CampaignName)
	require.Equal(t, "Acme", got.Brand)

	_, err = s.GetCampaign(ctx, "no-such-id")
	require.ErrorIs(t, err, sql.ErrNoRows)

	list, err := s.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestTextContent_LatestWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCampaign(ctx, "Spring Launch", "Acme", "Announce.", "")
	require.NoError(t, err)

	first := &TextContent{CampaignID: c.ID, GeneratedText: "draft one", AgentName: "writer", ValidationStatus: "rejected"}
	require.NoError(t, s.SaveTextContent(ctx, first))
	second := &TextContent{CampaignID: c.ID, GeneratedText: "draft two", AgentName: "writer", ValidationStatus: "approved"}
	require.NoError(t, s.SaveTextContent(ctx, second))

	latest, err := s.LatestTextContent(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "draft two", latest.GeneratedText)
	require.Equal(t, "approved", latest.ValidationStatus)
}

func TestLatestTextContent_Empty(t *testing.T) {
	s := openTestStore(t)

	c, err := s.CreateCampaign(context.Background(), "Spring Launch", "Acme", "", "")
	require.NoError(t, err)

	_, err = s.LatestTextContent(context.Background(), c.ID)
	require.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestImageContent_LatestWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCampaign(ctx, "Spring Launch", "Acme", "", "")
	require.NoError(t, err)

	_, err = s.LatestImageContent(ctx, c.ID)
	require.ErrorIs(t, err, sql.ErrNoRows)

	first := &ImageContent{CampaignID: c.ID, GeneratedImageURL: "https://img.example/1.webp", AgentName: "image_gen"}
	require.NoError(t, s.SaveImageContent(ctx, first))
	second := &ImageContent{CampaignID: c.ID, GeneratedImageURL: "https://img.example/2.webp", AgentName: "image_gen"}
	require.NoError(t, s.SaveImageContent(ctx, second))

	latest, err := s.LatestImageContent(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "https://img.example/2.webp", latest.GeneratedImageURL)
	require.NotEmpty(t, latest.ID)
}

func TestValidationResults_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCampaign(ctx, "Spring Launch", "Acme", "", "")
	require.NoError(t, err)

	vr := &ValidationRecord{
		CampaignID:  c.ID,
		ContentType: "text",
		Status:      "rejected",
		IssuesFound: []string{"Contains forbidden words: cheap", "Disallowed tone (aggressive): must"},
	}
	require.NoError(t, s.SaveValidationResult(ctx, vr))

	records, err := s.ValidationResults(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, vr.IssuesFound, records[0].IssuesFound)
	require.Equal(t, "rejected", records[0].Status)
}

func TestAgentRuns_AuditTrail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCampaign(ctx, "Spring Launch", "Acme", "", "")
	require.NoError(t, err)

	for _, name := range []string{"planner", "writer", "validator"} {
		require.NoError(t, s.RecordAgentRun(ctx, &AgentRun{
			CampaignID: c.ID,
			AgentName:  name,
			Status:     "ok",
			DurationMS: 10,
		}))
	}

	runs, err := s.AgentRuns(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	require.Equal(t, "planner", runs[0].AgentName)
	require.Equal(t, "validator", runs[2].AgentName)
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, path, s.Path())
}
