package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"brandstudio/internal/generation"
	"brandstudio/internal/orchestrate"
	"brandstudio/internal/regen"
	"brandstudio/internal/store"
	"brandstudio/internal/validator"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// cannedGenerator always returns the same draft.
type cannedGenerator struct {
	draft string
}

func (g cannedGenerator) Generate(context.Context, generation.Request) (string, error) {
	return g.draft, nil
}

func newTestServer(t *testing.T, draft string) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	v := validator.NewStatic(nil, nil)
	o := orchestrate.New(nil, cannedGenerator{draft: draft}, v, regen.NewController(nil, nil), st)

	return New(Config{
		Addr:         "127.0.0.1:0",
		Orchestrator: o,
		Validator:    v,
		Store:        st,
		MaxAttempts:  3,
		Version:      "test",
	}), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, "copy")

	rec := doJSON(t, s.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp["status"])
	require.Equal(t, "test", resp["version"])
}

func TestCreateAndGetCampaign(t *testing.T) {
	s, _ := newTestServer(t, "copy")

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/campaigns", map[string]string{
		"campaign_name": "Spring Launch",
		"brand":         "Acme",
		"objective":     "Announce.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created store.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/v1/campaigns/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/v1/campaigns/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCampaign_Validation(t *testing.T) {
	s, _ := newTestServer(t, "copy")

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/campaigns", map[string]string{
		"brand": "Acme",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrchestrate_Approved(t *testing.T) {
	s, st := newTestServer(t, "Premium quality copy for everyone.")

	c, err := st.CreateCampaign(context.Background(), "Spring Launch", "Acme", "Announce.", "")
	require.NoError(t, err)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/campaigns/"+c.ID+"/orchestrate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result orchestrate.CampaignResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, regen.StatusApproved, result.Status)
	require.Equal(t, 1, result.Attempts)
	require.Equal(t, "Premium quality copy for everyone.", result.Content)

	// Latest content endpoint serves the persisted draft; no image
	// stage ran, so the image slot is empty.
	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/v1/campaigns/"+c.ID+"/content/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var latest struct {
		Text  *store.TextContent  `json:"text"`
		Image *store.ImageContent `json:"image"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	require.NotNil(t, latest.Text)
	require.Equal(t, "approved", latest.Text.ValidationStatus)
	require.Nil(t, latest.Image)
}

func TestLatestContent_IncludesImage(t *testing.T) {
	s, st := newTestServer(t, "copy")
	ctx := context.Background()

	c, err := st.CreateCampaign(ctx, "Spring Launch", "Acme", "", "")
	require.NoError(t, err)
	require.NoError(t, st.SaveTextContent(ctx, &store.TextContent{
		CampaignID: c.ID, GeneratedText: "copy", ValidationStatus: "approved",
	}))
	require.NoError(t, st.SaveImageContent(ctx, &store.ImageContent{
		CampaignID: c.ID, GeneratedImageURL: "https://img.example/out.webp", AgentName: "image_gen",
	}))

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/campaigns/"+c.ID+"/content/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var latest struct {
		Text  *store.TextContent  `json:"text"`
		Image *store.ImageContent `json:"image"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	require.NotNil(t, latest.Image)
	require.Equal(t, "https://img.example/out.webp", latest.Image.GeneratedImageURL)
}

func TestOrchestrate_FailedAfterRetries(t *testing.T) {
	s, st := newTestServer(t, "This cheap scam never changes.")

	c, err := st.CreateCampaign(context.Background(), "Spring Launch", "Acme", "Announce.", "")
	require.NoError(t, err)

	rec := doJSON(t, s.Handler(), http.MethodPost,
		"/api/v1/campaigns/"+c.ID+"/orchestrate?max_attempts=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result orchestrate.CampaignResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, regen.StatusFailedAfterRetry, result.Status)
	require.Equal(t, 2, result.Attempts)
	require.NotEmpty(t, result.Validation.Violations)
}

func TestOrchestrate_BadMaxAttempts(t *testing.T) {
	s, st := newTestServer(t, "copy")

	c, err := st.CreateCampaign(context.Background(), "Spring Launch", "Acme", "", "")
	require.NoError(t, err)

	rec := doJSON(t, s.Handler(), http.MethodPost,
		"/api/v1/campaigns/"+c.ID+"/orchestrate?max_attempts=zero", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateEndpoint(t *testing.T) {
	s, _ := newTestServer(t, "copy")

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/validate", map[string]string{
		"text": "What a terrible scam.",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result validator.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.False(t, result.IsValid)
	require.Contains(t, result.Violations[0], "scam")

	rec = doJSON(t, s.Handler(), http.MethodPost, "/api/v1/validate", map[string]string{
		"text": "",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, []string{"Text is empty"}, result.Violations)
}

func TestLatestContent_NotFound(t *testing.T) {
	s, st := newTestServer(t, "copy")

	c, err := st.CreateCampaign(context.Background(), "Spring Launch", "Acme", "", "")
	require.NoError(t, err)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/campaigns/"+c.ID+"/content/latest", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
