// Package server exposes the campaign studio over HTTP. Handlers are
// thin: request decoding, one call into the orchestration or store
// layer, JSON response.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"brandstudio/internal/logging"
	"brandstudio/internal/orchestrate"
	"brandstudio/internal/regen"
	"brandstudio/internal/store"
	"brandstudio/internal/validator"
)

// Server is the HTTP surface over the campaign pipeline.
type Server struct {
	orchestrator *orchestrate.Orchestrator
	validator    *validator.Validator
	store        *store.Store
	maxAttempts  int
	version      string

	httpServer *http.Server
}

// Config bundles the server's collaborators.
type Config struct {
	Addr           string
	Orchestrator   *orchestrate.Orchestrator
	Validator      *validator.Validator
	Store          *store.Store
	MaxAttempts    int
	Version        string
	RequestTimeout time.Duration
}

// New creates a server ready to ListenAndServe.
func New(cfg Config) *Server {
	s := &Server{
		orchestrator: cfg.Orchestrator,
		validator:    cfg.Validator,
		store:        cfg.Store,
		maxAttempts:  cfg.MaxAttempts,
		version:      cfg.Version,
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", s.handleCreateCampaign)
			r.Get("/", s.handleListCampaigns)
			r.Route("/{campaignID}", func(r chi.Router) {
				r.Get("/", s.handleGetCampaign)
				r.Post("/orchestrate", s.handleOrchestrate)
				r.Get("/content/latest", s.handleLatestContent)
			})
		})
	})

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	logging.Server("listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

type createCampaignRequest struct {
	CampaignName string `json:"campaign_name"`
	Brand        string `json:"brand"`
	Objective    string `json:"objective"`
	Audience     string `json:"audience"`
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CampaignName == "" || req.Brand == "" {
		writeError(w, http.StatusBadRequest, "campaign_name and brand are required")
		return
	}

	c, err := s.store.CreateCampaign(r.Context(), req.CampaignName, req.Brand, req.Objective, req.Audience)
	if err != nil {
		logging.Server("create campaign failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create campaign")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.store.ListCampaigns(r.Context())
	if err != nil {
		logging.Server("list campaigns failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignID")
	c, err := s.store.GetCampaign(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		logging.Server("get campaign %s failed: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load campaign")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignID")
	c, err := s.store.GetCampaign(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load campaign")
		return
	}

	maxAttempts := s.maxAttempts
	if v := r.URL.Query().Get("max_attempts"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "max_attempts must be a positive integer")
			return
		}
		maxAttempts = n
	}

	result, err := s.orchestrator.Run(r.Context(), c.ID, regen.Inputs{
		CampaignName: c.CampaignName,
		Brand:        c.Brand,
		Objective:    c.Objective,
		Audience:     c.Audience,
	}, maxAttempts)
	if err != nil {
		logging.Server("orchestration for campaign %s failed: %v", id, err)
		writeError(w, http.StatusBadGateway, "campaign orchestration failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type validateRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, s.validator.Validate(req.Text))
}

func (s *Server) handleLatestContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignID")
	tc, err := s.store.LatestTextContent(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "no content for campaign")
			return
		}
		logging.Server("latest content for campaign %s failed: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load content")
		return
	}

	// An image is optional: campaigns without a visual stage still have
	// text content.
	var ic *store.ImageContent
	if img, err := s.store.LatestImageContent(r.Context(), id); err == nil {
		ic = img
	} else if !errors.Is(err, sql.ErrNoRows) {
		logging.Server("latest image for campaign %s failed: %v", id, err)
	}

	writeJSON(w, http.StatusOK, latestContentResponse{Text: tc, Image: ic})
}

type latestContentResponse struct {
	Text  *store.TextContent  `json:"text"`
	Image *store.ImageContent `json:"image"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Server("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
