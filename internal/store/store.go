// Package store persists campaigns and their generated artifacts in
// SQLite. One Store owns the database handle; callers share it across
// goroutines, writes are serialized behind a mutex.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"brandstudio/internal/logging"
)

// Campaign is a stored campaign request.
type Campaign struct {
	ID           string    `json:"campaign_id"`
	CampaignName string    `json:"campaign_name"`
	Brand        string    `json:"brand"`
	Objective    string    `json:"objective"`
	Audience     string    `json:"audience"`
	CreatedAt    time.Time `json:"created_at"`
}

// TextContent is one generated marketing-copy artifact.
type TextContent struct {
	ID               string    `json:"text_id"`
	CampaignID       string    `json:"campaign_id"`
	GeneratedText    string    `json:"generated_text"`
	PromptUsed       string    `json:"prompt_used"`
	AgentName        string    `json:"agent_name"`
	ValidationStatus string    `json:"validation_status"`
	CreatedAt        time.Time `json:"created_at"`
}

// ImageContent is one generated visual-asset artifact. The URL points
// at the external image backend's output.
type ImageContent struct {
	ID                string    `json:"image_id"`
	CampaignID        string    `json:"campaign_id"`
	GeneratedImageURL string    `json:"generated_image_url"`
	PromptUsed        string    `json:"prompt_used"`
	AgentName         string    `json:"agent_name"`
	ValidationStatus  string    `json:"validation_status"`
	CreatedAt         time.Time `json:"created_at"`
}

// ValidationRecord is one persisted validator outcome.
type ValidationRecord struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	ContentType string    `json:"content_type"`
	ContentID   string    `json:"content_id"`
	Status      string    `json:"status"`
	IssuesFound []string  `json:"issues_found"`
	ValidatedAt time.Time `json:"validated_at"`
}

// AgentRun records one pipeline-stage execution for audit.
type AgentRun struct {
	ID            string    `json:"agent_id"`
	CampaignID    string    `json:"campaign_id"`
	AgentName     string    `json:"agent_name"`
	InputSummary  string    `json:"input_summary"`
	OutputSummary string    `json:"output_summary"`
	DurationMS    int64     `json:"duration_ms"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store manages the campaign database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open creates or opens the campaign store at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("opened campaign store at %s", dbPath)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS campaigns (
		campaign_id TEXT PRIMARY KEY,
		campaign_name TEXT NOT NULL,
		brand TEXT NOT NULL,
		objective TEXT,
		audience TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS text_contents (
		text_id TEXT PRIMARY KEY,
		campaign_id TEXT NOT NULL,
		generated_text TEXT,
		prompt_used TEXT,
		agent_name TEXT,
		validation_status TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (campaign_id) REFERENCES campaigns(campaign_id)
	);
	CREATE INDEX IF NOT EXISTS idx_text_campaign ON text_contents(campaign_id);

	CREATE TABLE IF NOT EXISTS image_contents (
		image_id TEXT PRIMARY KEY,
		campaign_id TEXT NOT NULL,
		generated_image_url TEXT,
		prompt_used TEXT,
		agent_name TEXT,
		validation_status TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (campaign_id) REFERENCES campaigns(campaign_id)
	);
	CREATE INDEX IF NOT EXISTS idx_image_campaign ON image_contents(campaign_id);

	CREATE TABLE IF NOT EXISTS validation_results (
		id TEXT PRIMARY KEY,
		campaign_id TEXT NOT NULL,
		content_type TEXT,
		content_id TEXT,
		status TEXT,
		issues_found TEXT,
		validated_at DATETIME NOT NULL,
		FOREIGN KEY (campaign_id) REFERENCES campaigns(campaign_id)
	);
	CREATE INDEX IF NOT EXISTS idx_validation_campaign ON validation_results(campaign_id);

	CREATE TABLE IF NOT EXISTS agent_runs (
		agent_id TEXT PRIMARY KEY,
		campaign_id TEXT NOT NULL,
		agent_name TEXT,
		input_summary TEXT,
		output_summary TEXT,
		duration_ms INTEGER,
		status TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (campaign_id) REFERENCES campaigns(campaign_id)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_campaign ON agent_runs(campaign_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateCampaign inserts a campaign and returns it with generated ID
// and timestamp.
func (s *Store) CreateCampaign(ctx context.Context, name, brand, objective, audience string) (*Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &Campaign{
		ID:           uuid.NewString(),
		CampaignName: name,
		Brand:        brand,
		Objective:    objective,
		Audience:     audience,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaigns (campaign_id, campaign_name, brand, objective, audience, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.CampaignName, c.Brand, c.Objective, c.Audience, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert campaign: %w", err)
	}

	logging.Store("created campaign %s (%s)", c.ID, c.CampaignName)
	return c, nil
}

// GetCampaign returns the campaign by ID, or sql.ErrNoRows wrapped if
// absent.
func (s *Store) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	var c Campaign
	err := s.db.QueryRowContext(ctx,
		`SELECT campaign_id, campaign_name, brand, objective, audience, created_at
		 FROM campaigns WHERE campaign_id = ?`, id).
		Scan(&c.ID, &c.CampaignName, &c.Brand, &c.Objective, &c.Audience, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("campaign %s: %w", id, err)
	}
	return &c, nil
}

// ListCampaigns returns all campaigns, newest first.
func (s *Store) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT campaign_id, campaign_name, brand, objective, audience, created_at
		 FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []Campaign{}
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(&c.ID, &c.CampaignName, &c.Brand, &c.Objective, &c.Audience, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// SaveTextContent inserts a generated text artifact.
func (s *Store) SaveTextContent(ctx context.Context, tc *TextContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tc.ID == "" {
		tc.ID = uuid.NewString()
	}
	if tc.CreatedAt.IsZero() {
		tc.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO text_contents (text_id, campaign_id, generated_text, prompt_used, agent_name, validation_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tc.ID, tc.CampaignID, tc.GeneratedText, tc.PromptUsed, tc.AgentName, tc.ValidationStatus, tc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert text content: %w", err)
	}
	return nil
}

// LatestTextContent returns the most recent text artifact for a
// campaign.
func (s *Store) LatestTextContent(ctx context.Context, campaignID string) (*TextContent, error) {
	var tc TextContent
	err := s.db.QueryRowContext(ctx,
		`SELECT text_id, campaign_id, generated_text, prompt_used, agent_name, validation_status, created_at
		 FROM text_contents WHERE campaign_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, campaignID).
		Scan(&tc.ID, &tc.CampaignID, &tc.GeneratedText, &tc.PromptUsed, &tc.AgentName, &tc.ValidationStatus, &tc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("latest text for campaign %s: %w", campaignID, err)
	}
	return &tc, nil
}

// SaveImageContent inserts a generated image artifact.
func (s *Store) SaveImageContent(ctx context.Context, ic *ImageContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ic.ID == "" {
		ic.ID = uuid.NewString()
	}
	if ic.CreatedAt.IsZero() {
		ic.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO image_contents (image_id, campaign_id, generated_image_url, prompt_used, agent_name, validation_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ic.ID, ic.CampaignID, ic.GeneratedImageURL, ic.PromptUsed, ic.AgentName, ic.ValidationStatus, ic.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert image content: %w", err)
	}
	return nil
}

// LatestImageContent returns the most recent image artifact for a
// campaign.
func (s *Store) LatestImageContent(ctx context.Context, campaignID string) (*ImageContent, error) {
	var ic ImageContent
	err := s.db.QueryRowContext(ctx,
		`SELECT image_id, campaign_id, generated_image_url, prompt_used, agent_name, validation_status, created_at
		 FROM image_contents WHERE campaign_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, campaignID).
		Scan(&ic.ID, &ic.CampaignID, &ic.GeneratedImageURL, &ic.PromptUsed, &ic.AgentName, &ic.ValidationStatus, &ic.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("latest image for campaign %s: %w", campaignID, err)
	}
	return &ic, nil
}

// SaveValidationResult persists one validator outcome. Issues are
// stored as a JSON array.
func (s *Store) SaveValidationResult(ctx context.Context, vr *ValidationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if vr.ID == "" {
		vr.ID = uuid.NewString()
	}
	if vr.ValidatedAt.IsZero() {
		vr.ValidatedAt = time.Now().UTC()
	}

	issues, err := json.Marshal(vr.IssuesFound)
	if err != nil {
		return fmt.Errorf("failed to marshal issues: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO validation_results (id, campaign_id, content_type, content_id, status, issues_found, validated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		vr.ID, vr.CampaignID, vr.ContentType, vr.ContentID, vr.Status, string(issues), vr.ValidatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert validation result: %w", err)
	}
	return nil
}

// ValidationResults returns all validator outcomes for a campaign,
// oldest first.
func (s *Store) ValidationResults(ctx context.Context, campaignID string) ([]ValidationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, campaign_id, content_type, content_id, status, issues_found, validated_at
		 FROM validation_results WHERE campaign_id = ? ORDER BY validated_at ASC, rowid ASC`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation results: %w", err)
	}
	defer rows.Close()

	records := []ValidationRecord{}
	for rows.Next() {
		var vr ValidationRecord
		var issues string
		if err := rows.Scan(&vr.ID, &vr.CampaignID, &vr.ContentType, &vr.ContentID, &vr.Status, &issues, &vr.ValidatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan validation result: %w", err)
		}
		if issues != "" {
			if err := json.Unmarshal([]byte(issues), &vr.IssuesFound); err != nil {
				logging.Store("WARN: malformed issues for validation %s: %v", vr.ID, err)
			}
		}
		records = append(records, vr)
	}
	return records, rows.Err()
}

// RecordAgentRun persists one pipeline-stage execution.
func (s *Store) RecordAgentRun(ctx context.Context, run *AgentRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_runs (agent_id, campaign_id, agent_name, input_summary, output_summary, duration_ms, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CampaignID, run.AgentName, run.InputSummary, run.OutputSummary, run.DurationMS, run.Status, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert agent run: %w", err)
	}
	return nil
}

// AgentRuns returns the run audit trail for a campaign, oldest first.
func (s *Store) AgentRuns(ctx context.Context, campaignID string) ([]AgentRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_id, campaign_id, agent_name, input_summary, output_summary, duration_ms, status, created_at
		 FROM agent_runs WHERE campaign_id = ? ORDER BY created_at ASC, rowid ASC`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent runs: %w", err)
	}
	defer rows.Close()

	runs := []AgentRun{}
	for rows.Next() {
		var r AgentRun
		if err := rows.Scan(&r.ID, &r.CampaignID, &r.AgentName, &r.InputSummary, &r.OutputSummary, &r.DurationMS, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
