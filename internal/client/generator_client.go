package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/playbookpilot/api/internal/config"
)

// GeneratorClient talks to the external playbook generation/automation
// service. Timeouts surface as ordinary request errors; the callers map them
// onto failed jobs.
type GeneratorClient struct {
	httpClient *http.Client
	baseURL    string
}

// GenerateRequest asks the service to produce playbook content
type GenerateRequest struct {
	Prompt   string `json:"prompt"`
	Template string `json:"template,omitempty"`
}

// GenerateResponse is the service's generation result
type GenerateResponse struct {
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	Validation  struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	} `json:"validation"`
}

// ValidateRequest asks the service to validate playbook content
type ValidateRequest struct {
	Content string `json:"content"`
}

// ValidateResponse is the service's validation report
type ValidateResponse struct {
	Valid       bool     `json:"valid"`
	YAMLValid   bool     `json:"yaml_valid"`
	SyntaxValid bool     `json:"syntax_valid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
}

// LintRequest asks the service to lint playbook content
type LintRequest struct {
	Content string `json:"content"`
	Profile string `json:"profile,omitempty"`
}

// LintResponse is the service's lint report
type LintResponse struct {
	Passed bool `json:"passed"`
	Issues []struct {
		Rule     string `json:"rule"`
		Severity string `json:"severity"`
		Line     int    `json:"line"`
		Message  string `json:"message"`
	} `json:"issues"`
	Summary string `json:"summary"`
}

// ExecuteRequest asks the service to run playbook content
type ExecuteRequest struct {
	Content   string         `json:"content"`
	Inventory string         `json:"inventory"`
	ExtraVars map[string]any `json:"extra_vars,omitempty"`
	Limit     string         `json:"limit,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	SkipTags  []string       `json:"skip_tags,omitempty"`
	CheckMode bool           `json:"check_mode,omitempty"`
	DiffMode  bool           `json:"diff_mode,omitempty"`
	Verbosity int            `json:"verbosity,omitempty"`
}

// ExecuteResponse is the service's run outcome
type ExecuteResponse struct {
	Success         bool            `json:"success"`
	Output          string          `json:"output"`
	Error           string          `json:"error,omitempty"`
	Stats           json.RawMessage `json:"stats,omitempty"`
	DurationSeconds float64         `json:"duration_seconds"`
}

// NewGeneratorClient creates a new generation service client
func NewGeneratorClient(cfg *config.GeneratorConfig) *GeneratorClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeneratorClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: cfg.BaseURL,
	}
}

// Generate produces playbook content from a prompt
func (c *GeneratorClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	var resp GenerateResponse
	if err := c.post(ctx, "/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Validate checks playbook content for YAML and syntax validity
func (c *GeneratorClient) Validate(ctx context.Context, req *ValidateRequest) (*ValidateResponse, error) {
	var resp ValidateResponse
	if err := c.post(ctx, "/validate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Lint runs the linter over playbook content
func (c *GeneratorClient) Lint(ctx context.Context, req *LintRequest) (*LintResponse, error) {
	var resp LintResponse
	if err := c.post(ctx, "/lint", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Execute runs playbook content against an inventory
func (c *GeneratorClient) Execute(ctx context.Context, req *ExecuteRequest) (*ExecuteResponse, error) {
	var resp ExecuteResponse
	if err := c.post(ctx, "/execute", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *GeneratorClient) post(ctx context.Context, path string, in, out interface{}) error {
	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("generator service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
