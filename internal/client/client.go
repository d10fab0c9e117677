// Package client provides a typed HTTP client for the business-brain
// backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tbecker/braincli/internal/models"
	"github.com/tbecker/braincli/internal/stream"
)

// ndjsonContentType marks streamed job responses.
const ndjsonContentType = "application/x-ndjson"

// APIError is a non-2xx response from the backend, with the message
// from its JSON {error} body when one was sent.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("server error: HTTP %d: %s", e.StatusCode, e.Message)
}

// Client talks to the business-brain backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client. If baseURL is empty, uses BRAIN_SERVER_URL or
// defaults to localhost:8690. Timeout is configurable via
// BRAIN_CLIENT_TIMEOUT (default 10m; generation jobs are slow).
func New(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("BRAIN_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8690"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := 10 * time.Minute
	if t := os.Getenv("BRAIN_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// newRequest builds a JSON request against the backend.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, "+ndjsonContentType)
	req.Header.Set("X-Request-ID", uuid.New().String())
	return req, nil
}

// do executes a request/response JSON call and decodes into result
// when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// errorFromResponse maps a non-2xx body to an APIError. Backend errors
// carry a JSON {error} body; anything else is used verbatim.
func errorFromResponse(status int, body []byte) error {
	var wire struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error != "" {
		return &APIError{StatusCode: status, Message: wire.Error}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}

// =============================================================================
// GENERATION JOBS
// =============================================================================

// SubmitIntake submits an intake payload and waits for the generated
// artifact. The backend answers either with one JSON document or with
// a newline-delimited message stream; in the streamed case onStage is
// invoked for every progress message in arrival order.
func (c *Client) SubmitIntake(ctx context.Context, intake models.IntakeRequest, onStage func(stage string) error) (*models.AnalysisResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/jobs/intake", intake)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	// Transport failure short-circuits before any decoding.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, errorFromResponse(resp.StatusCode, body)
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), ndjsonContentType) {
		return stream.Consume(ctx, resp.Body, c.logger, onStage)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

// =============================================================================
// UPLOADS
// =============================================================================

// UploadAuthorizationRequest asks for a short-lived upload grant.
type UploadAuthorizationRequest struct {
	FileName         string   `json:"fileName"`
	MimeType         string   `json:"mimeType"`
	FieldID          string   `json:"fieldId"`
	MaxSize          int64    `json:"maxSize,omitempty"`
	AllowedMimeTypes []string `json:"allowedMimeTypes,omitempty"`
}

// UploadAuthorization is the grant: where to put the bytes and how the
// stored file will be addressed afterwards.
type UploadAuthorization struct {
	AuthorizedURL string `json:"authorizedUrl"`
	FileURL       string `json:"fileUrl"`
	StorageKey    string `json:"storageKey"`
}

// AuthorizeUpload performs phase one of the upload handshake.
func (c *Client) AuthorizeUpload(ctx context.Context, req UploadAuthorizationRequest) (*UploadAuthorization, error) {
	var auth UploadAuthorization
	if err := c.do(ctx, http.MethodPost, "/api/uploads/authorize", req, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// PutFile performs phase two: the raw byte transfer to the authorized
// location. Only the status code matters; storage endpoints return no
// usable body.
func (c *Client) PutFile(ctx context.Context, authorizedURL, mimeType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, authorizedURL, body)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload transfer: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: "upload rejected by storage"}
	}
	return nil
}

// =============================================================================
// ENHANCEMENT PIPELINE
// =============================================================================

// SaveAnswersRequest is the merged enhancement payload: text answers
// plus the settled references of every uploaded file.
type SaveAnswersRequest struct {
	TextAnswers map[string]string                   `json:"textAnswers"`
	Files       map[string][]models.UploadedFileRef `json:"files,omitempty"`
}

// SaveAnswers persists the enhancement answers for a tenant.
func (c *Client) SaveAnswers(ctx context.Context, tenantID string, req SaveAnswersRequest) error {
	return c.do(ctx, http.MethodPost, "/api/tenants/"+tenantID+"/answers", req, nil)
}

// RegenerateProfile rebuilds the tenant's generated artifacts from the
// persisted answers. Safe to repeat; it replaces rather than appends.
func (c *Client) RegenerateProfile(ctx context.Context, tenantID string) error {
	return c.do(ctx, http.MethodPost, "/api/tenants/"+tenantID+"/regenerate", nil, nil)
}

// SynthesizeBrain refreshes the conversational context from the
// regenerated artifacts.
func (c *Client) SynthesizeBrain(ctx context.Context, tenantID string) error {
	return c.do(ctx, http.MethodPost, "/api/tenants/"+tenantID+"/brain/synthesize", nil, nil)
}

// completionAnalysisRequest controls server-side cache bypass.
type completionAnalysisRequest struct {
	ForceRefresh bool `json:"forceRefresh"`
}

// AnalyzeCompletion fetches the completion analysis for a tenant.
func (c *Client) AnalyzeCompletion(ctx context.Context, tenantID string, forceRefresh bool) (*models.CompletionAnalysis, error) {
	var analysis models.CompletionAnalysis
	if err := c.do(ctx, http.MethodPost, "/api/tenants/"+tenantID+"/completion-analysis", completionAnalysisRequest{ForceRefresh: forceRefresh}, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// =============================================================================
// TENANTS
// =============================================================================

// GetTenant fetches the canonical tenant state.
func (c *Client) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := c.do(ctx, http.MethodGet, "/api/tenants/"+id, nil, &tenant); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// ListTenants returns all tenants visible to the caller.
func (c *Client) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	if err := c.do(ctx, http.MethodGet, "/api/tenants", nil, &tenants); err != nil {
		return nil, err
	}
	return tenants, nil
}

// createInviteRequest is the invite payload.
type createInviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// CreateInvite invites a user into a tenant workspace.
func (c *Client) CreateInvite(ctx context.Context, tenantID, email, role string) (*models.TenantInvite, error) {
	var invite models.TenantInvite
	if err := c.do(ctx, http.MethodPost, "/api/tenants/"+tenantID+"/invites", createInviteRequest{Email: email, Role: role}, &invite); err != nil {
		return nil, err
	}
	return &invite, nil
}
