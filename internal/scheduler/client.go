package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/ganttform/pkg/models"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	DefaultTimeout = 30 * time.Second

	bulkTasksPath    = "/api/bulk-tasks/"
	criticalPathPath = "/api/critical-path/"

	// SubmissionHeader carries the client-generated correlation id of a bulk submission.
	SubmissionHeader = "X-Submission-ID"
	// SubmissionParam names the query parameter used to read a submission's result.
	SubmissionParam = "submission_id"

	maxErrorMessage = 200
)

// APIError is returned when the scheduling service answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("scheduler API error status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("scheduler API error status %d", e.StatusCode)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	newID      func() string
}

// NewClient creates a client for the scheduling service at baseURL.
// An empty baseURL selects DefaultBaseURL; a zero timeout disables the per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		newID:      func() string { return uuid.New().String() },
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// SubmitTasks sends the whole task list in one request. The returned receipt
// carries the submission id echoed by the service, or the id generated for
// the request when the service does not return one.
func (c *Client) SubmitTasks(ctx context.Context, tasks []models.Task) (*models.SubmissionReceipt, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}

	body, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tasks: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+bulkTasksPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build submit request: %w", err)
	}

	submissionID := c.newID()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(SubmissionHeader, submissionID)

	respBody, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit tasks: %w", err)
	}

	if !gjson.ValidBytes(respBody) {
		return nil, fmt.Errorf("failed to submit tasks: response is not valid JSON")
	}

	if id := gjson.GetBytes(respBody, SubmissionParam); id.Exists() && id.String() != "" {
		submissionID = id.String()
	}

	return &models.SubmissionReceipt{ID: submissionID}, nil
}

// GetCriticalPath reads the critical path and chart URL computed for a submission.
func (c *Client) GetCriticalPath(ctx context.Context, submissionID string) (*models.CriticalPathResult, error) {
	endpoint := c.baseURL + criticalPathPath
	if submissionID != "" {
		endpoint += "?" + url.Values{SubmissionParam: {submissionID}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build critical path request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get critical path: %w", err)
	}

	var result models.CriticalPathResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse critical path response: %w", err)
	}
	if result.CriticalPath == nil {
		result.CriticalPath = []string{}
	}

	return &result, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}

	return body, nil
}

// errorMessage pulls a human readable message out of an error body, if the
// service sent one in any of the usual shapes.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorMessage {
			msg = msg[:maxErrorMessage]
		}
		return msg
	}
	for _, key := range []string{"detail", "error", "message"} {
		if v := gjson.GetBytes(body, key); v.Exists() {
			return v.String()
		}
	}
	return ""
}
