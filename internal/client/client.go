// Package client implements the backend operations the engine consumes over
// the REST API, carrying a bearer token that refreshes itself before expiry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pKa1/eg2/internal/answers"
	"github.com/pKa1/eg2/internal/engine"
	"github.com/pKa1/eg2/internal/models"
)

// Client talks to the backend API. It implements engine.ExamService.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  *TokenSource
	logger  *slog.Logger
}

var _ engine.ExamService = (*Client)(nil)

func New(baseURL string, tokens *TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		logger:  logger,
	}
}

// GetTest fetches the full test definition including its status and questions.
func (c *Client) GetTest(ctx context.Context, testID int64) (*models.TestDefinition, error) {
	var def models.TestDefinition
	path := "/api/v1/tests/" + strconv.FormatInt(testID, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &def); err != nil {
		return nil, fmt.Errorf("failed to fetch test %d: %w", testID, err)
	}
	return &def, nil
}

// StartAttempt begins an attempt and returns the server-assigned start time.
func (c *Client) StartAttempt(ctx context.Context, testID int64) (time.Time, error) {
	var resp struct {
		StartedAt time.Time `json:"started_at"`
	}
	body := map[string]int64{"test_id": testID}
	if err := c.do(ctx, http.MethodPost, "/api/v1/results/start", body, &resp); err != nil {
		return time.Time{}, fmt.Errorf("failed to start attempt for test %d: %w", testID, err)
	}
	return resp.StartedAt, nil
}

type submitRequest struct {
	TestID    int64            `json:"test_id"`
	StartedAt time.Time        `json:"started_at"`
	Answers   []answers.Answer `json:"answers"`
}

// SubmitAttempt records the normalized answer set and returns the result.
func (c *Client) SubmitAttempt(ctx context.Context, testID int64, startedAt time.Time, answerSet []answers.Answer) (*models.Result, error) {
	var result models.Result
	body := submitRequest{TestID: testID, StartedAt: startedAt, Answers: answerSet}
	if err := c.do(ctx, http.MethodPost, "/api/v1/results/submit", body, &result); err != nil {
		return nil, fmt.Errorf("failed to submit attempt for test %d: %w", testID, err)
	}
	return &result, nil
}

// ListResults returns the caller's recorded results for one test.
func (c *Client) ListResults(ctx context.Context, testID int64) ([]models.Result, error) {
	var results []models.Result
	path := "/api/v1/results/?test_id=" + strconv.FormatInt(testID, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &results); err != nil {
		return nil, fmt.Errorf("failed to list results for test %d: %w", testID, err)
	}
	return results, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// apiError maps the backend's {"detail": ...} error body onto the engine's
// sentinels where the status carries meaning.
func (c *Client) apiError(resp *http.Response) error {
	detail := readDetail(resp.Body)
	c.logger.Warn("backend request rejected",
		"status", resp.StatusCode,
		"path", resp.Request.URL.Path,
		"detail", detail)

	switch resp.StatusCode {
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", engine.ErrTestNotAssigned, detail)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", engine.ErrMalformedAnswers, detail)
	default:
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, detail)
	}
}

// readDetail extracts the detail field; it may be a string or a structured
// validation payload, both are rendered for logs and messages.
func readDetail(body io.Reader) string {
	var wrapper struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(body).Decode(&wrapper); err != nil || len(wrapper.Detail) == 0 {
		return "no detail provided"
	}

	var s string
	if err := json.Unmarshal(wrapper.Detail, &s); err == nil {
		return s
	}
	return string(wrapper.Detail)
}
