// Package apiclient is the typed HTTP client for the exam backend. The
// session runner persists submissions and cheating logs through it, so it
// satisfies the session package's persistence interfaces.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/rs/zerolog"
)

const defaultTimeout = 20 * time.Second

// Client talks to the backend REST API on behalf of a logged-in student.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     zerolog.Logger
}

// New creates a client against baseURL, authenticating with the JWT token.
func New(baseURL, token string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: defaultTimeout},
		log:     log.With().Str("component", "api_client").Logger(),
	}
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx response decoded from the server envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// FetchAvailableExams lists exams currently open for attempts.
//
// Tolerates both response shapes seen in the wild: a bare array and an
// object wrapping it as {"exams": [...]}.
func (c *Client) FetchAvailableExams(ctx context.Context) ([]model.Exam, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/v1/student/exams", nil)
	if err != nil {
		return nil, err
	}

	var exams []model.Exam
	if err := json.Unmarshal(raw, &exams); err == nil {
		return exams, nil
	}

	var wrapped struct {
		Exams []model.Exam `json:"exams"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode exams: %w", err)
	}
	return wrapped.Exams, nil
}

// StartAttempt fetches the student-facing exam payload and attempt number.
func (c *Client) StartAttempt(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, int, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/v1/student/exams/"+examID.String()+"/attempts", nil)
	if err != nil {
		return nil, 0, err
	}

	var parsed struct {
		Exam          model.ExamPayload `json:"exam"`
		AttemptNumber int               `json:"attempt_number"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, 0, fmt.Errorf("decode attempt: %w", err)
	}
	return &parsed.Exam, parsed.AttemptNumber, nil
}

// CreateSubmission persists a finalized attempt. Implements session.SubmissionAPI.
func (c *Client) CreateSubmission(ctx context.Context, req model.CreateSubmissionRequest) (*model.Submission, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/v1/student/submissions", req)
	if err != nil {
		return nil, err
	}

	sub := &model.Submission{}
	if err := json.Unmarshal(raw, sub); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	return sub, nil
}

// SaveCheatingLog persists the violation aggregate. Implements session.CheatingLogAPI.
func (c *Client) SaveCheatingLog(ctx context.Context, req model.SaveCheatingLogRequest) (*model.CheatingLog, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/v1/student/cheating-logs", req)
	if err != nil {
		return nil, err
	}

	entry := &model.CheatingLog{}
	if err := json.Unmarshal(raw, entry); err != nil {
		return nil, fmt.Errorf("decode cheating log: %w", err)
	}
	return entry, nil
}

// ReportViolation streams one live violation for monitoring. Best effort on
// the caller's side; failures are returned for logging only.
func (c *Client) ReportViolation(ctx context.Context, examID uuid.UUID, vtype model.ViolationType, screenshotURL string, detectedAt time.Time) error {
	body := map[string]interface{}{
		"exam_id":        examID,
		"type":           vtype,
		"screenshot_url": screenshotURL,
		"detected_at":    detectedAt.Unix(),
	}
	_, err := c.do(ctx, http.MethodPost, "/api/v1/student/violations", body)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s %s: decode envelope: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return nil, apiErr
	}

	return env.Data, nil
}
