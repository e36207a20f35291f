// Package api is the request/response client for the CV Screener backend:
// users, threads, message submission, run status, and the run event feed.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/cvscreener/cvchat/internal/models"
)

const errLoggerKey = "err"

// Client talks to the backend over plain HTTP. All request bodies and
// responses are JSON except the run event feed, which is a long-lived
// text stream.
type Client struct {
	baseURL string

	client *http.Client
	logger *slog.Logger
}

// User is an established backend identity. The backend issues numeric user
// ids.
type User struct {
	ID   int64
	Name string
}

// NewClient creates a client for the backend at baseURL, which should include
// the API prefix (e.g. http://localhost:8000/api).
func NewClient(baseURL string, logger *slog.Logger) Client {
	return Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		logger:  logger.With(slog.String("module", "api")),
	}
}

type createUserRequest struct {
	Name string `json:"name"`
}

type createUserResponse struct {
	UserID int64   `json:"user_id"`
	Name   *string `json:"name"`
}

// CreateUser registers a new user. When the name is already taken the backend
// responds with a conflict whose detail carries the existing identity; use
// ExistingUser to recover it.
func (c Client) CreateUser(ctx context.Context, name string) (User, error) {
	var out createUserResponse
	if err := c.doJSON(ctx, http.MethodPost, "/users", createUserRequest{Name: name}, &out); err != nil {
		return User{}, err
	}

	u := User{ID: out.UserID, Name: name}
	if out.Name != nil {
		u.Name = *out.Name
	}
	return u, nil
}

type createThreadRequest struct {
	UserID int64 `json:"user_id"`
}

type createThreadResponse struct {
	ThreadID string `json:"thread_id"`
}

// CreateThread creates a fresh conversation thread for the given user.
func (c Client) CreateThread(ctx context.Context, userID int64) (string, error) {
	var out createThreadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/threads", createThreadRequest{UserID: userID}, &out); err != nil {
		return "", err
	}
	if out.ThreadID == "" {
		return "", fmt.Errorf("thread_id missing from create thread response")
	}
	return out.ThreadID, nil
}

type threadMessageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type threadResponse struct {
	ThreadID string                  `json:"thread_id"`
	UserID   int64                   `json:"user_id"`
	Messages []threadMessageResponse `json:"messages"`
}

// GetThread fetches a thread and its ordered message history. It fails with a
// not-found error when the thread no longer exists.
func (c Client) GetThread(ctx context.Context, threadID string) (models.Thread, error) {
	var out threadResponse
	if err := c.doJSON(ctx, http.MethodGet, "/threads/"+url.PathEscape(threadID), nil, &out); err != nil {
		return models.Thread{}, err
	}

	thread := models.Thread{
		ID:     out.ThreadID,
		UserID: fmt.Sprintf("%d", out.UserID),
	}
	for _, m := range out.Messages {
		thread.Messages = append(thread.Messages, models.ChatMessage{
			ID:      m.ID,
			Role:    models.Role(m.Role),
			Content: m.Content,
		})
	}
	return thread, nil
}

type postMessageRequest struct {
	Content string `json:"content"`
}

type postMessageResponse struct {
	RunID string `json:"run_id"`
}

// PostMessage appends a user message to the thread, creating a server-side
// run for the assistant's reply. A response without a run id is a hard error;
// the caller has nothing to stream from.
func (c Client) PostMessage(ctx context.Context, threadID, content string) (string, error) {
	var out postMessageResponse
	path := "/threads/" + url.PathEscape(threadID) + "/messages"
	if err := c.doJSON(ctx, http.MethodPost, path, postMessageRequest{Content: content}, &out); err != nil {
		return "", err
	}
	if out.RunID == "" {
		return "", fmt.Errorf("run_id missing from post message response")
	}
	return out.RunID, nil
}

type runResponse struct {
	RunID      string  `json:"run_id"`
	ThreadID   string  `json:"thread_id"`
	Status     string  `json:"status"`
	CreatedAt  *string `json:"created_at"`
	StartedAt  *string `json:"started_at"`
	FinishedAt *string `json:"finished_at"`
	Error      *string `json:"error"`
}

// GetRun polls a run's status. This is the fallback observation path; live
// progress comes from OpenRunEvents.
func (c Client) GetRun(ctx context.Context, runID string) (models.Run, error) {
	var out runResponse
	if err := c.doJSON(ctx, http.MethodGet, "/runs/"+url.PathEscape(runID), nil, &out); err != nil {
		return models.Run{}, err
	}

	return models.Run{
		ID:         out.RunID,
		ThreadID:   out.ThreadID,
		Status:     models.RunStatus(out.Status),
		CreatedAt:  deref(out.CreatedAt),
		StartedAt:  deref(out.StartedAt),
		FinishedAt: deref(out.FinishedAt),
		Error:      deref(out.Error),
	}, nil
}

// CancelRun asks the backend to stop a run.
func (c Client) CancelRun(ctx context.Context, runID string) error {
	return c.doJSON(ctx, http.MethodPost, "/runs/"+url.PathEscape(runID)+"/cancel", nil, nil)
}

// OpenRunEvents opens the live event feed for a run and returns its body for
// decoding. A connection that does not yield a success status fails
// immediately with an *APIError; the feed never silently serves truncated
// content. The caller owns closing the reader; canceling ctx tears the
// connection down.
func (c Client) OpenRunEvents(ctx context.Context, runID string) (io.ReadCloser, error) {
	u := c.baseURL + "/runs/" + url.PathEscape(runID) + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error opening event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return nil, newAPIError(resp.StatusCode, data)
	}
	return resp.Body, nil
}

// doJSON performs one request/response exchange. Non-2xx responses become
// *APIError values carrying the backend's detail payload.
func (c Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := newAPIError(resp.StatusCode, data)
		c.logger.Debug("Backend request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String(errLoggerKey, apiErr.Error()))
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error unmarshaling response: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
