// Package client calls the stateless timetable endpoints. Transport failures come back as
// retryable TRANSPORT_UNAVAILABLE errors; conflict verdicts come back as data.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const maxResponseBody = 4 << 20

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	backoff    time.Duration
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetries retries transport failures up to n extra times, waiting backoff, then twice that, between attempts.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a client for baseURL, which includes the API prefix, e.g. http://host:8080/api/v1.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
		backoff:    100 * time.Millisecond,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckMove fetches the 30 verdicts for a lesson.
func (c *Client) CheckMove(ctx context.Context, req dto.CheckMoveRequest) (*dto.CheckMoveResponse, error) {
	var out dto.CheckMoveResponse
	if err := c.post(ctx, "/timetable/check-move", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MoveLesson asks the service to apply a move to the supplied snapshot.
func (c *Client) MoveLesson(ctx context.Context, req dto.MoveLessonRequest) (*dto.MoveLessonResponse, error) {
	var out dto.MoveLessonResponse
	if err := c.post(ctx, "/timetable/move-lesson", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rooms ranks rooms for a target slot.
func (c *Client) Rooms(ctx context.Context, req dto.RoomsRequest) (*dto.RoomsResponse, error) {
	var out dto.RoomsResponse
	if err := c.post(ctx, "/timetable/rooms", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, payload, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "encode request")
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(c.retries), retry.NewExponential(c.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := c.once(ctx, path, body, dest)
		if err == nil || !appErrors.IsRetryable(err) {
			return err
		}
		if attempt <= c.retries {
			c.logger.Debug("retrying timetable request", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
		}
		return retry.RetryableError(err)
	})

	var appErr *appErrors.Error
	if err != nil && !errors.As(err, &appErr) {
		return transportError(err, "request cancelled while waiting to retry")
	}
	return err
}

func (c *Client) once(ctx context.Context, path string, body []byte, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err, fmt.Sprintf("POST %s failed", path))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return transportError(err, "read response body")
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusInternalServerError {
		message := fmt.Sprintf("POST %s returned %d", path, resp.StatusCode)
		if decodeErr == nil && env.Error != nil && env.Error.Message != "" {
			message = fmt.Sprintf("%s: %s", message, env.Error.Message)
		}
		return transportError(errors.New(http.StatusText(resp.StatusCode)), message)
	}
	if decodeErr != nil {
		return appErrors.Wrap(decodeErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("decode %s response", path))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if env.Error == nil {
			return appErrors.New(appErrors.ErrInternal.Code, resp.StatusCode, fmt.Sprintf("POST %s returned %d", path, resp.StatusCode))
		}
		if env.Error.Status == 0 {
			env.Error.Status = resp.StatusCode
		}
		return env.Error
	}
	if len(env.Data) == 0 {
		return appErrors.New(appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("%s response has no data", path))
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("decode %s data", path))
	}
	return nil
}

func transportError(err error, message string) *appErrors.Error {
	e := appErrors.Clone(appErrors.ErrTransport, message)
	e.Err = err
	return e
}
