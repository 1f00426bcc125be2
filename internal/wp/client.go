// Package wp publishes composed drafts to a WordPress site over its REST
// API.
package wp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/convergo/drafting-platform/internal/apperr"
	"github.com/convergo/drafting-platform/internal/model"
	"github.com/convergo/drafting-platform/pkg/logger"
	"github.com/convergo/drafting-platform/pkg/metrics"
)

// RetryPolicy bounds publish attempts. Retryable decides from the HTTP
// status of a failed attempt whether another is worth making; a timeout is
// treated as retryable.
type RetryPolicy struct {
	MaxAttempts int
	Timeout     time.Duration
	Retryable   func(status int) bool
}

// DefaultRetryPolicy is one retry, only on transient failures.
func DefaultRetryPolicy(timeout time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		Timeout:     timeout,
		Retryable:   IsRetryableStatus,
	}
}

// IsRetryableStatus reports whether a WordPress failure status is worth
// retrying. Authorization and other client errors cannot succeed on retry.
func IsRetryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		(status >= 500 && status <= 599)
}

// statusError carries the HTTP status of a failed attempt for the retry
// decision and the error-kind mapping.
type statusError struct {
	status   int
	bodyHead string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("wordpress error %d: %s", e.status, e.bodyHead)
}

// Client publishes drafts to a WordPress site.
type Client struct {
	baseURL    string
	authHeader string
	policy     RetryPolicy
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a WordPress client. The application password may
// contain the display spacing WordPress shows; it is stripped before use.
func NewClient(baseURL, username, appPassword string, policy RetryPolicy, log *logger.Logger) *Client {
	cleaned := strings.Join(strings.Fields(appPassword), "")
	auth := base64.StdEncoding.EncodeToString([]byte(username + ":" + cleaned))

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		authHeader: "Basic " + auth,
		policy:     policy,
		httpClient: &http.Client{},
		logger:     log,
	}
}

// CreateDraft publishes {title, html} as a draft post. Success requires an
// HTTP success status and a numeric post id in the response body. Failed
// attempts are retried per the policy, each attempt with its own timeout.
func (c *Client) CreateDraft(ctx context.Context, title, contentHTML, requestID string) (*model.PublishResult, error) {
	payload, err := json.Marshal(map[string]string{
		"title":   title,
		"content": contentHTML,
		"status":  "draft",
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindWPDraftFailed, "failed to encode draft", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		result, err := c.attempt(ctx, payload, attempt, requestID)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Only transport-level failures with a retryable status get a
		// second attempt; malformed success bodies do not.
		var se *statusError
		if !errors.As(err, &se) || !c.policy.Retryable(se.status) {
			break
		}
		if attempt < c.policy.MaxAttempts {
			c.logger.Warn("wordpress publish retrying",
				zap.String("request_id", requestID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
	}

	return nil, mapPublishError(lastErr)
}

func (c *Client) attempt(ctx context.Context, payload []byte, attempt int, requestID string) (*model.PublishResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost,
		c.baseURL+"/wp-json/wp/v2/posts", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() != nil {
			metrics.WPPublishAttemptsTotal.WithLabelValues("timeout").Inc()
			// Equivalent to a 5xx for the retry decision.
			return nil, &statusError{status: http.StatusGatewayTimeout, bodyHead: "request timed out"}
		}
		// Other transport failures (refused, reset) abort without retry.
		metrics.WPPublishAttemptsTotal.WithLabelValues("transport_error").Inc()
		return nil, fmt.Errorf("wordpress request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	head := string(body)
	if len(head) > 250 {
		head = head[:250]
	}

	metrics.WPPublishAttemptsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("wordpress publish failed",
			zap.String("request_id", requestID),
			zap.Int("attempt", attempt),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("body_head", head),
		)
		return nil, &statusError{status: resp.StatusCode, bodyHead: head}
	}

	var parsed struct {
		ID   *int   `json:"id"`
		Link string `json:"link"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("wordpress returned non-JSON response (status %d): %s", resp.StatusCode, head)
	}
	if parsed.ID == nil {
		return nil, fmt.Errorf("wordpress response missing post id: %s", head)
	}

	c.logger.Info("wordpress draft created",
		zap.String("request_id", requestID),
		zap.Int("attempt", attempt),
		zap.Int("post_id", *parsed.ID),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &model.PublishResult{ID: *parsed.ID, Link: parsed.Link}, nil
}

// mapPublishError turns the last attempt's failure into the taxonomy kinds
// surfaced to callers.
func mapPublishError(err error) error {
	var se *statusError
	if errors.As(err, &se) {
		switch se.status {
		case http.StatusUnauthorized:
			return apperr.Wrap(apperr.KindWPAuthFailed, "wordpress authentication failed", err)
		case http.StatusForbidden:
			return apperr.Wrap(apperr.KindWPForbidden, "wordpress permission denied", err)
		}
	}
	return apperr.Wrap(apperr.KindWPDraftFailed, "failed to publish draft", err)
}
