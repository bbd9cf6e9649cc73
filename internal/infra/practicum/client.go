package practicum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"homework_status_bot/internal/domain/homework"

	"github.com/sirupsen/logrus"
)

const maxResponseBodySize = 1 << 20 // 1MB

// Client queries the homework status API.
//
// Timeouts are applied per request via context, the body is limited to 1MB
// and decoded without a schema; shape checks belong to homework.CheckResponse.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	timeout    time.Duration
	logger     *logrus.Entry
}

func NewClient(endpoint, token string, timeout time.Duration, logger *logrus.Entry) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty homework API endpoint")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid homework API endpoint %q: %w", endpoint, err)
	}
	return &Client{
		httpClient: &http.Client{},
		endpoint:   endpoint,
		token:      token,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// GetAPIAnswer fetches homework statuses changed since fromDate (Unix seconds).
// A fromDate of zero means "now". Network and status failures are *homework.TransportError,
// an undecodable body is a schema error.
func (c *Client) GetAPIAnswer(ctx context.Context, fromDate int64) (any, error) {
	if fromDate == 0 {
		fromDate = time.Now().Unix()
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, &homework.TransportError{Err: fmt.Errorf("invalid endpoint: %w", err)}
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(fromDate, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &homework.TransportError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Accept", "application/json")

	log := c.logger.WithField("from_date", fromDate)
	log.Debug("Requesting homework statuses")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Error("Homework API request failed")
		return nil, &homework.TransportError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, &homework.TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	log = log.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"latency":     time.Since(start).String(),
	})

	if resp.StatusCode != http.StatusOK {
		log.WithField("body", truncate(body, 256)).Error("Homework API returned non-OK status")
		return nil, &homework.TransportError{StatusCode: resp.StatusCode}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var answer any
	if err := dec.Decode(&answer); err != nil {
		log.WithError(err).Error("Homework API returned invalid JSON")
		return nil, fmt.Errorf("%w: body is not valid JSON: %v", homework.ErrSchema, err)
	}

	log.Debug("Homework statuses received")
	return answer, nil
}

// Close closes idle connections held by the client.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
