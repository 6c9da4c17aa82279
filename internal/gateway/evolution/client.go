// Package evolution wraps the Evolution API WhatsApp gateway endpoints the
// dispatcher needs.
package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultUserAgent = "trainerhub-notify/0.1"

// Config controls how the Evolution client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	Instance   string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	UserAgent  string
}

// Client wraps the Evolution REST endpoints relevant to text dispatch.
type Client struct {
	apiKey     string
	baseURL    string
	instance   string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
	userAgent  string
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("evolution: base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("evolution: API key is required")
	}
	if strings.TrimSpace(cfg.Instance) == "" {
		return nil, errors.New("evolution: instance is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		instance:   cfg.Instance,
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

// DefaultInstance returns the instance name used when no override is given.
func (c *Client) DefaultInstance() string { return c.instance }

// SendTextResponse is the subset of the gateway's send response we keep.
type SendTextResponse struct {
	Key struct {
		ID        string `json:"id"`
		RemoteJid string `json:"remoteJid"`
	} `json:"key"`
	Status string `json:"status"`
}

// SendText posts a text message through the given instance. An empty
// instance falls back to the client default.
func (c *Client) SendText(ctx context.Context, instance, number, text string) (*SendTextResponse, error) {
	if strings.TrimSpace(number) == "" {
		return nil, errors.New("evolution: destination number required")
	}
	if text == "" {
		return nil, errors.New("evolution: text required")
	}
	if instance == "" {
		instance = c.instance
	}
	body, err := json.Marshal(struct {
		Number string `json:"number"`
		Text   string `json:"text"`
	}{Number: number, Text: text})
	if err != nil {
		return nil, fmt.Errorf("evolution: marshal send body: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/message/sendText/"+instance, body)
	if err != nil {
		return nil, err
	}
	var resp SendTextResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("evolution: decode send response: %w", err)
	}
	return &resp, nil
}

// ConnectionState reports the instance's session state ("open" means
// connected and able to send).
func (c *Client) ConnectionState(ctx context.Context, instance string) (string, error) {
	if instance == "" {
		instance = c.instance
	}
	data, err := c.invoke(ctx, http.MethodGet, "/instance/connectionState/"+instance, nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		Instance struct {
			State string `json:"state"`
		} `json:"instance"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("evolution: decode connection state: %w", err)
	}
	return resp.Instance.State, nil
}

func (c *Client) invoke(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	fullURL := c.baseURL + "/" + strings.TrimLeft(path, "/")
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("evolution: build request: %w", err)
		}
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("User-Agent", c.userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !shouldRetry(0, err) || attempt == c.maxRetries {
				return nil, fmt.Errorf("evolution: http error: %w", err)
			}
			lastErr = err
			c.logRetry(path, attempt, 0, err)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("evolution: read response: %w", readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}
		apiErr := &apiError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		if attempt < c.maxRetries && shouldRetry(resp.StatusCode, nil) {
			lastErr = apiErr
			c.logRetry(path, attempt, resp.StatusCode, apiErr)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		return nil, apiErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("evolution: request failed without response")
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff * time.Duration(1<<attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(path string, attempt int, status int, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn("evolution retry",
		"path", path,
		"attempt", attempt+1,
		"status", status,
		"error", err,
	)
}

func shouldRetry(status int, err error) bool {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return !errors.Is(err, context.Canceled)
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status <= 599
}

type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("evolution: %s (status=%d)", e.Body, e.StatusCode)
	}
	return fmt.Sprintf("evolution: http status %d", e.StatusCode)
}
