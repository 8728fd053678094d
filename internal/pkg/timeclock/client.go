// Package timeclock reads punches from an external time-and-attendance
// service over its paginated HTTP API.
package timeclock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/punch"
)

// APIError is a non-2xx answer from the time clock.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("timeclock: status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	http     *http.Client
}

type Config struct {
	BaseURL  string
	APIKey   string
	PageSize int
	Timeout  time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		pageSize: cfg.PageSize,
		http:     &http.Client{Timeout: timeout},
	}
}

type pageResponse struct {
	Punches       []punch.Record `json:"punches"`
	NextPageToken string         `json:"next_page_token"`
}

// FetchPage implements punch.Feed.
func (c *Client) FetchPage(ctx context.Context, window punch.Window, pageToken string) (punch.Page, error) {
	q := url.Values{}
	q.Set("from", window.Start.Format(time.RFC3339))
	q.Set("to", window.End.Format(time.RFC3339))
	if c.pageSize > 0 {
		q.Set("page_size", strconv.Itoa(c.pageSize))
	}
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/punches?"+q.Encode(), nil)
	if err != nil {
		return punch.Page{}, fmt.Errorf("build timeclock request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return punch.Page{}, fmt.Errorf("timeclock request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return punch.Page{}, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var page pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return punch.Page{}, fmt.Errorf("decode timeclock page: %w", err)
	}

	return punch.Page{Records: page.Punches, NextPageToken: page.NextPageToken}, nil
}
