package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
)

// Client fetches graphs from a remote paperatlas server.
type Client struct {
	base string
	http *http.Client
}

// NewClient targets the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Initial implements Source.
func (c *Client) Initial(ctx context.Context) (*graph.Subgraph, error) {
	var r Response
	if err := c.get(ctx, "/api/graph/daily", &r); err != nil {
		return nil, err
	}
	return FromResponse(&r), nil
}

// Expand implements Source.
func (c *Client) Expand(ctx context.Context, id string) (*graph.Subgraph, error) {
	var r Response
	if err := c.get(ctx, "/api/graph/expand/"+url.PathEscape(id), &r); err != nil {
		return nil, err
	}
	return FromResponse(&r), nil
}

// Detail implements Source.
func (c *Client) Detail(ctx context.Context, id string) (*Detail, error) {
	var d Detail
	if err := c.get(ctx, "/api/papers/"+url.PathEscape(id)+"/detail", &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("GET %s: %w", path, ErrNotFound)
	case resp.StatusCode/100 != 2:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
