// Package directory reads panchayaths, wards and agents from the independent
// directory service used by the public registration form.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Panchayath as published by the directory.
type Panchayath struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	District string `json:"district,omitempty"`
}

// Ward belongs to a panchayath.
type Ward struct {
	ID           string `json:"id"`
	PanchayathID string `json:"panchayath_id"`
	WardNumber   string `json:"ward_number"`
	WardName     string `json:"ward_name,omitempty"`
}

// Agent is a field coordinator that may be recorded on a registration.
type Agent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Mobile       string `json:"mobile,omitempty"`
	PanchayathID string `json:"panchayath_id,omitempty"`
	Ward         string `json:"ward,omitempty"`
}

// Client talks to the directory over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient returns a client. A zero timeout uses 5s.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Configured reports whether a base URL was provided.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Panchayaths lists panchayaths ordered by the directory.
func (c *Client) Panchayaths(ctx context.Context) ([]Panchayath, error) {
	var out []Panchayath
	if err := c.get(ctx, "/panchayaths", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch panchayaths: %w", err)
	}
	return out, nil
}

// Wards lists the wards of one panchayath.
func (c *Client) Wards(ctx context.Context, panchayathID string) ([]Ward, error) {
	var out []Ward
	path := "/panchayaths/" + url.PathEscape(panchayathID) + "/wards"
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch wards: %w", err)
	}
	return out, nil
}

// Agents lists agents, optionally restricted to a panchayath.
func (c *Client) Agents(ctx context.Context, panchayathID string) ([]Agent, error) {
	query := url.Values{}
	if panchayathID != "" {
		query.Set("panchayath_id", panchayathID)
	}
	var out []Agent
	if err := c.get(ctx, "/agents", query, &out); err != nil {
		return nil, fmt.Errorf("fetch agents: %w", err)
	}
	return out, nil
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest interface{}) error {
	if !c.Configured() {
		return fmt.Errorf("directory base url not configured")
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// The directory answers either with a bare array or with {"data": [...]}.
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return err
		}
		if len(env.Data) == 0 {
			return nil
		}
		body = env.Data
	}
	return json.Unmarshal(body, dest)
}
