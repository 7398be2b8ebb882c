/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
)

// ErrNotFound is returned when a project does not exist.
var ErrNotFound = errors.New("project not found")

// Plan is the floor plan projection of a project as exchanged with the server.
type Plan struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Scale     float64   `json:"scale"`
	SVG       string    `json:"floor_plan_svg"`
	Locked    bool      `json:"floor_plan_locked"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlanUpdate is a partial update; nil fields are left untouched.
type PlanUpdate struct {
	Name   *string  `json:"name,omitempty"`
	Scale  *float64 `json:"scale,omitempty"`
	SVG    *string  `json:"floor_plan_svg,omitempty"`
	Locked *bool    `json:"floor_plan_locked,omitempty"`
}

// Empty reports whether the update sets nothing.
func (u PlanUpdate) Empty() bool {
	return u.Name == nil && u.Scale == nil && u.SVG == nil && u.Locked == nil
}

// Client is a minimal HTTP client for the plan API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient replaces the underlying http.Client (timeouts, TLS).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.client = hc
	}
	return c
}

// StatusError carries a non-2xx server response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server %s %s: %s", e.Method, e.Path, e.Status)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, u.Path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: method, Path: u.Path, Code: resp.StatusCode, Status: resp.Status}
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func projectPath(id string) string {
	return "/api/projects/" + url.PathEscape(id)
}

// IssueToken asks the server for a bearer token and installs it on c.
func (c *Client) IssueToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	req := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", req, &out); err != nil {
		return "", err
	}
	c.Token = out.Token
	return out.Token, nil
}

// CreatePlan creates a new project with an empty plan.
func (c *Client) CreatePlan(ctx context.Context, name string, scale float64) (*Plan, error) {
	var p Plan
	upd := PlanUpdate{Name: &name, Scale: &scale}
	if err := c.doJSON(ctx, http.MethodPost, "/api/projects", upd, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPlan fetches the project's plan markup and lock flag.
func (c *Client) GetPlan(ctx context.Context, projectID string) (*Plan, error) {
	var p Plan
	if err := c.doJSON(ctx, http.MethodGet, projectPath(projectID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update sends a partial update.
func (c *Client) Update(ctx context.Context, projectID string, upd PlanUpdate) (*Plan, error) {
	var p Plan
	if err := c.doJSON(ctx, http.MethodPut, projectPath(projectID), upd, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePlan replaces the plan markup.
func (c *Client) UpdatePlan(ctx context.Context, projectID, svg string) error {
	_, err := c.Update(ctx, projectID, PlanUpdate{SVG: &svg})
	return err
}

// SetLocked changes the plan's lock flag.
func (c *Client) SetLocked(ctx context.Context, projectID string, locked bool) error {
	_, err := c.Update(ctx, projectID, PlanUpdate{Locked: &locked})
	return err
}

// Watch streams plan updates of a project until ctx ends or the connection
// drops. The current plan is delivered first.
func (c *Client) Watch(ctx context.Context, projectID string, fn func(Plan)) error {
	u, err := url.Parse(c.BaseURL + projectPath(projectID) + "/watch")
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	// the dial is bounded by ctx, not by the client's timeout
	opts := &websocket.DialOptions{
		HTTPClient: &http.Client{Transport: c.client.Transport},
		HTTPHeader: http.Header{},
	}
	if c.Token != "" {
		opts.HTTPHeader.Set("Authorization", "Bearer "+c.Token)
	}
	conn, _, err := websocket.Dial(ctx, u.String(), opts)
	if err != nil {
		return fmt.Errorf("dial watch: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMarkupBytes)
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return ctx.Err()
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("watch read: %w", err)
		}
		if typ != websocket.MessageText {
			continue
		}
		var ev WatchEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		fn(ev.Plan)
	}
}
