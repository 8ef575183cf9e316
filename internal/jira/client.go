// Package jira is a minimal client for the Jira Server REST API v2:
// JQL search with pagination, single-issue fetch, partial field
// updates, and comment creation. It covers exactly the surface
// Switchman needs, no more.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Client talks to one Jira instance with a bearer token.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the given base URL. The token becomes
// a static bearer credential on every request; it must come from the
// environment, never from source or config files.
func NewClient(baseURL, token string) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = 30 * time.Second
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Search runs a JQL query and pages through results until the server
// returns a short or empty page or the total reaches max. Any transport
// or non-2xx failure aborts the whole fetch: no partial results, no
// retry. Issues come back in API return order.
func (c *Client) Search(ctx context.Context, jql string, pageSize, max int) ([]Issue, error) {
	if jql == "" {
		return nil, fmt.Errorf("jira: search: jql is required")
	}
	if pageSize < 1 {
		return nil, fmt.Errorf("jira: search: page size must be positive, got %d", pageSize)
	}
	if max < 1 {
		return nil, fmt.Errorf("jira: search: max must be positive, got %d", max)
	}

	var all []Issue
	for startAt := 0; len(all) < max; startAt += pageSize {
		u := fmt.Sprintf("%s/rest/api/2/search?jql=%s&startAt=%d&maxResults=%d&fields=*all",
			c.baseURL, url.QueryEscape(jql), startAt, pageSize)

		var page struct {
			Issues []Issue `json:"issues"`
		}
		if err := c.getJSON(ctx, u, &page); err != nil {
			return nil, fmt.Errorf("jira: search: %w", err)
		}
		if len(page.Issues) == 0 {
			break
		}

		all = append(all, page.Issues...)
		if len(page.Issues) < pageSize {
			break
		}
	}

	if len(all) > max {
		all = all[:max]
	}
	return all, nil
}

// GetIssue fetches the full detail of one issue by id or key. Search
// results can omit fields, so linked-issue evaluation always goes
// through this.
func (c *Client) GetIssue(ctx context.Context, idOrKey string) (*Issue, error) {
	if idOrKey == "" {
		return nil, fmt.Errorf("jira: get issue: id is required")
	}
	u := fmt.Sprintf("%s/rest/api/2/issue/%s", c.baseURL, url.PathEscape(idOrKey))
	var issue Issue
	if err := c.getJSON(ctx, u, &issue); err != nil {
		return nil, fmt.Errorf("jira: get issue %s: %w", idOrKey, err)
	}
	return &issue, nil
}

// UpdateFields applies a partial field update to one issue. Fields not
// named in the map are untouched by Jira.
func (c *Client) UpdateFields(ctx context.Context, idOrKey string, fields map[string]interface{}) error {
	if idOrKey == "" {
		return fmt.Errorf("jira: update fields: id is required")
	}
	u := fmt.Sprintf("%s/rest/api/2/issue/%s", c.baseURL, url.PathEscape(idOrKey))
	payload := map[string]interface{}{"fields": fields}
	if err := c.send(ctx, http.MethodPut, u, payload); err != nil {
		return fmt.Errorf("jira: update fields on %s: %w", idOrKey, err)
	}
	return nil
}

// AddComment appends a comment to one issue's comment thread. There is
// no idempotency key: retrying after a transient failure can duplicate
// the comment.
func (c *Client) AddComment(ctx context.Context, idOrKey, body string) error {
	if idOrKey == "" {
		return fmt.Errorf("jira: add comment: id is required")
	}
	u := fmt.Sprintf("%s/rest/api/2/issue/%s/comment", c.baseURL, url.PathEscape(idOrKey))
	payload := map[string]interface{}{"body": body}
	if err := c.send(ctx, http.MethodPost, u, payload); err != nil {
		return fmt.Errorf("jira: add comment to %s: %w", idOrKey, err)
	}
	return nil
}

// getJSON issues a GET and decodes a JSON response into out.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send issues a JSON-bodied request and discards any response body.
func (c *Client) send(ctx context.Context, method, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	return nil
}

// statusError summarizes a non-2xx response, keeping a short body
// excerpt for diagnostics.
func statusError(resp *http.Response) error {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	msg := strings.TrimSpace(string(excerpt))
	if msg == "" {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
}
