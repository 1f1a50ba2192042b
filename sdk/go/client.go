package planlinesdk

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
)

// Client is a minimal Planline HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// Plan is a stored task document header.
type Plan struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	TaskCount int             `json:"task_count"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
	Document  json.RawMessage `json:"document,omitempty"`
}

// ScheduleEntry is one solved task.
type ScheduleEntry struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Start       float64  `json:"start"`
	End         float64  `json:"end"`
	Cost        float64  `json:"cost"`
	Slack       *float64 `json:"slack,omitempty"`
	Critical    bool     `json:"critical,omitempty"`
}

// Run is the outcome of solving one scenario.
type Run struct {
	ID                 string          `json:"id"`
	PlanID             string          `json:"plan_id,omitempty"`
	Scenario           string          `json:"scenario"`
	Feasible           bool            `json:"feasible"`
	TotalDuration      float64         `json:"total_duration"`
	TotalCost          float64         `json:"total_cost"`
	AverageCostPerHour *float64        `json:"average_cost_per_hour,omitempty"`
	Schedule           []ScheduleEntry `json:"schedule"`
	CriticalPath       []string        `json:"critical_path,omitempty"`
	CreatedAt          string          `json:"created_at"`
}

// Categories lists restaurant categories and the accepted price tiers.
type Categories struct {
	Categories []string `json:"categories"`
	PriceTiers []string `json:"price_tiers"`
}

// Restaurant is a catalog entry joined with its Yelp data.
type Restaurant struct {
	ID       string          `json:"id"`
	Category string          `json:"category"`
	Company  string          `json:"company"`
	Address  string          `json:"address"`
	URL      string          `json:"url"`
	YelpData json.RawMessage `json:"yelpData"`
	Rated    bool            `json:"rated"`
}

// SearchResult of a restaurant search.
type SearchResult struct {
	Restaurants []Restaurant `json:"restaurants"`
	Empty       bool         `json:"empty"`
	Message     string       `json:"message,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	PlanID     string         `json:"plan_id"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// ImportPlan stores a task document under name.
func (c *Client) ImportPlan(ctx context.Context, name string, document []byte) (Plan, error) {
	endpoint := "v0/plans"
	if name != "" {
		endpoint += "?name=" + url.QueryEscape(name)
	}
	var resp Plan
	err := c.do(ctx, http.MethodPost, endpoint, json.RawMessage(document), &resp)
	return resp, err
}

// ListPlans returns plan headers, newest first.
func (c *Client) ListPlans(ctx context.Context, limit int) ([]Plan, error) {
	endpoint := "v0/plans"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Plan
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// SolvePlan solves a stored plan. An empty scenario uses the server default.
func (c *Client) SolvePlan(ctx context.Context, planID, scenario string) (Run, error) {
	endpoint := withScenario(fmt.Sprintf("v0/plans/%s/solve", url.PathEscape(planID)), scenario)
	var resp Run
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// Solve solves a task document without storing it.
func (c *Client) Solve(ctx context.Context, document []byte, scenario string) (Run, error) {
	var resp Run
	err := c.do(ctx, http.MethodPost, withScenario("v0/schedule/solve", scenario), json.RawMessage(document), &resp)
	return resp, err
}

// Runs lists the runs of a plan, newest first.
func (c *Client) Runs(ctx context.Context, planID string) ([]Run, error) {
	var resp []Run
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/plans/%s/runs", url.PathEscape(planID)), nil, &resp)
	return resp, err
}

// Categories returns the restaurant categories.
func (c *Client) Categories(ctx context.Context) (Categories, error) {
	var resp Categories
	err := c.do(ctx, http.MethodGet, "v0/restaurants/categories", nil, &resp)
	return resp, err
}

// SearchRestaurants filters restaurants by category and optional price tier.
func (c *Client) SearchRestaurants(ctx context.Context, category, price string) (SearchResult, error) {
	q := url.Values{}
	q.Set("category", category)
	if price != "" {
		q.Set("price", price)
	}
	var resp SearchResult
	err := c.do(ctx, http.MethodGet, "v0/restaurants/search?"+q.Encode(), nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "v0/events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func withScenario(endpoint, scenario string) string {
	if scenario == "" {
		return endpoint
	}
	return endpoint + "?scenario=" + url.QueryEscape(scenario)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
