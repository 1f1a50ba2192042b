// Package yelp is a small client for the Yelp GraphQL API.
package yelp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/TudorHulban/go-errors"
	"github.com/asaskevich/govalidator"
	"github.com/tidwall/gjson"
)

const (
	DefaultEndpoint = "https://api.yelp.com/v3/graphql"
	DefaultLocation = "Marlborough, MA"
)

const searchQuery = `query Search($term: String!, $location: String!, $limit: Int!) {
    search(term: $term, location: $location, limit: $limit) {
        total
        business {
            id
            name
            rating
            review_count
            price
            phone
            url
            photos
        }
    }
}`

const reviewsQuery = `query Reviews($id: String!, $limit: Int!) {
    business(id: $id) {
        name
        reviews(limit: $limit) {
            id
            rating
            text
            time_created
            user {
                name
            }
        }
    }
}`

// ErrNoAPIKey is returned before any request is made without a key.
var ErrNoAPIKey = errors.New("no Yelp API key set in environment")

// StatusError is a non-200 answer from the API.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Yelp GraphQL error %d: %s", e.Status, e.Body)
}

// GraphQLError is a 200 answer carrying an errors member.
type GraphQLError struct {
	Errors json.RawMessage
}

func (e *GraphQLError) Error() string {
	msg := gjson.GetBytes(e.Errors, "0.message").String()
	if msg == "" {
		msg = string(e.Errors)
	}
	return "yelp api error: " + msg
}

type Client struct {
	Endpoint     string
	APIKey       string
	HTTPClient   *http.Client
	Logger       *log.Logger
	SearchLimit  int
	ReviewsLimit int
	Timeout      time.Duration
}

type ParamsSearch struct {
	Term     string `valid:"required"`
	Location string
}

// Search runs a business search. The raw response is returned even when it
// carries GraphQL errors.
func (c Client) Search(ctx context.Context, params ParamsSearch) ([]byte, error) {
	if _, errValidation := govalidator.ValidateStruct(params); errValidation != nil {
		return nil, goerrors.ErrValidation{
			Caller: "Search",
			Issue:  errValidation,
		}
	}
	location := params.Location
	if location == "" {
		location = DefaultLocation
	}
	limit := c.SearchLimit
	if limit <= 0 {
		limit = 1
	}
	return c.Query(ctx, searchQuery, map[string]any{
		"term":     params.Term,
		"location": location,
		"limit":    limit,
	})
}

// Reviews fetches the latest reviews of one business.
func (c Client) Reviews(ctx context.Context, businessID string) ([]byte, error) {
	if strings.TrimSpace(businessID) == "" {
		return nil, goerrors.ErrValidation{
			Caller: "Reviews",
			Issue: goerrors.ErrNilInput{
				InputName: "businessId",
			},
		}
	}
	limit := c.ReviewsLimit
	if limit <= 0 {
		limit = 3
	}
	return c.Query(ctx, reviewsQuery, map[string]any{
		"id":    businessID,
		"limit": limit,
	})
}

// Query posts a GraphQL query. User input belongs in variables, never in
// the query text.
func (c Client) Query(ctx context.Context, query string, variables map[string]any) ([]byte, error) {
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if variables == nil {
		variables = map[string]any{}
	}
	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql query: %w", err)
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contact Yelp GraphQL: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read Yelp response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logf("yelp: status %d: %s", resp.StatusCode, body)
		return nil, &StatusError{Status: resp.StatusCode, Body: string(body)}
	}
	if errs := gjson.GetBytes(body, "errors"); errs.Exists() {
		return body, &GraphQLError{Errors: json.RawMessage(errs.Raw)}
	}
	return body, nil
}

func (c Client) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
