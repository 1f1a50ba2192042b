// Package enrich builds the ratings dataset by looking up every catalog
// entry on Yelp.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tidwall/gjson"

	"planline/internal/dine"
	"planline/internal/yelp"
)

const (
	ReasonNoBusiness = "No Business Found"
	ReasonAPIError   = "Yelp API Error"
	ReasonNetwork    = "Network Error"
)

// Looker is the part of the Yelp client enrichment needs.
type Looker interface {
	Search(ctx context.Context, params yelp.ParamsSearch) ([]byte, error)
	Reviews(ctx context.Context, businessID string) ([]byte, error)
}

// Failure records a restaurant that produced no rating.
type Failure struct {
	Restaurant dine.Restaurant `json:"restaurant"`
	Error      string          `json:"error"`
	Details    json.RawMessage `json:"details,omitempty"`
}

type Report struct {
	Ratings  []dine.Rating `json:"ratings"`
	Failures []Failure     `json:"failures"`
}

type Options struct {
	// Pause between restaurants; the API is rate limited.
	Pause  time.Duration
	Logger *log.Logger
}

// Run looks up every restaurant in order. Per-restaurant failures are
// recorded and do not stop the run; a canceled ctx or a missing API key
// does, returning what was collected so far.
func Run(ctx context.Context, client Looker, restaurants []dine.Restaurant, opts Options) (Report, error) {
	rep := Report{Ratings: []dine.Rating{}, Failures: []Failure{}}
	for i, r := range restaurants {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		logf(opts.Logger, "enrich %d/%d: %s", i+1, len(restaurants), r.Company)
		rating, failure, err := lookup(ctx, client, r)
		if err != nil {
			return rep, fmt.Errorf("enrich %s: %w", r.Company, err)
		}
		if failure != nil {
			logf(opts.Logger, "enrich: %s: %s", r.Company, failure.Error)
			rep.Failures = append(rep.Failures, *failure)
		} else {
			rep.Ratings = append(rep.Ratings, rating)
		}
		if opts.Pause > 0 && i < len(restaurants)-1 {
			select {
			case <-ctx.Done():
				return rep, ctx.Err()
			case <-time.After(opts.Pause):
			}
		}
	}
	return rep, nil
}

// lookup returns an error only for conditions that would fail every
// remaining restaurant the same way.
func lookup(ctx context.Context, client Looker, r dine.Restaurant) (dine.Rating, *Failure, error) {
	body, err := client.Search(ctx, yelp.ParamsSearch{Term: r.Company, Location: r.Address})
	if errors.Is(err, yelp.ErrNoAPIKey) {
		return dine.Rating{}, nil, err
	}
	if err != nil {
		return dine.Rating{}, failureFor(r, err), nil
	}
	business := gjson.GetBytes(body, "data.search.business.0")
	if !business.IsObject() {
		return dine.Rating{}, &Failure{Restaurant: r, Error: ReasonNoBusiness}, nil
	}
	data := dine.ParseYelpData(business)
	rating := dine.Rating{
		RestaurantID:   r.ID,
		Company:        r.Company,
		YelpBusinessID: data.ID,
		YelpData:       data,
		Reviews:        json.RawMessage(`[]`),
	}
	if data.ID != "" {
		// A failed reviews lookup keeps the rating without reviews.
		if reviewsBody, err := client.Reviews(ctx, data.ID); err == nil {
			if reviews := gjson.GetBytes(reviewsBody, "data.business.reviews"); reviews.IsArray() {
				rating.Reviews = json.RawMessage(reviews.Raw)
			}
		}
	}
	return rating, nil, nil
}

func failureFor(r dine.Restaurant, err error) *Failure {
	var (
		gqlErr    *yelp.GraphQLError
		statusErr *yelp.StatusError
	)
	switch {
	case errors.As(err, &gqlErr):
		return &Failure{Restaurant: r, Error: ReasonAPIError, Details: gqlErr.Errors}
	case errors.As(err, &statusErr):
		return &Failure{Restaurant: r, Error: fmt.Sprintf("HTTP %d", statusErr.Status), Details: detail(statusErr.Body)}
	default:
		return &Failure{Restaurant: r, Error: ReasonNetwork, Details: detail(err.Error())}
	}
}

func detail(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}

func logf(l *log.Logger, format string, args ...any) {
	if l != nil {
		l.Printf(format, args...)
	}
}
