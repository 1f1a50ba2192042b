package dine

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"

	goerrors "github.com/TudorHulban/go-errors"
	"github.com/asaskevich/govalidator"
)

// PriceTiers is the fixed set of price filters, cheapest first.
var PriceTiers = []string{"$", "$$", "$$$", "$$$$"}

// NoMatchesMessage is shown when a search finds nothing.
const NoMatchesMessage = "No restaurants found matching your criteria."

// Query selects restaurants. Price is optional and must be one of PriceTiers.
type Query struct {
	Category string `valid:"required" json:"category"`
	Price    string `json:"price,omitempty"`
}

func (q Query) Validate() error {
	if _, errValidation := govalidator.ValidateStruct(q); errValidation != nil {
		return goerrors.ErrValidation{
			Caller: "Search",
			Issue:  errValidation,
		}
	}
	if q.Price != "" && !slices.Contains(PriceTiers, q.Price) {
		return goerrors.ErrValidation{
			Caller: "Search",
			Issue: goerrors.ErrInvalidInput{
				InputName:  "price",
				InputValue: q.Price,
				Issue:      errors.New("price must be one of $, $$, $$$, $$$$"),
			},
		}
	}
	return nil
}

// Match is a catalog entry joined with its rating, or with Unrated.
type Match struct {
	Restaurant
	YelpData YelpData `json:"yelpData"`
	Rated    bool     `json:"rated"`
}

// Result of a search. An empty result is not an error.
type Result struct {
	Restaurants []Match `json:"restaurants"`
	Empty       bool    `json:"empty"`
	Message     string  `json:"message,omitempty"`
}

// Categories returns the distinct non-empty categories, sorted.
func Categories(restaurants []Restaurant) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range restaurants {
		if r.Category == "" {
			continue
		}
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	sort.Strings(out)
	return out
}

// Filter keeps restaurants in q.Category, in catalog order, joining each to
// the first rating whose company matches case-insensitively. A price narrows
// the result to rated restaurants at that tier.
func Filter(restaurants []Restaurant, ratings []Rating, q Query) Result {
	byCompany := make(map[string]Rating, len(ratings))
	for _, r := range ratings {
		key := strings.ToLower(r.Company)
		if _, dup := byCompany[key]; !dup {
			byCompany[key] = r
		}
	}
	res := Result{Restaurants: []Match{}}
	for _, r := range restaurants {
		if r.Category != q.Category {
			continue
		}
		m := Match{Restaurant: r, YelpData: Unrated()}
		if rating, ok := byCompany[strings.ToLower(r.Company)]; ok {
			m.YelpData = rating.YelpData
			m.Rated = true
		}
		if q.Price != "" && (!m.Rated || m.YelpData.Price != q.Price) {
			continue
		}
		res.Restaurants = append(res.Restaurants, m)
	}
	if len(res.Restaurants) == 0 {
		res.Empty = true
		res.Message = NoMatchesMessage
	}
	return res
}

// Service answers catalog queries against a Source. Every call fetches
// fresh data; a failed fetch aborts the call.
type Service struct {
	Source Source
}

func (s Service) Restaurants(ctx context.Context) ([]Restaurant, error) {
	return s.Source.Restaurants(ctx)
}

func (s Service) Categories(ctx context.Context) ([]string, error) {
	restaurants, err := s.Source.Restaurants(ctx)
	if err != nil {
		return nil, err
	}
	return Categories(restaurants), nil
}

func (s Service) Search(ctx context.Context, q Query) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}
	restaurants, err := s.Source.Restaurants(ctx)
	if err != nil {
		return Result{}, err
	}
	ratings, err := s.Source.Ratings(ctx)
	if err != nil {
		return Result{}, err
	}
	return Filter(restaurants, ratings, q), nil
}
