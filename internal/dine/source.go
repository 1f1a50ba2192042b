package dine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Source provides the catalog and the ratings dataset.
type Source interface {
	Restaurants(ctx context.Context) ([]Restaurant, error)
	Ratings(ctx context.Context) ([]Rating, error)
}

// FetchError is a network failure or a non-success response.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPSource fetches both datasets over HTTP.
type HTTPSource struct {
	CatalogURL string
	RatingsURL string
	Client     *http.Client
	Timeout    time.Duration
}

func (s HTTPSource) Restaurants(ctx context.Context) ([]Restaurant, error) {
	data, err := s.get(ctx, s.CatalogURL)
	if err != nil {
		return nil, err
	}
	return ParseRestaurants(data)
}

func (s HTTPSource) Ratings(ctx context.Context) ([]Rating, error) {
	data, err := s.get(ctx, s.RatingsURL)
	if err != nil {
		return nil, err
	}
	return ParseRatings(data)
}

func (s HTTPSource) get(ctx context.Context, url string) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Status: resp.StatusCode, Err: err}
	}
	return data, nil
}

// FileSource reads both datasets from disk on every call.
type FileSource struct {
	CatalogPath string
	RatingsPath string
}

func (s FileSource) Restaurants(ctx context.Context) ([]Restaurant, error) {
	data, err := readFile(ctx, s.CatalogPath)
	if err != nil {
		return nil, err
	}
	return ParseRestaurants(data)
}

func (s FileSource) Ratings(ctx context.Context) ([]Rating, error) {
	data, err := readFile(ctx, s.RatingsPath)
	if err != nil {
		return nil, err
	}
	return ParseRatings(data)
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FetchError{URL: path, Err: err}
	}
	return data, nil
}
