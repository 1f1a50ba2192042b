package yelp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newServer(t *testing.T, handler func(body []byte) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		status, out := handler(body)
		w.WriteHeader(status)
		w.Write([]byte(out))
	}))
}

func TestSearch(t *testing.T) {
	var seen []byte
	srv := newServer(t, func(body []byte) (int, string) {
		seen = body
		return http.StatusOK, `{"data":{"search":{"total":1,"business":[{"id":"b1","name":"Siam"}]}}}`
	})
	defer srv.Close()

	c := Client{Endpoint: srv.URL, APIKey: "key"}

	t.Run("1. default location and variables", func(t *testing.T) {
		body, err := c.Search(context.Background(), ParamsSearch{Term: `Joe"s`})
		require.NoError(t, err)
		require.Equal(t, "b1", gjson.GetBytes(body, "data.search.business.0.id").String())
		require.Equal(t, `Joe"s`, gjson.GetBytes(seen, "variables.term").String())
		require.Equal(t, "Marlborough, MA", gjson.GetBytes(seen, "variables.location").String())
		require.Equal(t, int64(1), gjson.GetBytes(seen, "variables.limit").Int())
		require.True(t, strings.Contains(gjson.GetBytes(seen, "query").String(), "term: $term"))
	})

	t.Run("2. input stays out of the query text", func(t *testing.T) {
		term := `x", location: "Elsewhere") { total } } #`
		_, err := c.Search(context.Background(), ParamsSearch{Term: term, Location: "Boston\nMA"})
		require.NoError(t, err)
		require.Equal(t, searchQuery, gjson.GetBytes(seen, "query").String())
		require.Equal(t, term, gjson.GetBytes(seen, "variables.term").String())
		require.Equal(t, "Boston\nMA", gjson.GetBytes(seen, "variables.location").String())
	})

	t.Run("3. term required", func(t *testing.T) {
		_, err := c.Search(context.Background(), ParamsSearch{})
		require.Error(t, err)
	})

	t.Run("4. missing key", func(t *testing.T) {
		_, err := Client{Endpoint: srv.URL}.Search(context.Background(), ParamsSearch{Term: "x"})
		require.ErrorIs(t, err, ErrNoAPIKey)
	})

	t.Run("5. bad key", func(t *testing.T) {
		_, err := Client{Endpoint: srv.URL, APIKey: "nope"}.Search(context.Background(), ParamsSearch{Term: "x"})
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		require.Equal(t, http.StatusUnauthorized, statusErr.Status)
	})
}

func TestReviews(t *testing.T) {
	var seen []byte
	srv := newServer(t, func(body []byte) (int, string) {
		seen = body
		if gjson.GetBytes(body, "variables.id").String() == "bad" {
			return http.StatusOK, `{"errors":[{"message":"business not found"}]}`
		}
		return http.StatusOK, `{"data":{"business":{"name":"Siam","reviews":[{"id":"r1"}]}}}`
	})
	defer srv.Close()

	c := Client{Endpoint: srv.URL, APIKey: "key", ReviewsLimit: 2}

	body, err := c.Reviews(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, int64(1), gjson.GetBytes(body, "data.business.reviews.#").Int())
	require.Equal(t, reviewsQuery, gjson.GetBytes(seen, "query").String())
	require.Equal(t, "b1", gjson.GetBytes(seen, "variables.id").String())
	require.Equal(t, int64(2), gjson.GetBytes(seen, "variables.limit").Int())

	body, err = c.Reviews(context.Background(), "bad")
	var gqlErr *GraphQLError
	require.True(t, errors.As(err, &gqlErr))
	require.NotEmpty(t, body)
	require.True(t, strings.Contains(err.Error(), "business not found"))

	_, err = c.Reviews(context.Background(), " ")
	require.Error(t, err)
}
