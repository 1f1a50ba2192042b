package dine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func fileService() Service {
	return Service{Source: FileSource{
		CatalogPath: "testdata/restaurants.json",
		RatingsPath: "testdata/yelp-data.json",
	}}
}

func TestParseRestaurants(t *testing.T) {
	data, err := os.ReadFile("testdata/restaurants.json")
	require.NoError(t, err)

	t.Run("1. bare array", func(t *testing.T) {
		restaurants, errParse := ParseRestaurants(data)
		require.NoError(t, errParse)
		require.Len(t, restaurants, 5)
		require.Equal(t, "1", restaurants[0].ID)
		require.Equal(t, "42.3459", restaurants[0].Latitude)
		require.Equal(t, "42.35", restaurants[1].Latitude)
		require.Equal(t, "42", restaurants[4].MenuLink)
	})

	t.Run("2. envelope", func(t *testing.T) {
		restaurants, errParse := ParseRestaurants([]byte(`{"restaurants":[{"category":"Thai","company":"X"}]}`))
		require.NoError(t, errParse)
		require.Len(t, restaurants, 1)
		require.Equal(t, "Thai", restaurants[0].Category)
	})

	t.Run("3. invalid shapes", func(t *testing.T) {
		_, errParse := ParseRestaurants([]byte(`{"items":[]}`))
		require.Error(t, errParse)
		_, errParse = ParseRestaurants([]byte(`{`))
		require.Error(t, errParse)
	})
}

func TestParseRatings(t *testing.T) {
	data, err := os.ReadFile("testdata/yelp-data.json")
	require.NoError(t, err)

	ratings, err := ParseRatings(data)
	require.NoError(t, err)
	require.Len(t, ratings, 4)

	require.Equal(t, "BELLA NOTTE", ratings[0].Company)
	require.NotNil(t, ratings[0].YelpData.Rating)
	require.Equal(t, 4.5, *ratings[0].YelpData.Rating)
	require.Equal(t, 120, ratings[0].YelpData.ReviewCount)
	require.Equal(t, []string{"https://img.example/1.jpg"}, ratings[0].YelpData.Photos)
	require.JSONEq(t, `[{"id": "r1", "rating": 5, "text": "Great"}]`, string(ratings[0].Reviews))

	require.Nil(t, ratings[2].YelpData.Rating, "a non-numeric rating reads as unknown")

	_, err = ParseRatings([]byte(`{"a":1}`))
	require.Error(t, err)
}

func TestCategories(t *testing.T) {
	cats, err := fileService().Categories(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Italian", "Thai"}, cats)

	require.Empty(t, Categories(nil))
}

func TestSearch(t *testing.T) {
	svc := fileService()
	ctx := context.Background()

	t.Run("1. category joins first matching rating", func(t *testing.T) {
		res, err := svc.Search(ctx, Query{Category: "Italian"})
		require.NoError(t, err)
		require.False(t, res.Empty)
		require.Len(t, res.Restaurants, 3)

		require.Equal(t, "Bella Notte", res.Restaurants[0].Company)
		require.True(t, res.Restaurants[0].Rated)
		require.Equal(t, "$$", res.Restaurants[0].YelpData.Price)

		require.Equal(t, "Pasta Pronto", res.Restaurants[1].Company)
		require.Equal(t, "$", res.Restaurants[1].YelpData.Price)

		require.Equal(t, "Trattoria Uno", res.Restaurants[2].Company)
		require.False(t, res.Restaurants[2].Rated)
		require.Equal(t, "N/A", res.Restaurants[2].YelpData.Price)
		require.Nil(t, res.Restaurants[2].YelpData.Rating)
	})

	t.Run("2. price narrows", func(t *testing.T) {
		res, err := svc.Search(ctx, Query{Category: "Italian", Price: "$$"})
		require.NoError(t, err)
		require.Len(t, res.Restaurants, 1)
		require.Equal(t, "Bella Notte", res.Restaurants[0].Company)
	})

	t.Run("3. no matches is not an error", func(t *testing.T) {
		res, err := svc.Search(ctx, Query{Category: "Mexican"})
		require.NoError(t, err)
		require.True(t, res.Empty)
		require.Empty(t, res.Restaurants)
		require.Equal(t, NoMatchesMessage, res.Message)

		res, err = svc.Search(ctx, Query{Category: "Thai", Price: "$$$$"})
		require.NoError(t, err)
		require.True(t, res.Empty)
	})

	t.Run("4. validation", func(t *testing.T) {
		_, err := svc.Search(ctx, Query{})
		require.Error(t, err)

		_, err = svc.Search(ctx, Query{Category: "Thai", Price: "cheap"})
		require.Error(t, err)
	})

	t.Run("5. missing ratings file aborts", func(t *testing.T) {
		broken := Service{Source: FileSource{
			CatalogPath: "testdata/restaurants.json",
			RatingsPath: "testdata/missing.json",
		}}
		_, err := broken.Search(ctx, Query{Category: "Thai"})
		var fetchErr *FetchError
		require.True(t, errors.As(err, &fetchErr))
	})
}

func TestHTTPSource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/restaurants", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"restaurants":[{"category":"Thai","company":"Siam Garden"}]}`))
	})
	mux.HandleFunc("/data/yelp-data.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"company":"siam garden","yelp_data":{"price":"$$","rating":4}}]`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	t.Run("1. fetch and join", func(t *testing.T) {
		svc := Service{Source: HTTPSource{
			CatalogURL: srv.URL + "/api/restaurants",
			RatingsURL: srv.URL + "/data/yelp-data.json",
		}}
		res, err := svc.Search(context.Background(), Query{Category: "Thai", Price: "$$"})
		require.NoError(t, err)
		require.Len(t, res.Restaurants, 1)
		require.Equal(t, 4.0, *res.Restaurants[0].YelpData.Rating)
	})

	t.Run("2. non-success status", func(t *testing.T) {
		svc := Service{Source: HTTPSource{CatalogURL: srv.URL + "/broken"}}
		_, err := svc.Categories(context.Background())
		var fetchErr *FetchError
		require.True(t, errors.As(err, &fetchErr))
		require.Equal(t, http.StatusInternalServerError, fetchErr.Status)
	})
}
