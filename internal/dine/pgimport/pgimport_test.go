package pgimport

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"planline/internal/dine"
)

// fakeDB mimics ON CONFLICT DO NOTHING on restaurant_id.
type fakeDB struct {
	statements []string
	rows       map[string][]any
	fail       error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.statements = append(f.statements, sql)
	if f.fail != nil {
		return pgconn.CommandTag{}, f.fail
	}
	if !strings.Contains(sql, "INSERT INTO yelp_restaurants") {
		return pgconn.NewCommandTag("CREATE TABLE"), nil
	}
	id := args[0].(string)
	if _, ok := f.rows[id]; ok {
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	f.rows[id] = args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestImport(t *testing.T) {
	rating := 4.0
	ratings := []dine.Rating{
		{RestaurantID: "1", Company: "Siam Garden", YelpBusinessID: "siam-1", YelpData: dine.YelpData{Price: "$$", Rating: &rating}, Reviews: json.RawMessage(`[{"id":"r1"}]`)},
		{RestaurantID: "1", Company: "Siam Garden again"},
		{RestaurantID: "2", Company: "Bella Notte"},
		{Company: "No id"},
	}
	db := &fakeDB{rows: map[string][]any{}}

	stats, err := Import(context.Background(), db, ratings)
	require.NoError(t, err)
	require.Equal(t, Stats{Inserted: 2, Skipped: 2}, stats)
	require.True(t, strings.Contains(db.statements[0], "CREATE TABLE IF NOT EXISTS yelp_restaurants"))

	first := db.rows["1"]
	require.Equal(t, "Siam Garden", first[1])
	require.Equal(t, "siam-1", first[2])
	require.JSONEq(t, `{"price":"$$","rating":4}`, first[3].(string))
	require.JSONEq(t, `[{"id":"r1"}]`, first[4].(string))

	second := db.rows["2"]
	require.Nil(t, second[2])
	require.Equal(t, `[]`, second[4])
}

func TestImportFailure(t *testing.T) {
	db := &fakeDB{rows: map[string][]any{}, fail: errors.New("connection reset")}
	_, err := Import(context.Background(), db, []dine.Rating{{RestaurantID: "1"}})
	require.Error(t, err)
}
