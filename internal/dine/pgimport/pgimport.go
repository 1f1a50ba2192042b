// Package pgimport loads the ratings dataset into PostgreSQL.
package pgimport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"planline/internal/dine"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS yelp_restaurants (
		restaurant_id    TEXT PRIMARY KEY,
		company          TEXT NOT NULL,
		yelp_business_id TEXT,
		yelp_data        JSONB NOT NULL,
		reviews          JSONB NOT NULL
	)`

const insertRating = `
	INSERT INTO yelp_restaurants
		(restaurant_id, company, yelp_business_id, yelp_data, reviews)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (restaurant_id) DO NOTHING`

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// NewPool creates a PostgreSQL connection pool and checks it is reachable.
func NewPool(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

type Stats struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Import creates yelp_restaurants if needed and inserts every rating.
// Rows whose restaurant_id already exists are skipped, as are ratings
// without a restaurant id.
func Import(ctx context.Context, db Execer, ratings []dine.Rating) (Stats, error) {
	var stats Stats
	if _, err := db.Exec(ctx, createTable); err != nil {
		return stats, fmt.Errorf("create yelp_restaurants: %w", err)
	}
	for _, r := range ratings {
		if r.RestaurantID == "" {
			stats.Skipped++
			continue
		}
		yelpData, err := json.Marshal(r.YelpData)
		if err != nil {
			return stats, fmt.Errorf("marshal yelp data for %s: %w", r.RestaurantID, err)
		}
		reviews := []byte(r.Reviews)
		if len(reviews) == 0 {
			reviews = []byte(`[]`)
		}
		tag, err := db.Exec(ctx, insertRating, r.RestaurantID, r.Company, nullable(r.YelpBusinessID), string(yelpData), string(reviews))
		if err != nil {
			return stats, fmt.Errorf("insert %s: %w", r.RestaurantID, err)
		}
		if tag.RowsAffected() == 0 {
			stats.Skipped++
			continue
		}
		stats.Inserted++
	}
	return stats, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
