package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"planline/internal/config"
	"planline/internal/dine"
	"planline/internal/migrate"
)

func TestOpenWorkspace(t *testing.T) {
	dir := t.TempDir()
	ws, err := OpenWorkspace(context.Background(), dir)
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	defer ws.Close()
	if ws.Config.Scenario("") != "expected" {
		t.Fatalf("expected default config, got %+v", ws.Config.Schedule)
	}
	v, err := migrate.Version(context.Background(), ws.DB)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v < 1 {
		t.Fatalf("expected migrated schema, got version %d", v)
	}
	if ws.SchemaVersion != v {
		t.Fatalf("workspace schema version %d, database %d", ws.SchemaVersion, v)
	}
	if _, err := os.Stat(filepath.Join(dir, ".planline", "planline.db")); err != nil {
		t.Fatalf("db file missing: %v", err)
	}
}

func TestResolveConfigStrict(t *testing.T) {
	dir := t.TempDir()
	if _, err := ResolveConfig(dir, true); err == nil {
		t.Fatalf("expected error without planline.yml")
	}
	if err := os.WriteFile(config.Path(dir), []byte("schedule:\n  scenarios: [fast]\n  default_scenario: fast\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := ResolveConfig(dir, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Scenario("") != "fast" {
		t.Fatalf("expected fast, got %s", cfg.Scenario(""))
	}
}

func TestDineService(t *testing.T) {
	cfg := config.Default()
	svc := DineService("/ws", cfg)
	src, ok := svc.Source.(dine.FileSource)
	if !ok {
		t.Fatalf("expected file source, got %T", svc.Source)
	}
	if src.CatalogPath != filepath.Join("/ws", "data", "restaurants-v001.json") {
		t.Fatalf("unexpected catalog path %s", src.CatalogPath)
	}

	cfg.Dine.CatalogURL = "https://example.test/restaurants.json"
	cfg.Dine.RatingsURL = "https://example.test/yelp-data.json"
	if _, ok := DineService("/ws", cfg).Source.(dine.HTTPSource); !ok {
		t.Fatalf("expected http source when urls are set")
	}

	cfg.Dine = config.DineConfig{}
	if DineService("/ws", cfg).Source != nil {
		t.Fatalf("expected no source")
	}
}

func TestYelpClient(t *testing.T) {
	cfg := config.Default()
	c := YelpClient(cfg, "key", nil)
	if c.APIKey != "key" || c.SearchLimit != 1 || c.ReviewsLimit != 3 {
		t.Fatalf("unexpected client %+v", c)
	}
}
