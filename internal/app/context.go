package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"

	"planline/internal/config"
	"planline/internal/db"
	"planline/internal/dine"
	"planline/internal/engine"
	"planline/internal/migrate"
	"planline/internal/yelp"
)

// Workspace bundles what a command needs to act on a workspace directory.
type Workspace struct {
	Dir           string
	DB            *sql.DB
	Config        *config.Config
	Engine        engine.Engine
	SchemaVersion int
}

func (w Workspace) Close() error {
	if w.DB == nil {
		return nil
	}
	return w.DB.Close()
}

// ResolveConfig loads planline.yml from the workspace, falling back to the
// built-in defaults when the file is absent.
func ResolveConfig(workspace string, strict bool) (*config.Config, error) {
	if strict {
		return config.Load(workspace)
	}
	return config.LoadOptional(workspace)
}

// OpenWorkspace opens and migrates the workspace database and wires an
// engine around it. Callers must Close the result.
func OpenWorkspace(ctx context.Context, workspace string) (Workspace, error) {
	cfg, err := ResolveConfig(workspace, false)
	if err != nil {
		return Workspace{}, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return Workspace{}, err
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return Workspace{}, fmt.Errorf("migrate %s: %w", db.Path(workspace), err)
	}
	version, err := migrate.Version(ctx, conn)
	if err != nil {
		conn.Close()
		return Workspace{}, fmt.Errorf("schema version %s: %w", db.Path(workspace), err)
	}
	return Workspace{
		Dir:           workspace,
		DB:            conn,
		Config:        cfg,
		Engine:        engine.New(conn, cfg),
		SchemaVersion: version,
	}, nil
}

// DineService picks the restaurant source from config. URLs win over files;
// relative file paths resolve against the workspace. With neither set the
// service has no source.
func DineService(workspace string, cfg *config.Config) dine.Service {
	d := cfg.Dine
	if d.CatalogURL != "" && d.RatingsURL != "" {
		return dine.Service{Source: dine.HTTPSource{
			CatalogURL: d.CatalogURL,
			RatingsURL: d.RatingsURL,
			Timeout:    d.FetchTimeout,
		}}
	}
	if d.CatalogFile != "" && d.RatingsFile != "" {
		return dine.Service{Source: dine.FileSource{
			CatalogPath: resolve(workspace, d.CatalogFile),
			RatingsPath: resolve(workspace, d.RatingsFile),
		}}
	}
	return dine.Service{}
}

// YelpClient builds a client from config. An empty apiKey is allowed; calls
// then fail with yelp.ErrNoAPIKey.
func YelpClient(cfg *config.Config, apiKey string, logger *log.Logger) yelp.Client {
	return yelp.Client{
		Endpoint:     cfg.Yelp.Endpoint,
		APIKey:       apiKey,
		Logger:       logger,
		SearchLimit:  cfg.Yelp.SearchLimit,
		ReviewsLimit: cfg.Yelp.ReviewsLimit,
		Timeout:      cfg.Dine.FetchTimeout,
	}
}

func resolve(workspace, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workspace, p)
}
