package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"planline/internal/app"
	"planline/internal/chart"
	"planline/internal/config"
	"planline/internal/db"
	"planline/internal/dine"
	"planline/internal/dine/enrich"
	"planline/internal/dine/pgimport"
	"planline/internal/domain"
	"planline/internal/engine"
	"planline/internal/migrate"
	"planline/internal/render"
	"planline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "pl",
	Short: "Planline CLI",
	Long: `Planline schedules project tasks with a linear program and keeps a log of every plan and run.
- Plan: a task document (tasks with per-scenario durations and worker hours, plus predecessors).
- Scenario: which duration estimate to schedule with (best, expected, worst by default).
- Run: one solved scenario of a plan with start/end per task, total duration and cost.
- Dine: a small restaurant finder over a catalog joined with Yelp ratings.
- Event log: diary of imports and solves, view with 'pl log tail'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var fetchErr *dine.FetchError
		if errors.As(err, &fetchErr) {
			fmt.Println(color.RedString("Failed to load restaurant data."), "Please try again later.")
		}
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	// .env never overrides variables already set in the environment.
	_ = godotenv.Load(filepath.Join(viper.GetString("workspace"), ".env"))
	viper.SetEnvPrefix("PLANLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(solveCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(dineCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create planline.yml and the workspace database",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(cmd.Context(), conn); err != nil {
				return err
			}
			version, err := migrate.Version(cmd.Context(), conn)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"config": path, "database": db.Path(workspace), "schema_version": version})
			}
			fmt.Printf("Wrote %s\nDatabase at %s (schema version %d)\n", path, db.Path(workspace), version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing planline.yml")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect planline.yml",
		Long:  "Config holds worker rates, known scenarios, restaurant data sources and Yelp settings. Without planline.yml the built-in defaults apply.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"), false)
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate planline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"), true)
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func planCmd() *cobra.Command {
	plan := &cobra.Command{
		Use:   "plan",
		Short: "Manage stored task documents",
	}
	plan.AddCommand(planImportCmd())
	plan.AddCommand(planListCmd())
	plan.AddCommand(planShowCmd())
	plan.AddCommand(planDeleteCmd())
	return plan
}

func planImportCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a task document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.ImportPlan(ctx, engine.ImportOptions{
					Name:     name,
					Document: data,
					ActorID:  viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("Imported plan %s (%s, %d tasks)\n", p.ID, p.Name, p.TaskCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "plan name (defaults to the file name)")
	return cmd
}

func planListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListPlans(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Tasks", "Created"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.TaskCount, p.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max plans")
	return cmd
}

func planShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a plan with its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.GetPlan(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func planDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a plan and its runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeletePlan(ctx, args[0], viper.GetString("actor-id")); err != nil {
					return err
				}
				fmt.Printf("Deleted plan %s\n", args[0])
				return nil
			})
		},
	}
}

func solveCmd() *cobra.Command {
	var planID, file, scenario, ganttPath string
	var all, ascii bool
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve a plan or a task document",
		Long:  "Builds the scheduling program for a scenario and solves it. --plan records the run in the workspace; --file solves without storing anything.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (planID == "") == (file == "") {
				return fmt.Errorf("exactly one of --plan or --file is required")
			}
			var doc domain.Document
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				parsed, err := domain.ParseDocument(data)
				if err != nil {
					return err
				}
				doc = parsed
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				scenarios := []string{e.Config.Scenario(scenario)}
				if all {
					scenarios = e.Config.Schedule.Scenarios
				}
				var handle chart.Handle
				defer handle.Dispose()
				var runs []domain.Run
				for _, sc := range scenarios {
					var run domain.Run
					if planID != "" {
						r, err := e.SolvePlan(ctx, planID, sc, viper.GetString("actor-id"))
						if err != nil {
							return err
						}
						run = r
					} else {
						res, err := e.SolveDocument(ctx, doc, sc)
						if err != nil {
							return err
						}
						run = res.Run()
					}
					runs = append(runs, run)
					if ganttPath != "" && run.Feasible {
						out := ganttPath
						if len(scenarios) > 1 {
							out = scenarioPath(ganttPath, sc)
						}
						if err := writeGantt(&handle, out, run); err != nil {
							return err
						}
					}
				}
				if viper.GetBool("json") {
					if len(runs) == 1 {
						return printJSON(runs[0])
					}
					return printJSON(runs)
				}
				for i, run := range runs {
					if i > 0 {
						fmt.Println()
					}
					render.Schedule(os.Stdout, run)
					if ascii && run.Feasible {
						fmt.Println()
						if err := (render.Gantt{}).Render(os.Stdout, "Gantt Chart - "+run.Scenario, chart.FromSchedule(run.Schedule)); err != nil {
							return err
						}
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&planID, "plan", "", "stored plan id")
	cmd.Flags().StringVar(&file, "file", "", "task document path")
	cmd.Flags().StringVar(&scenario, "scenario", "", "scenario (defaults to schedule.default_scenario)")
	cmd.Flags().BoolVar(&all, "all", false, "solve every configured scenario")
	cmd.Flags().StringVar(&ganttPath, "gantt", "", "write an HTML Gantt chart to this path")
	cmd.Flags().BoolVar(&ascii, "ascii", false, "print a text Gantt chart")
	return cmd
}

func writeGantt(handle *chart.Handle, path string, run domain.Run) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := handle.Render(f, "Gantt Chart - "+run.Scenario, chart.FromSchedule(run.Schedule)); err != nil {
		return err
	}
	if !viper.GetBool("json") {
		fmt.Printf("Gantt chart written to %s\n", path)
	}
	return nil
}

// scenarioPath turns out.html into out-worst.html.
func scenarioPath(path, scenario string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + scenario + ext
}

func runsCmd() *cobra.Command {
	runs := &cobra.Command{
		Use:   "runs",
		Short: "Inspect solved runs",
	}
	var planID string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List runs of a plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListRuns(ctx, planID, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Scenario", "Feasible", "Duration", "Cost", "Created"})
				for _, r := range items {
					tw.AppendRow(table.Row{r.ID, r.Scenario, r.Feasible, r.TotalDuration, r.TotalCost, r.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&planID, "plan", "", "plan id")
	list.Flags().IntVar(&limit, "limit", 20, "max runs")
	_ = list.MarkFlagRequired("plan")
	runs.AddCommand(list)
	return runs
}

func dineCmd() *cobra.Command {
	d := &cobra.Command{
		Use:   "dine",
		Short: "Restaurant finder",
		Long:  "Search the restaurant catalog by category and price, joined with Yelp ratings. Sources come from the dine section of planline.yml.",
	}
	d.AddCommand(dineCategoriesCmd())
	d.AddCommand(dineSearchCmd())
	d.AddCommand(dineEnrichCmd())
	d.AddCommand(dineImportPGCmd())
	return d
}

func dineCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List restaurant categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := dineService()
			if err != nil {
				return err
			}
			cats, err := svc.Categories(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"categories": cats, "price_tiers": dine.PriceTiers})
			}
			for _, c := range cats {
				fmt.Println(c)
			}
			return nil
		},
	}
}

func dineSearchCmd() *cobra.Command {
	var category, price string
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find restaurants by category and price",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := dineService()
			if err != nil {
				return err
			}
			res, err := svc.Search(cmd.Context(), dine.Query{Category: category, Price: price})
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(res)
			}
			render.Restaurants(os.Stdout, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "restaurant category")
	cmd.Flags().StringVar(&price, "price", "", "price tier: $, $$, $$$ or $$$$")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func dineEnrichCmd() *cobra.Command {
	var out, failuresOut string
	var pause time.Duration
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Look up every catalog restaurant on Yelp",
		Long:  "Searches Yelp for each restaurant near the configured location, fetches its latest reviews and writes the ratings dataset.",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := app.ResolveConfig(workspace, false)
			if err != nil {
				return err
			}
			svc := app.DineService(workspace, cfg)
			if svc.Source == nil {
				return errors.New("no restaurant source configured in planline.yml")
			}
			restaurants, err := svc.Restaurants(cmd.Context())
			if err != nil {
				return err
			}
			logger := log.New(os.Stderr, "", log.LstdFlags)
			client := app.YelpClient(cfg, yelpAPIKey(), logger)
			rep, err := enrich.Run(cmd.Context(), client, restaurants, enrich.Options{Pause: pause, Logger: logger})
			if err != nil {
				return err
			}
			if err := writeJSONFile(out, rep.Ratings); err != nil {
				return err
			}
			if failuresOut != "" {
				if err := writeJSONFile(failuresOut, rep.Failures); err != nil {
					return err
				}
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ratings": len(rep.Ratings), "failures": rep.Failures})
			}
			fmt.Printf("Wrote %d ratings to %s\n", len(rep.Ratings), out)
			if len(rep.Failures) > 0 {
				fmt.Println(color.YellowString("%d restaurants failed:", len(rep.Failures)))
				for _, f := range rep.Failures {
					fmt.Printf("  %s: %s\n", f.Restaurant.Company, f.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "yelp-data.json", "ratings output path")
	cmd.Flags().StringVar(&failuresOut, "failures", "", "write failed lookups to this path")
	cmd.Flags().DurationVar(&pause, "pause", time.Second, "pause between restaurants")
	return cmd
}

func dineImportPGCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import-pg",
		Short: "Load ratings into PostgreSQL",
		Long:  "Inserts every rating into the yelp_restaurants table. Connection string comes from PLANLINE_PG_DSN or --dsn.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := viper.GetString("pg-dsn")
			if dsn == "" {
				return errors.New("PLANLINE_PG_DSN (or --dsn) is required")
			}
			var ratings []dine.Rating
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				parsed, err := dine.ParseRatings(data)
				if err != nil {
					return err
				}
				ratings = parsed
			} else {
				svc, err := dineService()
				if err != nil {
					return err
				}
				parsed, err := svc.Source.Ratings(cmd.Context())
				if err != nil {
					return err
				}
				ratings = parsed
			}
			pool, err := pgimport.NewPool(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer pool.Close()
			stats, err := pgimport.Import(cmd.Context(), pool, ratings)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(stats)
			}
			fmt.Printf("Inserted %d ratings, skipped %d\n", stats.Inserted, stats.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "ratings JSON (defaults to the configured ratings source)")
	cmd.Flags().String("dsn", "", "PostgreSQL connection string")
	_ = viper.BindPFlag("pg-dsn", cmd.Flags().Lookup("dsn"))
	return cmd
}

func logCmd() *cobra.Command {
	l := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: plan imports, deletions and solves.",
	}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var planID, evtType string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.LatestEvents(ctx, n, planID, evtType)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Plan", "Entity", "Actor"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.PlanID, evt.EntityKind + ":" + evt.EntityID, evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&planID, "plan", "", "plan id filter")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var devLogin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			ws, err := app.OpenWorkspace(cmd.Context(), workspace)
			if err != nil {
				return err
			}
			defer ws.Close()
			logger := log.New(os.Stderr, "planline ", log.LstdFlags)
			logger.Printf("workspace %s at schema version %d", workspace, ws.SchemaVersion)
			authCfg := server.AuthConfig{
				JWTSecret: viper.GetString("jwt-secret"),
				DevLogin:  devLogin,
				Logger:    logger,
			}
			if devLogin && authCfg.JWTSecret == "" {
				return fmt.Errorf("--dev-login needs PLANLINE_JWT_SECRET")
			}
			if authCfg.JWTSecret == "" {
				logger.Printf("PLANLINE_JWT_SECRET not set: every caller acts as local-user")
			}
			handler, err := server.New(server.Config{
				Engine:   ws.Engine,
				Dine:     app.DineService(workspace, ws.Config),
				Yelp:     app.YelpClient(ws.Config, yelpAPIKey(), logger),
				BasePath: basePath,
				Auth:     authCfg,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Planline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "expose POST /auth/dev/login (local testing only)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	ws, err := app.OpenWorkspace(ctx, viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, ws.Engine)
}

func dineService() (dine.Service, error) {
	workspace := viper.GetString("workspace")
	cfg, err := app.ResolveConfig(workspace, false)
	if err != nil {
		return dine.Service{}, err
	}
	svc := app.DineService(workspace, cfg)
	if svc.Source == nil {
		return svc, errors.New("no restaurant source configured in planline.yml")
	}
	return svc, nil
}

func yelpAPIKey() string {
	if key := viper.GetString("yelp-api-key"); key != "" {
		return key
	}
	return os.Getenv("YELP_API_KEY")
}

func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
