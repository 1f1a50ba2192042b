package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"

	goerrors "github.com/TudorHulban/go-errors"
	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"planline/internal/chart"
	"planline/internal/config"
	"planline/internal/dine"
	"planline/internal/domain"
	"planline/internal/engine"
	"planline/internal/repo"
	"planline/internal/yelp"
)

// YelpAPI is the part of the Yelp client the proxy routes use.
type YelpAPI interface {
	Search(ctx context.Context, params yelp.ParamsSearch) ([]byte, error)
	Reviews(ctx context.Context, businessID string) ([]byte, error)
}

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	Dine     dine.Service
	Yelp     YelpAPI
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the planline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(data))
			ctx := context.WithValue(r.Context(), bodyBytesKey{}, data)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Planline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerSettings(group, cfg.Engine)
	registerPlans(group, cfg.Engine)
	registerSolve(group, cfg.Engine)
	registerRestaurants(group, cfg.Dine)
	registerYelp(group, cfg.Yelp)
	registerEvents(group, cfg.Engine)
	if cfg.Auth.DevLogin {
		registerDevAuth(group, cfg.Auth)
	}
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	var valErr goerrors.ErrValidation
	if errors.As(err, &valErr) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	var fetchErr *dine.FetchError
	if errors.As(err, &fetchErr) {
		return newAPIError(http.StatusBadGateway, "fetch_failed", err.Error(), map[string]any{"url": fetchErr.URL, "status": fetchErr.Status})
	}
	if errors.Is(err, yelp.ErrNoAPIKey) {
		return newAPIError(http.StatusServiceUnavailable, "yelp_unconfigured", err.Error(), nil)
	}
	var statusErr *yelp.StatusError
	if errors.As(err, &statusErr) {
		return newAPIError(http.StatusBadGateway, "yelp_error", err.Error(), map[string]any{"status": statusErr.Status})
	}
	var gqlErr *yelp.GraphQLError
	if errors.As(err, &gqlErr) {
		return newAPIError(http.StatusBadGateway, "yelp_error", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		spec []byte
	)
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func operations(item *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{
		item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
	}
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range operations(item) {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

// applyAuthSecurity marks mutating operations as bearer protected.
func applyAuthSecurity(oas *huma.OpenAPI) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{item.Post, item.Put, item.Patch, item.Delete} {
			if op != nil && op.OperationID != "dev-login" {
				op.Security = security
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Planline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Mutating routes take Authorization: Bearer &lt;token&gt; when the server has a JWT secret.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerSettings(api huma.API, e engine.Engine) {
	cfg := e.Config
	if cfg == nil {
		cfg = config.Default()
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-scenarios",
		Method:      http.MethodGet,
		Path:        "/scenarios",
		Summary:     "Known scenarios and the default",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ScenariosResponse `json:"body"`
	}, error) {
		return &struct {
			Body ScenariosResponse `json:"body"`
		}{Body: ScenariosResponse{
			Scenarios: cfg.Schedule.Scenarios,
			Default:   cfg.Scenario(""),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "worker-rates",
		Method:      http.MethodGet,
		Path:        "/workers/rates",
		Summary:     "Hourly rate per worker role",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body RatesResponse `json:"body"`
	}, error) {
		return &struct {
			Body RatesResponse `json:"body"`
		}{Body: RatesResponse{Rates: cfg.Workers.Rates}}, nil
	})
}

func registerPlans(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "import-plan",
		Method:        http.MethodPost,
		Path:          "/plans",
		Summary:       "Import a task document as a plan",
		Description:   "The request body is the task document: {\"tasks\": [...], \"predecessors\": {...}}.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Name string `query:"name"`
		ID   string `query:"id"`
	}) (*struct {
		Body PlanResponse `json:"body"`
	}, error) {
		raw := bodyBytes(ctx)
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.ImportPlan(ctx, engine.ImportOptions{ID: input.ID, Name: input.Name, Document: raw, ActorID: actorID})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PlanResponse `json:"body"`
		}{Body: planResponse(p, false)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-plans",
		Method:      http.MethodGet,
		Path:        "/plans",
		Summary:     "List plans",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*struct {
		Body []PlanResponse `json:"body"`
	}, error) {
		items, err := e.ListPlans(ctx, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []PlanResponse `json:"body"`
		}{Body: mapPlans(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-plan",
		Method:      http.MethodGet,
		Path:        "/plans/{plan_id}",
		Summary:     "Get a plan with its task document",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PlanID string `path:"plan_id"`
	}) (*struct {
		Body PlanResponse `json:"body"`
	}, error) {
		p, err := e.GetPlan(ctx, input.PlanID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PlanResponse `json:"body"`
		}{Body: planResponse(p, true)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-plan",
		Method:        http.MethodDelete,
		Path:          "/plans/{plan_id}",
		Summary:       "Delete a plan and its runs",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		PlanID string `path:"plan_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeletePlan(ctx, input.PlanID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "solve-plan",
		Method:      http.MethodPost,
		Path:        "/plans/{plan_id}/solve",
		Summary:     "Solve one scenario of a plan and record the run",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		PlanID   string `path:"plan_id"`
		Scenario string `query:"scenario"`
	}) (*struct {
		Body RunResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		run, err := e.SolvePlan(ctx, input.PlanID, input.Scenario, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RunResponse `json:"body"`
		}{Body: run}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/plans/{plan_id}/runs",
		Summary:     "List runs of a plan, newest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PlanID string `path:"plan_id"`
		Limit  int    `query:"limit" default:"50"`
	}) (*struct {
		Body []RunResponse `json:"body"`
	}, error) {
		items, err := e.ListRuns(ctx, input.PlanID, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []RunResponse `json:"body"`
		}{Body: mapRuns(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "plan-gantt",
		Method:      http.MethodGet,
		Path:        "/plans/{plan_id}/gantt",
		Summary:     "Render a scenario of a plan as an HTML Gantt chart",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		PlanID   string `path:"plan_id"`
		Scenario string `query:"scenario"`
	}) (*struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}, error) {
		p, err := e.GetPlan(ctx, input.PlanID)
		if err != nil {
			return nil, handleError(err)
		}
		res, err := e.SolveDocument(ctx, p.Document, input.Scenario)
		if err != nil {
			return nil, handleError(err)
		}
		if !res.Feasible {
			return nil, newAPIError(http.StatusUnprocessableEntity, "infeasible", "scenario "+res.Scenario+" is infeasible", map[string]any{"scenario": res.Scenario})
		}
		var buf bytes.Buffer
		title := fmt.Sprintf("Gantt Chart - %s", res.Scenario)
		if err := (chart.HTML{}).Render(&buf, title, chart.FromSchedule(res.Schedule)); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentType string `header:"Content-Type"`
			Body        []byte
		}{ContentType: "text/html; charset=utf-8", Body: buf.Bytes()}, nil
	})
}

func registerSolve(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "solve-document",
		Method:      http.MethodPost,
		Path:        "/schedule/solve",
		Summary:     "Solve a task document without storing it",
		Description: "The request body is the task document. Infeasible input answers 200 with feasible=false.",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Scenario string `query:"scenario"`
	}) (*struct {
		Body RunResponse `json:"body"`
	}, error) {
		raw := bodyBytes(ctx)
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		doc, err := domain.ParseDocument(raw)
		if err != nil {
			return nil, handleError(err)
		}
		res, err := e.SolveDocument(ctx, doc, input.Scenario)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RunResponse `json:"body"`
		}{Body: res.Run()}, nil
	})
}

func registerRestaurants(api huma.API, svc dine.Service) {
	unavailable := func() huma.StatusError {
		return newAPIError(http.StatusServiceUnavailable, "dine_unconfigured", "restaurant sources are not configured", nil)
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-restaurants",
		Method:      http.MethodGet,
		Path:        "/restaurants",
		Summary:     "Restaurant catalog",
		Errors:      []int{http.StatusBadGateway, http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body struct {
			Restaurants []dine.Restaurant `json:"restaurants"`
		} `json:"body"`
	}, error) {
		if svc.Source == nil {
			return nil, unavailable()
		}
		items, err := svc.Restaurants(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Restaurants []dine.Restaurant `json:"restaurants"`
			} `json:"body"`
		}{}
		out.Body.Restaurants = items
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "restaurant-categories",
		Method:      http.MethodGet,
		Path:        "/restaurants/categories",
		Summary:     "Distinct restaurant categories and the price tiers",
		Errors:      []int{http.StatusBadGateway, http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body CategoriesResponse `json:"body"`
	}, error) {
		if svc.Source == nil {
			return nil, unavailable()
		}
		cats, err := svc.Categories(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CategoriesResponse `json:"body"`
		}{Body: CategoriesResponse{Categories: cats, PriceTiers: dine.PriceTiers}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "search-restaurants",
		Method:      http.MethodGet,
		Path:        "/restaurants/search",
		Summary:     "Restaurants in a category joined with their ratings",
		Errors:      []int{http.StatusBadRequest, http.StatusBadGateway, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Category string `query:"category"`
		Price    string `query:"price"`
	}) (*struct {
		Body dine.Result `json:"body"`
	}, error) {
		if svc.Source == nil {
			return nil, unavailable()
		}
		res, err := svc.Search(ctx, dine.Query{Category: input.Category, Price: input.Price})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body dine.Result `json:"body"`
		}{Body: res}, nil
	})
}

func registerYelp(api huma.API, client YelpAPI) {
	type rawOutput struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}
	unavailable := func() huma.StatusError {
		return newAPIError(http.StatusServiceUnavailable, "yelp_unconfigured", "yelp client is not configured", nil)
	}

	huma.Register(api, huma.Operation{
		OperationID: "yelp-search",
		Method:      http.MethodGet,
		Path:        "/yelp/search",
		Summary:     "Proxy a Yelp business search",
		Errors:      []int{http.StatusBadRequest, http.StatusBadGateway, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Term     string `query:"term"`
		Location string `query:"location"`
	}) (*rawOutput, error) {
		if client == nil {
			return nil, unavailable()
		}
		if strings.TrimSpace(input.Term) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "Missing 'term' query parameter", nil)
		}
		body, err := client.Search(ctx, yelp.ParamsSearch{Term: input.Term, Location: input.Location})
		if err != nil {
			return nil, handleError(err)
		}
		return &rawOutput{ContentType: "application/json", Body: body}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "yelp-reviews",
		Method:      http.MethodGet,
		Path:        "/yelp/reviews",
		Summary:     "Proxy the latest Yelp reviews of a business",
		Errors:      []int{http.StatusBadRequest, http.StatusBadGateway, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		BusinessID string `query:"businessId"`
	}) (*rawOutput, error) {
		if client == nil {
			return nil, unavailable()
		}
		if strings.TrimSpace(input.BusinessID) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "Missing 'businessId' query param", nil)
		}
		body, err := client.Reviews(ctx, input.BusinessID)
		if err != nil {
			return nil, handleError(err)
		}
		return &rawOutput{ContentType: "application/json", Body: body}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		PlanID string `query:"plan_id"`
		Type   string `query:"type"`
		Limit  int    `query:"limit" default:"50"`
		Cursor string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := e.Repo.LatestEvents(ctx, limit+1, cursorID, input.PlanID, input.Type)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
			items = items[:limit]
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		actor := strings.TrimSpace(input.Body.ActorID)
		if actor == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		token, err := SignToken(authCfg.JWTSecret, actor, 0)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	return nil
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 500 {
		return 500
	}
	return in
}
