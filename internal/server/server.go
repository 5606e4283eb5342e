package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/auth"
	"taskboard/internal/boards"
	"taskboard/internal/domain"
	"taskboard/internal/engine"
	"taskboard/internal/events"
	"taskboard/internal/mirror"
	"taskboard/internal/taskstore"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	Session  *auth.Session
	Verifier auth.Verifier
	Events   events.Writer
	BasePath string
	Auth     AuthConfig
	Logger   log.FieldLogger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"task not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the task board API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if cfg.Session == nil {
		cfg.Session = auth.NewSession("")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}
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
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Taskboard API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerStatus(group, cfg.Engine)
	registerBoards(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerSync(group, cfg.Engine)
	registerStats(group, cfg.Engine)
	registerEvents(group, cfg.Events)
	registerSession(group, cfg)
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
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrValidation):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	case errors.Is(err, taskstore.ErrNotFound), errors.Is(err, boards.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", msg, nil)
	case errors.Is(err, auth.ErrRequired):
		return newAPIError(http.StatusUnauthorized, "unauthorized", msg, nil)
	case errors.Is(err, engine.ErrNoRemote):
		return newAPIError(http.StatusServiceUnavailable, "remote_not_configured", msg, nil)
	case errors.Is(err, mirror.ErrRemote):
		return newAPIError(http.StatusBadGateway, "remote_unavailable", msg, nil)
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
		spec []byte
		once sync.Once
	)
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func operations(item *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{item.Get, item.Put, item.Post, item.Delete, item.Patch}
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

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
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
	oas.Security = security
	healthPath := path.Join("/", basePath, "health")
	for route, item := range oas.Paths {
		for _, op := range operations(item) {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <title>Taskboard API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({ url: '%s', dom_id: '#swagger-ui' });
      };
    </script>
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

func registerStatus(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "sync-status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Sync status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StatusResponse `json:"body"`
	}, error) {
		resp := StatusResponse{Status: e.SyncStatus(), UserID: e.UserID()}
		if last, err := e.LastSyncTime(ctx); err == nil && !last.IsZero() {
			resp.LastSyncTime = &last
		}
		return &struct {
			Body StatusResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerStats(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "board-stats",
		Method:      http.MethodGet,
		Path:        "/boards/{board_id}/stats",
		Summary:     "Board statistics",
	}, func(ctx context.Context, input *boardPath) (*statsOutput, error) {
		return &statsOutput{Body: e.Stats(ctx, input.BoardID)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Statistics across open boards",
	}, func(ctx context.Context, _ *struct{}) (*statsOutput, error) {
		return &statsOutput{Body: e.AllStats()}, nil
	})
}

func registerEvents(api huma.API, w events.Writer) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Recent analytics events",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"20"`
	}) (*struct {
		Body EventsResponse `json:"body"`
	}, error) {
		if w.Repo.DB == nil {
			return nil, newAPIError(http.StatusServiceUnavailable, "", "event log not configured", nil)
		}
		items, err := w.Tail(ctx, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		resp := EventsResponse{Items: []EventResponse{}}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body EventsResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerSession(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "sign-in",
		Method:      http.MethodPost,
		Path:        "/session",
		Summary:     "Sign in the sync user",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body SignInRequest `json:"body"`
	}) (*sessionOutput, error) {
		token := strings.TrimSpace(input.Body.Token)
		user := strings.TrimSpace(input.Body.UserID)
		switch {
		case token != "" && cfg.Verifier != nil:
			if _, err := cfg.Session.SignInWithToken(ctx, cfg.Verifier, token); err != nil {
				cfg.Logger.WithError(err).Info("sign-in token rejected")
				return nil, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
			}
		case token != "":
			return nil, newAPIError(http.StatusBadRequest, "", "token sign-in is not configured", nil)
		case user != "" && cfg.Verifier == nil:
			cfg.Session.SignIn(user)
		default:
			if p, ok := PrincipalFromContext(ctx); ok {
				cfg.Session.SignIn(p.UserID)
				break
			}
			return nil, newAPIError(http.StatusBadRequest, "", "token is required", nil)
		}
		return &sessionOutput{Body: SessionResponse{UserID: cfg.Session.UserID()}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sign-out",
		Method:      http.MethodDelete,
		Path:        "/session",
		Summary:     "Sign out the sync user",
	}, func(ctx context.Context, _ *struct{}) (*sessionOutput, error) {
		cfg.Session.SignOut()
		return &sessionOutput{Body: SessionResponse{}}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 20
	}
	if in > 200 {
		return 200
	}
	return in
}
