package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/tasks-api/internal/api/middleware"
	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/api/validate"
	"github.com/phrazzld/tasks-api/internal/service/auth"
)

// VersionPrefix is the versioned mount point. Every API route is also served
// without it, with identical behaviour.
const VersionPrefix = "/api/v1"

// HandlerFunc is the last step of a pipeline. It writes the success response
// or returns an error for HandleAPIError.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Step is one named stage of a route pipeline. It returns the request the
// next stage should see, or an error that halts the pipeline.
type Step struct {
	Name string
	Run  func(r *http.Request) (*http.Request, error)
}

// Route declares one endpoint and the fixed order of its pipeline:
// authenticate, validate, handle.
type Route struct {
	Method      string
	Path        string
	Description string

	// Auth puts the Authentication Gate first in the pipeline.
	Auth bool
	// Schemas are validated after authentication, body then path then query.
	Schemas []validate.Schema
	// AuthLimited applies the stricter credential-endpoint rate limit.
	AuthLimited bool

	Pagination bool
	Search     bool

	Handle HandlerFunc
}

// TaskService builds identity-scoped task handles and reports store health.
type TaskService interface {
	middleware.TaskAccessFactory
	Ping(ctx context.Context) error
}

// Options are the dependencies of the HTTP surface.
type Options struct {
	Provider auth.IdentityProvider
	Tasks    TaskService
	// AuthLimit wraps the sign-up and token routes. Optional.
	AuthLimit   func(http.Handler) http.Handler
	Environment string
	Logger      *slog.Logger
}

// API owns the route table and the handlers behind it.
type API struct {
	gate      *middleware.AuthMiddleware
	provider  auth.IdentityProvider
	tasks     TaskService
	authLimit func(http.Handler) http.Handler
	env       string
	started   time.Time
	logger    *slog.Logger

	routes []Route
}

// New validates opts and builds the route table.
func New(opts Options) (*API, error) {
	if opts.Provider == nil {
		return nil, errors.New("identity provider cannot be nil")
	}
	if opts.Tasks == nil {
		return nil, errors.New("task service cannot be nil")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Environment == "" {
		opts.Environment = "development"
	}

	a := &API{
		gate:      middleware.NewAuthMiddleware(opts.Provider, opts.Tasks, opts.Logger),
		provider:  opts.Provider,
		tasks:     opts.Tasks,
		authLimit: opts.AuthLimit,
		env:       opts.Environment,
		started:   time.Now(),
		logger:    opts.Logger.With(slog.String("component", "api")),
	}
	a.routes = a.routeTable()
	return a, nil
}

func (a *API) routeTable() []Route {
	tasks := &taskHandler{}
	creds := &authHandler{provider: a.provider}

	return []Route{
		{
			Method:      http.MethodPost,
			Path:        "/auth/signup",
			Description: "Register a new account",
			Schemas:     []validate.Schema{validate.Body[signUpBody]()},
			AuthLimited: true,
			Handle:      creds.signUp,
		},
		{
			Method:      http.MethodPost,
			Path:        "/auth/token",
			Description: "Exchange email and password for an access token",
			Schemas:     []validate.Schema{validate.Body[tokenBody]()},
			AuthLimited: true,
			Handle:      creds.token,
		},
		{
			Method:      http.MethodGet,
			Path:        "/tasks",
			Description: "List tasks with optional pagination and search",
			Auth:        true,
			Schemas:     []validate.Schema{validate.Query[listTasksQuery]()},
			Pagination:  true,
			Search:      true,
			Handle:      tasks.list,
		},
		{
			Method:      http.MethodGet,
			Path:        "/tasks/{id}",
			Description: "Get task by ID",
			Auth:        true,
			Schemas:     []validate.Schema{validate.Path[taskIDPath]()},
			Handle:      tasks.get,
		},
		{
			Method:      http.MethodPost,
			Path:        "/tasks",
			Description: "Create a new task",
			Auth:        true,
			Schemas:     []validate.Schema{validate.Body[createTaskBody]()},
			Handle:      tasks.create,
		},
		{
			Method:      http.MethodPut,
			Path:        "/tasks/{id}",
			Description: "Update an existing task",
			Auth:        true,
			Schemas: []validate.Schema{
				validate.Body[updateTaskBody](),
				validate.Path[taskIDPath](),
			},
			Handle: tasks.update,
		},
		{
			Method:      http.MethodDelete,
			Path:        "/tasks/{id}",
			Description: "Delete a task",
			Auth:        true,
			Schemas:     []validate.Schema{validate.Path[taskIDPath]()},
			Handle:      tasks.delete,
		},
	}
}

// Routes returns the API route table.
func (a *API) Routes() []Route {
	return a.routes
}

// Steps returns the ordered pipeline of rt, excluding the final handler.
func (a *API) Steps(rt Route) []Step {
	var steps []Step
	if rt.Auth {
		steps = append(steps, Step{Name: "authenticate", Run: a.gate.Authenticate})
	}
	if len(rt.Schemas) > 0 {
		schemas := rt.Schemas
		locs := make([]string, 0, len(schemas))
		for _, s := range schemas {
			locs = append(locs, string(s.Location()))
		}
		steps = append(steps, Step{
			Name: "validate(" + strings.Join(locs, ",") + ")",
			Run: func(r *http.Request) (*http.Request, error) {
				return validate.Bind(r, schemas...)
			},
		})
	}
	return steps
}

// pipeline runs steps in order, then handle. The first error goes to the
// error boundary and nothing after it runs.
func pipeline(steps []Step, handle HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		for _, step := range steps {
			if r, err = step.Run(r); err != nil {
				HandleAPIError(w, r, err)
				return
			}
		}
		if err := handle(w, r); err != nil {
			HandleAPIError(w, r, err)
		}
	})
}

// Router returns the complete HTTP handler. extra middleware runs after the
// tracing, logging and recovery layers, in the order given.
func (a *API) Router(extra ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceMiddleware(a.logger))
	r.Use(middleware.RequestLogger)
	r.Use(recoverPanics)
	r.Use(middleware.SecurityHeaders)
	r.Use(extra...)

	r.NotFound(routeNotFound)
	r.MethodNotAllowed(routeNotFound)

	r.Get("/health", a.health)
	r.Route("/internal/meta", func(r chi.Router) {
		r.Get("/apis", a.metaAPIs)
		r.Get("/system", a.metaSystem)
	})

	r.Route(VersionPrefix, a.mount)
	a.mount(r)

	return r
}

func (a *API) mount(r chi.Router) {
	for _, rt := range a.routes {
		h := pipeline(a.Steps(rt), rt.Handle)
		if rt.AuthLimited && a.authLimit != nil {
			h = a.authLimit(h)
		}
		r.Method(rt.Method, rt.Path, h)
	}
}

// routeNotFound answers unmatched routes and unsupported methods alike.
func routeNotFound(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithError(w, r, http.StatusNotFound, fmt.Sprintf("Route %s not found", r.URL.Path))
}

// recoverPanics turns a panic into the generic 500 envelope.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			HandleAPIError(w, r, fmt.Errorf("panic: %v", rec))
		}()
		next.ServeHTTP(w, r)
	})
}
