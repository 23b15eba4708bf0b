package api

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"runtime"
	"time"

	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/api/validate"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/redact"
)

// healthPingTimeout bounds the store check behind /health.
const healthPingTimeout = 2 * time.Second

// EndpointMeta describes one route for API consumers. It is generated from
// the route table, so it cannot drift from what is actually served.
type EndpointMeta struct {
	Method             string           `json:"method"`
	Path               string           `json:"path"`
	Description        string           `json:"description"`
	AuthRequired       bool             `json:"auth_required"`
	Pipeline           []string         `json:"pipeline"`
	Params             []validate.Field `json:"params,omitempty"`
	SupportsPagination bool             `json:"supports_pagination"`
	SupportsSearch     bool             `json:"supports_search"`
	RequestBody        *RequestBodyMeta `json:"request_body,omitempty"`
}

// RequestBodyMeta describes a JSON request body.
type RequestBodyMeta struct {
	Type    string           `json:"type"`
	Fields  []validate.Field `json:"fields"`
	Example map[string]any   `json:"example,omitempty"`
}

// Describe builds the metadata for every API route.
func (a *API) Describe() []EndpointMeta {
	out := make([]EndpointMeta, 0, len(a.routes))
	for _, rt := range a.routes {
		m := EndpointMeta{
			Method:             rt.Method,
			Path:               rt.Path,
			Description:        rt.Description,
			AuthRequired:       rt.Auth,
			SupportsPagination: rt.Pagination,
			SupportsSearch:     rt.Search,
		}
		for _, step := range a.Steps(rt) {
			m.Pipeline = append(m.Pipeline, step.Name)
		}
		m.Pipeline = append(m.Pipeline, "handle")

		for _, s := range rt.Schemas {
			if s.Location() == validate.LocationBody {
				m.RequestBody = &RequestBodyMeta{
					Type:    "json",
					Fields:  s.Fields(),
					Example: s.Example(),
				}
				continue
			}
			m.Params = append(m.Params, s.Fields()...)
		}
		out = append(out, m)
	}
	return out
}

func (a *API) metaAPIs(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithSuccess(w, r, http.StatusOK, map[string]any{
		"apis": a.Describe(),
	}, shared.Meta{
		"prefixes": []string{VersionPrefix, ""},
	})
}

func (a *API) metaSystem(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithSuccess(w, r, http.StatusOK, map[string]any{
		"status":      "healthy",
		"uptime":      a.uptime(),
		"environment": a.env,
		"go_version":  runtime.Version(),
		"security":    "JWT bearer tokens, owner-scoped queries",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}, nil)
}

// health reports liveness plus store reachability.
func (a *API) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	if err := a.tasks.Ping(ctx); err != nil {
		logger.FromContextOrDefault(r.Context(), a.logger).Error("health check failed",
			slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Service degraded: data store unavailable")
		return
	}

	shared.RespondWithSuccess(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    a.uptime(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, nil)
}

// uptime is the process uptime in seconds, to millisecond precision.
func (a *API) uptime() float64 {
	return math.Round(time.Since(a.started).Seconds()*1000) / 1000
}
