package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/redact"
	"github.com/phrazzld/tasks-api/internal/service"
	"github.com/phrazzld/tasks-api/internal/service/auth"
)

// Header errors. Both are unauthenticated failures.
var (
	ErrMissingAuthHeader   = fmt.Errorf("%w: authorization header required", auth.ErrMissingToken)
	ErrMalformedAuthHeader = fmt.Errorf("%w: invalid authorization format", auth.ErrMissingToken)
)

// TaskAccessFactory builds identity-scoped task handles.
type TaskAccessFactory interface {
	For(identity domain.Identity) (service.TaskAccess, error)
}

// AuthMiddleware is the Authentication Gate. It verifies bearer tokens with
// the identity provider and binds the identity and a scoped TaskAccess to
// the request context.
type AuthMiddleware struct {
	provider auth.IdentityProvider
	tasks    TaskAccessFactory
	logger   *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(provider auth.IdentityProvider, tasks TaskAccessFactory, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		provider: provider,
		tasks:    tasks,
		logger:   logger.With(slog.String("component", "auth_middleware")),
	}
}

// Authenticate checks the Authorization header of r. On success it returns
// r with the identity and task handle bound; otherwise r is returned
// unchanged with an error. Rejections satisfy auth.IsUnauthenticated; any
// other error is an infrastructure failure. The token itself is never logged.
func (m *AuthMiddleware) Authenticate(r *http.Request) (*http.Request, error) {
	log := logger.FromContextOrDefault(r.Context(), m.logger)

	token, err := bearerToken(r.Header.Get("Authorization"))
	if err != nil {
		log.Debug("authentication rejected", slog.String("reason", err.Error()))
		return r, err
	}

	identity, err := m.provider.Verify(r.Context(), token)
	if err != nil {
		if auth.IsUnauthenticated(err) {
			log.Debug("token rejected", slog.String("reason", err.Error()))
		} else {
			log.Error("identity provider failure", slog.String("error", redact.Error(err)))
		}
		return r, err
	}

	access, err := m.tasks.For(identity)
	if err != nil {
		return r, err
	}

	ctx := shared.SetIdentity(r.Context(), identity)
	ctx = service.WithTaskAccess(ctx, access)
	ctx = logger.WithLogger(ctx, log.With(slog.String("user_id", identity.ID.String())))
	return r.WithContext(ctx), nil
}

// bearerToken extracts the token from a "Bearer <token>" header value.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingAuthHeader
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", ErrMalformedAuthHeader
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMalformedAuthHeader
	}
	return token, nil
}
