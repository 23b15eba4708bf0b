package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/store"
)

// IdentityProvider turns credentials into tokens and tokens into identities.
type IdentityProvider interface {
	// SignUp registers a new account. The password must satisfy
	// domain.ValidatePassword. Returns store.ErrEmailExists when the email is taken.
	SignUp(ctx context.Context, email, password string) (*domain.User, error)

	// SignIn exchanges credentials for a session.
	// Returns ErrInvalidCredentials for an unknown email or a wrong password.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// Verify resolves a bearer token to the identity it was issued for.
	// Rejected tokens yield an error for which IsUnauthenticated is true;
	// any other error is an infrastructure failure.
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Identity  domain.Identity
}

// LocalProvider is an IdentityProvider backed by the users table.
type LocalProvider struct {
	users    store.UserStore
	tokens   JWTService
	verifier PasswordVerifier
	hasher   PasswordHasher
	logger   *slog.Logger
}

var _ IdentityProvider = (*LocalProvider)(nil)

// NewLocalProvider wires a LocalProvider. bcrypt serves as both hasher and verifier.
func NewLocalProvider(
	users store.UserStore,
	tokens JWTService,
	bcrypt *BcryptVerifier,
	logger *slog.Logger,
) (*LocalProvider, error) {
	if users == nil {
		return nil, errors.New("users store cannot be nil")
	}
	if tokens == nil {
		return nil, errors.New("jwt service cannot be nil")
	}
	if bcrypt == nil {
		return nil, errors.New("password verifier cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &LocalProvider{
		users:    users,
		tokens:   tokens,
		verifier: bcrypt,
		hasher:   bcrypt,
		logger:   logger.With(slog.String("component", "identity_provider")),
	}, nil
}

// SignUp implements IdentityProvider.SignUp
func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	user, err := domain.NewUser(email, password)
	if err != nil {
		return nil, domain.NewValidationError("", err.Error(), err)
	}

	hash, err := p.hasher.Hash(user.Password)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = hash
	user.Password = ""

	if err := p.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, err
		}
		log.Error("failed to store new user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	log.Info("user signed up", slog.String("user_id", user.ID.String()))
	return user, nil
}

// SignIn implements IdentityProvider.SignIn
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	user, err := p.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to look up user for sign-in", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	if err := p.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("sign-in rejected: password mismatch", slog.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	identity := user.Identity()
	token, expiresAt, err := p.tokens.GenerateToken(ctx, identity)
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, ExpiresAt: expiresAt, Identity: identity}, nil
}

// Verify implements IdentityProvider.Verify
// A valid signature is not enough: the subject must still exist.
func (p *LocalProvider) Verify(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, ErrMissingToken
	}

	claims, err := p.tokens.ValidateToken(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}

	user, err := p.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return domain.Identity{}, ErrInvalidToken
		}
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	return user.Identity(), nil
}
