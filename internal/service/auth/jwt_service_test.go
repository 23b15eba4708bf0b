package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

func newTestJWTService(t *testing.T, now func() time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newHMACJWTService(testSecret, time.Hour, now)
	require.NoError(t, err)
	return svc
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60})
	assert.Error(t, err)

	_, err = NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 0})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestJWTService(t, func() time.Time { return fixedTime })
	identity := domain.Identity{ID: uuid.New(), Email: "alice@example.com"}

	token, expiresAt, err := svc.GenerateToken(context.Background(), identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, fixedTime.Add(time.Hour), expiresAt)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, identity, claims.Identity())
	assert.Equal(t, identity.ID.String(), claims.Subject)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestJWTService(t, func() time.Time { return issued })
	identity := domain.Identity{ID: uuid.New()}
	token, _, err := issuer.GenerateToken(context.Background(), identity)
	require.NoError(t, err)

	wrongKey, err := newHMACJWTService("wrong-secret-that-is-long-enough-for-testing", time.Hour,
		func() time.Time { return issued })
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   identity.ID.String(),
		ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		svc     *hmacJWTService
		token   string
		wantErr error
	}{
		{
			name:  "valid within lifetime",
			svc:   newTestJWTService(t, func() time.Time { return issued.Add(30 * time.Minute) }),
			token: token,
		},
		{
			name:  "expired but within clock skew",
			svc:   newTestJWTService(t, func() time.Time { return issued.Add(time.Hour + time.Minute) }),
			token: token,
		},
		{
			name:    "expired",
			svc:     newTestJWTService(t, func() time.Time { return issued.Add(2 * time.Hour) }),
			token:   token,
			wantErr: ErrExpiredToken,
		},
		{name: "wrong signing key", svc: wrongKey, token: token, wantErr: ErrInvalidToken},
		{name: "malformed", svc: issuer, token: "not.a.jwt", wantErr: ErrInvalidToken},
		{name: "alg none", svc: issuer, token: noneToken, wantErr: ErrInvalidToken},
		{name: "subject is not a uuid", svc: issuer, token: badSubject, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			claims, err := tt.svc.ValidateToken(context.Background(), tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, identity.ID, claims.UserID)
		})
	}
}
