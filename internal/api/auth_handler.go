package api

import (
	"net/http"

	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/api/validate"
	"github.com/phrazzld/tasks-api/internal/service/auth"
)

// authHandler serves the credential endpoints.
type authHandler struct {
	provider auth.IdentityProvider
}

// signUp handles POST /auth/signup.
func (h *authHandler) signUp(w http.ResponseWriter, r *http.Request) error {
	body, err := validate.BodyValue[signUpBody](r.Context())
	if err != nil {
		return err
	}

	user, err := h.provider.SignUp(r.Context(), body.Email, body.Password)
	if err != nil {
		return err
	}

	shared.RespondWithSuccess(w, r, http.StatusCreated, SignUpData{
		UserID: user.ID,
		Email:  user.Email,
	}, nil)
	return nil
}

// token handles POST /auth/token.
func (h *authHandler) token(w http.ResponseWriter, r *http.Request) error {
	body, err := validate.BodyValue[tokenBody](r.Context())
	if err != nil {
		return err
	}

	session, err := h.provider.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		return err
	}

	shared.RespondWithSuccess(w, r, http.StatusOK, TokenData{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User: UserData{
			ID:    session.Identity.ID,
			Email: session.Identity.Email,
		},
	}, nil)
	return nil
}
