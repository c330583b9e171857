package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"taskzen-api/domain"
)

type authPayload struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      domain.PublicUser `json:"user"`
}

func registerUser(accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req registerRequest
		if err := decodeBody(c, &req); err != nil {
			return fail(c, err)
		}
		if errs := req.validate(); errs != nil {
			return failValidation(c, errs)
		}

		user, err := accounts.Register(c.Request().Context(), req.Name, req.Email, req.Password)
		if err != nil {
			return fail(c, err)
		}
		token, exp, err := auth.IssueToken(user)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusCreated, authPayload{Token: token, ExpiresAt: exp, User: user.Public()})
	}
}

func login(accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := decodeBody(c, &req); err != nil {
			return fail(c, err)
		}
		if errs := req.validate(); errs != nil {
			return failValidation(c, errs)
		}

		user, err := accounts.Authenticate(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			return fail(c, err)
		}
		token, exp, err := auth.IssueToken(user)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, authPayload{Token: token, ExpiresAt: exp, User: user.Public()})
	}
}

// logout exists for client symmetry. Sessions are stateless tokens, so
// there is nothing to revoke server-side.
func logout() echo.HandlerFunc {
	return func(c echo.Context) error {
		return respondMessage(c, http.StatusOK, "Logged out successfully")
	}
}

func me() echo.HandlerFunc {
	return func(c echo.Context) error {
		return respond(c, http.StatusOK, principal(c).Public())
	}
}

type googleSignInRequest struct {
	IDToken string `json:"idToken"`
}

func googleSignIn(accounts Accounts, auth Authenticator, google GoogleVerifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		if google == nil || !google.Enabled() {
			return fail(c, domain.Invalid("Google sign-in is not enabled"))
		}
		var req googleSignInRequest
		if err := decodeBody(c, &req); err != nil {
			return fail(c, err)
		}
		if req.IDToken == "" {
			return failValidation(c, fieldErrors{"idToken": {"ID token is required"}})
		}

		profile, err := google.Verify(c.Request().Context(), req.IDToken)
		if err != nil {
			return fail(c, domain.Unauthenticated("Invalid Google token"))
		}
		user, err := accounts.GoogleSignIn(c.Request().Context(), profile)
		if err != nil {
			return fail(c, err)
		}
		token, exp, err := auth.IssueToken(user)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, authPayload{Token: token, ExpiresAt: exp, User: user.Public()})
	}
}

type googleStatusPayload struct {
	Enabled bool `json:"enabled"`
}

func googleStatus(google GoogleVerifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		enabled := google != nil && google.Enabled()
		return respond(c, http.StatusOK, googleStatusPayload{Enabled: enabled})
	}
}
