package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"taskzen-api/domain"
)

const principalKey = "principal"

// principalMiddleware authenticates the request and attaches the resolved
// account to the echo context. Tokens for deleted accounts are rejected the
// same way as invalid ones.
func principalMiddleware(accounts Accounts, auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			userID, err := auth.UserIDFromAuthHeader(header)
			if err != nil {
				switch err {
				case errMissingAuthorization:
					return fail(c, domain.Unauthenticated("Authentication required"))
				case errTokenExpired:
					return fail(c, domain.Unauthenticated("Token expired"))
				default:
					return fail(c, domain.Unauthenticated("Invalid token"))
				}
			}

			user, err := accounts.ByID(c.Request().Context(), userID)
			if err != nil {
				if domain.KindOf(err) == domain.KindNotFound {
					return fail(c, domain.Unauthenticated("User not found"))
				}
				return fail(c, err)
			}
			c.Set(principalKey, user)
			return next(c)
		}
	}
}

// principal returns the authenticated user attached by principalMiddleware.
func principal(c echo.Context) domain.User {
	u, _ := c.Get(principalKey).(domain.User)
	return u
}

// GzipRequestMiddleware decompresses gzip-encoded request bodies so handlers
// can work with plain JSON payloads. Requests with invalid gzip payloads are
// rejected with a 400 response.
func GzipRequestMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !hasGzipEncoding(req.Header.Get(echo.HeaderContentEncoding)) {
				return next(c)
			}

			body := req.Body
			gr, err := gzip.NewReader(body)
			if err != nil {
				_ = body.Close()
				return echo.NewHTTPError(http.StatusBadRequest, "invalid gzip body")
			}

			req.Body = &gzipReadCloser{Reader: gr, body: body}
			req.ContentLength = -1
			req.Header.Del(echo.HeaderContentEncoding)
			req.Header.Del(echo.HeaderContentLength)

			return next(c)
		}
	}
}

func hasGzipEncoding(header string) bool {
	if header == "" {
		return false
	}
	for _, enc := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(enc), "gzip") {
			return true
		}
	}
	return false
}

type gzipReadCloser struct {
	*gzip.Reader
	body io.Closer
}

func (g *gzipReadCloser) Close() error {
	var err error
	if g.Reader != nil {
		err = g.Reader.Close()
	}
	if g.body != nil {
		if cerr := g.body.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
