package api

import (
	"context"
	"errors"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"

	"taskzen-api/domain"
)

const googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// GoogleAuth verifies Google ID tokens against Google's published JWKS.
// The zero value is a disabled verifier.
type GoogleAuth struct {
	jwks     *keyfunc.JWKS
	clientID string
	parser   *jwt.Parser

	// testSecret switches verification to HS256 with a static key.
	testSecret []byte
}

// NewGoogleAuth starts a refreshing JWKS fetch for Google's signing keys.
// An empty clientID disables Google sign-in without error.
func NewGoogleAuth(clientID string, logger *log.Logger) (*GoogleAuth, error) {
	if clientID == "" {
		return &GoogleAuth{}, nil
	}
	jwks, err := keyfunc.Get(googleJWKSURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.WithError(err).Warn("google jwks refresh failed")
		},
	})
	if err != nil {
		return nil, err
	}
	return &GoogleAuth{
		jwks:     jwks,
		clientID: clientID,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
	}, nil
}

// Enabled reports whether a Google client ID is configured.
func (g *GoogleAuth) Enabled() bool {
	return g != nil && (g.jwks != nil || g.testSecret != nil)
}

// Verify validates a Google ID token and extracts the profile claims used
// for sign-in.
func (g *GoogleAuth) Verify(ctx context.Context, idToken string) (domain.GoogleProfile, error) {
	if !g.Enabled() {
		return domain.GoogleProfile{}, errors.New("google sign-in not configured")
	}

	var parsed *jwt.Token
	var err error
	if g.testSecret != nil {
		parsed, err = g.parser.Parse(idToken, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return g.testSecret, nil
		})
	} else {
		parsed, err = g.parser.Parse(idToken, g.jwks.Keyfunc)
	}
	if err != nil {
		return domain.GoogleProfile{}, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return domain.GoogleProfile{}, errors.New("invalid claims")
	}

	now := time.Now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return domain.GoogleProfile{}, errTokenExpired
	}
	if !claims.VerifyAudience(g.clientID, true) {
		return domain.GoogleProfile{}, errors.New("invalid audience")
	}
	issuerOK := false
	for _, iss := range googleIssuers {
		if claims.VerifyIssuer(iss, true) {
			issuerOK = true
			break
		}
	}
	if !issuerOK {
		return domain.GoogleProfile{}, errors.New("invalid issuer")
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if sub == "" || email == "" {
		return domain.GoogleProfile{}, errors.New("token missing profile claims")
	}
	return domain.GoogleProfile{Sub: sub, Email: email, Name: name}, nil
}
