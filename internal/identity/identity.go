// Package identity verifies ID tokens from the federated sign-in provider.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid identity token")

// Identity is the signed-in user as reported by the provider.
type Identity struct {
	UID         string
	DisplayName string
	Email       string
	AvatarURL   string
}

// Verifier turns a raw token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Identity, error)
}

type firebaseClaims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// FirebaseVerifier checks RS256 ID tokens against the provider's JWKS.
type FirebaseVerifier struct {
	jwks      *keyfunc.JWKS
	projectID string
	logger    *slog.Logger
}

// NewFirebaseVerifier fetches the JWKS and keeps it refreshed in the background.
func NewFirebaseVerifier(jwksURL, projectID string, logger *slog.Logger) (*FirebaseVerifier, error) {
	if projectID == "" {
		return nil, errors.New("firebase project id is required")
	}
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("JWKS refresh failed", "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}
	return NewFirebaseVerifierWithKeys(jwks, projectID, logger), nil
}

// NewFirebaseVerifierWithKeys uses an already loaded key set.
func NewFirebaseVerifierWithKeys(jwks *keyfunc.JWKS, projectID string, logger *slog.Logger) *FirebaseVerifier {
	return &FirebaseVerifier{jwks: jwks, projectID: projectID, logger: logger}
}

// Verify validates signature, audience, issuer and subject.
func (v *FirebaseVerifier) Verify(ctx context.Context, rawToken string) (Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return Identity{}, ErrInvalidToken
	}

	var claims firebaseClaims
	token, err := jwt.ParseWithClaims(rawToken, &claims, v.jwks.Keyfunc, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil || !token.Valid {
		v.logger.Debug("Rejected identity token", "error", err)
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !claims.VerifyAudience(v.projectID, true) {
		return Identity{}, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}
	if !claims.VerifyIssuer("https://securetoken.google.com/"+v.projectID, true) {
		return Identity{}, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return Identity{
		UID:         claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		AvatarURL:   claims.Picture,
	}, nil
}

// Close stops the background key refresh.
func (v *FirebaseVerifier) Close() {
	v.jwks.EndBackground()
}
