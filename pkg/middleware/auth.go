package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reservo/pkg/config"
	apperrors "reservo/pkg/errors"
	"reservo/pkg/logger"
	"reservo/pkg/model"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

const ActorKey contextKey = "actor"

// Claims is the identity token payload. The role is read from the top-level
// claim first and from app_metadata.roles otherwise.
type Claims struct {
	Role        string `json:"role"`
	Email       string `json:"email,omitempty"`
	AppMetadata struct {
		Roles []string `json:"roles,omitempty"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

func (c *Claims) Actor() (model.Actor, error) {
	if c.Subject == "" {
		return model.Actor{}, errors.New("token has no subject")
	}

	role := model.Role(strings.ToLower(c.Role))
	if !role.Valid() {
		role = model.RoleRegular
		for _, r := range c.AppMetadata.Roles {
			if candidate := model.Role(strings.ToLower(r)); candidate.Valid() {
				role = candidate
				break
			}
		}
	}

	return model.Actor{UserID: c.Subject, Role: role}, nil
}

type Authenticator struct {
	keyFunc jwt.Keyfunc
	jwks    *keyfunc.JWKS
	parser  *jwt.Parser
	log     *logger.Logger
}

// NewAuthenticator verifies HS256 tokens with JWT_SECRET, or asymmetric
// tokens against the key set at JWT_JWKS_URL when that is configured.
func NewAuthenticator(cfg *config.Config) (*Authenticator, error) {
	a := &Authenticator{log: cfg.Log}

	switch {
	case cfg.JWTJWKSURL != "":
		jwks, err := keyfunc.Get(cfg.JWTJWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				cfg.Log.Error("Failed to refresh JWKS", "error", err)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load JWKS from %s: %w", cfg.JWTJWKSURL, err)
		}
		a.jwks = jwks
		a.keyFunc = jwks.Keyfunc
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256", "ES256", "EdDSA"}), jwt.WithExpirationRequired())
	case cfg.JWTSecret != "":
		secret := []byte(cfg.JWTSecret)
		a.keyFunc = func(*jwt.Token) (any, error) { return secret, nil }
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	default:
		return nil, errors.New("either JWT_SECRET or JWT_JWKS_URL must be set")
	}

	return a, nil
}

func (a *Authenticator) Close() {
	if a.jwks != nil {
		a.jwks.EndBackground()
	}
}

func (a *Authenticator) Verify(tokenStr string) (model.Actor, error) {
	claims := &Claims{}
	token, err := a.parser.ParseWithClaims(tokenStr, claims, a.keyFunc)
	if err != nil {
		return model.Actor{}, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return model.Actor{}, errors.New("invalid or expired token")
	}
	return claims.Actor()
}

// Authenticate resolves the bearer token into a model.Actor stored on the
// request context. Requests without a valid token are rejected with 401.
func Authenticate(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(tokenStr) == "" {
				rejectUnauthorized(w, a.log, r, "Missing bearer token")
				return
			}

			actor, err := a.Verify(strings.TrimSpace(tokenStr))
			if err != nil {
				a.log.Debug("Token rejected", "error", err)
				rejectUnauthorized(w, a.log, r, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(model.Actor)
	return actor, ok
}

// RequireActor is used by handlers mounted behind Authenticate.
func RequireActor(r *http.Request) (model.Actor, error) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		return model.Actor{}, apperrors.Unauthorized("Authentication required")
	}
	return actor, nil
}

func rejectUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	requestID := ""
	if rid := r.Context().Value(RequestIDKey); rid != nil {
		requestID = rid.(string)
	}

	log.Warn("Request rejected by authentication",
		"request_id", requestID,
		"reason", reason,
		"path", r.URL.Path,
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="reservo"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + reason + `","code":"UNAUTHORIZED"}`))
}
