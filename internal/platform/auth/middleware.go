package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultLeeway = 30 * time.Second

var (
	// ErrTokenExpired signals that the presented token has expired.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid signals that the presented token failed verification.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// Claims is the JWT claim set the API issues and accepts.
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
}

// Verifier validates HMAC-signed bearer tokens and exposes middleware helpers.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// Option customises Verifier behaviour.
type Option func(*Verifier)

// WithIssuer requires the iss claim to match the provided value.
func WithIssuer(issuer string) Option {
	return func(v *Verifier) {
		v.issuer = strings.TrimSpace(issuer)
	}
}

// WithAudience requires the aud claim to contain the provided value.
func WithAudience(audience string) Option {
	return func(v *Verifier) {
		v.audience = strings.TrimSpace(audience)
	}
}

// WithLeeway sets the clock skew tolerance applied to time-based claims.
func WithLeeway(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.leeway = d
		}
	}
}

// NewVerifier constructs a Verifier for the given HMAC signing secret.
func NewVerifier(secret []byte, opts ...Option) *Verifier {
	v := &Verifier{
		secret: secret,
		leeway: defaultLeeway,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// VerifyToken parses and validates the token string, returning the identity it asserts.
func (v *Verifier) VerifyToken(tokenStr string) (Identity, error) {
	if v == nil || len(v.secret) == 0 {
		return Identity{}, ErrTokenInvalid
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrTokenInvalid
	}

	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return Identity{}, ErrTokenInvalid
	}

	role := normaliseRole(claims.Role)
	if role == "" {
		role = RoleUser
	}

	return Identity{
		UserID: userID,
		Email:  strings.TrimSpace(claims.Email),
		Role:   role,
	}, nil
}

// RequireAuth verifies the Authorization bearer token and ensures allowed roles.
// With no roles listed, any authenticated identity passes.
func (v *Verifier) RequireAuth(allowedRoles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		role = normaliseRole(role)
		if role == "" {
			continue
		}
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization header missing or invalid")
				return
			}

			identity, err := v.VerifyToken(tokenStr)
			if err != nil {
				respondVerificationError(w, err)
				return
			}

			if len(allowed) > 0 {
				if _, ok := allowed[normaliseRole(identity.Role)]; !ok {
					respondAuthError(w, http.StatusForbidden, "insufficient_role", "identity does not have required role")
					return
				}
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin is shorthand for RequireAuth(RoleAdmin).
func (v *Verifier) RequireAdmin() func(http.Handler) http.Handler {
	return v.RequireAuth(RoleAdmin)
}

func normaliseRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}

	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}

func respondAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   code,
		"message": message,
		"status":  status,
	})
}

func respondVerificationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTokenExpired):
		respondAuthError(w, http.StatusUnauthorized, "token_expired", "bearer token expired")
	default:
		respondAuthError(w, http.StatusUnauthorized, "invalid_token", "bearer token verification failed")
	}
}
