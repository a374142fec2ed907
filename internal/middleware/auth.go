package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shinyyama/support-chat/internal/config"
	"github.com/shinyyama/support-chat/internal/reqctx"
)

const (
	RoleAdmin = "Admin"

	principalKey = "principal"
)

var ErrInvalidToken = errors.New("invalid token")

// Principal is the authenticated caller.
type Principal struct {
	UserID      string
	DisplayName string
	Email       string
	Roles       []string
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// Name returns the best human readable name for the caller.
func (p Principal) Name() string {
	switch {
	case p.DisplayName != "":
		return p.DisplayName
	case p.Email != "":
		return p.Email
	default:
		return p.UserID
	}
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

// NewVerifier picks the token verifier configured by AUTH_PROVIDER.
func NewVerifier(ctx context.Context, cfg *config.Config) (TokenVerifier, error) {
	switch cfg.AuthProvider {
	case config.AuthProviderFirebase:
		return NewFirebaseVerifier(ctx, cfg.FirebaseProjectID)
	case config.AuthProviderJWT:
		return NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.AuthProvider)
	}
}

// Claims is the HS256 token payload; sub carries the user id.
type Claims struct {
	Name        string   `json:"name,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewJWTVerifier(secret, issuer, audience string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenStr string) (Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	name := claims.DisplayName
	if name == "" {
		name = claims.Name
	}
	roles := append([]string{}, claims.Roles...)
	if claims.Role != "" {
		roles = append(roles, claims.Role)
	}
	return Principal{UserID: claims.Subject, DisplayName: name, Email: claims.Email, Roles: roles}, nil
}

type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(ctx context.Context, projectID string) (*FirebaseVerifier, error) {
	if projectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is not set")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, tokenStr string) (Principal, error) {
	token, err := v.client.VerifyIDToken(ctx, tokenStr)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return principalFromFirebase(token.UID, token.Claims), nil
}

// principalFromFirebase reads the custom claims set through the Admin SDK:
// "role", "roles" or a boolean "admin".
func principalFromFirebase(uid string, claims map[string]interface{}) Principal {
	p := Principal{UserID: uid}
	p.DisplayName, _ = claims["name"].(string)
	p.Email, _ = claims["email"].(string)
	if r, ok := claims["role"].(string); ok && r != "" {
		p.Roles = append(p.Roles, r)
	}
	if list, ok := claims["roles"].([]interface{}); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				p.Roles = append(p.Roles, s)
			}
		}
	}
	if admin, ok := claims["admin"].(bool); ok && admin && !p.IsAdmin() {
		p.Roles = append(p.Roles, RoleAdmin)
	}
	return p
}

type AuthMiddleware struct {
	verifier TokenVerifier
	log      zerolog.Logger
}

func NewAuthMiddleware(verifier TokenVerifier, log zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, log: log.With().Str("component", "auth").Logger()}
}

// RequireAuth accepts a bearer token from the Authorization header only.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.authenticate(next, false)
}

// RequireRealtimeAuth also accepts the access_token query parameter, since
// browser websocket clients cannot set headers.
func (m *AuthMiddleware) RequireRealtimeAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.authenticate(next, true)
}

func (m *AuthMiddleware) authenticate(next echo.HandlerFunc, allowQuery bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr := bearerToken(c.Request().Header.Get("Authorization"))
		if tokenStr == "" && allowQuery {
			tokenStr = strings.TrimSpace(c.QueryParam("access_token"))
		}
		if tokenStr == "" {
			return c.JSON(http.StatusUnauthorized, errorBody("unauthorized", "missing bearer token"))
		}
		p, err := m.verifier.Verify(c.Request().Context(), tokenStr)
		if err != nil {
			m.log.Debug().Err(err).Msg("token rejected")
			return c.JSON(http.StatusUnauthorized, errorBody("invalid_token", "invalid token"))
		}
		SetPrincipal(c, p)
		return next(c)
	}
}

// RequireAdmin must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, errorBody("unauthorized", "missing principal"))
		}
		if !p.IsAdmin() {
			return c.JSON(http.StatusForbidden, errorBody("forbidden", "admin role required"))
		}
		return next(c)
	}
}

// SetPrincipal stores p on the echo context and the request context.
func SetPrincipal(c echo.Context, p Principal) {
	c.Set(principalKey, p)
	c.Set("uid", p.UserID)
	req := c.Request()
	c.SetRequest(req.WithContext(reqctx.WithUserID(req.Context(), p.UserID)))
}

func PrincipalFrom(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok && p.UserID != ""
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func errorBody(code, message string) map[string]map[string]string {
	return map[string]map[string]string{"error": {"code": code, "message": message}}
}
