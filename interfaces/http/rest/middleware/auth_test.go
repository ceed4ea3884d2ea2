package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/pkg/auth"
)

const testSecret = "test-secret-key"

func newTestValidator(t *testing.T) *auth.JWTValidator {
	t.Helper()
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: testSecret})
	require.NoError(t, err)
	return validator
}

func signToken(t *testing.T, roles []string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: "user-1",
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func serve(handler http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateAllowsAnonymousRequests(t *testing.T) {
	handler := Authenticate(newTestValidator(t), zap.NewNop())(okHandler())

	rec := serve(handler, "")
	assert.Equal(t, http.StatusOK, rec.Code, "requests without a token pass through")
}

func TestAuthenticateRejectsInvalidToken(t *testing.T) {
	handler := Authenticate(newTestValidator(t), zap.NewNop())(okHandler())

	rec := serve(handler, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateAttachesUser(t *testing.T) {
	var seen *auth.UserContext
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Authenticate(newTestValidator(t), zap.NewNop())(inner)

	rec := serve(handler, signToken(t, []string{"admin"}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.UserID)
}

func TestRequireRoleGatesAdminRoutes(t *testing.T) {
	validator := newTestValidator(t)
	chain := func(next http.Handler) http.Handler {
		return Authenticate(validator, zap.NewNop())(RequireRole(true, "admin")(next))
	}
	handler := chain(okHandler())

	// Anonymous requests reach the role check and are turned away there.
	rec := serve(handler, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(handler, signToken(t, []string{"editor"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(handler, signToken(t, []string{"admin"}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleDisabled(t *testing.T) {
	handler := RequireRole(false, "admin")(okHandler())

	rec := serve(handler, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
