package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tallyHttp "github.com/MrJamesThe3rd/tally/internal/http"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)

	return token
}

func TestAuthenticate(t *testing.T) {
	secret := "s3cret"
	valid := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	expired := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}

	type testCase struct {
		name       string
		secret     string
		header     string
		wantStatus int
	}

	tests := []testCase{
		{
			name:       "Disabled",
			secret:     "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "Missing",
			secret:     secret,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Valid",
			secret:     secret,
			header:     "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), valid),
			wantStatus: http.StatusOK,
		},
		{
			name:       "WrongKey",
			secret:     secret,
			header:     "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), valid),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "WrongAlgorithm",
			secret:     secret,
			header:     "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(secret), valid),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Expired",
			secret:     secret,
			header:     "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), expired),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "NotBearer",
			secret:     secret,
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			tallyHttp.Authenticate(tt.secret)(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
