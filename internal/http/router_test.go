package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/tally/internal/category"
	tallyHttp "github.com/MrJamesThe3rd/tally/internal/http"
	catHandler "github.com/MrJamesThe3rd/tally/internal/http/category"
	"github.com/MrJamesThe3rd/tally/internal/http/imports"
	txHandler "github.com/MrJamesThe3rd/tally/internal/http/transaction"
	"github.com/MrJamesThe3rd/tally/internal/logger"
	"github.com/MrJamesThe3rd/tally/internal/session"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

func newRouter(secret string) http.Handler {
	return tallyHttp.New(
		logger.NewWithWriter(&discard{}),
		tallyHttp.Options{AllowedOrigins: []string{"https://app.example"}, JWTSecret: secret},
		txHandler.NewHandler(transaction.NewService(nil)),
		catHandler.NewHandler(category.NewService(nil)),
		imports.NewHandler(session.NewService(nil, nil, nil, session.NewStore(), 0)),
	)
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }

func TestRouter(t *testing.T) {
	type testCase struct {
		name       string
		secret     string
		method     string
		target     string
		wantStatus int
	}

	tests := []testCase{
		{name: "Health", secret: "s3cret", method: http.MethodGet, target: "/healthz", wantStatus: http.StatusOK},
		{name: "APIRequiresToken", secret: "s3cret", method: http.MethodGet, target: "/api/v1/imports/", wantStatus: http.StatusUnauthorized},
		{name: "AuthDisabled", secret: "", method: http.MethodGet, target: "/api/v1/imports/", wantStatus: http.StatusOK},
		{name: "UnknownRoute", secret: "", method: http.MethodGet, target: "/api/v1/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(tt.secret).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/imports/", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	newRouter("s3cret").ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
