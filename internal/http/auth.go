package http

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrJamesThe3rd/tally/internal/logger"
)

// Authenticate verifies HS256 bearer tokens signed with secret and tags
// the request logger with the token subject. An empty secret disables
// verification.
func Authenticate(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims := &jwt.RegisteredClaims{}

			_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				log := logger.FromContext(r.Context())
				log.Debug().Err(err).Msg("rejected bearer token")
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)

				return
			}

			log := logger.FromContext(r.Context()).With().Str("user", claims.Subject).Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), log)))
		})
	}
}
