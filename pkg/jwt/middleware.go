package jwt

import (
	"net/http"
	"strings"
)

// ErrorHandler writes the response for a rejected token.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Middleware verifies the bearer token and stores the caller claims in the
// request context. Rejected requests go to onError, or get a plain 401.
func Middleware(service *Service, onError ErrorHandler) func(next http.Handler) http.Handler {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				onError(w, r, err)
				return
			}

			var claims Claims
			if err := service.Parse(token, &claims); err != nil {
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}
