package api

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/accountbilling/handler"
	"github.com/dmitrymomot/accountbilling/pkg/jwt"
	"github.com/dmitrymomot/accountbilling/pkg/logger"
	"github.com/dmitrymomot/accountbilling/svc/account"
	"github.com/dmitrymomot/accountbilling/svc/billing"
)

// authenticate verifies the bearer token and records the caller profile.
func authenticate(tokens *jwt.Service, users account.Users, errh handler.ErrorHandler[handler.Context], log *slog.Logger) func(http.Handler) http.Handler {
	verify := jwt.Middleware(tokens, func(w http.ResponseWriter, r *http.Request, err error) {
		errh(handler.NewContext(w, r), handler.Unauthorized(err))
	})

	touch := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := jwt.ClaimsFromContext(r.Context()); ok {
				if err := users.Touch(r.Context(), claims.Subject, claims.Email, claims.Name); err != nil {
					log.WarnContext(r.Context(), "failed to record caller profile",
						logger.UserID(claims.Subject), logger.Error(err))
				}
			}
			next.ServeHTTP(w, r)
		})
	}

	return func(next http.Handler) http.Handler {
		return verify(touch(next))
	}
}

func callerFrom(ctx handler.Context) (billing.Caller, error) {
	claims, ok := jwt.ClaimsFromContext(ctx)
	if !ok || claims.Subject == "" {
		return billing.Caller{}, handler.Unauthorized(ErrNoCaller)
	}
	return billing.Caller{ID: claims.Subject, Name: claims.Name, Email: claims.Email}, nil
}
