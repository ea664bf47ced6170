package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/accountbilling/pkg/logger"
)

// HealthCheckHandler returns 200 "READY" when every check passes and
// 503 "NOT_READY" otherwise. With no checks it reports "ALIVE".
func HealthCheckHandler(log *slog.Logger, checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			_, _ = w.Write([]byte("ALIVE"))
			return
		}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed",
					slog.String("check", name), logger.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("NOT_READY"))
				return
			}
		}
		_, _ = w.Write([]byte("READY"))
	}
}
