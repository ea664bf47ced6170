package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/accountbilling/binder"
	"github.com/dmitrymomot/accountbilling/handler"
	"github.com/dmitrymomot/accountbilling/pkg/httpserver"
	"github.com/dmitrymomot/accountbilling/pkg/jwt"
	"github.com/dmitrymomot/accountbilling/pkg/requestid"
	"github.com/dmitrymomot/accountbilling/svc/account"
	"github.com/dmitrymomot/accountbilling/svc/billing"
	"github.com/dmitrymomot/accountbilling/svc/invite"
	"github.com/dmitrymomot/accountbilling/svc/reconcile"
)

// Deps are the services behind the HTTP surface.
type Deps struct {
	Tokens        *jwt.Service
	Users         account.Users
	Accounts      *account.Service
	Invites       *invite.Service
	Billing       *billing.Service
	StripeWebhook *reconcile.StripeWebhook
	IPN           *reconcile.IPNIngress
	HealthChecks  map[string]func(context.Context) error
	Logger        *slog.Logger
}

type server struct {
	Deps
	errh handler.ErrorHandler[handler.Context]
}

// NewRouter mounts the caller API under /v1, the provider webhooks under
// /webhooks and the health probes.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	s := &server{Deps: d, errh: handler.NewErrorHandler(d.Logger)}

	r := chi.NewRouter()
	r.Use(requestid.Middleware, middleware.RealIP, middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(d.Logger, d.HealthChecks))

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/stripe", wrap(s, s.stripeWebhook))
		r.Post("/paypal", wrap(s, s.paypalWebhook))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(authenticate(d.Tokens, d.Users, s.errh, d.Logger))

		r.Post("/accounts", wrap(s, s.createAccount, binder.BindJSON()))
		r.Route("/accounts/{accountID}", func(r chi.Router) {
			r.Get("/users", wrap(s, s.listUsers, pathParams))
			r.Post("/users", wrap(s, s.addUser, pathParams, binder.BindJSON()))
			r.Get("/users/{userID}", wrap(s, s.getUser, pathParams))
			r.Put("/users/{userID}/role", wrap(s, s.changeRole, pathParams, binder.BindJSON()))
			r.Post("/invites", wrap(s, s.issueInvite, pathParams, binder.BindJSON()))

			r.Put("/payment-method", wrap(s, s.updatePaymentMethod, pathParams, binder.BindJSON()))
			r.Post("/payment-intents", wrap(s, s.createPaymentIntent, pathParams, binder.BindJSON()))
			r.Post("/subscription", wrap(s, s.subscribe, pathParams, binder.BindJSON()))
			r.Delete("/subscription", wrap(s, s.cancelSubscription, pathParams))
			r.Post("/checkout-sessions", wrap(s, s.createCheckoutSession, pathParams, binder.BindJSON()))
		})
		r.Get("/invites/{inviteID}", wrap(s, s.resolveInvite, pathParams))
		r.Post("/invites/{inviteID}/accept", wrap(s, s.acceptInvite, pathParams))
		r.Get("/checkout-sessions/{sessionID}", wrap(s, s.confirmCheckoutSession, pathParams))
	})

	return r
}

var pathParams handler.Bind = binder.Path(chi.URLParam)

func wrap[R any](s *server, h handler.HandlerFunc[handler.Context, R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](s.errh),
	)
}
