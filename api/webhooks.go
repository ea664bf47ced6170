package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrymomot/accountbilling/handler"
)

// maxWebhookBody bounds provider payloads; Stripe caps events well below it.
const maxWebhookBody = 1 << 20

type webhookRequest struct{}

func readBody(ctx handler.Context) ([]byte, error) {
	r := ctx.Request()
	body, err := io.ReadAll(http.MaxBytesReader(ctx.ResponseWriter(), r.Body, maxWebhookBody))
	if err != nil {
		return nil, handler.BadRequest(fmt.Errorf("read webhook body: %w", err))
	}
	return body, nil
}

func (s *server) stripeWebhook(ctx handler.Context, _ webhookRequest) handler.Response {
	body, err := readBody(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if err := s.StripeWebhook.Handle(ctx, body, ctx.Request().Header.Get("Stripe-Signature")); err != nil {
		return fail(err)
	}
	return handler.JSON(map[string]any{"received": true})
}

// paypalWebhook acknowledges with a plain "OK" once the notification is queued;
// verification happens asynchronously.
func (s *server) paypalWebhook(ctx handler.Context, _ webhookRequest) handler.Response {
	body, err := readBody(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if err := s.IPN.Handle(ctx, body); err != nil {
		return fail(err)
	}
	return plainOK{}
}

type plainOK struct{}

func (plainOK) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := io.WriteString(w, "OK")
	return err
}
