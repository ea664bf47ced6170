package api

import (
	"github.com/dmitrymomot/accountbilling/handler"
	"github.com/dmitrymomot/accountbilling/svc/billing"
	"github.com/dmitrymomot/accountbilling/svc/tax"
)

type subscribeRequest struct {
	AccountID       string      `path:"accountID" json:"-"`
	PlanID          string      `json:"planId"`
	PaymentMethodID string      `json:"paymentMethodId"`
	Billing         tax.Address `json:"billing"`
}

func (s *server) subscribe(ctx handler.Context, req subscribeRequest) handler.Response {
	caller, err := callerFrom(ctx)
	if err != nil {
		return handler.Error(err)
	}
	res, err := s.Billing.Subscribe(ctx, billing.SubscribeRequest{
		Caller:          caller,
		AccountID:       req.AccountID,
		PlanID:          req.PlanID,
		PaymentMethodID: req.PaymentMethodID,
		Billing:         req.Billing,
	})
	if err != nil {
		return fail(err)
	}
	return handler.Success(map[string]any{
		"outcome":      string(res.Outcome),
		"subscription": res.Subscription,
	})
}

func (s *server) cancelSubscription(ctx handler.Context, req accountPath) handler.Response {
	caller, err := callerFrom(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if err := s.Billing.Cancel(ctx, caller.ID, req.AccountID); err != nil {
		return fail(err)
	}
	return handler.Success(nil)
}

type paymentMethodRequest struct {
	AccountID       string `path:"accountID" json:"-"`
	PaymentMethodID string `json:"paymentMethodId"`
}

func (s *server) updatePaymentMethod(ctx handler.Context, req paymentMethodRequest) handler.Response {
	caller, err := callerFrom(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if err := s.Billing.UpdatePaymentMethod(ctx, caller, req.AccountID, req.PaymentMethodID); err != nil {
		return fail(err)
	}
	return handler.Success(nil)
}

type paymentIntentRequest struct {
	AccountID       string `path:"accountID" json:"-"`
	PlanID          string `json:"planId"`
	PaymentMethodID string `json:"paymentMethodId"`
}

func (s *server) createPaymentIntent(ctx handler.Context, req paymentIntentRequest) handler.Response {
	caller, err := callerFrom(ctx)
	if err != nil {
		return handler.Error(err)
	}
	intent, err := s.Billing.CreatePaymentIntent(ctx, billing.PaymentIntentRequest{
		Caller:          caller,
		AccountID:       req.AccountID,
		PlanID:          req.PlanID,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		return fail(err)
	}
	return handler.Success(map[string]any{"paymentIntent": intent})
}

type checkoutRequest struct {
	AccountID string `path:"accountID" json:"-"`
	PlanID    string `json:"planId"`
	Mode      string `json:"mode"`
}

func (s *server) createCheckoutSession(ctx handler.Context, req checkoutRequest) handler.Response {
	caller, err := callerFrom(ctx)
	if err != nil {
		return handler.Error(err)
	}
	session, err := s.Billing.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		Caller:    caller,
		AccountID: req.AccountID,
		PlanID:    req.PlanID,
		Mode:      req.Mode,
	})
	if err != nil {
		return fail(err)
	}
	return handler.Success(map[string]any{"sessionId": session.ID, "url": session.URL})
}

type sessionPath struct {
	SessionID string `path:"sessionID"`
}

func (s *server) confirmCheckoutSession(ctx handler.Context, req sessionPath) handler.Response {
	if _, err := callerFrom(ctx); err != nil {
		return handler.Error(err)
	}
	session, err := s.Billing.ConfirmCheckoutSession(ctx, req.SessionID)
	if err != nil {
		return fail(err)
	}
	return handler.Success(map[string]any{"session": session})
}
