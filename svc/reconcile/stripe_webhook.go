package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"github.com/dmitrymomot/accountbilling/pkg/dedup"
	"github.com/dmitrymomot/accountbilling/pkg/logger"
	"github.com/dmitrymomot/accountbilling/svc/account"
)

type deliveryGuard interface {
	Acquire(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}

// StripeWebhook verifies and applies Stripe webhook events.
type StripeWebhook struct {
	secret   string
	accounts account.Store
	guard    deliveryGuard
	logger   *slog.Logger
}

// NewStripeWebhook builds the handler. guard may be nil to disable
// deduplication.
func NewStripeWebhook(secret string, accounts account.Store, guard deliveryGuard, log *slog.Logger) *StripeWebhook {
	if secret == "" {
		panic("stripe webhook secret cannot be empty")
	}
	if accounts == nil {
		panic("account store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &StripeWebhook{
		secret:   secret,
		accounts: accounts,
		guard:    guard,
		logger:   log.With(logger.Component("stripe_webhook")),
	}
}

// Handle verifies the signature over payload and applies the event.
// A bad signature yields account.ErrVerificationFailed and nothing is read
// from the payload.
func (h *StripeWebhook) Handle(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return errors.Join(account.ErrVerificationFailed, err)
	}

	eventType := string(event.Type)
	log := h.logger.With(logger.EventID(event.ID), logger.EventType(eventType))

	apply := h.handlerFor(eventType)
	if apply == nil {
		log.DebugContext(ctx, "event type ignored")
		return nil
	}

	key := "stripe:" + event.ID
	if h.guard != nil {
		if err := h.guard.Acquire(ctx, key); err != nil {
			if errors.Is(err, dedup.ErrDuplicate) {
				log.InfoContext(ctx, "duplicate delivery skipped")
				return nil
			}
			return fmt.Errorf("dedup: %w", err)
		}
	}

	if err := apply(ctx, &event); err != nil {
		if h.guard != nil {
			if rerr := h.guard.Release(ctx, key); rerr != nil {
				log.ErrorContext(ctx, "failed to release dedup key", logger.Error(rerr))
			}
		}
		log.ErrorContext(ctx, "failed to apply event", logger.Error(err))
		return err
	}
	log.InfoContext(ctx, "event applied")
	return nil
}

func (h *StripeWebhook) handlerFor(eventType string) func(context.Context, *stripe.Event) error {
	switch {
	case strings.HasPrefix(eventType, "invoice."):
		return h.applyInvoice
	case strings.HasPrefix(eventType, "customer.subscription."):
		return h.applySubscription
	case strings.HasPrefix(eventType, "checkout."):
		return h.applyCheckout
	}
	return nil
}

func (h *StripeWebhook) applyInvoice(ctx context.Context, event *stripe.Event) error {
	var inv invoiceObject
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return errors.Join(ErrMalformedEvent, err)
	}
	subID := inv.subscriptionID()
	if inv.ID == "" || subID == "" {
		return fmt.Errorf("%w: invoice %q without subscription", ErrMalformedEvent, inv.ID)
	}

	acc, err := h.locate(ctx, account.SubscriptionRef{Kind: account.KindStripeSubscription, ID: subID})
	if err != nil {
		return err
	}
	created, err := h.accounts.UpsertInvoice(ctx, acc.ID, account.Invoice{
		ID:               inv.ID,
		Total:            inv.Total,
		SubTotal:         inv.Subtotal,
		AmountDue:        inv.AmountDue,
		AmountPaid:       inv.AmountPaid,
		Tax:              inv.taxAmount(),
		Currency:         inv.Currency,
		Created:          inv.Created,
		Status:           inv.Status,
		HostedInvoiceURL: inv.HostedInvoiceURL,
	})
	if err != nil {
		return fmt.Errorf("upsert invoice %s: %w", inv.ID, err)
	}
	h.logger.DebugContext(ctx, "invoice stored",
		logger.AccountID(acc.ID), slog.String("invoice_id", inv.ID), slog.Bool("created", created))
	return nil
}

func (h *StripeWebhook) applySubscription(ctx context.Context, event *stripe.Event) error {
	var sub subscriptionObject
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return errors.Join(ErrMalformedEvent, err)
	}
	if sub.ID == "" {
		return fmt.Errorf("%w: subscription without id", ErrMalformedEvent)
	}

	acc, err := h.locate(ctx, account.SubscriptionRef{Kind: account.KindStripeSubscription, ID: sub.ID})
	if err != nil {
		return err
	}
	start, end := sub.period()
	_, err = h.accounts.Update(ctx, acc.ID, func(a *account.Account) error {
		a.ApplySubscription(account.SubscriptionState{
			Status:             sub.Status,
			Created:            sub.Created,
			CurrentPeriodStart: start,
			CurrentPeriodEnd:   end,
			Ended:              sub.EndedAt,
		})
		return nil
	})
	return err
}

func (h *StripeWebhook) applyCheckout(ctx context.Context, event *stripe.Event) error {
	var sess checkoutObject
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return errors.Join(ErrMalformedEvent, err)
	}
	if sess.ID == "" {
		return fmt.Errorf("%w: checkout session without id", ErrMalformedEvent)
	}

	acc, err := h.locate(ctx, account.SubscriptionRef{Kind: account.KindStripeCheckout, ID: sess.ID})
	if err != nil {
		return err
	}
	_, err = h.accounts.Update(ctx, acc.ID, func(a *account.Account) error {
		a.ApplySubscription(account.SubscriptionState{
			Status:             sess.PaymentStatus,
			Created:            event.Created,
			CurrentPeriodStart: event.Created,
			CurrentPeriodEnd:   account.FarFuturePeriodEnd,
		})
		return nil
	})
	return err
}

func (h *StripeWebhook) locate(ctx context.Context, ref account.SubscriptionRef) (account.Account, error) {
	acc, err := h.accounts.FindBySubscription(ctx, ref)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Account{}, fmt.Errorf("%w: %s %s", account.ErrReconciliationTargetMissing, ref.Kind, ref.ID)
		}
		return account.Account{}, err
	}
	return acc, nil
}
