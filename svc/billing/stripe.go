package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v83"

	"github.com/dmitrymomot/accountbilling/svc/account"
)

// StripeProcessor implements Processor with a single shared Stripe client.
type StripeProcessor struct {
	client *stripe.Client
}

func NewStripeProcessor(cfg StripeConfig) *StripeProcessor {
	return NewStripeProcessorWithClient(stripe.NewClient(cfg.SecretKey))
}

// NewStripeProcessorWithClient wraps a preconfigured client, e.g. one with
// custom backends.
func NewStripeProcessorWithClient(client *stripe.Client) *StripeProcessor {
	if client == nil {
		panic("stripe client cannot be nil")
	}
	return &StripeProcessor{client: client}
}

func (p *StripeProcessor) CreateCustomer(ctx context.Context, c CustomerParams) (string, error) {
	cust, err := p.client.V1Customers.Create(ctx, &stripe.CustomerCreateParams{
		Name:        stripe.String(c.Name),
		Email:       stripe.String(c.Email),
		Description: stripe.String(c.UserID),
	})
	if err != nil {
		return "", providerError("create customer", err)
	}
	return cust.ID, nil
}

func (p *StripeProcessor) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	_, err := p.client.V1PaymentMethods.Attach(ctx, paymentMethodID, &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	})
	if err != nil {
		return providerError("attach payment method", err)
	}
	return nil
}

func (p *StripeProcessor) CreateSubscription(ctx context.Context, s CreateSubscriptionParams) (Subscription, error) {
	params := &stripe.SubscriptionCreateParams{
		Customer: stripe.String(s.CustomerID),
		Items: []*stripe.SubscriptionCreateItemParams{
			{Price: stripe.String(s.PriceID)},
		},
	}
	if s.PaymentMethodID != "" {
		params.DefaultPaymentMethod = stripe.String(s.PaymentMethodID)
	}
	if len(s.TaxRateIDs) > 0 {
		params.DefaultTaxRates = stripe.StringSlice(s.TaxRateIDs)
	}
	if s.TrialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(s.TrialDays)
	}

	sub, err := p.client.V1Subscriptions.Create(ctx, params)
	if err != nil {
		return Subscription{}, providerError("create subscription", err)
	}
	return fromStripeSubscription(sub), nil
}

func (p *StripeProcessor) RetrieveSubscription(ctx context.Context, id string) (Subscription, error) {
	sub, err := p.client.V1Subscriptions.Retrieve(ctx, id, nil)
	if err != nil {
		return Subscription{}, providerError("retrieve subscription", err)
	}
	return fromStripeSubscription(sub), nil
}

func (p *StripeProcessor) UpdateSubscription(ctx context.Context, id string, u UpdateSubscriptionParams) (Subscription, error) {
	sub, err := p.client.V1Subscriptions.Update(ctx, id, subscriptionUpdateParams(u))
	if err != nil {
		return Subscription{}, providerError("update subscription", err)
	}
	return fromStripeSubscription(sub), nil
}

// subscriptionUpdateParams swaps the price of the existing item. A
// subscription without items gets the price added as a new item instead.
func subscriptionUpdateParams(u UpdateSubscriptionParams) *stripe.SubscriptionUpdateParams {
	params := &stripe.SubscriptionUpdateParams{}
	if u.PaymentMethodID != "" {
		params.DefaultPaymentMethod = stripe.String(u.PaymentMethodID)
	}
	if u.PriceID != "" {
		params.DefaultTaxRates = stripe.StringSlice(u.TaxRateIDs)
		item := &stripe.SubscriptionUpdateItemParams{Price: stripe.String(u.PriceID)}
		if u.ItemID != "" {
			item.ID = stripe.String(u.ItemID)
		}
		params.Items = []*stripe.SubscriptionUpdateItemParams{item}
	}
	return params
}

func (p *StripeProcessor) CancelSubscription(ctx context.Context, id string) (Subscription, error) {
	sub, err := p.client.V1Subscriptions.Cancel(ctx, id, nil)
	if err != nil {
		return Subscription{}, providerError("cancel subscription", err)
	}
	return fromStripeSubscription(sub), nil
}

func (p *StripeProcessor) CreatePaymentIntent(ctx context.Context, pi PaymentIntentParams) (PaymentIntent, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(pi.Amount),
		Currency: stripe.String(pi.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if pi.CustomerID != "" {
		params.Customer = stripe.String(pi.CustomerID)
	}

	intent, err := p.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return PaymentIntent{}, providerError("create payment intent", err)
	}
	return PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
	}, nil
}

func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, c CheckoutSessionParams) (CheckoutSession, error) {
	sess, err := p.client.V1CheckoutSessions.Create(ctx, &stripe.CheckoutSessionCreateParams{
		Customer: stripe.String(c.CustomerID),
		Mode:     stripe.String(c.Mode),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{Price: stripe.String(c.PriceID), Quantity: stripe.Int64(1)},
		},
		AllowPromotionCodes: stripe.Bool(true),
		SuccessURL:          stripe.String(c.SuccessURL),
		CancelURL:           stripe.String(c.CancelURL),
	})
	if err != nil {
		return CheckoutSession{}, providerError("create checkout session", err)
	}
	return fromStripeSession(sess), nil
}

func (p *StripeProcessor) RetrieveCheckoutSession(ctx context.Context, id string) (CheckoutSession, error) {
	sess, err := p.client.V1CheckoutSessions.Retrieve(ctx, id, nil)
	if err != nil {
		return CheckoutSession{}, providerError("retrieve checkout session", err)
	}
	return fromStripeSession(sess), nil
}

func fromStripeSubscription(s *stripe.Subscription) Subscription {
	out := Subscription{
		ID:      s.ID,
		Status:  string(s.Status),
		Created: s.Created,
		EndedAt: s.EndedAt,
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		item := s.Items.Data[0]
		out.ItemID = item.ID
		out.CurrentPeriodStart = item.CurrentPeriodStart
		out.CurrentPeriodEnd = item.CurrentPeriodEnd
	}
	return out
}

func fromStripeSession(s *stripe.CheckoutSession) CheckoutSession {
	return CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		Mode:          string(s.Mode),
		Created:       s.Created,
	}
}

func providerError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return fmt.Errorf("%w: %s: %s", account.ErrExternalProvider, op, stripeErr.Msg)
	}
	return fmt.Errorf("%w: %s: %w", account.ErrExternalProvider, op, err)
}
