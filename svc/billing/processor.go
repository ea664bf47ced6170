package billing

import "context"

// Subscription is the processor view of a recurring subscription.
type Subscription struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	Created            int64  `json:"created"`
	CurrentPeriodStart int64  `json:"currentPeriodStart"`
	CurrentPeriodEnd   int64  `json:"currentPeriodEnd"`
	EndedAt            int64  `json:"endedAt"`
	// ItemID is the id of the first subscription item, needed to swap prices.
	ItemID string `json:"itemId"`
}

type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	Mode          string `json:"mode"`
	Created       int64  `json:"created"`
}

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type CustomerParams struct {
	UserID string
	Name   string
	Email  string
}

type CreateSubscriptionParams struct {
	CustomerID      string
	PriceID         string
	PaymentMethodID string
	TaxRateIDs      []string
	TrialDays       int64
}

// UpdateSubscriptionParams changes only the non-empty fields. TaxRateIDs is
// sent whenever PriceID is set.
type UpdateSubscriptionParams struct {
	ItemID          string
	PriceID         string
	PaymentMethodID string
	TaxRateIDs      []string
}

type PaymentIntentParams struct {
	CustomerID string
	Amount     int64
	Currency   string
}

type CheckoutSessionParams struct {
	CustomerID string
	PriceID    string
	Mode       string
	SuccessURL string
	CancelURL  string
}

// Processor is the payment processor client. Every method returns an error
// wrapping account.ErrExternalProvider when the processor call fails.
type Processor interface {
	CreateCustomer(ctx context.Context, p CustomerParams) (string, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	CreateSubscription(ctx context.Context, p CreateSubscriptionParams) (Subscription, error)
	RetrieveSubscription(ctx context.Context, id string) (Subscription, error)
	UpdateSubscription(ctx context.Context, id string, p UpdateSubscriptionParams) (Subscription, error)
	CancelSubscription(ctx context.Context, id string) (Subscription, error)
	CreatePaymentIntent(ctx context.Context, p PaymentIntentParams) (PaymentIntent, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, id string) (CheckoutSession, error)
}
