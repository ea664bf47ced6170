package reconcile

import (
	"bytes"
	"encoding/json"
)

// expandableID decodes a Stripe reference that is either an id string or an
// expanded object.
type expandableID string

func (e *expandableID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

type invoiceObject struct {
	ID               string       `json:"id"`
	Subscription     expandableID `json:"subscription"`
	Total            int64        `json:"total"`
	Subtotal         int64        `json:"subtotal"`
	AmountDue        int64        `json:"amount_due"`
	AmountPaid       int64        `json:"amount_paid"`
	Tax              *int64       `json:"tax"`
	Currency         string       `json:"currency"`
	Created          int64        `json:"created"`
	Status           string       `json:"status"`
	HostedInvoiceURL string       `json:"hosted_invoice_url"`
	Parent           *struct {
		SubscriptionDetails *struct {
			Subscription expandableID `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
	TotalTaxes []struct {
		Amount int64 `json:"amount"`
	} `json:"total_taxes"`
}

// subscriptionID reads the legacy top-level field first, then the
// parent.subscription_details location used by newer API versions.
func (i invoiceObject) subscriptionID() string {
	if i.Subscription != "" {
		return string(i.Subscription)
	}
	if i.Parent != nil && i.Parent.SubscriptionDetails != nil {
		return string(i.Parent.SubscriptionDetails.Subscription)
	}
	return ""
}

func (i invoiceObject) taxAmount() int64 {
	if i.Tax != nil {
		return *i.Tax
	}
	var sum int64
	for _, t := range i.TotalTaxes {
		sum += t.Amount
	}
	return sum
}

type subscriptionObject struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	Created            int64  `json:"created"`
	EndedAt            int64  `json:"ended_at"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []struct {
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

// period prefers the subscription-level fields and falls back to the first
// item, where newer API versions report the billing period.
func (s subscriptionObject) period() (start, end int64) {
	if s.CurrentPeriodStart != 0 || s.CurrentPeriodEnd != 0 {
		return s.CurrentPeriodStart, s.CurrentPeriodEnd
	}
	if len(s.Items.Data) > 0 {
		return s.Items.Data[0].CurrentPeriodStart, s.Items.Data[0].CurrentPeriodEnd
	}
	return 0, 0
}

type checkoutObject struct {
	ID            string `json:"id"`
	PaymentStatus string `json:"payment_status"`
}
