package account

import "context"

// Plan is externally administered reference data.
type Plan struct {
	ID            string `bson:"_id" json:"id" yaml:"id"`
	Name          string `bson:"name" json:"name" yaml:"name"`
	Price         int64  `bson:"price" json:"price" yaml:"price"`
	Currency      string `bson:"currency" json:"currency" yaml:"currency"`
	StripePriceID string `bson:"stripePriceId,omitempty" json:"stripePriceId,omitempty" yaml:"stripePriceId"`
	PaymentCycle  string `bson:"paymentCycle" json:"paymentCycle" yaml:"paymentCycle"`
	TrialPeriod   int64  `bson:"trialPeriod,omitempty" json:"trialPeriod,omitempty" yaml:"trialPeriod"`
	// AllowList holds account names. Nil means every account may subscribe.
	AllowList []string `bson:"allowList" json:"allowList,omitempty" yaml:"allowList"`
}

func (p Plan) IsFree() bool { return p.Price == 0 }

type Plans interface {
	Get(ctx context.Context, id string) (Plan, error)
}
