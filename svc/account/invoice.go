package account

// Invoice is a processor invoice owned by an account, keyed by the external id.
type Invoice struct {
	ID               string `bson:"_id" json:"id"`
	AccountID        string `bson:"accountId" json:"accountId"`
	Total            int64  `bson:"total" json:"total"`
	SubTotal         int64  `bson:"subTotal" json:"subTotal"`
	AmountDue        int64  `bson:"amountDue" json:"amountDue"`
	AmountPaid       int64  `bson:"amountPaid" json:"amountPaid"`
	Tax              int64  `bson:"tax" json:"tax"`
	Currency         string `bson:"currency" json:"currency"`
	Created          int64  `bson:"created" json:"created"`
	Status           string `bson:"status" json:"status"`
	HostedInvoiceURL string `bson:"hostedInvoiceUrl,omitempty" json:"hostedInvoiceUrl,omitempty"`
}
