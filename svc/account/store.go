package account

import "context"

// Store persists accounts. Every mutation goes through Update, which runs fn
// against the current document and writes the result only if nobody else
// wrote in between; fn may be called more than once.
type Store interface {
	Create(ctx context.Context, acc *Account) error
	Get(ctx context.Context, id string) (Account, error)
	FindBySubscription(ctx context.Context, ref SubscriptionRef) (Account, error)
	Update(ctx context.Context, id string, fn func(*Account) error) (Account, error)
	// UpsertInvoice merges inv into the account's invoices and sets the
	// account's invoicesColCount to the number of invoices it owns.
	UpsertInvoice(ctx context.Context, accountID string, inv Invoice) (created bool, err error)
}
