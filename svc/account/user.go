package account

import (
	"context"
	"time"
)

// User is the profile record of an authenticated caller.
type User struct {
	ID               string    `bson:"_id" json:"id"`
	Email            string    `bson:"email" json:"email"`
	DisplayName      string    `bson:"displayName" json:"displayName"`
	PhotoURL         string    `bson:"photoURL,omitempty" json:"photoUrl,omitempty"`
	LastLoginTime    time.Time `bson:"lastLoginTime" json:"lastLoginTime"`
	StripeCustomerID string    `bson:"stripeCustomerId,omitempty" json:"-"`
}

// Users is the user directory.
type Users interface {
	Get(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	// SetCustomerID records the processor customer handle for the user.
	SetCustomerID(ctx context.Context, userID, customerID string) error
	// Touch upserts the caller profile on every authenticated request.
	Touch(ctx context.Context, id, email, displayName string) error
}

// Member is a user as seen from one account.
type Member struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoUrl"`
	LastLoginTime int64  `json:"lastLoginTime"`
	Role          Role   `json:"role"`
}
