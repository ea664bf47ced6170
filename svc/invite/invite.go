// Package invite implements single-use invitations into an account.
package invite

import (
	"time"

	"github.com/dmitrymomot/accountbilling/svc/account"
)

// Invite is a single-use grant of access to an account.
type Invite struct {
	ID          string       `bson:"_id" json:"id"`
	HashedEmail string       `bson:"hashedEmail" json:"-"`
	Owner       string       `bson:"owner" json:"owner"`
	AccountID   string       `bson:"account" json:"account"`
	Role        account.Role `bson:"role" json:"role"`
	Time        time.Time    `bson:"time" json:"time"`
}

// Details is what an invitee may learn about an invite before accepting.
type Details struct {
	AccountID   string `json:"accountId"`
	AccountName string `json:"accountName"`
}
