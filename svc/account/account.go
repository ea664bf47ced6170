package account

import (
	"slices"
	"time"
)

// Role is a membership role, or the "remove" action of ChangeRole.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleRemove Role = "remove"
)

// SubscriptionKind tags which processor object SubscriptionRef.ID names.
type SubscriptionKind string

const (
	KindNone               SubscriptionKind = ""
	KindStripeSubscription SubscriptionKind = "stripe_subscription"
	KindStripeCheckout     SubscriptionKind = "stripe_checkout"
	KindPayPal             SubscriptionKind = "paypal"
)

// SubscriptionRef is the external identifier an account's billing state is
// reconciled against.
type SubscriptionRef struct {
	Kind SubscriptionKind `bson:"kind" json:"kind"`
	ID   string           `bson:"id" json:"id"`
}

func (r SubscriptionRef) IsZero() bool { return r.Kind == KindNone || r.ID == "" }

// FarFuturePeriodEnd is written as the period end for one-off payments
// (checkout sessions and PayPal) that have no real billing period.
// Consumers should read it as "does not expire".
const FarFuturePeriodEnd int64 = 575630182800

// Account is the tenant aggregate. Counters are derived from the lists and are
// recomputed by every store write.
type Account struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	OwnerID      string    `bson:"owner" json:"owner"`
	CreationTime time.Time `bson:"creationTime" json:"creationTime"`

	Access      []string `bson:"access" json:"access"`
	Admins      []string `bson:"admins" json:"admins"`
	AccessCount int      `bson:"accessCount" json:"accessCount"`
	AdminCount  int      `bson:"adminCount" json:"adminCount"`

	PlanID       string `bson:"plan,omitempty" json:"plan,omitempty"`
	Price        int64  `bson:"price" json:"price"`
	Currency     string `bson:"currency,omitempty" json:"currency,omitempty"`
	PaymentCycle string `bson:"paymentCycle,omitempty" json:"paymentCycle,omitempty"`

	Subscription                   SubscriptionRef `bson:"subscription" json:"subscription"`
	SubscriptionStatus             string          `bson:"subscriptionStatus,omitempty" json:"subscriptionStatus,omitempty"`
	SubscriptionCreated            int64           `bson:"subscriptionCreated" json:"subscriptionCreated"`
	SubscriptionCurrentPeriodStart int64           `bson:"subscriptionCurrentPeriodStart" json:"subscriptionCurrentPeriodStart"`
	SubscriptionCurrentPeriodEnd   int64           `bson:"subscriptionCurrentPeriodEnd" json:"subscriptionCurrentPeriodEnd"`
	SubscriptionEnded              int64           `bson:"subscriptionEnded" json:"subscriptionEnded"`

	TransLog         []TransLogEntry `bson:"trans_log,omitempty" json:"trans_log,omitempty"`
	InvoicesColCount int             `bson:"invoicesColCount" json:"invoicesColCount"`

	Version int64 `bson:"version" json:"-"`
}

// TransLogEntry is one raw provider payload kept for audit.
type TransLogEntry struct {
	Payload     map[string]string `bson:"payload" json:"payload"`
	ValidTicket bool              `bson:"validTicket" json:"validTicket"`
	ReceivedAt  time.Time         `bson:"receivedAt" json:"receivedAt"`
}

// SubscriptionState is the processor-reported part of an account's billing.
type SubscriptionState struct {
	Status             string
	Created            int64
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
	Ended              int64
}

func (a *Account) ApplySubscription(s SubscriptionState) {
	a.SubscriptionStatus = s.Status
	a.SubscriptionCreated = s.Created
	a.SubscriptionCurrentPeriodStart = s.CurrentPeriodStart
	a.SubscriptionCurrentPeriodEnd = s.CurrentPeriodEnd
	a.SubscriptionEnded = s.Ended
}

func (a Account) IsAdmin(userID string) bool   { return slices.Contains(a.Admins, userID) }
func (a Account) HasAccess(userID string) bool { return slices.Contains(a.Access, userID) }

// RoleOf returns the role of a member; ok is false for non-members.
func (a Account) RoleOf(userID string) (Role, bool) {
	switch {
	case a.IsAdmin(userID):
		return RoleAdmin, true
	case a.HasAccess(userID):
		return RoleUser, true
	}
	return "", false
}

// Grant adds userID to access, and to admins when asAdmin.
func (a *Account) Grant(userID string, asAdmin bool) error {
	if a.HasAccess(userID) {
		return ErrAlreadyMember
	}
	a.Access = append(a.Access, userID)
	if asAdmin && !a.IsAdmin(userID) {
		a.Admins = append(a.Admins, userID)
	}
	a.Recount()
	return nil
}

// ChangeRole applies a role change to an existing member.
func (a *Account) ChangeRole(userID string, role Role) error {
	if !a.HasAccess(userID) {
		return ErrNotFound
	}
	switch role {
	case RoleUser:
		a.Admins = remove(a.Admins, userID)
	case RoleAdmin:
		if !a.IsAdmin(userID) {
			a.Admins = append(a.Admins, userID)
		}
	case RoleRemove:
		a.Access = remove(a.Access, userID)
		a.Admins = remove(a.Admins, userID)
	default:
		return ErrInvalidRole
	}
	a.Recount()
	return nil
}

// RevokeAll clears the membership lists.
func (a *Account) RevokeAll() {
	a.Access = []string{}
	a.Admins = []string{}
	a.Recount()
}

// Recount derives the counters from the lists and drops admins that are not
// in access.
func (a *Account) Recount() {
	if a.Access == nil {
		a.Access = []string{}
	}
	a.Admins = slices.DeleteFunc(slices.Clone(a.Admins), func(id string) bool {
		return !slices.Contains(a.Access, id)
	})
	a.AccessCount = len(a.Access)
	a.AdminCount = len(a.Admins)
}

func remove(list []string, id string) []string {
	return slices.DeleteFunc(slices.Clone(list), func(v string) bool { return v == id })
}

func (a Account) clone() Account {
	c := a
	c.Access = slices.Clone(a.Access)
	c.Admins = slices.Clone(a.Admins)
	c.TransLog = slices.Clone(a.TransLog)
	return c
}
