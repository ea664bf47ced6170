package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountbilling/svc/account"
	"github.com/dmitrymomot/accountbilling/svc/billing"
	"github.com/dmitrymomot/accountbilling/svc/entitlement"
	"github.com/dmitrymomot/accountbilling/svc/tax"
)

var (
	owner   = billing.Caller{ID: "u1", Name: "Alice", Email: "alice@example.com"}
	proPlan = account.Plan{
		ID: "pro", Name: "Pro", Price: 1500, Currency: "USD",
		StripePriceID: "price_pro", PaymentCycle: "month", TrialPeriod: 14,
	}
)

type fixture struct {
	svc       *billing.Service
	processor *processorMock
	accounts  *account.MemoryStore
	users     *account.MemoryUsers
	plans     *account.MemoryPlans
	acc       account.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	accounts := account.NewMemoryStore()
	users := account.NewMemoryUsers(
		account.User{ID: "u1", Email: "alice@example.com", DisplayName: "Alice"},
		account.User{ID: "u2", Email: "bob@example.com", DisplayName: "Bob"},
	)
	members := account.NewService(accounts, users, nil)
	acc, err := members.CreateAccount(ctx, "u1", "Acme")
	require.NoError(t, err)
	require.NoError(t, members.GrantAccess(ctx, acc.ID, "u2", false))

	plans := account.NewMemoryPlans(
		proPlan,
		account.Plan{ID: "vip", Name: "VIP", Price: 9900, StripePriceID: "price_vip", AllowList: []string{"Other"}},
		account.Plan{ID: "broken", Name: "Broken", Price: 100},
		account.Plan{ID: "free", Name: "Free", Price: 0},
	)
	taxes := tax.NewMemorySource(
		tax.Rate{ID: "txr_ca", Applicable: []string{"US:CA"}},
		tax.Rate{ID: "txr_de", Applicable: []string{"DE"}},
	)
	proc := &processorMock{}
	t.Cleanup(func() { proc.AssertExpectations(t) })

	svc := billing.NewService(
		billing.StripeConfig{DomainURL: "https://app.test/"},
		accounts, users, plans, taxes,
		entitlement.NewChecker(plans, accounts, nil),
		proc,
		billing.WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
	)
	return &fixture{svc: svc, processor: proc, accounts: accounts, users: users, plans: plans, acc: acc}
}

func proSubscription(id string) billing.Subscription {
	return billing.Subscription{
		ID: id, Status: "trialing", Created: 100, CurrentPeriodStart: 100, CurrentPeriodEnd: 200, ItemID: "si_" + id,
	}
}

func TestService_Subscribe_New(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	f.processor.On("CreateCustomer", mock.Anything, billing.CustomerParams{UserID: "u1", Name: "Alice", Email: "alice@example.com"}).
		Return("cus_1", nil).Once()
	f.processor.On("AttachPaymentMethod", mock.Anything, "cus_1", "pm_1").Return(nil).Once()
	f.processor.On("CreateSubscription", mock.Anything, billing.CreateSubscriptionParams{
		CustomerID:      "cus_1",
		PriceID:         "price_pro",
		PaymentMethodID: "pm_1",
		TaxRateIDs:      []string{"txr_ca"},
		TrialDays:       14,
	}).Return(proSubscription("sub_1"), nil).Once()

	res, err := f.svc.Subscribe(ctx, billing.SubscribeRequest{
		Caller: owner, AccountID: f.acc.ID, PlanID: "pro", PaymentMethodID: "pm_1",
		Billing: tax.Address{Country: "US", State: "CA"},
	})
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeSucceeded, res.Outcome)

	got, err := f.accounts.Get(ctx, f.acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "pro", got.PlanID)
	assert.Equal(t, "month", got.PaymentCycle)
	assert.EqualValues(t, 1500, got.Price)
	assert.Equal(t, "usd", got.Currency)
	assert.Equal(t, account.SubscriptionRef{Kind: account.KindStripeSubscription, ID: "sub_1"}, got.Subscription)
	assert.Equal(t, "trialing", got.SubscriptionStatus)
	assert.EqualValues(t, 200, got.SubscriptionCurrentPeriodEnd)
	assert.Zero(t, got.SubscriptionEnded)
	assert.Equal(t, 2, got.AccessCount)

	user, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", user.StripeCustomerID)
}

func TestService_Subscribe_ExistingSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	setup := func(t *testing.T) *fixture {
		f := newFixture(t)
		require.NoError(t, f.users.SetCustomerID(ctx, "u1", "cus_1"))
		_, err := f.accounts.Update(ctx, f.acc.ID, func(a *account.Account) error {
			a.Subscription = account.SubscriptionRef{Kind: account.KindStripeSubscription, ID: "sub_old"}
			return nil
		})
		require.NoError(t, err)
		return f
	}
	req := func(f *fixture) billing.SubscribeRequest {
		return billing.SubscribeRequest{Caller: owner, AccountID: f.acc.ID, PlanID: "pro", Billing: tax.Address{Country: "DE"}}
	}

	t.Run("update", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		f.processor.On("RetrieveSubscription", mock.Anything, "sub_old").Return(proSubscription("sub_old"), nil).Once()
		updated := proSubscription("sub_old")
		updated.Status = "active"
		f.processor.On("UpdateSubscription", mock.Anything, "sub_old", billing.UpdateSubscriptionParams{
			ItemID: "si_sub_old", PriceID: "price_pro", TaxRateIDs: []string{"txr_de"},
		}).Return(updated, nil).Once()

		res, err := f.svc.Subscribe(ctx, req(f))
		require.NoError(t, err)
		assert.Equal(t, billing.OutcomeSucceeded, res.Outcome)

		got, err := f.accounts.Get(ctx, f.acc.ID)
		require.NoError(t, err)
		assert.Equal(t, "active", got.SubscriptionStatus)
	})

	t.Run("update failure is degraded", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		f.processor.On("RetrieveSubscription", mock.Anything, "sub_old").Return(proSubscription("sub_old"), nil).Once()
		f.processor.On("UpdateSubscription", mock.Anything, "sub_old", mock.Anything).
			Return(billing.Subscription{}, account.ErrExternalProvider).Once()

		res, err := f.svc.Subscribe(ctx, req(f))
		require.NoError(t, err)
		assert.Equal(t, billing.OutcomeDegraded, res.Outcome)
		assert.Equal(t, "sub_old", res.Subscription.ID)

		got, err := f.accounts.Get(ctx, f.acc.ID)
		require.NoError(t, err)
		assert.Equal(t, "trialing", got.SubscriptionStatus)
		assert.Equal(t, "pro", got.PlanID)
	})

	t.Run("retrieve failure creates new", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		f.processor.On("RetrieveSubscription", mock.Anything, "sub_old").
			Return(billing.Subscription{}, account.ErrExternalProvider).Once()
		f.processor.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(p billing.CreateSubscriptionParams) bool {
			return p.CustomerID == "cus_1" && p.PriceID == "price_pro"
		})).Return(proSubscription("sub_new"), nil).Once()

		res, err := f.svc.Subscribe(ctx, req(f))
		require.NoError(t, err)
		assert.Equal(t, billing.OutcomeSucceeded, res.Outcome)

		got, err := f.accounts.Get(ctx, f.acc.ID)
		require.NoError(t, err)
		assert.Equal(t, "sub_new", got.Subscription.ID)
	})
}

func TestService_Subscribe_Rejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("entitlement denied", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.Subscribe(ctx, billing.SubscribeRequest{Caller: owner, AccountID: f.acc.ID, PlanID: "vip"})
		require.ErrorIs(t, err, account.ErrEntitlementDenied)
		assert.Contains(t, err.Error(), "[Acme]")
		assert.Contains(t, err.Error(), "[VIP]")
	})

	t.Run("not admin", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.Subscribe(ctx, billing.SubscribeRequest{
			Caller: billing.Caller{ID: "u2"}, AccountID: f.acc.ID, PlanID: "pro",
		})
		assert.ErrorIs(t, err, account.ErrPermissionDenied)
	})

	t.Run("missing price", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.Subscribe(ctx, billing.SubscribeRequest{Caller: owner, AccountID: f.acc.ID, PlanID: "broken"})
		assert.ErrorIs(t, err, account.ErrMissingPriceConfiguration)
	})

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.Subscribe(ctx, billing.SubscribeRequest{Caller: owner, AccountID: f.acc.ID, PlanID: "nope"})
		require.ErrorIs(t, err, account.ErrNotFound)
		assert.NotErrorIs(t, err, account.ErrEntitlementDenied)
	})

	t.Run("processor failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.processor.On("CreateCustomer", mock.Anything, mock.Anything).
			Return("", errors.Join(account.ErrExternalProvider, errors.New("card declined"))).Once()
		_, err := f.svc.Subscribe(ctx, billing.SubscribeRequest{Caller: owner, AccountID: f.acc.ID, PlanID: "pro"})
		assert.ErrorIs(t, err, account.ErrExternalProvider)
	})
}

func TestService_Subscribe_FreePlan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.Subscribe(ctx, billing.SubscribeRequest{Caller: owner, AccountID: f.acc.ID, PlanID: "free"})
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeSucceeded, res.Outcome)

	got, err := f.accounts.Get(ctx, f.acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "free", got.PlanID)
	assert.Equal(t, "active", got.SubscriptionStatus)
	assert.Equal(t, account.FarFuturePeriodEnd, got.SubscriptionCurrentPeriodEnd)
	assert.True(t, got.Subscription.IsZero())
}

func TestService_Cancel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("revokes membership", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.accounts.Update(ctx, f.acc.ID, func(a *account.Account) error {
			a.Subscription = account.SubscriptionRef{Kind: account.KindStripeSubscription, ID: "sub_1"}
			return nil
		})
		require.NoError(t, err)
		f.processor.On("CancelSubscription", mock.Anything, "sub_1").
			Return(billing.Subscription{ID: "sub_1", Status: "canceled", EndedAt: 300}, nil).Once()

		require.NoError(t, f.svc.Cancel(ctx, "u1", f.acc.ID))

		got, err := f.accounts.Get(ctx, f.acc.ID)
		require.NoError(t, err)
		assert.Equal(t, "canceled", got.SubscriptionStatus)
		assert.Empty(t, got.Access)
		assert.Empty(t, got.Admins)
		assert.Zero(t, got.AccessCount)
		assert.Zero(t, got.AdminCount)
		assert.EqualValues(t, 300, got.SubscriptionEnded)
	})

	t.Run("not admin", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		assert.ErrorIs(t, f.svc.Cancel(ctx, "u2", f.acc.ID), account.ErrPermissionDenied)
	})

	t.Run("no subscription", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		assert.ErrorIs(t, f.svc.Cancel(ctx, "u1", f.acc.ID), account.ErrNotFound)
	})
}

func TestService_UpdatePaymentMethod(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("requires customer", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		err := f.svc.UpdatePaymentMethod(ctx, owner, f.acc.ID, "pm_2")
		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("attaches and sets default", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.NoError(t, f.users.SetCustomerID(ctx, "u1", "cus_1"))
		_, err := f.accounts.Update(ctx, f.acc.ID, func(a *account.Account) error {
			a.Subscription = account.SubscriptionRef{Kind: account.KindStripeSubscription, ID: "sub_1"}
			return nil
		})
		require.NoError(t, err)

		f.processor.On("AttachPaymentMethod", mock.Anything, "cus_1", "pm_2").Return(nil).Once()
		f.processor.On("UpdateSubscription", mock.Anything, "sub_1", billing.UpdateSubscriptionParams{PaymentMethodID: "pm_2"}).
			Return(proSubscription("sub_1"), nil).Once()

		require.NoError(t, f.svc.UpdatePaymentMethod(ctx, owner, f.acc.ID, "pm_2"))
	})
}

func TestService_CreatePaymentIntent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.users.SetCustomerID(ctx, "u1", "cus_1"))

	f.processor.On("CreatePaymentIntent", mock.Anything, billing.PaymentIntentParams{CustomerID: "cus_1", Amount: 1500, Currency: "usd"}).
		Return(billing.PaymentIntent{ID: "pi_1", ClientSecret: "secret"}, nil).Once()

	pi, err := f.svc.CreatePaymentIntent(ctx, billing.PaymentIntentRequest{Caller: owner, AccountID: f.acc.ID, PlanID: "pro"})
	require.NoError(t, err)
	assert.Equal(t, "secret", pi.ClientSecret)
}

func TestService_Checkout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.users.SetCustomerID(ctx, "u1", "cus_1"))

	returnURL := "https://app.test/account/" + f.acc.ID + "/billing/paymentStatus?session_id={CHECKOUT_SESSION_ID}"
	f.processor.On("CreateCheckoutSession", mock.Anything, billing.CheckoutSessionParams{
		CustomerID: "cus_1", PriceID: "price_pro", Mode: "subscription", SuccessURL: returnURL, CancelURL: returnURL,
	}).Return(billing.CheckoutSession{ID: "cs_1", URL: "https://checkout.test/cs_1", Status: "open"}, nil).Once()

	sess, err := f.svc.CreateCheckoutSession(ctx, billing.CheckoutRequest{Caller: owner, AccountID: f.acc.ID, PlanID: "pro"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/cs_1", sess.URL)

	got, err := f.accounts.Get(ctx, f.acc.ID)
	require.NoError(t, err)
	assert.Equal(t, account.SubscriptionRef{Kind: account.KindStripeCheckout, ID: "cs_1"}, got.Subscription)
	assert.Equal(t, "open", got.SubscriptionStatus)

	f.processor.On("RetrieveCheckoutSession", mock.Anything, "cs_1").
		Return(billing.CheckoutSession{ID: "cs_1", Status: "complete", PaymentStatus: "paid"}, nil).Once()
	_, err = f.svc.ConfirmCheckoutSession(ctx, "cs_1")
	require.NoError(t, err)

	got, err = f.accounts.Get(ctx, f.acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", got.SubscriptionStatus)

	f.processor.On("RetrieveCheckoutSession", mock.Anything, "cs_unknown").
		Return(billing.CheckoutSession{ID: "cs_unknown", PaymentStatus: "paid"}, nil).Once()
	_, err = f.svc.ConfirmCheckoutSession(ctx, "cs_unknown")
	assert.ErrorIs(t, err, account.ErrReconciliationTargetMissing)
}

func TestValidatePlan(t *testing.T) {
	t.Parallel()

	assert.NoError(t, billing.ValidatePlan(proPlan))
	assert.NoError(t, billing.ValidatePlan(account.Plan{ID: "free", Name: "Free"}))
	assert.ErrorIs(t, billing.ValidatePlan(account.Plan{ID: "x", Name: "X", Price: 10}), account.ErrMissingPriceConfiguration)
	assert.Error(t, billing.ValidatePlan(account.Plan{ID: "x", Name: "X", Price: 10, StripePriceID: "p", Currency: "ZZZ"}))
	assert.Error(t, billing.ValidatePlan(account.Plan{ID: "x", Name: "X", Price: -1}))
}
