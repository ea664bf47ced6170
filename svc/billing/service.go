package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/accountbilling/pkg/async"
	"github.com/dmitrymomot/accountbilling/pkg/logger"
	"github.com/dmitrymomot/accountbilling/svc/account"
	"github.com/dmitrymomot/accountbilling/svc/tax"
)

type entitlementChecker interface {
	Allowed(ctx context.Context, planID, accountID string) (bool, error)
}

// Caller identifies the authenticated user driving a request.
type Caller struct {
	ID    string
	Name  string
	Email string
}

type SubscribeRequest struct {
	Caller          Caller
	AccountID       string
	PlanID          string
	PaymentMethodID string
	Billing         tax.Address
}

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeDegraded means the existing subscription was kept because the
	// processor rejected the update.
	OutcomeDegraded Outcome = "degraded"
)

type SubscribeResult struct {
	Outcome      Outcome
	Subscription Subscription
}

type PaymentIntentRequest struct {
	Caller          Caller
	AccountID       string
	PlanID          string
	PaymentMethodID string
}

type CheckoutRequest struct {
	Caller    Caller
	AccountID string
	PlanID    string
	Mode      string
}

// Service orchestrates caller-initiated billing flows.
type Service struct {
	accounts  account.Store
	users     account.Users
	plans     account.Plans
	taxes     tax.Source
	checker   entitlementChecker
	processor Processor
	cfg       StripeConfig
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	cfg StripeConfig,
	accounts account.Store,
	users account.Users,
	plans account.Plans,
	taxes tax.Source,
	checker entitlementChecker,
	processor Processor,
	opts ...Option,
) *Service {
	if accounts == nil || users == nil || plans == nil || taxes == nil || checker == nil || processor == nil {
		panic("billing service dependencies cannot be nil")
	}
	if cfg.CheckoutMode == "" {
		cfg.CheckoutMode = "subscription"
	}
	s := &Service{
		accounts:  accounts,
		users:     users,
		plans:     plans,
		taxes:     taxes,
		checker:   checker,
		processor: processor,
		cfg:       cfg,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("billing"))
	return s
}

type subscribeInputs struct {
	acc     account.Account
	plan    account.Plan
	rates   []tax.Rate
	allowed bool
}

// load fetches account, plan, tax rates and the entitlement decision
// concurrently.
func (s *Service) load(ctx context.Context, accountID, planID string, withTaxes bool) (subscribeInputs, error) {
	accF := async.Go(ctx, func(ctx context.Context) (account.Account, error) {
		return s.accounts.Get(ctx, accountID)
	})
	planF := async.Go(ctx, func(ctx context.Context) (account.Plan, error) {
		return s.plans.Get(ctx, planID)
	})
	allowedF := async.Go(ctx, func(ctx context.Context) (bool, error) {
		return s.checker.Allowed(ctx, planID, accountID)
	})
	var ratesF *async.Future[[]tax.Rate]
	if withTaxes {
		ratesF = async.Go(ctx, s.taxes.List)
	}

	var in subscribeInputs
	var errs []error
	var err error
	if in.acc, err = accF.Await(ctx); err != nil {
		errs = append(errs, fmt.Errorf("account %s: %w", accountID, err))
	}
	if in.plan, err = planF.Await(ctx); err != nil {
		errs = append(errs, fmt.Errorf("plan %s: %w", planID, err))
	}
	if in.allowed, err = allowedF.Await(ctx); err != nil {
		errs = append(errs, err)
	}
	if ratesF != nil {
		if in.rates, err = ratesF.Await(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tax rates: %w", err))
		}
	}
	return in, errors.Join(errs...)
}

func entitlementError(acc account.Account, plan account.Plan) error {
	return fmt.Errorf("%w: account [%s] missing entitlement to [%s], [%s]",
		account.ErrEntitlementDenied, acc.Name, plan.Name, plan.ID)
}

// Subscribe creates or updates the account's subscription to the plan and
// records the result on the account.
func (s *Service) Subscribe(ctx context.Context, req SubscribeRequest) (SubscribeResult, error) {
	in, err := s.load(ctx, req.AccountID, req.PlanID, true)
	if err != nil {
		return SubscribeResult{}, err
	}
	if !in.allowed {
		return SubscribeResult{}, entitlementError(in.acc, in.plan)
	}
	if !in.acc.IsAdmin(req.Caller.ID) {
		return SubscribeResult{}, account.ErrPermissionDenied
	}
	if !in.plan.IsFree() && in.plan.StripePriceID == "" {
		return SubscribeResult{}, account.ErrMissingPriceConfiguration
	}
	cur, err := planCurrency(in.plan)
	if err != nil {
		return SubscribeResult{}, err
	}

	log := s.logger.With(logger.AccountID(req.AccountID), logger.PlanID(req.PlanID), logger.UserID(req.Caller.ID))

	var (
		sub     Subscription
		outcome = OutcomeSucceeded
		ref     account.SubscriptionRef
	)
	if in.plan.StripePriceID == "" {
		// Free plan without a processor price: nothing to bill.
		now := s.now().Unix()
		sub = Subscription{Status: "active", Created: now, CurrentPeriodStart: now, CurrentPeriodEnd: account.FarFuturePeriodEnd}
	} else {
		customerID, err := s.customerFor(ctx, req.Caller, req.PaymentMethodID)
		if err != nil {
			return SubscribeResult{}, err
		}
		taxRates := tax.Resolve(in.rates, req.Billing)
		createParams := CreateSubscriptionParams{
			CustomerID:      customerID,
			PriceID:         in.plan.StripePriceID,
			PaymentMethodID: req.PaymentMethodID,
			TaxRateIDs:      taxRates,
			TrialDays:       in.plan.TrialPeriod,
		}

		existing := in.acc.Subscription.Kind == account.KindStripeSubscription && in.acc.Subscription.ID != ""
		if existing {
			sub, err = s.processor.RetrieveSubscription(ctx, in.acc.Subscription.ID)
			if err != nil {
				log.WarnContext(ctx, "retrieve subscription failed, creating a new one", logger.Error(err))
				if sub, err = s.processor.CreateSubscription(ctx, createParams); err != nil {
					return SubscribeResult{}, err
				}
			} else {
				updated, uerr := s.processor.UpdateSubscription(ctx, sub.ID, UpdateSubscriptionParams{
					ItemID:          sub.ItemID,
					PriceID:         in.plan.StripePriceID,
					PaymentMethodID: req.PaymentMethodID,
					TaxRateIDs:      taxRates,
				})
				if uerr != nil {
					log.WarnContext(ctx, "subscription update failed, keeping current subscription", logger.Error(uerr))
					outcome = OutcomeDegraded
				} else {
					sub = updated
				}
			}
		} else {
			if sub, err = s.processor.CreateSubscription(ctx, createParams); err != nil {
				return SubscribeResult{}, err
			}
		}
		ref = account.SubscriptionRef{Kind: account.KindStripeSubscription, ID: sub.ID}
	}

	if _, err := s.accounts.Update(ctx, req.AccountID, func(a *account.Account) error {
		a.PlanID = in.plan.ID
		a.PaymentCycle = in.plan.PaymentCycle
		a.Price = in.plan.Price
		a.Currency = cur
		if !ref.IsZero() {
			a.Subscription = ref
		}
		a.ApplySubscription(account.SubscriptionState{
			Status:             sub.Status,
			Created:            sub.Created,
			CurrentPeriodStart: sub.CurrentPeriodStart,
			CurrentPeriodEnd:   sub.CurrentPeriodEnd,
			Ended:              sub.EndedAt,
		})
		return nil
	}); err != nil {
		return SubscribeResult{}, fmt.Errorf("record subscription: %w", err)
	}

	log.InfoContext(ctx, "subscription recorded",
		slog.String("subscription_id", sub.ID), slog.String("status", sub.Status), slog.String("outcome", string(outcome)))
	return SubscribeResult{Outcome: outcome, Subscription: sub}, nil
}

// Cancel cancels the active subscription and revokes every membership.
func (s *Service) Cancel(ctx context.Context, callerID, accountID string) error {
	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if !acc.IsAdmin(callerID) {
		return account.ErrPermissionDenied
	}
	if acc.Subscription.Kind != account.KindStripeSubscription || acc.Subscription.ID == "" {
		return fmt.Errorf("no active subscription: %w", account.ErrNotFound)
	}

	sub, err := s.processor.CancelSubscription(ctx, acc.Subscription.ID)
	if err != nil {
		return err
	}
	if _, err := s.accounts.Update(ctx, accountID, func(a *account.Account) error {
		a.SubscriptionStatus = sub.Status
		if sub.EndedAt != 0 {
			a.SubscriptionEnded = sub.EndedAt
		}
		a.RevokeAll()
		return nil
	}); err != nil {
		return fmt.Errorf("record cancellation: %w", err)
	}

	s.logger.InfoContext(ctx, "subscription canceled",
		logger.AccountID(accountID), logger.UserID(callerID), slog.String("status", sub.Status))
	return nil
}

// UpdatePaymentMethod attaches the payment method to the caller's customer
// and makes it the subscription default.
func (s *Service) UpdatePaymentMethod(ctx context.Context, caller Caller, accountID, paymentMethodID string) error {
	if paymentMethodID == "" {
		return fmt.Errorf("payment method is required: %w", account.ErrNotFound)
	}
	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if !acc.IsAdmin(caller.ID) {
		return account.ErrPermissionDenied
	}
	user, err := s.users.Get(ctx, caller.ID)
	if err != nil && !errors.Is(err, account.ErrNotFound) {
		return err
	}
	if user.StripeCustomerID == "" {
		return fmt.Errorf("subscribe to a plan first: %w", account.ErrNotFound)
	}
	if err := s.processor.AttachPaymentMethod(ctx, user.StripeCustomerID, paymentMethodID); err != nil {
		return err
	}
	if acc.Subscription.Kind == account.KindStripeSubscription && acc.Subscription.ID != "" {
		if _, err := s.processor.UpdateSubscription(ctx, acc.Subscription.ID, UpdateSubscriptionParams{
			PaymentMethodID: paymentMethodID,
		}); err != nil {
			return err
		}
	}
	return nil
}

// CreatePaymentIntent starts a one-off payment for the plan price.
func (s *Service) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (PaymentIntent, error) {
	in, err := s.load(ctx, req.AccountID, req.PlanID, false)
	if err != nil {
		return PaymentIntent{}, err
	}
	if !in.acc.IsAdmin(req.Caller.ID) {
		return PaymentIntent{}, account.ErrPermissionDenied
	}
	cur, err := planCurrency(in.plan)
	if err != nil {
		return PaymentIntent{}, err
	}
	customerID, err := s.customerFor(ctx, req.Caller, req.PaymentMethodID)
	if err != nil {
		return PaymentIntent{}, err
	}
	return s.processor.CreatePaymentIntent(ctx, PaymentIntentParams{
		CustomerID: customerID,
		Amount:     in.plan.Price,
		Currency:   cur,
	})
}

// CreateCheckoutSession starts a hosted checkout for the plan and records the
// session as the account's pending subscription.
func (s *Service) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	in, err := s.load(ctx, req.AccountID, req.PlanID, false)
	if err != nil {
		return CheckoutSession{}, err
	}
	if !in.allowed {
		return CheckoutSession{}, entitlementError(in.acc, in.plan)
	}
	if !in.acc.IsAdmin(req.Caller.ID) {
		return CheckoutSession{}, account.ErrPermissionDenied
	}
	if in.plan.StripePriceID == "" {
		return CheckoutSession{}, account.ErrMissingPriceConfiguration
	}
	cur, err := planCurrency(in.plan)
	if err != nil {
		return CheckoutSession{}, err
	}
	customerID, err := s.customerFor(ctx, req.Caller, "")
	if err != nil {
		return CheckoutSession{}, err
	}

	mode := req.Mode
	if mode == "" {
		mode = s.cfg.CheckoutMode
	}
	returnURL := s.checkoutReturnURL(req.AccountID)
	sess, err := s.processor.CreateCheckoutSession(ctx, CheckoutSessionParams{
		CustomerID: customerID,
		PriceID:    in.plan.StripePriceID,
		Mode:       mode,
		SuccessURL: returnURL,
		CancelURL:  returnURL,
	})
	if err != nil {
		return CheckoutSession{}, err
	}

	if _, err := s.accounts.Update(ctx, req.AccountID, func(a *account.Account) error {
		a.PlanID = in.plan.ID
		a.PaymentCycle = in.plan.PaymentCycle
		a.Price = in.plan.Price
		a.Currency = cur
		a.Subscription = account.SubscriptionRef{Kind: account.KindStripeCheckout, ID: sess.ID}
		a.SubscriptionStatus = sess.Status
		return nil
	}); err != nil {
		return CheckoutSession{}, fmt.Errorf("record checkout session: %w", err)
	}

	s.logger.InfoContext(ctx, "checkout session created",
		logger.AccountID(req.AccountID), logger.PlanID(req.PlanID), slog.String("session_id", sess.ID))
	return sess, nil
}

// ConfirmCheckoutSession is called by the return page. A paid session marks
// the owning account with the payment status.
func (s *Service) ConfirmCheckoutSession(ctx context.Context, sessionID string) (CheckoutSession, error) {
	if sessionID == "" {
		return CheckoutSession{}, fmt.Errorf("session id is required: %w", account.ErrNotFound)
	}
	sess, err := s.processor.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		return CheckoutSession{}, err
	}
	if sess.PaymentStatus != "paid" {
		return sess, nil
	}

	acc, err := s.accounts.FindBySubscription(ctx, account.SubscriptionRef{Kind: account.KindStripeCheckout, ID: sess.ID})
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return CheckoutSession{}, fmt.Errorf("checkout session %s: %w", sess.ID, account.ErrReconciliationTargetMissing)
		}
		return CheckoutSession{}, err
	}
	if _, err := s.accounts.Update(ctx, acc.ID, func(a *account.Account) error {
		a.SubscriptionStatus = sess.PaymentStatus
		return nil
	}); err != nil {
		return CheckoutSession{}, err
	}
	return sess, nil
}

func (s *Service) checkoutReturnURL(accountID string) string {
	return strings.TrimRight(s.cfg.DomainURL, "/") + "/account/" + accountID +
		"/billing/paymentStatus?session_id={CHECKOUT_SESSION_ID}"
}

// customerFor returns the caller's processor customer, creating it on first
// use, and attaches paymentMethodID when given. Customers belong to users,
// not accounts.
func (s *Service) customerFor(ctx context.Context, caller Caller, paymentMethodID string) (string, error) {
	user, err := s.users.Get(ctx, caller.ID)
	if err != nil && !errors.Is(err, account.ErrNotFound) {
		return "", err
	}
	customerID := user.StripeCustomerID
	if customerID == "" {
		customerID, err = s.processor.CreateCustomer(ctx, CustomerParams{
			UserID: caller.ID,
			Name:   caller.Name,
			Email:  caller.Email,
		})
		if err != nil {
			return "", err
		}
		if err := s.users.SetCustomerID(ctx, caller.ID, customerID); err != nil {
			return "", fmt.Errorf("store customer id: %w", err)
		}
	}
	if paymentMethodID != "" {
		if err := s.processor.AttachPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
			return "", err
		}
	}
	return customerID, nil
}
