package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/accountbilling/pkg/dedup"
	"github.com/dmitrymomot/accountbilling/pkg/logger"
	"github.com/dmitrymomot/accountbilling/pkg/queue"
	"github.com/dmitrymomot/accountbilling/svc/account"
	"github.com/dmitrymomot/accountbilling/svc/notify"
)

type (
	ipnVerifier interface {
		Verify(ctx context.Context, raw string) (bool, error)
	}

	entitlementEvaluator interface {
		AllowedFor(ctx context.Context, plan account.Plan, acc account.Account) bool
	}

	paymentNotifier interface {
		SendReceipt(ctx context.Context, to string, r notify.Receipt) error
		SendAudit(ctx context.Context, a notify.Audit) error
	}
)

// IPNProcessor verifies queued IPN notifications and applies them.
type IPNProcessor struct {
	verifier ipnVerifier
	accounts account.Store
	plans    account.Plans
	checker  entitlementEvaluator
	guard    deliveryGuard
	notifier paymentNotifier
	logger   *slog.Logger
}

func NewIPNProcessor(
	verifier ipnVerifier,
	accounts account.Store,
	plans account.Plans,
	checker entitlementEvaluator,
	guard deliveryGuard,
	notifier paymentNotifier,
	log *slog.Logger,
) *IPNProcessor {
	if verifier == nil || accounts == nil || plans == nil || checker == nil || notifier == nil {
		panic("ipn processor dependencies cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &IPNProcessor{
		verifier: verifier,
		accounts: accounts,
		plans:    plans,
		checker:  checker,
		guard:    guard,
		notifier: notifier,
		logger:   log.With(logger.Component("ipn_processor")),
	}
}

// Handler exposes Process as a queue handler for IPNTask payloads.
func (p *IPNProcessor) Handler() queue.Handler {
	return queue.NewTaskHandler[IPNTask](p.Process)
}

// Process verifies one notification and records it on the account.
//
// An unverified notification never touches the account: the operator gets an
// audit message and the task completes. A verified but not entitled payment
// is recorded with the subscription marked ended.
func (p *IPNProcessor) Process(ctx context.Context, task IPNTask) error {
	msg, err := parseIPN(task.Raw)
	if err != nil {
		p.logger.ErrorContext(ctx, "rejected malformed ipn", logger.Error(err))
		return err
	}
	log := p.logger.With(logger.EventID(msg.TxnID), logger.AccountID(msg.AccountID), logger.PlanID(msg.PlanID))

	valid, err := p.verifier.Verify(ctx, task.Raw)
	if err != nil {
		return err
	}
	if !valid {
		log.WarnContext(ctx, "ipn failed verification, account left untouched")
		p.notify(ctx, log, msg, account.Account{}, false, false)
		return nil
	}

	key := "paypal:" + msg.TxnID + ":" + strings.ToLower(msg.PaymentStatus)
	if p.guard != nil {
		if err := p.guard.Acquire(ctx, key); err != nil {
			if errors.Is(err, dedup.ErrDuplicate) {
				log.InfoContext(ctx, "duplicate ipn skipped")
				return nil
			}
			return fmt.Errorf("dedup: %w", err)
		}
	}

	acc, allowed, err := p.apply(ctx, msg, task)
	if err != nil {
		if p.guard != nil {
			if rerr := p.guard.Release(ctx, key); rerr != nil {
				log.ErrorContext(ctx, "failed to release dedup key", logger.Error(rerr))
			}
		}
		log.ErrorContext(ctx, "failed to apply ipn", logger.Error(err))
		return err
	}
	log.InfoContext(ctx, "ipn applied",
		slog.Bool("allowed", allowed), slog.String("payment_status", msg.PaymentStatus))

	p.notify(ctx, log, msg, acc, true, allowed)
	return nil
}

func (p *IPNProcessor) apply(ctx context.Context, msg ipnMessage, task IPNTask) (account.Account, bool, error) {
	acc, err := p.accounts.Get(ctx, msg.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Account{}, false, fmt.Errorf("%w: account %s", account.ErrReconciliationTargetMissing, msg.AccountID)
		}
		return account.Account{}, false, err
	}
	plan, err := p.plans.Get(ctx, msg.PlanID)
	if err != nil {
		return account.Account{}, false, fmt.Errorf("plan %s: %w", msg.PlanID, err)
	}
	allowed := p.checker.AllowedFor(ctx, plan, acc)

	received := task.ReceivedAt
	if received.IsZero() {
		received = time.Now().UTC()
	}
	paidAt := received
	if t, err := parseIPNDate(msg.PaymentDate); err == nil {
		paidAt = t
	} else if msg.PaymentDate != "" {
		p.logger.WarnContext(ctx, "unparseable payment_date, using receipt time",
			logger.EventID(msg.TxnID), slog.String("payment_date", msg.PaymentDate))
	}

	currency := strings.ToLower(msg.Currency)
	price, perr := minorUnits(msg.PaymentGross, msg.Currency)
	if perr != nil {
		p.logger.WarnContext(ctx, "unparseable payment amount", logger.EventID(msg.TxnID), logger.Error(perr))
	}

	var ended int64
	if !allowed {
		ended = 1
	}

	updated, err := p.accounts.Update(ctx, acc.ID, func(a *account.Account) error {
		a.ApplySubscription(account.SubscriptionState{
			Status:             msg.PaymentStatus,
			Created:            paidAt.Unix(),
			CurrentPeriodStart: paidAt.Unix(),
			CurrentPeriodEnd:   account.FarFuturePeriodEnd,
			Ended:              ended,
		})
		if perr == nil {
			a.Price = price
		}
		a.PlanID = plan.ID
		a.PaymentCycle = plan.PaymentCycle
		if currency != "" {
			a.Currency = currency
		}
		a.Subscription = account.SubscriptionRef{Kind: account.KindPayPal, ID: msg.TxnID}
		a.TransLog = append(a.TransLog, account.TransLogEntry{
			Payload:     msg.Fields,
			ValidTicket: true,
			ReceivedAt:  received,
		})
		return nil
	})
	if err != nil {
		return account.Account{}, false, err
	}
	return updated, allowed, nil
}

// notify sends the receipt and the operator audit. Failures are logged; the
// account is already updated and redelivery would not resend them.
func (p *IPNProcessor) notify(ctx context.Context, log *slog.Logger, msg ipnMessage, acc account.Account, valid, allowed bool) {
	receipt := notify.Receipt{
		User:   msg.Custom,
		Amount: msg.PaymentGross,
		Date:   msg.PaymentDate,
		Status: msg.PaymentStatus,
		TxnID:  msg.TxnID,
	}
	payer := payerAddress(msg, acc)

	if valid && payer != "" {
		if err := p.notifier.SendReceipt(ctx, payer, receipt); err != nil {
			log.ErrorContext(ctx, "failed to send payment receipt", logger.Error(err))
		}
	}
	if err := p.notifier.SendAudit(ctx, notify.Audit{
		Receipt:   receipt,
		Valid:     valid,
		Allowed:   allowed,
		UserEmail: payer,
		AccountID: msg.AccountID,
		PlanID:    msg.PlanID,
	}); err != nil {
		log.ErrorContext(ctx, "failed to send payment audit", logger.Error(err))
	}
}

// payerAddress prefers the payer_email variable and falls back to the account
// name, which for PayPal-provisioned accounts is the payer's address.
func payerAddress(msg ipnMessage, acc account.Account) string {
	if msg.PayerEmail != "" {
		return msg.PayerEmail
	}
	if strings.Contains(acc.Name, "@") {
		return acc.Name
	}
	return ""
}
