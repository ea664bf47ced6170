// Package entitlement decides whether an account may purchase a plan.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dmitrymomot/accountbilling/pkg/logger"
	"github.com/dmitrymomot/accountbilling/svc/account"
)

type accountReader interface {
	Get(ctx context.Context, id string) (account.Account, error)
}

// Checker evaluates plan allow-lists. It reads the plan and the account on
// every call and caches nothing.
type Checker struct {
	plans    account.Plans
	accounts accountReader
	logger   *slog.Logger
}

func NewChecker(plans account.Plans, accounts accountReader, log *slog.Logger) *Checker {
	if plans == nil || accounts == nil {
		panic("entitlement checker requires plan and account sources")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Checker{plans: plans, accounts: accounts, logger: log.With(logger.Component("entitlement"))}
}

// Allowed reports whether accountID may buy planID. A plan without an
// allow-list admits everyone; otherwise the account name must be listed
// exactly (case-sensitive).
func (c *Checker) Allowed(ctx context.Context, planID, accountID string) (bool, error) {
	plan, err := c.plans.Get(ctx, planID)
	if err != nil {
		return false, fmt.Errorf("plan %s: %w", planID, err)
	}
	acc, err := c.accounts.Get(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("account %s: %w", accountID, err)
	}
	return c.decide(ctx, plan, acc), nil
}

// AllowedFor evaluates an already loaded plan and account.
func (c *Checker) AllowedFor(ctx context.Context, plan account.Plan, acc account.Account) bool {
	return c.decide(ctx, plan, acc)
}

func (c *Checker) decide(ctx context.Context, plan account.Plan, acc account.Account) bool {
	attrs := []any{logger.PlanID(plan.ID), logger.AccountID(acc.ID), slog.String("account_name", acc.Name)}
	switch {
	case plan.AllowList == nil:
		c.logger.InfoContext(ctx, "no allow-list for plan, default to allow", attrs...)
		return true
	case slices.Contains(plan.AllowList, acc.Name):
		c.logger.InfoContext(ctx, "account in allow-list, allow", attrs...)
		return true
	default:
		c.logger.InfoContext(ctx, "account not in allow-list, deny", attrs...)
		return false
	}
}
