package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/accountbilling/pkg/logger"
	"github.com/dmitrymomot/accountbilling/svc/account"
	"github.com/dmitrymomot/accountbilling/svc/billing"
	"github.com/dmitrymomot/accountbilling/svc/tax"
)

type planWriter interface {
	Put(ctx context.Context, p account.Plan) error
}

type rateWriter interface {
	Put(ctx context.Context, r tax.Rate) error
}

type catalogue struct {
	plans []account.Plan
	rates []tax.Rate
}

// decodePlans reads a YAML list of plans. Ids must be unique and every plan
// must pass billing.ValidatePlan.
func decodePlans(r io.Reader) ([]account.Plan, error) {
	var plans []account.Plan
	if err := decodeStrict(r, &plans); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(plans))
	for i, p := range plans {
		if err := billing.ValidatePlan(p); err != nil {
			return nil, fmt.Errorf("plan #%d: %w", i+1, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("plan #%d: duplicate id %q", i+1, p.ID)
		}
		seen[p.ID] = true
	}
	return plans, nil
}

// decodeRates reads a YAML list of tax rates. Applicable entries are
// upper-cased so "us:ca" matches the resolver's "US:CA" form.
func decodeRates(r io.Reader) ([]tax.Rate, error) {
	var rates []tax.Rate
	if err := decodeStrict(r, &rates); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(rates))
	for i := range rates {
		rate := &rates[i]
		if rate.ID == "" {
			return nil, fmt.Errorf("tax rate #%d: id is required", i+1)
		}
		if len(rate.Applicable) == 0 {
			return nil, fmt.Errorf("tax rate %s: applicable is empty", rate.ID)
		}
		if seen[rate.ID] {
			return nil, fmt.Errorf("tax rate #%d: duplicate id %q", i+1, rate.ID)
		}
		seen[rate.ID] = true
		for j, a := range rate.Applicable {
			rate.Applicable[j] = strings.ToUpper(strings.TrimSpace(a))
		}
	}
	return rates, nil
}

func decodeStrict(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c catalogue) apply(ctx context.Context, plans planWriter, rates rateWriter, log *slog.Logger) error {
	for _, p := range c.plans {
		if err := plans.Put(ctx, p); err != nil {
			return err
		}
		log.InfoContext(ctx, "plan upserted", logger.PlanID(p.ID))
	}
	for _, r := range c.rates {
		if err := rates.Put(ctx, r); err != nil {
			return err
		}
		log.InfoContext(ctx, "tax rate upserted", slog.String("tax_rate_id", r.ID))
	}
	return nil
}
