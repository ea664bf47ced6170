package billing

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"

	"github.com/dmitrymomot/accountbilling/svc/account"
)

const defaultCurrency = "usd"

// planCurrency returns the plan's ISO 4217 code in the lower-case form the
// processor expects.
func planCurrency(p account.Plan) (string, error) {
	if p.Currency == "" {
		return defaultCurrency, nil
	}
	unit, err := currency.ParseISO(p.Currency)
	if err != nil {
		return "", fmt.Errorf("plan %s has invalid currency %q: %w", p.ID, p.Currency, err)
	}
	return strings.ToLower(unit.String()), nil
}

// ValidatePlan checks reference data before it is seeded.
func ValidatePlan(p account.Plan) error {
	if p.ID == "" || p.Name == "" {
		return fmt.Errorf("plan id and name are required")
	}
	if p.Price < 0 {
		return fmt.Errorf("plan %s has negative price", p.ID)
	}
	if !p.IsFree() && p.StripePriceID == "" {
		return fmt.Errorf("plan %s: %w", p.ID, account.ErrMissingPriceConfiguration)
	}
	if _, err := planCurrency(p); err != nil {
		return err
	}
	return nil
}
