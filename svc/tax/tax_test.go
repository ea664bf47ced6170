package tax_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountbilling/svc/tax"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	rates := []tax.Rate{
		{ID: "txr_us", Applicable: []string{"US"}},
		{ID: "txr_ca", Applicable: []string{"US:CA"}},
		{ID: "txr_ny", Applicable: []string{"US:NY"}},
		{ID: "txr_both", Applicable: []string{"US", "US:CA"}},
		{ID: "txr_de", Applicable: []string{"DE"}},
	}

	tests := []struct {
		name    string
		billing tax.Address
		want    []string
	}{
		{name: "country and state", billing: tax.Address{Country: "US", State: "CA"}, want: []string{"txr_us", "txr_ca", "txr_both"}},
		{name: "country only", billing: tax.Address{Country: "US"}, want: []string{"txr_us", "txr_both"}},
		{name: "other country", billing: tax.Address{Country: "DE", State: "BE"}, want: []string{"txr_de"}},
		{name: "no match", billing: tax.Address{Country: "FR"}, want: []string{}},
		{name: "empty billing", billing: tax.Address{}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tax.Resolve(rates, tt.billing))
		})
	}
}

func TestMemorySource_List(t *testing.T) {
	t.Parallel()

	src := tax.NewMemorySource(
		tax.Rate{ID: "b", Applicable: []string{"US"}},
		tax.Rate{ID: "a", Applicable: []string{"DE"}},
	)
	rates, err := src.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, "a", rates[0].ID)
	assert.Equal(t, "b", rates[1].ID)
}
