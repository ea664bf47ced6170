// Package tax maps a billing location to the processor tax-rate ids that apply.
package tax

// Rate is a processor tax rate. Each Applicable entry is either a country
// code ("US") or a country and state pair ("US:CA").
type Rate struct {
	ID         string   `bson:"_id" json:"id" yaml:"id"`
	Applicable []string `bson:"applicable" json:"applicable" yaml:"applicable"`
}

// Address is the billing location supplied by the caller.
type Address struct {
	Country string `json:"country"`
	State   string `json:"state"`
}

// Resolve returns the ids of the rates matching billing, in the order of
// rates. An empty result is valid.
func Resolve(rates []Rate, billing Address) []string {
	ids := make([]string, 0, len(rates))
	if billing.Country == "" {
		return ids
	}
	region := billing.Country + ":" + billing.State
	for _, r := range rates {
		for _, a := range r.Applicable {
			if a == billing.Country || (billing.State != "" && a == region) {
				ids = append(ids, r.ID)
				break
			}
		}
	}
	return ids
}
