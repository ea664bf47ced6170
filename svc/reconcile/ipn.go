package reconcile

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/text/currency"
	"golang.org/x/text/encoding/htmlindex"
)

// IPNTask carries a raw IPN body through the queue.
type IPNTask struct {
	Raw        string    `json:"raw"`
	ReceivedAt time.Time `json:"received_at"`
}

// ipnMessage is the subset of IPN variables the reconciler reads.
type ipnMessage struct {
	AccountID     string
	PlanID        string
	PaymentStatus string
	TxnID         string
	Custom        string
	PaymentDate   string
	PaymentGross  string
	Currency      string
	PayerEmail    string
	Fields        map[string]string
}

// parseIPN decodes a form-encoded IPN body. Values are transcoded to UTF-8
// according to the charset variable PayPal includes.
func parseIPN(raw string) (ipnMessage, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ipnMessage{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	decode := func(s string) string { return s }
	if cs := values.Get("charset"); cs != "" && !strings.EqualFold(cs, "utf-8") {
		if enc, err := htmlindex.Get(cs); err == nil {
			dec := enc.NewDecoder()
			decode = func(s string) string {
				if out, err := dec.String(s); err == nil {
					return out
				}
				return s
			}
		}
	}

	fields := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			fields[k] = decode(v[0])
		}
	}

	msg := ipnMessage{
		AccountID:     fields["option_selection1"],
		PlanID:        fields["option_selection2"],
		PaymentStatus: fields["payment_status"],
		TxnID:         fields["txn_id"],
		Custom:        fields["custom"],
		PaymentDate:   fields["payment_date"],
		PaymentGross:  fields["payment_gross"],
		Currency:      fields["mc_currency"],
		PayerEmail:    fields["payer_email"],
		Fields:        fields,
	}
	if msg.PaymentGross == "" {
		msg.PaymentGross = fields["mc_gross"]
	}
	switch {
	case msg.TxnID == "":
		return ipnMessage{}, fmt.Errorf("%w: txn_id missing", ErrMalformedEvent)
	case msg.AccountID == "":
		return ipnMessage{}, fmt.Errorf("%w: option_selection1 (account) missing", ErrMalformedEvent)
	case msg.PlanID == "":
		return ipnMessage{}, fmt.Errorf("%w: option_selection2 (plan) missing", ErrMalformedEvent)
	}
	return msg, nil
}

const ipnDateLayout = "15:04:05 Jan 02, 2006"

var paypalLocation = func() *time.Location {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// parseIPNDate reads PayPal's "HH:MM:SS Mon DD, YYYY PST" format. PayPal
// reports Pacific time; the trailing zone abbreviation is not trusted.
func parseIPNDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, ' '); i > 0 {
		if zone := s[i+1:]; zone == "PST" || zone == "PDT" {
			s = s[:i]
		}
	}
	return time.ParseInLocation(ipnDateLayout, s, paypalLocation)
}

// minorUnits converts a decimal amount such as "10.5" into the smallest unit
// of the currency (1050 for USD, 11 for JPY after rounding).
func minorUnits(amount, code string) (int64, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 0, fmt.Errorf("currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	f, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", amount, err)
	}
	return int64(math.Round(f * math.Pow10(scale))), nil
}
