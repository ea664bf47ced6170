package reconcile

import "time"

type IPNConfig struct {
	URL     string        `env:"PAYPAL_IPN_URL" envDefault:"https://ipnpb.paypal.com/cgi-bin/webscr"`
	Timeout time.Duration `env:"PAYPAL_IPN_TIMEOUT" envDefault:"10s"`
	Queue   string        `env:"PAYPAL_IPN_QUEUE" envDefault:"paypal"`
}
