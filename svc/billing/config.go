package billing

type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
	// DomainURL is the web app origin used for checkout return URLs.
	DomainURL string `env:"STRIPE_DOMAIN_URL,required"`
	// CheckoutMode is used when a checkout request does not name one.
	CheckoutMode string `env:"STRIPE_CHECKOUT_MODE" envDefault:"subscription"`
}
