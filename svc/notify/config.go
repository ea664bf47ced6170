package notify

type Config struct {
	SiteName string `env:"SITE_NAME" envDefault:"Account Billing"`
	// OperatorEmail receives the payment audit mail. Empty disables it.
	OperatorEmail string `env:"OPERATOR_EMAIL"`
}
