package invite

import "time"

type Config struct {
	Salt   string        `env:"INVITE_SALT,required"`
	Expiry time.Duration `env:"INVITE_EXPIRY" envDefault:"72h"`
	// URL is the accept page; the invite id is appended as a path segment.
	URL string `env:"INVITE_URL,required"`
}
