package invite

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Hasher derives the stored form of an invited email address so that invites
// never hold plaintext addresses.
type Hasher struct {
	key [32]byte
}

func NewHasher(salt string) *Hasher {
	if salt == "" {
		panic("invite salt cannot be empty")
	}
	return &Hasher{key: blake2b.Sum256([]byte(salt))}
}

// Hash returns hex(BLAKE2b-256 keyed by the salt) of the normalized email.
func (h *Hasher) Hash(email string) string {
	mac, err := blake2b.New256(h.key[:])
	if err != nil {
		// only fails for keys longer than 64 bytes
		panic(err)
	}
	mac.Write([]byte(Normalize(email)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Normalize lower-cases and trims an email address.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
