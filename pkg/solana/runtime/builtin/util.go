package builtin

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
)

func encode(key ed25519.PublicKey) string {
	return base58.Encode(key)
}

func cloneKey(key ed25519.PublicKey) ed25519.PublicKey {
	if len(key) == 0 {
		return nil
	}
	clone := make(ed25519.PublicKey, len(key))
	copy(clone, key)
	return clone
}
