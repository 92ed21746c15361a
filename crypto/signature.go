package crypto

import "crypto/ed25519"

// Sign signs data with the private key and returns the raw signature.
func Sign(priv PrivateKey, data []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv), data)
}
