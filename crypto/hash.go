package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// KeyHashSize is the length of a payment or script credential hash.
const KeyHashSize = 28

// Hash returns the blake2b-256 hash of data as a lowercase hex string.
// Transaction ids are the Hash of the serialised transaction body.
func Hash(data []byte) string {
	return hex.EncodeToString(HashBytes(data))
}

// HashBytes returns the raw blake2b-256 bytes of data.
func HashBytes(data []byte) []byte {
	h := blake2b.Sum256(data)
	return h[:]
}

// KeyHash returns the blake2b-224 digest used for key and script credentials.
func KeyHash(data []byte) []byte {
	h, err := blake2b.New(KeyHashSize, nil)
	if err != nil {
		// Only fails for sizes outside 1..64.
		panic(err)
	}
	h.Write(data)
	return h.Sum(nil)
}
