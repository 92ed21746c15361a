package crypto

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// TextEnvelope is the JSON wrapper cardano-cli writes key files in.
type TextEnvelope struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	CborHex     string `json:"cborHex"`
}

// LoadSigningKey reads an ed25519 payment signing key from a text envelope.
func LoadSigningKey(path string) (PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var env TextEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode key envelope %q: %w", path, err)
	}
	return env.SigningKey()
}

// SigningKey extracts the key from the envelope's CBOR byte string.
func (env TextEnvelope) SigningKey() (PrivateKey, error) {
	if !strings.Contains(env.Type, "SigningKey") {
		return nil, fmt.Errorf("unexpected envelope type %q", env.Type)
	}
	raw, err := hex.DecodeString(env.CborHex)
	if err != nil {
		return nil, fmt.Errorf("invalid envelope hex: %w", err)
	}
	// 0x58 0x20 is the CBOR header of a 32-byte string.
	if len(raw) != 34 || raw[0] != 0x58 || raw[1] != 0x20 {
		return nil, fmt.Errorf("envelope does not hold a 32-byte key")
	}
	return PrivKeyFromSeed(raw[2:])
}

// NewTextEnvelope wraps priv's seed the way cardano-cli does.
func NewTextEnvelope(priv PrivateKey) TextEnvelope {
	seed := []byte(priv)[:32]
	return TextEnvelope{
		Type:        "PaymentSigningKeyShelley_ed25519",
		Description: "Payment Signing Key",
		CborHex:     "5820" + hex.EncodeToString(seed),
	}
}
