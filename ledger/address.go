package ledger

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/tolelom/headstats/crypto"
)

// Network is the network id stored in the low nibble of an address header.
type Network byte

const (
	Testnet Network = 0
	Mainnet Network = 1
)

// Shelley address header kinds (high nibble).
const (
	kindEnterpriseKey    = 0x6
	kindEnterpriseScript = 0x7
	kindByron            = 0x8
	kindRewardKey        = 0xe
	kindRewardScript     = 0xf
)

var (
	ErrEmptyAddress = errors.New("empty address")
	ErrByronAddress = errors.New("byron address has no bech32 form")
)

// Address is a raw Shelley-era address: one header byte followed by
// credential hashes.
type Address []byte

// EnterpriseAddress returns a key-locked address without staking rights.
func EnterpriseAddress(n Network, keyHash []byte) Address {
	return append(Address{kindEnterpriseKey<<4 | byte(n)}, keyHash...)
}

// ScriptAddress returns a script-locked address without staking rights.
func ScriptAddress(n Network, scriptHash []byte) Address {
	return append(Address{kindEnterpriseScript<<4 | byte(n)}, scriptHash...)
}

// plutusV2Tag prefixes a serialised PlutusV2 script before hashing.
const plutusV2Tag = 0x02

// ScriptHash returns the credential hash of a PlutusV2 script.
func ScriptHash(script []byte) []byte {
	return crypto.KeyHash(append([]byte{plutusV2Tag}, script...))
}

// Network returns the address network id.
func (a Address) Network() Network {
	if len(a) == 0 {
		return Testnet
	}
	return Network(a[0] & 0x0f)
}

func (a Address) kind() byte {
	return a[0] >> 4
}

func (a Address) hrp() (string, error) {
	if len(a) == 0 {
		return "", ErrEmptyAddress
	}
	k := a.kind()
	switch {
	case k == kindByron:
		return "", ErrByronAddress
	case k == kindRewardKey || k == kindRewardScript:
		if a.Network() == Mainnet {
			return "stake", nil
		}
		return "stake_test", nil
	case k <= kindEnterpriseScript:
		if a.Network() == Mainnet {
			return "addr", nil
		}
		return "addr_test", nil
	default:
		return "", fmt.Errorf("unknown address kind %#x", k)
	}
}

// Bech32 renders the human-readable form of the address.
func (a Address) Bech32() (string, error) {
	hrp, err := a.hrp()
	if err != nil {
		return "", err
	}
	conv, err := bech32.ConvertBits(a, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, conv)
}

// PaymentCredential returns the 28-byte payment hash of a Shelley address.
func (a Address) PaymentCredential() ([]byte, error) {
	if len(a) < 29 {
		return nil, fmt.Errorf("address too short: %d bytes", len(a))
	}
	if k := a.kind(); k > kindEnterpriseScript {
		return nil, fmt.Errorf("address kind %#x has no payment credential", k)
	}
	return a[1:29], nil
}

// ParseBech32Address decodes a bech32 address and checks that its prefix
// agrees with the header byte.
func ParseBech32Address(s string) (Address, error) {
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return nil, fmt.Errorf("decode bech32 %q: %w", s, err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("convert bech32 %q: %w", s, err)
	}
	addr := Address(raw)
	want, err := addr.hrp()
	if err != nil {
		return nil, err
	}
	if want != hrp {
		return nil, fmt.Errorf("address prefix %q does not match header (want %q)", hrp, want)
	}
	return addr, nil
}
