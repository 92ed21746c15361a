package core

import (
	"bytes"
	"fmt"

	"github.com/tolelom/headstats/ledger"
)

// Decoded is a transaction that passed structural validation.
type Decoded struct {
	TxID  string
	Size  int
	State GameState
}

// Validator checks transactions against the game contract's output shape.
type Validator struct {
	ScriptAddress ledger.Address
}

// NewValidator parses the bech32 script address.
func NewValidator(scriptAddress string) (*Validator, error) {
	addr, err := ledger.ParseBech32Address(scriptAddress)
	if err != nil {
		return nil, fmt.Errorf("script address: %w", err)
	}
	return &Validator{ScriptAddress: addr}, nil
}

// Validate decodes raw, locates the single script output and decodes its
// inline datum as a GameState.
func (v *Validator) Validate(raw []byte) (Decoded, error) {
	tx, err := ledger.DecodeTx(raw)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var matches []ledger.Output
	for _, out := range tx.Outputs() {
		if out.Legacy {
			continue
		}
		if bytes.Equal(out.Address, v.ScriptAddress) {
			matches = append(matches, out)
		}
	}
	if len(matches) != 1 {
		return Decoded{}, fmt.Errorf("%w: found %d", ErrInvalidOutputCount, len(matches))
	}

	out := matches[0]
	if !out.Datum.IsInline() {
		return Decoded{}, ErrMissingDatum
	}
	gs, err := DecodeGameState(out.Datum.Inline)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", ErrDatumDecode, err)
	}
	return Decoded{TxID: tx.ID(), Size: tx.Size(), State: gs}, nil
}
