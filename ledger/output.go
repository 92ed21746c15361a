package ledger

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Datum option kinds inside a post-Alonzo output.
const (
	datumKindHash   = 0
	datumKindInline = 1
)

// Output is a transaction output. Legacy (array-encoded) outputs keep only
// their address and value.
type Output struct {
	Address   Address
	Lovelace  uint64
	Legacy    bool
	Datum     *DatumOption
	ScriptRef []byte
}

// DatumOption is either a datum hash or an inline datum. Inline holds the
// raw CBOR of the datum itself.
type DatumOption struct {
	Hash   []byte
	Inline []byte
}

// IsInline reports whether the datum travels with the output.
func (d *DatumOption) IsInline() bool {
	return d != nil && d.Inline != nil
}

type postAlonzoOutput struct {
	Address   []byte          `cbor:"0,keyasint"`
	Value     cbor.RawMessage `cbor:"1,keyasint"`
	Datum     cbor.RawMessage `cbor:"2,keyasint,omitempty"`
	ScriptRef cbor.RawMessage `cbor:"3,keyasint,omitempty"`
}

func decodeOutput(raw []byte) (Output, error) {
	switch majorType(raw) {
	case majorArray:
		var items []cbor.RawMessage
		if err := decMode.Unmarshal(raw, &items); err != nil {
			return Output{}, err
		}
		if len(items) < 2 {
			return Output{}, fmt.Errorf("legacy output has %d items", len(items))
		}
		out := Output{Legacy: true}
		if err := decMode.Unmarshal(items[0], &out.Address); err != nil {
			return Output{}, fmt.Errorf("address: %w", err)
		}
		lovelace, err := decodeCoin(items[1])
		if err != nil {
			return Output{}, err
		}
		out.Lovelace = lovelace
		return out, nil
	case majorMap:
		var o postAlonzoOutput
		if err := decMode.Unmarshal(raw, &o); err != nil {
			return Output{}, err
		}
		out := Output{Address: o.Address}
		lovelace, err := decodeCoin(o.Value)
		if err != nil {
			return Output{}, err
		}
		out.Lovelace = lovelace
		if len(o.Datum) > 0 {
			d, err := decodeDatumOption(o.Datum)
			if err != nil {
				return Output{}, err
			}
			out.Datum = d
		}
		if len(o.ScriptRef) > 0 {
			out.ScriptRef = o.ScriptRef
		}
		return out, nil
	default:
		return Output{}, fmt.Errorf("unexpected output encoding")
	}
}

// decodeCoin reads the lovelace part of a value: either a bare coin or
// [coin, multiasset].
func decodeCoin(raw []byte) (uint64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing value")
	}
	if majorType(raw) == majorArray {
		var items []cbor.RawMessage
		if err := decMode.Unmarshal(raw, &items); err != nil {
			return 0, err
		}
		if len(items) == 0 {
			return 0, fmt.Errorf("empty multi-asset value")
		}
		raw = items[0]
	}
	var coin uint64
	if err := decMode.Unmarshal(raw, &coin); err != nil {
		return 0, fmt.Errorf("coin: %w", err)
	}
	return coin, nil
}

func decodeDatumOption(raw []byte) (*DatumOption, error) {
	var items []cbor.RawMessage
	if err := decMode.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("datum option: %w", err)
	}
	if len(items) != 2 {
		return nil, fmt.Errorf("datum option has %d items", len(items))
	}
	var kind uint64
	if err := decMode.Unmarshal(items[0], &kind); err != nil {
		return nil, fmt.Errorf("datum kind: %w", err)
	}
	switch kind {
	case datumKindHash:
		var h []byte
		if err := decMode.Unmarshal(items[1], &h); err != nil {
			return nil, fmt.Errorf("datum hash: %w", err)
		}
		return &DatumOption{Hash: h}, nil
	case datumKindInline:
		inner, err := unwrapEncoded(items[1])
		if err != nil {
			return nil, fmt.Errorf("inline datum: %w", err)
		}
		return &DatumOption{Inline: inner}, nil
	default:
		return nil, fmt.Errorf("unknown datum kind %d", kind)
	}
}
