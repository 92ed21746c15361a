package ledger

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/tolelom/headstats/crypto"
)

// Era indices as used by the node-to-client hard-fork combinator.
const (
	EraBabbage = 5
	EraConway  = 6
)

var (
	ErrUnsupportedEra = errors.New("unsupported transaction era")
	ErrMalformedTx    = errors.New("malformed transaction")
)

// Tx is a decoded Alonzo-or-later transaction. Only the body outputs are
// interpreted. The body bytes are kept verbatim so the id can be recomputed.
type Tx struct {
	raw     []byte
	body    []byte
	outputs []Output
}

type txBody struct {
	Inputs  cbor.RawMessage   `cbor:"0,keyasint"`
	Outputs []cbor.RawMessage `cbor:"1,keyasint"`
	Fee     uint64            `cbor:"2,keyasint"`
}

// DecodeTx accepts either a bare [body, witnesses, valid, aux] transaction
// or an era-tagged [era, tx] envelope (the tx optionally wrapped in tag 24).
func DecodeTx(raw []byte) (*Tx, error) {
	var top []cbor.RawMessage
	if err := decMode.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTx, err)
	}
	switch len(top) {
	case 2:
		var era uint64
		if err := decMode.Unmarshal(top[0], &era); err != nil {
			return nil, fmt.Errorf("%w: era tag: %v", ErrMalformedTx, err)
		}
		if era != EraBabbage && era != EraConway {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedEra, era)
		}
		inner, err := unwrapEncoded(top[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedTx, err)
		}
		return DecodeTx(inner)
	case 4:
		return decodeAlonzoTx(raw, top)
	default:
		return nil, fmt.Errorf("%w: %d top-level items", ErrUnsupportedEra, len(top))
	}
}

func decodeAlonzoTx(raw []byte, top []cbor.RawMessage) (*Tx, error) {
	if majorType(top[0]) != majorMap {
		return nil, fmt.Errorf("%w: body is not a map", ErrMalformedTx)
	}
	var valid bool
	if err := decMode.Unmarshal(top[2], &valid); err != nil {
		return nil, fmt.Errorf("%w: validity flag: %v", ErrMalformedTx, err)
	}
	var body txBody
	if err := decMode.Unmarshal(top[0], &body); err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrMalformedTx, err)
	}
	tx := &Tx{raw: raw, body: top[0]}
	for i, o := range body.Outputs {
		out, err := decodeOutput(o)
		if err != nil {
			return nil, fmt.Errorf("%w: output %d: %v", ErrMalformedTx, i, err)
		}
		tx.outputs = append(tx.outputs, out)
	}
	return tx, nil
}

// ID is the hex blake2b-256 hash of the body bytes.
func (tx *Tx) ID() string {
	return crypto.Hash(tx.body)
}

// Size is the length of the serialised transaction.
func (tx *Tx) Size() int {
	return len(tx.raw)
}

// Outputs returns the decoded body outputs in order.
func (tx *Tx) Outputs() []Output {
	return tx.outputs
}
