package ledger

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Body map keys used when building transactions.
const (
	bodyInputs          = 0
	bodyOutputs         = 1
	bodyFee             = 2
	bodyReferenceInputs = 18
	witnessVKeys        = 0
)

// TxOut is an output to be built. InlineDatum holds raw Plutus data CBOR.
type TxOut struct {
	Address     Address
	Lovelace    uint64
	InlineDatum []byte
}

// TxBody is the subset of a Babbage body the builder emits.
type TxBody struct {
	Inputs          []Ref
	ReferenceInputs []Ref
	Outputs         []TxOut
	Fee             uint64
}

// VKeyWitness is an ed25519 verification key and its signature over the
// body hash.
type VKeyWitness struct {
	VKey      []byte
	Signature []byte
}

// Encode serialises the body deterministically.
func (b TxBody) Encode() ([]byte, error) {
	inputs, err := encodeRefs(b.Inputs)
	if err != nil {
		return nil, err
	}
	outputs := make([]any, len(b.Outputs))
	for i, o := range b.Outputs {
		out := map[uint64]any{
			0: []byte(o.Address),
			1: o.Lovelace,
		}
		if o.InlineDatum != nil {
			out[2] = []any{uint64(datumKindInline), wrapEncoded(o.InlineDatum)}
		}
		outputs[i] = out
	}
	body := map[uint64]any{
		bodyInputs:  inputs,
		bodyOutputs: outputs,
		bodyFee:     b.Fee,
	}
	if len(b.ReferenceInputs) > 0 {
		refs, err := encodeRefs(b.ReferenceInputs)
		if err != nil {
			return nil, err
		}
		body[bodyReferenceInputs] = refs
	}
	return encMode.Marshal(body)
}

func encodeRefs(refs []Ref) ([]any, error) {
	out := make([]any, len(refs))
	for i, r := range refs {
		id, err := hex.DecodeString(r.TxID)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", r, err)
		}
		out[i] = []any{id, r.Index}
	}
	return out, nil
}

// EncodeTx assembles a valid, metadata-free transaction from an encoded
// body and its key witnesses.
func EncodeTx(body []byte, witnesses []VKeyWitness) ([]byte, error) {
	vkeys := make([]any, len(witnesses))
	for i, w := range witnesses {
		vkeys[i] = []any{w.VKey, w.Signature}
	}
	ws := map[uint64]any{}
	if len(vkeys) > 0 {
		ws[witnessVKeys] = vkeys
	}
	return encMode.Marshal([]any{cbor.RawMessage(body), ws, true, nil})
}
