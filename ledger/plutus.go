package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// Plutus data constructor tags.
const (
	tagConstrSmallBase = 121  // alternatives 0..6
	tagConstrLargeBase = 1280 // alternatives 7..127
	tagConstrGeneral   = 102  // [alternative, fields]
)

var ErrNotConstr = errors.New("plutus data is not a constructor")

// Constr is a Plutus data constructor application. Field values are one of
// *big.Int, []byte, Constr, []any or []MapEntry.
type Constr struct {
	Index  uint64
	Fields []any
}

// MapEntry is one key/value pair of a Plutus map, in wire order.
type MapEntry struct {
	Key   any
	Value any
}

// DecodeConstr decodes raw CBOR Plutus data that must be a constructor.
func DecodeConstr(raw []byte) (Constr, error) {
	var v any
	if err := decMode.Unmarshal(raw, &v); err != nil {
		return Constr{}, fmt.Errorf("plutus data: %w", err)
	}
	d, err := normalise(v)
	if err != nil {
		return Constr{}, err
	}
	c, ok := d.(Constr)
	if !ok {
		return Constr{}, ErrNotConstr
	}
	return c, nil
}

func normalise(v any) (any, error) {
	switch x := v.(type) {
	case cbor.Tag:
		return constrFromTag(x.Number, x.Content)
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case int64:
		return big.NewInt(x), nil
	case big.Int:
		return new(big.Int).Set(&x), nil
	case *big.Int:
		return x, nil
	case []byte:
		return x, nil
	case cbor.ByteString:
		return []byte(x), nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			n, err := normalise(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[any]any:
		out := make([]MapEntry, 0, len(x))
		for k, val := range x {
			nk, err := normalise(k)
			if err != nil {
				return nil, err
			}
			nv, err := normalise(val)
			if err != nil {
				return nil, err
			}
			out = append(out, MapEntry{Key: nk, Value: nv})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported plutus value %T", v)
	}
}

func constrFromTag(tag uint64, content any) (Constr, error) {
	var idx uint64
	switch {
	case tag >= tagConstrSmallBase && tag < tagConstrSmallBase+7:
		idx = tag - tagConstrSmallBase
	case tag >= tagConstrLargeBase && tag < tagConstrLargeBase+121:
		idx = tag - tagConstrLargeBase + 7
	case tag == tagConstrGeneral:
		pair, ok := content.([]any)
		if !ok || len(pair) != 2 {
			return Constr{}, fmt.Errorf("general constructor must be [alt, fields]")
		}
		alt, ok := pair[0].(uint64)
		if !ok {
			return Constr{}, fmt.Errorf("general constructor alternative must be unsigned")
		}
		idx, content = alt, pair[1]
	default:
		return Constr{}, fmt.Errorf("unexpected tag %d in plutus data", tag)
	}
	items, ok := content.([]any)
	if !ok {
		return Constr{}, fmt.Errorf("constructor %d fields are not a list", idx)
	}
	fields := make([]any, len(items))
	for i, item := range items {
		n, err := normalise(item)
		if err != nil {
			return Constr{}, fmt.Errorf("constructor %d field %d: %w", idx, i, err)
		}
		fields[i] = n
	}
	return Constr{Index: idx, Fields: fields}, nil
}

// EncodeConstr serialises c as Plutus data.
func EncodeConstr(c Constr) ([]byte, error) {
	v, err := c.wire()
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(v)
}

func (c Constr) wire() (any, error) {
	fields := make([]any, len(c.Fields))
	for i, f := range c.Fields {
		w, err := wireValue(f)
		if err != nil {
			return nil, err
		}
		fields[i] = w
	}
	switch {
	case c.Index < 7:
		return cbor.Tag{Number: tagConstrSmallBase + c.Index, Content: fields}, nil
	case c.Index < 128:
		return cbor.Tag{Number: tagConstrLargeBase + c.Index - 7, Content: fields}, nil
	default:
		return cbor.Tag{Number: tagConstrGeneral, Content: []any{c.Index, fields}}, nil
	}
}

func wireValue(v any) (any, error) {
	switch x := v.(type) {
	case Constr:
		return x.wire()
	case *big.Int:
		if x.IsUint64() {
			return x.Uint64(), nil
		}
		if x.IsInt64() {
			return x.Int64(), nil
		}
		return x, nil
	case uint64, int64, []byte:
		return x, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			w, err := wireValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = w
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot encode %T as plutus data", v)
	}
}
