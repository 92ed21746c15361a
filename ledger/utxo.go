package ledger

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Ref points at a transaction output: "<txid>#<index>".
type Ref struct {
	TxID  string
	Index uint64
}

// ParseRef parses the "<txid>#<index>" form used as snapshot keys.
func ParseRef(s string) (Ref, error) {
	id, ix, ok := strings.Cut(s, "#")
	if !ok {
		return Ref{}, fmt.Errorf("utxo ref %q: missing '#'", s)
	}
	if b, err := hex.DecodeString(id); err != nil || len(b) != 32 {
		return Ref{}, fmt.Errorf("utxo ref %q: bad tx id", s)
	}
	index, err := strconv.ParseUint(ix, 10, 32)
	if err != nil {
		return Ref{}, fmt.Errorf("utxo ref %q: bad index: %w", s, err)
	}
	return Ref{TxID: strings.ToLower(id), Index: index}, nil
}

func (r Ref) String() string {
	return fmt.Sprintf("%s#%d", r.TxID, r.Index)
}

// UTxO is one entry of a head's snapshot.
type UTxO struct {
	Ref             Ref
	Address         string
	Lovelace        uint64
	ReferenceScript string // script CBOR hex, empty when absent
}

type utxoJSON struct {
	Address         string                     `json:"address"`
	Value           map[string]json.RawMessage `json:"value"`
	ReferenceScript *struct {
		Script struct {
			CborHex string `json:"cborHex"`
		} `json:"script"`
	} `json:"referenceScript"`
}

// ParseUTxO decodes one snapshot entry.
func ParseUTxO(key string, value json.RawMessage) (UTxO, error) {
	ref, err := ParseRef(key)
	if err != nil {
		return UTxO{}, err
	}
	var v utxoJSON
	if err := json.Unmarshal(value, &v); err != nil {
		return UTxO{}, fmt.Errorf("utxo %s: %w", key, err)
	}
	if v.Address == "" {
		return UTxO{}, fmt.Errorf("utxo %s: missing address", key)
	}
	u := UTxO{Ref: ref, Address: v.Address}
	if raw, ok := v.Value["lovelace"]; ok {
		if err := json.Unmarshal(raw, &u.Lovelace); err != nil {
			return UTxO{}, fmt.Errorf("utxo %s: lovelace: %w", key, err)
		}
	}
	if v.ReferenceScript != nil {
		u.ReferenceScript = strings.ToLower(v.ReferenceScript.Script.CborHex)
	}
	return u, nil
}
