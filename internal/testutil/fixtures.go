package testutil

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tolelom/headstats/core"
	"github.com/tolelom/headstats/ledger"
)

// ScriptCBOR is the contract script used across tests.
const ScriptCBOR = "4e4d01000033222220051200120011"

// TxID returns a 64-char hex id made of b repeated.
func TxID(b string) string {
	return strings.Repeat(b, 64/len(b))
}

// ScriptAddress returns the testnet address of ScriptCBOR.
func ScriptAddress(t testing.TB) ledger.Address {
	t.Helper()
	raw, err := hex.DecodeString(ScriptCBOR)
	require.NoError(t, err)
	return ledger.ScriptAddress(ledger.Testnet, ledger.ScriptHash(raw))
}

// Bech32 renders addr, failing the test on error.
func Bech32(t testing.TB, addr ledger.Address) string {
	t.Helper()
	s, err := addr.Bech32()
	require.NoError(t, err)
	return s
}

// GameTx builds an unsigned transaction paying one output to scriptAddr
// with gs as its inline datum.
func GameTx(t testing.TB, scriptAddr ledger.Address, gs core.GameState) []byte {
	t.Helper()
	datum, err := gs.Datum()
	require.NoError(t, err)
	body, err := ledger.TxBody{Outputs: []ledger.TxOut{
		{Address: scriptAddr, Lovelace: 2_000_000, InlineDatum: datum},
	}}.Encode()
	require.NoError(t, err)
	raw, err := ledger.EncodeTx(body, nil)
	require.NoError(t, err)
	return raw
}

// UTxOEntry is one /snapshot/utxo value.
func UTxOEntry(address string, lovelace uint64, scriptCBOR string) map[string]any {
	v := map[string]any{
		"address": address,
		"value":   map[string]any{"lovelace": lovelace},
	}
	if scriptCBOR != "" {
		v["referenceScript"] = map[string]any{
			"scriptLanguage": "PlutusScriptLanguage PlutusScriptV2",
			"script":         map[string]any{"cborHex": scriptCBOR, "type": "PlutusScriptV2"},
		}
	}
	return v
}

// HeadIsOpenFrame is the head's HeadIsOpen message.
func HeadIsOpenFrame(headID string) map[string]any {
	return map[string]any{"tag": "HeadIsOpen", "headId": headID}
}

// TxValidFrame is the head's TxValid message for raw.
func TxValidFrame(txID string, raw []byte) map[string]any {
	return map[string]any{
		"tag": "TxValid",
		"transaction": map[string]any{
			"txId":    txID,
			"cborHex": hex.EncodeToString(raw),
		},
	}
}

// SnapshotConfirmedFrame is the head's SnapshotConfirmed message.
func SnapshotConfirmedFrame(number uint64, txIDs ...string) map[string]any {
	confirmed := make([]map[string]any, len(txIDs))
	for i, id := range txIDs {
		confirmed[i] = map[string]any{"txId": id}
	}
	return map[string]any{
		"tag":      "SnapshotConfirmed",
		"snapshot": map[string]any{"number": number, "confirmed": confirmed},
	}
}
