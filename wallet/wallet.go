package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tolelom/headstats/core"
	"github.com/tolelom/headstats/crypto"
	"github.com/tolelom/headstats/ledger"
)

// GameDeposit is the lovelace locked in a new game's script output.
const GameDeposit = 2_000_000

// ErrNoSpendableUTxO is returned when no admin output can fund a new game.
var ErrNoSpendableUTxO = errors.New("no spendable admin utxo")

// Wallet holds the admin key and the contract it builds transactions for.
type Wallet struct {
	priv          crypto.PrivateKey
	pub           crypto.PublicKey
	network       ledger.Network
	scriptAddress ledger.Address
	scriptCBOR    string
	scriptRef     *ledger.Ref
}

// New creates a Wallet. scriptCBOR is the contract's hex encoding and is
// used to recognise reference script outputs.
func New(priv crypto.PrivateKey, scriptAddress ledger.Address, scriptCBOR string) *Wallet {
	return &Wallet{
		priv:          priv,
		pub:           priv.Public(),
		network:       scriptAddress.Network(),
		scriptAddress: scriptAddress,
		scriptCBOR:    strings.ToLower(scriptCBOR),
	}
}

// Generate creates a Wallet with a freshly generated admin key.
func Generate(scriptAddress ledger.Address, scriptCBOR string) (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv, scriptAddress, scriptCBOR), nil
}

// KeyHash returns the admin key hash.
func (w *Wallet) KeyHash() []byte {
	return w.pub.KeyHash()
}

// Address returns the admin enterprise address.
func (w *Wallet) Address() ledger.Address {
	return ledger.EnterpriseAddress(w.network, w.KeyHash())
}

// ScriptRef returns the reference script output, if one was found.
func (w *Wallet) ScriptRef() (ledger.Ref, bool) {
	if w.scriptRef == nil {
		return ledger.Ref{}, false
	}
	return *w.scriptRef, true
}

// SetScriptRef records the output carrying the contract as reference script.
func (w *Wallet) SetScriptRef(ref ledger.Ref) {
	w.scriptRef = &ref
}

// FindScriptRef returns the first output whose reference script is the
// contract.
func (w *Wallet) FindScriptRef(utxos []ledger.UTxO) (ledger.Ref, bool) {
	if w.scriptCBOR == "" {
		return ledger.Ref{}, false
	}
	for _, u := range utxos {
		if u.ReferenceScript == w.scriptCBOR {
			return u.Ref, true
		}
	}
	return ledger.Ref{}, false
}

// BuildNewGame builds and signs a transaction opening a game for player.
// It spends the first admin output holding at least GameDeposit, locks the
// deposit at the script address with a zeroed game state, and returns the
// rest to the admin. Heads run without fees.
func (w *Wallet) BuildNewGame(player []byte, utxos []ledger.UTxO) ([]byte, error) {
	if len(player) != crypto.KeyHashSize {
		return nil, fmt.Errorf("player key hash must be %d bytes", crypto.KeyHashSize)
	}
	admin, err := w.Address().Bech32()
	if err != nil {
		return nil, err
	}
	var input *ledger.UTxO
	for i := range utxos {
		u := &utxos[i]
		if u.Address == admin && u.Lovelace >= GameDeposit && u.ReferenceScript == "" {
			input = u
			break
		}
	}
	if input == nil {
		return nil, ErrNoSpendableUTxO
	}

	datum, err := core.GameState{Admin: player}.Datum()
	if err != nil {
		return nil, fmt.Errorf("encode game state: %w", err)
	}
	body := ledger.TxBody{
		Inputs: []ledger.Ref{input.Ref},
		Outputs: []ledger.TxOut{
			{Address: w.scriptAddress, Lovelace: GameDeposit, InlineDatum: datum},
		},
	}
	if change := input.Lovelace - GameDeposit; change > 0 {
		body.Outputs = append(body.Outputs, ledger.TxOut{Address: w.Address(), Lovelace: change})
	}
	if ref, ok := w.ScriptRef(); ok {
		body.ReferenceInputs = []ledger.Ref{ref}
	}

	raw, err := body.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	sig := crypto.Sign(w.priv, crypto.HashBytes(raw))
	return ledger.EncodeTx(raw, []ledger.VKeyWitness{{VKey: w.pub, Signature: sig}})
}
