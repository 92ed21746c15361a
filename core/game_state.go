package core

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/tolelom/headstats/crypto"
	"github.com/tolelom/headstats/ledger"
)

// GameState is the inline datum carried by the game's script output:
// Constr 0 [admin, kills, items, secrets, play_time].
type GameState struct {
	Admin    []byte
	Kills    uint64
	Items    uint64
	Secrets  uint64
	PlayTime uint64
}

// GameStateFromConstr converts decoded Plutus data into a GameState.
func GameStateFromConstr(c ledger.Constr) (GameState, error) {
	if c.Index != 0 {
		return GameState{}, fmt.Errorf("game state: constructor %d", c.Index)
	}
	if len(c.Fields) != 5 {
		return GameState{}, fmt.Errorf("game state: %d fields", len(c.Fields))
	}
	admin, ok := c.Fields[0].([]byte)
	if !ok || len(admin) != crypto.KeyHashSize {
		return GameState{}, fmt.Errorf("game state: admin is not a %d-byte key hash", crypto.KeyHashSize)
	}
	gs := GameState{Admin: admin}
	counters := []*uint64{&gs.Kills, &gs.Items, &gs.Secrets, &gs.PlayTime}
	for i, dst := range counters {
		n, ok := c.Fields[i+1].(*big.Int)
		if !ok || n.Sign() < 0 || !n.IsUint64() {
			return GameState{}, fmt.Errorf("game state: field %d is not a counter", i+1)
		}
		*dst = n.Uint64()
	}
	return gs, nil
}

// DecodeGameState decodes raw datum CBOR.
func DecodeGameState(raw []byte) (GameState, error) {
	c, err := ledger.DecodeConstr(raw)
	if err != nil {
		return GameState{}, err
	}
	return GameStateFromConstr(c)
}

// Datum encodes gs as inline datum CBOR.
func (gs GameState) Datum() ([]byte, error) {
	return ledger.EncodeConstr(ledger.Constr{Index: 0, Fields: []any{
		gs.Admin,
		new(big.Int).SetUint64(gs.Kills),
		new(big.Int).SetUint64(gs.Items),
		new(big.Int).SetUint64(gs.Secrets),
		new(big.Int).SetUint64(gs.PlayTime),
	}})
}

// Player is a tracked game admin identified by key hash.
type Player struct {
	KeyHash  []byte
	baseline GameState
}

// NewPlayer returns a player with a zeroed baseline.
func NewPlayer(keyHash []byte) *Player {
	return &Player{KeyHash: keyHash, baseline: GameState{Admin: keyHash}}
}

// ID returns the hex key hash.
func (p *Player) ID() string { return hex.EncodeToString(p.KeyHash) }

// Is reports whether keyHash identifies p.
func (p *Player) Is(keyHash []byte) bool { return bytes.Equal(p.KeyHash, keyHash) }

// Advance computes the delta between gs and the baseline, then moves the
// baseline to gs. Counters that went backwards contribute zero.
func (p *Player) Advance(gs GameState, size int) StateUpdate {
	u := StateUpdate{
		Player:   p.ID(),
		Bytes:    uint64(size),
		Kills:    delta(gs.Kills, p.baseline.Kills),
		Items:    delta(gs.Items, p.baseline.Items),
		Secrets:  delta(gs.Secrets, p.baseline.Secrets),
		PlayTime: delta(gs.PlayTime, p.baseline.PlayTime),
	}
	p.baseline = gs
	return u
}

func delta(now, before uint64) uint64 {
	if now < before {
		return 0
	}
	return now - before
}
