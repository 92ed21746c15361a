package core_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tolelom/headstats/core"
	"github.com/tolelom/headstats/ledger"
)

var (
	scriptAddr = ledger.ScriptAddress(ledger.Testnet, bytes.Repeat([]byte{0xee}, 28))
	adminHash  = bytes.Repeat([]byte{0x07}, 28)
	otherAddr  = ledger.EnterpriseAddress(ledger.Testnet, adminHash)
)

func buildTx(t *testing.T, outs ...ledger.TxOut) []byte {
	t.Helper()
	body, err := ledger.TxBody{Outputs: outs}.Encode()
	require.NoError(t, err)
	raw, err := ledger.EncodeTx(body, nil)
	require.NoError(t, err)
	return raw
}

func stateDatum(t *testing.T, gs core.GameState) []byte {
	t.Helper()
	d, err := gs.Datum()
	require.NoError(t, err)
	return d
}

func TestGameStateDatumRoundTrip(t *testing.T) {
	gs := core.GameState{Admin: adminHash, Kills: 4, Items: 2, Secrets: 1, PlayTime: 90}
	got, err := core.DecodeGameState(stateDatum(t, gs))
	require.NoError(t, err)
	assert.Equal(t, gs, got)
}

func TestGameStateRejectsWrongShape(t *testing.T) {
	raw, err := ledger.EncodeConstr(ledger.Constr{Index: 1, Fields: []any{}})
	require.NoError(t, err)
	_, err = core.DecodeGameState(raw)
	assert.Error(t, err)

	raw, err = ledger.EncodeConstr(ledger.Constr{Index: 0, Fields: []any{[]byte{1, 2}}})
	require.NoError(t, err)
	_, err = core.DecodeGameState(raw)
	assert.Error(t, err)
}

func TestPlayerAdvance(t *testing.T) {
	p := core.NewPlayer(adminHash)
	u := p.Advance(core.GameState{Admin: adminHash, Kills: 3, PlayTime: 10}, 200)
	assert.Equal(t, uint64(200), u.Bytes)
	assert.Equal(t, uint64(3), u.Kills)
	assert.Equal(t, uint64(10), u.PlayTime)

	u = p.Advance(core.GameState{Admin: adminHash, Kills: 5, Items: 1, PlayTime: 4}, 100)
	assert.Equal(t, uint64(2), u.Kills)
	assert.Equal(t, uint64(1), u.Items)
	assert.Equal(t, uint64(0), u.PlayTime, "a counter going backwards contributes nothing")

	u = p.Advance(core.GameState{Admin: adminHash, Kills: 5, Items: 1, PlayTime: 6}, 100)
	assert.Equal(t, uint64(2), u.PlayTime, "the baseline moved to the last state seen")
	assert.Equal(t, uint64(0), u.Kills)
}

func TestPendingReplaceAndExpire(t *testing.T) {
	p := core.NewPending()
	old := time.Now().Add(-time.Hour)
	p.Put("a", core.StateUpdate{Kills: 1, Seen: old})
	p.Put("b", core.StateUpdate{Kills: 2, Seen: time.Now()})
	p.Put("a", core.StateUpdate{Kills: 9, Seen: old})

	assert.Equal(t, 2, p.Len())

	dropped := p.Expire(time.Now().Add(-time.Minute))
	require.Len(t, dropped, 1)
	assert.Equal(t, "a", dropped[0].TxID)
	assert.Equal(t, uint64(9), dropped[0].Update.Kills, "the later put replaced the first")
	assert.Equal(t, 1, p.Len())

	_, ok := p.Take("a")
	assert.False(t, ok)
	u, ok := p.Take("b")
	require.True(t, ok)
	assert.Equal(t, uint64(2), u.Kills)
}

func TestExpiredEntryIsNotConfirmed(t *testing.T) {
	s := core.NewStats(false)
	s.Pending.Put("late", core.StateUpdate{Kills: 4, Seen: time.Now().Add(-time.Hour)})

	dropped := s.Pending.Expire(time.Now())
	require.Len(t, dropped, 1)

	confirmed, missing := s.Confirm([]string{"late"})
	assert.Empty(t, confirmed)
	assert.Equal(t, []string{"late"}, missing)
	assert.Equal(t, uint64(0), s.Kills)
}

func TestConfirmIsExactlyOnce(t *testing.T) {
	s := core.NewStats(false)
	s.Pending.Put("deadbeef", core.StateUpdate{Bytes: 10, Kills: 2})

	confirmed, missing := s.Confirm([]string{"deadbeef"})
	require.Len(t, confirmed, 1)
	assert.Empty(t, missing)
	assert.Equal(t, uint64(1), s.Transactions)
	assert.Equal(t, uint64(10), s.Bytes)

	confirmed, missing = s.Confirm([]string{"deadbeef"})
	assert.Empty(t, confirmed)
	assert.Equal(t, []string{"deadbeef"}, missing)
	assert.Equal(t, uint64(1), s.Transactions)
	assert.Equal(t, uint64(2), s.Kills)
}

func TestConfirmUnknownIDLeavesCounters(t *testing.T) {
	s := core.NewStats(true)
	before := s.Summary
	_, missing := s.Confirm([]string{"deadbeef"})
	assert.Equal(t, []string{"deadbeef"}, missing)
	assert.Equal(t, before, s.Summary)
}

func TestJoin(t *testing.T) {
	cases := []struct{ a, b bool }{{true, true}, {true, false}, {false, true}, {false, false}}
	for _, c := range cases {
		a := core.NewStats(c.a)
		b := core.NewStats(c.b)
		a.Transactions, b.Transactions = 3, 4
		a.Kills, b.Kills = 1, 2
		a.Pending.Put("x", core.StateUpdate{Items: 1})
		b.Pending.Put("x", core.StateUpdate{Items: 2})
		b.Pending.Put("y", core.StateUpdate{})

		j := a.Join(b)
		assert.Equal(t, c.a && c.b, j.Persisted)
		assert.Equal(t, uint64(7), j.Transactions)
		assert.Equal(t, uint64(3), j.Kills)
		assert.Equal(t, 2, j.Pending.Len())
		u, _ := j.Pending.Take("x")
		assert.Equal(t, uint64(2), u.Items, "right side wins")
		assert.Equal(t, 1, a.Pending.Len(), "join does not modify its inputs")
	}
}

func TestValidatorAccepts(t *testing.T) {
	v := &core.Validator{ScriptAddress: scriptAddr}
	gs := core.GameState{Admin: adminHash, Kills: 1}
	raw := buildTx(t,
		ledger.TxOut{Address: scriptAddr, Lovelace: 2_000_000, InlineDatum: stateDatum(t, gs)},
		ledger.TxOut{Address: otherAddr, Lovelace: 1},
	)
	d, err := v.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), d.Size)
	assert.Equal(t, gs, d.State)
	assert.Len(t, d.TxID, 64)
}

func TestValidatorOutputCount(t *testing.T) {
	v := &core.Validator{ScriptAddress: scriptAddr}
	datum := stateDatum(t, core.GameState{Admin: adminHash})

	_, err := v.Validate(buildTx(t, ledger.TxOut{Address: otherAddr, Lovelace: 1}))
	assert.ErrorIs(t, err, core.ErrInvalidOutputCount)

	_, err = v.Validate(buildTx(t,
		ledger.TxOut{Address: scriptAddr, Lovelace: 1, InlineDatum: datum},
		ledger.TxOut{Address: scriptAddr, Lovelace: 1, InlineDatum: datum},
	))
	assert.ErrorIs(t, err, core.ErrInvalidOutputCount)
}

func TestValidatorMissingDatum(t *testing.T) {
	v := &core.Validator{ScriptAddress: scriptAddr}
	_, err := v.Validate(buildTx(t, ledger.TxOut{Address: scriptAddr, Lovelace: 1}))
	assert.ErrorIs(t, err, core.ErrMissingDatum)
}

func TestValidatorDecodeErrors(t *testing.T) {
	v := &core.Validator{ScriptAddress: scriptAddr}
	_, err := v.Validate([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, core.ErrDecode)
	assert.Equal(t, "decode", core.Reason(err))

	bad, err := ledger.EncodeConstr(ledger.Constr{Index: 3, Fields: []any{}})
	require.NoError(t, err)
	_, err = v.Validate(buildTx(t, ledger.TxOut{Address: scriptAddr, Lovelace: 1, InlineDatum: bad}))
	assert.ErrorIs(t, err, core.ErrDatumDecode)
}

func TestNewValidatorParsesBech32(t *testing.T) {
	s, err := scriptAddr.Bech32()
	require.NoError(t, err)
	v, err := core.NewValidator(s)
	require.NoError(t, err)
	assert.Equal(t, scriptAddr, v.ScriptAddress)

	_, err = core.NewValidator("not-an-address")
	assert.Error(t, err)
}
