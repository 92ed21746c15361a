package node

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tolelom/headstats/core"
	"github.com/tolelom/headstats/crypto"
	"github.com/tolelom/headstats/events"
	"github.com/tolelom/headstats/internal/testutil"
	"github.com/tolelom/headstats/ledger"
	"github.com/tolelom/headstats/network"
	"github.com/tolelom/headstats/wallet"
)

type fakeSnapshots struct {
	utxos []ledger.UTxO
	err   error
	calls int
}

func (f *fakeSnapshots) FetchUTxOs(context.Context) ([]ledger.UTxO, error) {
	f.calls++
	return f.utxos, f.err
}

type fixture struct {
	node      *Node
	snapshots *fakeSnapshots
	outbox    *events.Channel
}

func newFixture(t *testing.T, authority string, maxPlayers int, emitter *events.Emitter) fixture {
	t.Helper()
	addr, err := network.ParseAddress("ws://" + authority)
	require.NoError(t, err)
	w, err := wallet.Generate(testutil.ScriptAddress(t), testutil.ScriptCBOR)
	require.NoError(t, err)
	snaps := &fakeSnapshots{utxos: []ledger.UTxO{{
		Ref:      ledger.Ref{TxID: testutil.TxID("aa"), Index: 0},
		Address:  testutil.Bech32(t, w.Address()),
		Lovelace: 100_000_000,
	}}}
	outbox := events.NewChannel()
	deps := Deps{
		Validator: &core.Validator{ScriptAddress: testutil.ScriptAddress(t)},
		Emitter:   emitter,
		Logger:    testutil.NewTestEntry(t, "node"),
	}
	n := newNode(addr, Config{MaxPlayers: maxPlayers, Wallet: w}, deps, snaps, outbox)
	return fixture{node: n, snapshots: snaps, outbox: outbox}
}

func newDispatcher(t *testing.T, emitter *events.Emitter, nodes ...*Node) (*Dispatcher, *Registry) {
	t.Helper()
	r := NewRegistry(nodes)
	return NewDispatcher(r, events.NewChannel(), emitter, testutil.NewTestEntry(t, "dispatcher")), r
}

func player(name string) []byte { return crypto.KeyHash([]byte(name)) }

func received(authority string, msg events.Message) events.Received {
	return events.Received{Message: msg, Authority: authority}
}

func TestHeadIDIsSetOnce(t *testing.T) {
	orders := [][]string{{"abc", "def"}, {"def", "abc"}, {"abc", "abc", "xyz"}}
	for _, order := range orders {
		f := newFixture(t, "n1:4001", 0, nil)
		d, _ := newDispatcher(t, nil, f.node)
		for _, id := range order {
			d.handle(received("n1:4001", events.HeadIsOpen{HeadID: id}))
		}
		assert.Equal(t, order[0], f.node.HeadID())
	}
}

func TestUnknownAuthorityIsIgnored(t *testing.T) {
	emitter := events.NewEmitter(testutil.NewTestEntry(t, "events"))
	var unknown int
	emitter.Subscribe(events.EventUnknownNode, func(events.Notification) { unknown++ })

	f := newFixture(t, "n1:4001", 0, emitter)
	d, _ := newDispatcher(t, emitter, f.node)

	d.handle(received("n2:4001", events.HeadIsOpen{HeadID: "abc"}))
	assert.Empty(t, f.node.HeadID())
	assert.Equal(t, 1, unknown)

	d.handle(received("n1:4001", events.HeadIsOpen{HeadID: "real"}))
	assert.Equal(t, "real", f.node.HeadID())
}

func TestUnknownConfirmationIsNoop(t *testing.T) {
	f := newFixture(t, "n1:4001", 0, nil)
	d, _ := newDispatcher(t, nil, f.node)
	before := f.node.Stats().Summary

	d.handle(received("n1:4001", events.SnapshotConfirmed{TxIDs: []string{"deadbeef"}}))
	assert.Equal(t, before, f.node.Stats().Summary)

	d.handle(received("n1:4001", events.HeadIsOpen{HeadID: "still-running"}))
	assert.Equal(t, "still-running", f.node.HeadID())
}

func TestTransactionLifecycle(t *testing.T) {
	emitter := events.NewEmitter(testutil.NewTestEntry(t, "events"))
	var seen []events.EventType
	for _, typ := range []events.EventType{events.EventTxPending, events.EventTxConfirmed, events.EventTxRejected} {
		emitter.Subscribe(typ, func(n events.Notification) { seen = append(seen, n.Type) })
	}

	f := newFixture(t, "n1:4001", 0, emitter)
	d, _ := newDispatcher(t, emitter, f.node)
	alice := player("alice")
	f.node.players = append(f.node.players, core.NewPlayer(alice))

	raw := testutil.GameTx(t, testutil.ScriptAddress(t), core.GameState{Admin: alice, Kills: 3, Secrets: 1})
	d.handle(received("n1:4001", events.TxValid{TxID: "tx1", CBOR: raw}))
	assert.Equal(t, 1, f.node.Stats().Pending.Len())

	d.handle(received("n1:4001", events.SnapshotConfirmed{TxIDs: []string{"tx1"}}))
	d.handle(received("n1:4001", events.SnapshotConfirmed{TxIDs: []string{"tx1"}}))
	s := f.node.Stats()
	assert.Equal(t, uint64(1), s.Transactions)
	assert.Equal(t, uint64(len(raw)), s.Bytes)
	assert.Equal(t, uint64(3), s.Kills)
	assert.Equal(t, uint64(1), s.Secrets)
	assert.Equal(t, 0, s.Pending.Len())

	bob := testutil.GameTx(t, testutil.ScriptAddress(t), core.GameState{Admin: player("bob")})
	d.handle(received("n1:4001", events.TxValid{TxID: "tx2", CBOR: bob}))
	assert.Equal(t, 0, f.node.Stats().Pending.Len())

	assert.Equal(t, []events.EventType{events.EventTxPending, events.EventTxConfirmed, events.EventTxRejected}, seen)
}

func TestAddTransactionFallsBackToComputedID(t *testing.T) {
	f := newFixture(t, "n1:4001", 0, nil)
	alice := player("alice")
	f.node.players = append(f.node.players, core.NewPlayer(alice))
	raw := testutil.GameTx(t, testutil.ScriptAddress(t), core.GameState{Admin: alice})

	id, _, err := f.node.AddTransaction(events.TxValid{CBOR: raw})
	require.NoError(t, err)
	tx, err := ledger.DecodeTx(raw)
	require.NoError(t, err)
	assert.Equal(t, tx.ID(), id)

	_, _, err = f.node.AddTransaction(events.TxValid{CBOR: testutil.GameTx(t, testutil.ScriptAddress(t), core.GameState{Admin: player("x")})})
	assert.ErrorIs(t, err, core.ErrUnknownPlayer)
}

func TestAddPlayerSendsNewGame(t *testing.T) {
	emitter := events.NewEmitter(testutil.NewTestEntry(t, "events"))
	var added []string
	emitter.Subscribe(events.EventPlayerAdded, func(n events.Notification) {
		added = append(added, n.Data["player"].(string))
	})
	f := newFixture(t, "n1:4001", 0, emitter)
	r := NewRegistry([]*Node{f.node})

	authority, err := r.AddPlayer(context.Background(), "n1:4001", player("alice"))
	require.NoError(t, err)
	assert.Equal(t, "n1:4001", authority)
	assert.Equal(t, 1, f.node.Players())
	assert.Len(t, added, 1)

	ev, ok := f.outbox.Recv()
	require.True(t, ok)
	msg, ok := ev.(events.Send)
	require.True(t, ok)
	assert.Contains(t, msg.Payload, `"tag":"NewTx"`)

	_, err = r.AddPlayer(context.Background(), "n1:4001", player("alice"))
	assert.ErrorIs(t, err, ErrDuplicatePlayer)
	assert.Equal(t, 1, f.node.Players())
}

func TestAddPlayerFailureLeavesRoster(t *testing.T) {
	f := newFixture(t, "n1:4001", 0, nil)
	r := NewRegistry([]*Node{f.node})
	funds := f.snapshots.utxos

	f.snapshots.err = errors.New("snapshot down")
	_, err := r.AddPlayer(context.Background(), "", player("alice"))
	assert.Error(t, err)
	assert.Equal(t, 0, f.node.Players())

	f.snapshots.err = nil
	f.snapshots.utxos = nil
	_, err = r.AddPlayer(context.Background(), "", player("alice"))
	assert.ErrorIs(t, err, wallet.ErrNoSpendableUTxO)
	assert.Equal(t, 0, f.node.Players())
	assert.Equal(t, 0, f.outbox.Len())

	f.snapshots.utxos = funds
	f.outbox.Close()
	_, err = r.AddPlayer(context.Background(), "", player("alice"))
	assert.ErrorIs(t, err, events.ErrClosed)
	assert.Equal(t, 0, f.node.Players())
}

func TestAddPlayerCapacityAndSelection(t *testing.T) {
	a := newFixture(t, "n1:4001", 1, nil)
	b := newFixture(t, "n2:4001", 2, nil)
	r := NewRegistry([]*Node{a.node, b.node})

	_, err := r.AddPlayer(context.Background(), "n1:4001", player("p1"))
	require.NoError(t, err)
	_, err = r.AddPlayer(context.Background(), "n1:4001", player("p2"))
	assert.ErrorIs(t, err, ErrNodeFull)

	authority, err := r.AddPlayer(context.Background(), "", player("p3"))
	require.NoError(t, err)
	assert.Equal(t, "n2:4001", authority)
	authority, err = r.AddPlayer(context.Background(), "", player("p4"))
	require.NoError(t, err)
	assert.Equal(t, "n2:4001", authority)

	_, err = r.AddPlayer(context.Background(), "", player("p5"))
	assert.ErrorIs(t, err, ErrNodeFull)
	_, err = r.AddPlayer(context.Background(), "nowhere:1", player("p6"))
	assert.ErrorIs(t, err, ErrNoNode)
}

func TestRegistryViews(t *testing.T) {
	a := newFixture(t, "n1:4001", 0, nil)
	b := newFixture(t, "n2:4001", 0, nil)
	a.node.stats.Persisted = true
	a.node.stats.Transactions, b.node.stats.Transactions = 2, 5
	a.node.headID = "head-a"
	r := NewRegistry([]*Node{a.node, b.node})

	heads := r.Heads()
	require.Len(t, heads, 2)
	assert.Equal(t, "head-a", heads[0].ID)

	v, err := r.Head("head-a")
	require.NoError(t, err)
	assert.Equal(t, "n1:4001", v.Authority)
	v, err = r.Head("n2:4001")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v.Total.Transactions)
	_, err = r.Head("missing")
	assert.ErrorIs(t, err, ErrNoNode)

	g := r.Global()
	assert.Equal(t, uint64(7), g.Transactions)
	assert.False(t, g.Persisted)
	assert.Equal(t, 2, g.Heads)
}

func TestSweepExpiresPending(t *testing.T) {
	f := newFixture(t, "n1:4001", 0, nil)
	now := time.Now()
	old := core.StateUpdate{Kills: 3, Seen: now.Add(-2 * time.Hour)}
	f.node.stats.Pending.Put("old", old)
	f.node.stats.Pending.Put("new", core.StateUpdate{Seen: now})
	r := NewRegistry([]*Node{f.node})

	dropped := r.Sweep(time.Hour, now)
	assert.Equal(t, map[string][]core.Entry{"n1:4001": {{TxID: "old", Update: old}}}, dropped)
	assert.Equal(t, 1, f.node.stats.Pending.Len())
	_, ok := f.node.stats.Pending.Take("new")
	assert.True(t, ok)
}

func TestRunStopsWhenChannelCloses(t *testing.T) {
	f := newFixture(t, "n1:4001", 0, nil)
	d, _ := newDispatcher(t, nil, f.node)
	require.NoError(t, d.inbound.Push(received("n1:4001", events.HeadIsOpen{HeadID: "abc"})))
	require.NoError(t, d.inbound.Push(events.Send{Payload: "ignored"}))
	d.inbound.Close()

	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
	assert.Equal(t, "abc", f.node.HeadID())
}

func TestNewAgainstHead(t *testing.T) {
	hydra := testutil.NewHydraServer(t)
	w, err := wallet.Generate(testutil.ScriptAddress(t), testutil.ScriptCBOR)
	require.NoError(t, err)
	hydra.SetUTxO(map[string]any{
		testutil.TxID("bb") + "#0": testutil.UTxOEntry("addr_test1other", 10_000_000, testutil.ScriptCBOR),
	})

	inbound := events.NewChannel()
	report := make(chan network.TaskExit, 2)
	n, err := New(context.Background(), Config{LocalURL: hydra.WebsocketAddress(), Wallet: w}, Deps{
		Inbound:   inbound,
		Validator: &core.Validator{ScriptAddress: testutil.ScriptAddress(t)},
		Report:    report,
		Logger:    testutil.NewTestEntry(t, "node"),
	})
	require.NoError(t, err)
	defer n.Close()
	hydra.WaitConnected(t)

	ref, ok := w.ScriptRef()
	require.True(t, ok)
	assert.Equal(t, testutil.TxID("bb")+"#0", ref.String())

	r := NewRegistry([]*Node{n})
	d := NewDispatcher(r, inbound, nil, testutil.NewTestEntry(t, "dispatcher"))
	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()
	defer func() {
		inbound.Close()
		<-done
	}()

	hydra.Broadcast(t, testutil.HeadIsOpenFrame("live-head"))
	require.Eventually(t, func() bool {
		_, err := r.Head("live-head")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestNewFailsWithoutSnapshot(t *testing.T) {
	hydra := testutil.NewHydraServer(t)
	hydra.FailSnapshot(500)
	w, err := wallet.Generate(testutil.ScriptAddress(t), testutil.ScriptCBOR)
	require.NoError(t, err)

	_, err = New(context.Background(), Config{LocalURL: hydra.WebsocketAddress(), Wallet: w}, Deps{
		Inbound: events.NewChannel(),
		Logger:  testutil.NewTestEntry(t, "node"),
	})
	assert.ErrorIs(t, err, network.ErrSnapshot)
}
