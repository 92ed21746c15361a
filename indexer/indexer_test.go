package indexer_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tolelom/headstats/core"
	"github.com/tolelom/headstats/events"
	"github.com/tolelom/headstats/indexer"
	"github.com/tolelom/headstats/internal/testutil"
	"github.com/tolelom/headstats/storage"
)

func confirm(emitter *events.Emitter, txID string, u core.StateUpdate) {
	emitter.Emit(events.Notification{
		Type:      events.EventTxConfirmed,
		Authority: "n1:4001",
		HeadID:    "head",
		TxID:      txID,
		Data:      map[string]any{"update": u},
	})
}

func TestPlayerHistory(t *testing.T) {
	emitter := events.NewEmitter(testutil.NewTestEntry(t, "events"))
	idx := indexer.New(testutil.NewMemDB(), emitter, testutil.NewTestEntry(t, "indexer"))

	confirm(emitter, "tx1", core.StateUpdate{Player: "alice", Bytes: 100, Kills: 2})
	confirm(emitter, "tx2", core.StateUpdate{Player: "bob", Items: 1})
	confirm(emitter, "tx3", core.StateUpdate{Player: "alice", PlayTime: 30})
	confirm(emitter, "tx3", core.StateUpdate{Player: "alice", PlayTime: 30})

	history, err := idx.PlayerHistory("alice")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "tx1", history[0].TxID)
	assert.Equal(t, uint64(2), history[0].Kills)
	assert.Equal(t, "n1:4001", history[0].Authority)
	assert.Equal(t, "head", history[0].HeadID)
	assert.Equal(t, uint64(30), history[1].PlayTime)
	assert.WithinDuration(t, time.Now(), history[1].ConfirmedAt, time.Minute)

	none, err := idx.PlayerHistory("carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIgnoresIncompleteNotifications(t *testing.T) {
	emitter := events.NewEmitter(testutil.NewTestEntry(t, "events"))
	db := testutil.NewMemDB()
	indexer.New(db, emitter, testutil.NewTestEntry(t, "indexer"))

	emitter.Emit(events.Notification{Type: events.EventTxConfirmed, TxID: "tx1"})
	confirm(emitter, "", core.StateUpdate{Player: "alice"})
	assert.Equal(t, 0, db.Len())
}

func TestHistoryOnLevelDB(t *testing.T) {
	db, err := storage.NewMemLevelDB()
	require.NoError(t, err)
	defer db.Close()
	emitter := events.NewEmitter(testutil.NewTestEntry(t, "events"))
	idx := indexer.New(db, emitter, testutil.NewTestEntry(t, "indexer"))

	for i := 0; i < 20; i++ {
		confirm(emitter, fmt.Sprintf("tx%02d", 19-i), core.StateUpdate{Player: "alice", Secrets: uint64(i)})
	}
	confirm(emitter, "other", core.StateUpdate{Player: "alice2"})

	history, err := idx.PlayerHistory("alice")
	require.NoError(t, err)
	require.Len(t, history, 20)
	for i, r := range history {
		assert.Equal(t, uint64(i), r.Secrets, "confirmation order, not tx id order")
		assert.Equal(t, "alice", r.Player)
	}
}
