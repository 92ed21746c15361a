// Package indexer keeps a per-player history of confirmed game transactions
// so the API can answer player queries without walking every head.
package indexer

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tolelom/headstats/core"
	"github.com/tolelom/headstats/events"
	"github.com/tolelom/headstats/storage"
	"github.com/ugorji/go/codec"
)

const (
	prefixRecord        = "rec:"
	prefixPlayerHistory = "idx:player:"
)

// Record is one confirmed transaction attributed to a player.
type Record struct {
	TxID        string    `json:"tx_id"`
	Authority   string    `json:"authority"`
	HeadID      string    `json:"head_id,omitempty"`
	Player      string    `json:"player"`
	Bytes       uint64    `json:"bytes"`
	Kills       uint64    `json:"kills"`
	Items       uint64    `json:"items"`
	Secrets     uint64    `json:"secrets"`
	PlayTime    uint64    `json:"play_time"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// Indexer subscribes to confirmations and stores them by player.
type Indexer struct {
	db     storage.DB
	logger *logrus.Entry
	now    func() time.Time
	seq    atomic.Uint64
}

// New creates an Indexer backed by db and subscribes it to emitter.
func New(db storage.DB, emitter *events.Emitter, logger *logrus.Entry) *Indexer {
	idx := &Indexer{db: db, logger: logger, now: time.Now}
	emitter.Subscribe(events.EventTxConfirmed, idx.onTxConfirmed)
	return idx
}

// PlayerHistory returns the confirmed records of a player, oldest first.
func (idx *Indexer) PlayerHistory(player string) ([]Record, error) {
	it := idx.db.NewIterator([]byte(playerPrefix(player)))
	defer it.Release()

	records := []Record{}
	for it.Next() {
		id := string(it.Value())
		data, err := idx.db.Get([]byte(prefixRecord + id))
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		var r Record
		if err := unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		records = append(records, r)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("player %s history: %w", player, err)
	}
	return records, nil
}

func (idx *Indexer) onTxConfirmed(n events.Notification) {
	u, ok := n.Data["update"].(core.StateUpdate)
	if !ok || n.TxID == "" || u.Player == "" {
		return
	}
	r := Record{
		TxID:        n.TxID,
		Authority:   n.Authority,
		HeadID:      n.HeadID,
		Player:      u.Player,
		Bytes:       u.Bytes,
		Kills:       u.Kills,
		Items:       u.Items,
		Secrets:     u.Secrets,
		PlayTime:    u.PlayTime,
		ConfirmedAt: idx.now().UTC(),
	}
	if err := idx.put(r); err != nil {
		idx.logger.WithError(err).WithField("tx_id", n.TxID).Error("Index confirmed transaction")
	}
}

// put stores r and, the first time its id is seen, appends it to the
// player's index. Index keys sort in confirmation order.
func (idx *Indexer) put(r Record) error {
	data, err := marshal(r)
	if err != nil {
		return err
	}
	key := []byte(prefixRecord + r.TxID)
	_, err = idx.db.Get(key)
	switch {
	case err == nil:
		return idx.db.Set(key, data)
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}
	if err := idx.db.Set(key, data); err != nil {
		return err
	}
	entry := fmt.Sprintf("%s%016x", playerPrefix(r.Player), idx.seq.Add(1))
	return idx.db.Set([]byte(entry), []byte(r.TxID))
}

func playerPrefix(player string) string {
	return prefixPlayerHistory + player + ":"
}

func marshal(v any) ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	if err := codec.NewEncoder(b, jh).Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func unmarshal(data []byte, v any) error {
	jh := new(codec.JsonHandle)
	return codec.NewDecoder(bytes.NewReader(data), jh).Decode(v)
}
