package core

// Summary is the public six-counter view of a stats ledger.
type Summary struct {
	Transactions uint64 `json:"transactions"`
	Bytes        uint64 `json:"bytes"`
	Kills        uint64 `json:"kills"`
	Items        uint64 `json:"items"`
	Secrets      uint64 `json:"secrets"`
	PlayTime     uint64 `json:"play_time"`
}

// Entry is a pending transaction leaving the ledger, by confirmation or
// expiry.
type Entry struct {
	TxID   string
	Update StateUpdate
}

// Stats is a node's cumulative counters plus its pending ledger.
type Stats struct {
	Persisted bool
	Summary
	Pending *Pending
}

// NewStats returns zeroed stats.
func NewStats(persisted bool) *Stats {
	return &Stats{Persisted: persisted, Pending: NewPending()}
}

// Confirm folds every pending entry named in ids into the counters, exactly
// once. It returns the entries it folded and the ids it did not find.
func (s *Stats) Confirm(ids []string) (confirmed []Entry, missing []string) {
	for _, id := range ids {
		u, ok := s.Pending.Take(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		s.apply(u)
		confirmed = append(confirmed, Entry{TxID: id, Update: u})
	}
	return confirmed, missing
}

func (s *Stats) apply(u StateUpdate) {
	s.Transactions++
	s.Bytes += u.Bytes
	s.Kills += u.Kills
	s.Items += u.Items
	s.Secrets += u.Secrets
	s.PlayTime += u.PlayTime
}

// Join combines s and other without modifying either. Pending entries of
// other win on key collision.
func (s *Stats) Join(other *Stats) *Stats {
	pending := s.Pending.clone()
	for _, id := range other.Pending.ord {
		pending.Put(id, other.Pending.txs[id])
	}
	return &Stats{
		Persisted: s.Persisted && other.Persisted,
		Summary: Summary{
			Transactions: s.Transactions + other.Transactions,
			Bytes:        s.Bytes + other.Bytes,
			Kills:        s.Kills + other.Kills,
			Items:        s.Items + other.Items,
			Secrets:      s.Secrets + other.Secrets,
			PlayTime:     s.PlayTime + other.PlayTime,
		},
		Pending: pending,
	}
}
