package core

import "time"

// StateUpdate is the gameplay delta carried by one observed transaction.
type StateUpdate struct {
	Player   string
	Bytes    uint64
	Kills    uint64
	Items    uint64
	Secrets  uint64
	PlayTime uint64
	Seen     time.Time
}

// Pending holds observed transactions awaiting snapshot confirmation.
// It is not safe for concurrent use; callers hold the registry lock.
type Pending struct {
	txs map[string]StateUpdate
	ord []string // insertion-ordered IDs for deterministic iteration
}

// NewPending creates an empty pending ledger.
func NewPending() *Pending {
	return &Pending{txs: make(map[string]StateUpdate)}
}

// Put inserts u under id. An existing entry is replaced.
func (p *Pending) Put(id string, u StateUpdate) {
	if _, exists := p.txs[id]; !exists {
		p.ord = append(p.ord, id)
	}
	p.txs[id] = u
}

// Take removes and returns the entry for id.
func (p *Pending) Take(id string) (StateUpdate, bool) {
	u, ok := p.txs[id]
	if !ok {
		return StateUpdate{}, false
	}
	delete(p.txs, id)
	p.compact()
	return u, true
}

// Expire drops entries first seen before cutoff and returns them in
// insertion order. Their deltas are not folded anywhere.
func (p *Pending) Expire(cutoff time.Time) []Entry {
	var dropped []Entry
	for _, id := range p.ord {
		if u, ok := p.txs[id]; ok && u.Seen.Before(cutoff) {
			delete(p.txs, id)
			dropped = append(dropped, Entry{TxID: id, Update: u})
		}
	}
	if len(dropped) > 0 {
		p.compact()
	}
	return dropped
}

// Len returns the number of pending entries.
func (p *Pending) Len() int { return len(p.txs) }

func (p *Pending) compact() {
	filtered := p.ord[:0]
	for _, id := range p.ord {
		if _, ok := p.txs[id]; ok {
			filtered = append(filtered, id)
		}
	}
	p.ord = filtered
}

// clone copies p so joined views never alias a live ledger.
func (p *Pending) clone() *Pending {
	c := NewPending()
	for _, id := range p.ord {
		c.Put(id, p.txs[id])
	}
	return c
}
