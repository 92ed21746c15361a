package node

import (
	"context"
	"sync"
	"time"

	"github.com/tolelom/headstats/core"
)

// Registry is the sole owner of the node collection. Readers use View;
// the dispatcher mutates through Apply.
type Registry struct {
	mu    sync.RWMutex
	nodes []*Node
}

// NewRegistry takes ownership of nodes.
func NewRegistry(nodes []*Node) *Registry {
	return &Registry{nodes: nodes}
}

// View runs fn under the read lock.
func (r *Registry) View(fn func(nodes []*Node)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.nodes)
}

// Apply runs fn under the write lock.
func (r *Registry) Apply(fn func(nodes []*Node)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.nodes)
}

// Global is the aggregate view across every node.
type Global struct {
	core.Summary
	Persisted bool `json:"persisted"`
	Heads     int  `json:"heads"`
}

// Heads returns the short view of every node in configuration order.
func (r *Registry) Heads() []Summary {
	var out []Summary
	r.View(func(nodes []*Node) {
		out = make([]Summary, len(nodes))
		for i, n := range nodes {
			out[i] = n.Summary()
		}
	})
	return out
}

// Head returns the view of the node whose authority or head id is key.
func (r *Registry) Head(key string) (View, error) {
	var (
		v  View
		ok bool
	)
	r.View(func(nodes []*Node) {
		if n := find(nodes, key); n != nil {
			v, ok = n.View(), true
		}
	})
	if !ok {
		return View{}, ErrNoNode
	}
	return v, nil
}

// Global joins the stats of every node.
func (r *Registry) Global() Global {
	var g Global
	r.View(func(nodes []*Node) {
		joined := core.NewStats(true)
		for _, n := range nodes {
			joined = joined.Join(n.stats)
		}
		g = Global{Summary: joined.Summary, Persisted: joined.Persisted, Heads: len(nodes)}
	})
	return g
}

// AddPlayer starts a game for player on the node named by key, or on the
// least loaded node with room when key is empty. It returns the node's
// authority.
func (r *Registry) AddPlayer(ctx context.Context, key string, player []byte) (string, error) {
	var target *Node
	r.View(func(nodes []*Node) {
		if key != "" {
			target = find(nodes, key)
			return
		}
		for _, n := range nodes {
			if n.hasRoom() && (target == nil || len(n.players) < len(target.players)) {
				target = n
			}
		}
		if target == nil && len(nodes) > 0 {
			target = nodes[0]
		}
	})
	if target == nil {
		return "", ErrNoNode
	}
	if err := target.AddPlayer(ctx, player, &r.mu); err != nil {
		return "", err
	}
	return target.Authority(), nil
}

// Sweep drops pending entries seen more than ttl before now and returns
// them by authority. Their deltas are lost; a later confirmation of a
// dropped id is a no-op.
func (r *Registry) Sweep(ttl time.Duration, now time.Time) map[string][]core.Entry {
	dropped := make(map[string][]core.Entry)
	r.Apply(func(nodes []*Node) {
		for _, n := range nodes {
			if entries := n.stats.Pending.Expire(now.Add(-ttl)); len(entries) > 0 {
				dropped[n.Authority()] = entries
			}
		}
	})
	return dropped
}

// Close terminates every head connection.
func (r *Registry) Close() {
	r.View(func(nodes []*Node) {
		for _, n := range nodes {
			n.Close()
		}
	})
}

func find(nodes []*Node, key string) *Node {
	for _, n := range nodes {
		if n.Authority() == key || (n.headID != "" && n.headID == key) {
			return n
		}
	}
	return nil
}

func findByAuthority(nodes []*Node, authority string) *Node {
	for _, n := range nodes {
		if n.Authority() == authority {
			return n
		}
	}
	return nil
}
