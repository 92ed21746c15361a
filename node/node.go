// Package node tracks the heads the aggregator watches. A Registry owns
// every Node; a single Dispatcher applies head events to them.
package node

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tolelom/headstats/core"
	"github.com/tolelom/headstats/events"
	"github.com/tolelom/headstats/ledger"
	"github.com/tolelom/headstats/network"
	"github.com/tolelom/headstats/wallet"
)

var (
	ErrNodeFull        = errors.New("node has no room for another player")
	ErrDuplicatePlayer = errors.New("player already tracked")
	ErrNoNode          = errors.New("no matching node")
)

// Config describes one head.
type Config struct {
	LocalURL   string
	RemoteURL  string
	MaxPlayers int
	Persisted  bool
	Wallet     *wallet.Wallet
}

// Deps are the collaborators shared by every node.
type Deps struct {
	Inbound   *events.Channel
	Validator *core.Validator
	Emitter   *events.Emitter
	TLS       *tls.Config
	Report    chan<- network.TaskExit
	Logger    *logrus.Entry
}

// Snapshotter fetches a head's UTxO set.
type Snapshotter interface {
	FetchUTxOs(ctx context.Context) ([]ledger.UTxO, error)
}

// Node is one watched head. Fields below the blank line are mutated only
// while the owning Registry's write lock is held.
type Node struct {
	addr       network.Address
	remoteURL  string
	maxPlayers int
	socket     *network.Socket
	outbox     *events.Channel
	snapshots  Snapshotter
	wallet     *wallet.Wallet
	validator  *core.Validator
	emitter    *events.Emitter
	logger     *logrus.Entry
	now        func() time.Time

	headID  string
	players []*core.Player
	stats   *core.Stats
}

// New connects to the head at cfg.LocalURL, starts its listener and primes
// the transaction builder from the head's snapshot. Any connection or
// snapshot failure is returned.
func New(ctx context.Context, cfg Config, deps Deps) (*Node, error) {
	addr, err := network.ParseAddress(cfg.LocalURL)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger.WithField("authority", addr.Authority())

	socket, err := network.Dial(ctx, addr, deps.Inbound, deps.TLS, logger)
	if err != nil {
		return nil, err
	}
	socket.Listen(deps.Report)

	n := newNode(addr, cfg, deps, network.NewSnapshotClient(addr, deps.TLS), socket.Outbox())
	n.socket = socket

	utxos, err := n.snapshots.FetchUTxOs(ctx)
	if err != nil {
		socket.Close()
		return nil, err
	}
	if ref, ok := n.wallet.FindScriptRef(utxos); ok {
		n.wallet.SetScriptRef(ref)
		logger.WithField("ref", ref.String()).Info("Found script reference")
	} else {
		logger.Info("No script reference on this head")
	}
	return n, nil
}

func newNode(addr network.Address, cfg Config, deps Deps, snapshots Snapshotter, outbox *events.Channel) *Node {
	return &Node{
		addr:       addr,
		remoteURL:  cfg.RemoteURL,
		maxPlayers: cfg.MaxPlayers,
		outbox:     outbox,
		snapshots:  snapshots,
		wallet:     cfg.Wallet,
		validator:  deps.Validator,
		emitter:    deps.Emitter,
		logger:     deps.Logger.WithField("authority", addr.Authority()),
		now:        time.Now,
		stats:      core.NewStats(cfg.Persisted),
	}
}

// Authority returns the head's "host:port" key.
func (n *Node) Authority() string { return n.addr.Authority() }

// HeadID returns the head identity, empty until HeadIsOpen is seen.
func (n *Node) HeadID() string { return n.headID }

// SetHeadID records id if no head id is set yet and reports whether it did.
func (n *Node) SetHeadID(id string) bool {
	if n.headID != "" {
		return false
	}
	n.headID = id
	return true
}

// Stats returns the node's ledger.
func (n *Node) Stats() *core.Stats { return n.stats }

// Players returns the number of tracked players.
func (n *Node) Players() int { return len(n.players) }

func (n *Node) hasRoom() bool {
	return n.maxPlayers <= 0 || len(n.players) < n.maxPlayers
}

func (n *Node) findPlayer(keyHash []byte) *core.Player {
	for _, p := range n.players {
		if p.Is(keyHash) {
			return p
		}
	}
	return nil
}

// AddPlayer submits a new game for player and starts tracking it. The
// snapshot fetch and transaction build run without guard; the roster is
// changed under guard. The player is tracked before the head confirms the
// game.
func (n *Node) AddPlayer(ctx context.Context, player []byte, guard sync.Locker) error {
	utxos, err := n.snapshots.FetchUTxOs(ctx)
	if err != nil {
		return err
	}
	tx, err := n.wallet.BuildNewGame(player, utxos)
	if err != nil {
		return fmt.Errorf("build new game: %w", err)
	}
	msg, err := network.EncodeNewTx(tx)
	if err != nil {
		return err
	}

	guard.Lock()
	defer guard.Unlock()
	if !n.hasRoom() {
		return ErrNodeFull
	}
	if n.findPlayer(player) != nil {
		return ErrDuplicatePlayer
	}
	if err := n.Send(msg); err != nil {
		return err
	}
	p := core.NewPlayer(player)
	n.players = append(n.players, p)
	n.emitter.Emit(events.Notification{
		Type:      events.EventPlayerAdded,
		Authority: n.Authority(),
		HeadID:    n.headID,
		Data:      map[string]any{"player": p.ID()},
	})
	return nil
}

// AddTransaction validates tx and records its delta as pending. The id
// announced by the head is used when present.
func (n *Node) AddTransaction(tx events.TxValid) (string, core.StateUpdate, error) {
	d, err := n.validator.Validate(tx.CBOR)
	if err != nil {
		return "", core.StateUpdate{}, err
	}
	p := n.findPlayer(d.State.Admin)
	if p == nil {
		return "", core.StateUpdate{}, core.ErrUnknownPlayer
	}
	id := tx.TxID
	if id == "" {
		id = d.TxID
	}
	u := p.Advance(d.State, d.Size)
	u.Seen = n.now()
	n.stats.Pending.Put(id, u)
	return id, u, nil
}

// Send queues payload for the head. Delivery is not confirmed; an error
// means the connection is gone.
func (n *Node) Send(payload string) error {
	if err := n.outbox.Push(events.Send{Payload: payload}); err != nil {
		n.logger.WithError(err).Warn("Dropping outbound message")
		return fmt.Errorf("send to %s: %w", n.Authority(), err)
	}
	return nil
}

// Close terminates the head connection.
func (n *Node) Close() {
	if n.socket != nil {
		n.socket.Close()
	}
}

// View is the public read view of a node.
type View struct {
	ID          string       `json:"id"`
	Authority   string       `json:"authority"`
	RemoteURL   string       `json:"remote_url,omitempty"`
	Persisted   bool         `json:"persisted"`
	ActiveGames int          `json:"active_games"`
	MaxPlayers  int          `json:"max_players"`
	Total       core.Summary `json:"total"`
}

// Summary is the short form listed by the heads endpoint.
type Summary struct {
	ID          string `json:"id"`
	Authority   string `json:"authority"`
	ActiveGames int    `json:"active_games"`
	Persisted   bool   `json:"persisted"`
}

// View returns the node's read view. Call under the registry read lock.
func (n *Node) View() View {
	return View{
		ID:          n.headID,
		Authority:   n.Authority(),
		RemoteURL:   n.remoteURL,
		Persisted:   n.stats.Persisted,
		ActiveGames: len(n.players),
		MaxPlayers:  n.maxPlayers,
		Total:       n.stats.Summary,
	}
}

// Summary returns the node's short view. Call under the registry read lock.
func (n *Node) Summary() Summary {
	return Summary{
		ID:          n.headID,
		Authority:   n.Authority(),
		ActiveGames: len(n.players),
		Persisted:   n.stats.Persisted,
	}
}
