package node

import (
	"github.com/sirupsen/logrus"
	"github.com/tolelom/headstats/core"
	"github.com/tolelom/headstats/events"
)

// Dispatcher is the single consumer of the inbound channel and the only
// writer of node state.
type Dispatcher struct {
	registry *Registry
	inbound  *events.Channel
	emitter  *events.Emitter
	logger   *logrus.Entry
}

// NewDispatcher creates a Dispatcher draining inbound into registry.
func NewDispatcher(registry *Registry, inbound *events.Channel, emitter *events.Emitter, logger *logrus.Entry) *Dispatcher {
	return &Dispatcher{registry: registry, inbound: inbound, emitter: emitter, logger: logger}
}

// Run handles events until the inbound channel is closed and drained.
// It does not restart.
func (d *Dispatcher) Run() {
	for {
		ev, ok := d.inbound.Recv()
		if !ok {
			d.logger.Warn("Event channel closed, dispatcher stopping")
			return
		}
		d.handle(ev)
	}
}

func (d *Dispatcher) handle(ev events.Event) {
	switch ev := ev.(type) {
	case events.Received:
		d.registry.Apply(func(nodes []*Node) {
			d.route(nodes, ev)
		})
	case events.Send:
		// Outbound messages go from their origin straight to the socket.
	}
}

func (d *Dispatcher) route(nodes []*Node, ev events.Received) {
	n := findByAuthority(nodes, ev.Authority)
	if n == nil {
		d.logger.WithFields(logrus.Fields{
			"authority": ev.Authority,
			"tag":       ev.Message.Tag(),
		}).Warn("Event from unknown node")
		d.emitter.Emit(events.Notification{Type: events.EventUnknownNode, Authority: ev.Authority})
		return
	}
	logger := d.logger.WithField("authority", n.Authority())

	switch msg := ev.Message.(type) {
	case events.HeadIsOpen:
		if !n.SetHeadID(msg.HeadID) {
			logger.WithField("head_id", msg.HeadID).Debug("Head id already set, ignoring")
			return
		}
		logger.WithField("head_id", msg.HeadID).Info("Head is open")
		d.emitter.Emit(events.Notification{
			Type:      events.EventHeadOpened,
			Authority: n.Authority(),
			HeadID:    msg.HeadID,
		})

	case events.SnapshotConfirmed:
		confirmed, missing := n.stats.Confirm(msg.TxIDs)
		for _, id := range missing {
			logger.WithField("tx_id", id).Debug("Confirmed transaction was not pending")
		}
		for _, c := range confirmed {
			d.emitter.Emit(events.Notification{
				Type:      events.EventTxConfirmed,
				Authority: n.Authority(),
				HeadID:    n.headID,
				TxID:      c.TxID,
				Data:      map[string]any{"update": c.Update},
			})
		}
		if len(confirmed) > 0 {
			logger.WithFields(logrus.Fields{
				"snapshot":  msg.Number,
				"confirmed": len(confirmed),
			}).Debug("Snapshot confirmed")
		}

	case events.TxValid:
		id, u, err := n.AddTransaction(msg)
		if err != nil {
			logger.WithError(err).WithField("tx_id", msg.TxID).Warn("Rejected transaction")
			d.emitter.Emit(events.Notification{
				Type:      events.EventTxRejected,
				Authority: n.Authority(),
				TxID:      msg.TxID,
				Data:      map[string]any{"reason": core.Reason(err)},
			})
			return
		}
		logger.WithFields(logrus.Fields{"tx_id": id, "player": u.Player}).Debug("Transaction pending")
		d.emitter.Emit(events.Notification{
			Type:      events.EventTxPending,
			Authority: n.Authority(),
			TxID:      id,
			Data:      map[string]any{"update": u},
		})

	case events.Other:
		// Messages the aggregator has no use for yet.
	}
}
