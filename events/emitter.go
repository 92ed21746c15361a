package events

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// EventType labels an aggregator notification.
type EventType string

const (
	EventHeadOpened  EventType = "head_opened"
	EventTxPending   EventType = "tx_pending"
	EventTxRejected  EventType = "tx_rejected"
	EventTxConfirmed EventType = "tx_confirmed"
	EventPlayerAdded EventType = "player_added"
	EventUnknownNode EventType = "unknown_authority"
)

// Notification carries a typed payload emitted after a state change.
type Notification struct {
	Type      EventType      `json:"type"`
	Authority string         `json:"authority"`
	HeadID    string         `json:"head_id,omitempty"`
	TxID      string         `json:"tx_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Handler is a callback invoked for matching notifications.
type Handler func(Notification)

// Emitter is a simple pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	logger   *logrus.Entry
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter(logger *logrus.Entry) *Emitter {
	return &Emitter{handlers: make(map[EventType][]Handler), logger: logger}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// Emit delivers n to all subscribers for n.Type synchronously. A panicking
// handler is logged and skipped.
func (e *Emitter) Emit(n Notification) {
	if e == nil {
		return
	}
	e.mu.RLock()
	handlers := e.handlers[n.Type]
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.WithField("type", n.Type).Errorf("handler panicked: %v", r)
				}
			}()
			h(n)
		}()
	}
}
