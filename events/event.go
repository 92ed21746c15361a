package events

// Event is what travels on a Channel: Received or Send.
type Event interface {
	isEvent()
}

// Received is an inbound protocol message from the node at Authority.
type Received struct {
	Message   Message
	Authority string
}

// Send is an outbound payload written verbatim to a socket.
type Send struct {
	Payload string
}

func (Received) isEvent() {}
func (Send) isEvent()     {}

// Message is a decoded head protocol message.
type Message interface {
	Tag() string
}

// HeadIsOpen announces the head identity.
type HeadIsOpen struct {
	HeadID string
}

// SnapshotConfirmed lists transaction ids finalised by a snapshot.
type SnapshotConfirmed struct {
	Number uint64
	TxIDs  []string
}

// TxValid carries a transaction accepted by the head.
type TxValid struct {
	TxID string
	CBOR []byte
}

// Other is any message the aggregator does not act on.
type Other struct {
	Name string
}

func (HeadIsOpen) Tag() string        { return "HeadIsOpen" }
func (SnapshotConfirmed) Tag() string { return "SnapshotConfirmed" }
func (TxValid) Tag() string           { return "TxValid" }
func (o Other) Tag() string           { return o.Name }
