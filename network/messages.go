package network

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tolelom/headstats/events"
)

// ErrMalformedMessage is returned for frames that are not head API messages.
var ErrMalformedMessage = errors.New("malformed head message")

type envelope struct {
	Tag         string          `json:"tag"`
	HeadID      string          `json:"headId"`
	Snapshot    *snapshotJSON   `json:"snapshot"`
	Transaction json.RawMessage `json:"transaction"`
}

type snapshotJSON struct {
	Number    uint64 `json:"number"`
	Confirmed []struct {
		TxID string `json:"txId"`
	} `json:"confirmed"`
	ConfirmedTransactions []string `json:"confirmedTransactions"`
}

type transactionJSON struct {
	TxID    string `json:"txId"`
	CborHex string `json:"cborHex"`
}

// DecodeMessage decodes one text frame from a head's event socket.
func DecodeMessage(data []byte) (events.Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	switch env.Tag {
	case "":
		return nil, fmt.Errorf("%w: missing tag", ErrMalformedMessage)
	case "HeadIsOpen":
		if env.HeadID == "" {
			return nil, fmt.Errorf("%w: HeadIsOpen without headId", ErrMalformedMessage)
		}
		return events.HeadIsOpen{HeadID: env.HeadID}, nil
	case "SnapshotConfirmed":
		if env.Snapshot == nil {
			return nil, fmt.Errorf("%w: SnapshotConfirmed without snapshot", ErrMalformedMessage)
		}
		msg := events.SnapshotConfirmed{Number: env.Snapshot.Number}
		for _, tx := range env.Snapshot.Confirmed {
			msg.TxIDs = append(msg.TxIDs, strings.ToLower(tx.TxID))
		}
		for _, id := range env.Snapshot.ConfirmedTransactions {
			msg.TxIDs = append(msg.TxIDs, strings.ToLower(id))
		}
		return msg, nil
	case "TxValid":
		return decodeTxValid(env.Transaction)
	default:
		return events.Other{Name: env.Tag}, nil
	}
}

func decodeTxValid(raw json.RawMessage) (events.Message, error) {
	var tx transactionJSON
	if err := json.Unmarshal(raw, &tx.CborHex); err != nil {
		if err := json.Unmarshal(raw, &tx); err != nil {
			return nil, fmt.Errorf("%w: TxValid transaction: %v", ErrMalformedMessage, err)
		}
	}
	cbor, err := hex.DecodeString(tx.CborHex)
	if err != nil || len(cbor) == 0 {
		return nil, fmt.Errorf("%w: TxValid cborHex", ErrMalformedMessage)
	}
	return events.TxValid{TxID: strings.ToLower(tx.TxID), CBOR: cbor}, nil
}

type newTx struct {
	Tag         string     `json:"tag"`
	Transaction textTxJSON `json:"transaction"`
}

type textTxJSON struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	CborHex     string `json:"cborHex"`
}

// EncodeNewTx builds the NewTx command submitting a signed transaction.
func EncodeNewTx(tx []byte) (string, error) {
	b, err := json.Marshal(newTx{
		Tag: "NewTx",
		Transaction: textTxJSON{
			Type:    "Tx BabbageEra",
			CborHex: hex.EncodeToString(tx),
		},
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
