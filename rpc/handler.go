package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/headstats/crypto"
	"github.com/tolelom/headstats/indexer"
	"github.com/tolelom/headstats/ledger"
	"github.com/tolelom/headstats/node"
)

// Heads is the read and command surface of the node registry.
type Heads interface {
	Heads() []node.Summary
	Head(key string) (node.View, error)
	Global() node.Global
	AddPlayer(ctx context.Context, key string, player []byte) (string, error)
}

// History answers per-player queries.
type History interface {
	PlayerHistory(player string) ([]indexer.Record, error)
}

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	heads   Heads
	history History
}

// NewHandler creates an RPC Handler. history may be nil.
func NewHandler(heads Heads, history History) *Handler {
	return &Handler{heads: heads, history: history}
}

// NewGameResult is returned once a new game transaction was queued.
type NewGameResult struct {
	TxSubmitted bool   `json:"tx_submitted"`
	Head        string `json:"head"`
	Player      string `json:"player"`
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(ctx context.Context, req Request) Response {
	switch req.Method {
	case "getHeads":
		return okResponse(req.ID, h.heads.Heads())

	case "getHead":
		return h.getHead(req)

	case "getGlobal":
		return okResponse(req.ID, h.heads.Global())

	case "newGame":
		return h.newGame(ctx, req)

	case "getPlayerHistory":
		return h.getPlayerHistory(req)

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) getHead(req Request) Response {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	v, err := h.heads.Head(params.ID)
	if err != nil {
		return errResponse(req.ID, CodeNotFound, err.Error())
	}
	return okResponse(req.ID, v)
}

func (h *Handler) newGame(ctx context.Context, req Request) Response {
	var params struct {
		PKH     string `json:"pkh"`
		Address string `json:"address"`
		Head    string `json:"head"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	res, err := h.startGame(ctx, params.PKH, params.Address, params.Head)
	if err != nil {
		return errResponse(req.ID, codeFor(err), err.Error())
	}
	return okResponse(req.ID, res)
}

func (h *Handler) startGame(ctx context.Context, pkh, address, head string) (NewGameResult, error) {
	player, err := parsePlayer(pkh, address)
	if err != nil {
		return NewGameResult{}, err
	}
	authority, err := h.heads.AddPlayer(ctx, head, player)
	if err != nil {
		return NewGameResult{}, err
	}
	return NewGameResult{TxSubmitted: true, Head: authority, Player: hex.EncodeToString(player)}, nil
}

func (h *Handler) getPlayerHistory(req Request) Response {
	var params struct {
		PKH string `json:"pkh"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	records, err := h.playerHistory(params.PKH)
	if err != nil {
		return errResponse(req.ID, codeFor(err), err.Error())
	}
	return okResponse(req.ID, records)
}

func (h *Handler) playerHistory(pkh string) ([]indexer.Record, error) {
	if h.history == nil {
		return nil, errNoHistory
	}
	player, err := parsePlayer(pkh, "")
	if err != nil {
		return nil, err
	}
	records, err := h.history.PlayerHistory(hex.EncodeToString(player))
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []indexer.Record{}
	}
	return records, nil
}

var (
	errBadPlayer = errors.New("player must be a 28-byte hex key hash or a key address")
	errNoHistory = errors.New("player history is not enabled")
)

// parsePlayer accepts either a hex key hash or a bech32 key address.
func parsePlayer(pkh, address string) ([]byte, error) {
	if pkh != "" {
		b, err := hex.DecodeString(pkh)
		if err != nil || len(b) != crypto.KeyHashSize {
			return nil, errBadPlayer
		}
		return b, nil
	}
	if address == "" {
		return nil, errBadPlayer
	}
	addr, err := ledger.ParseBech32Address(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadPlayer, err)
	}
	cred, err := addr.PaymentCredential()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadPlayer, err)
	}
	return cred, nil
}

func codeFor(err error) int {
	switch {
	case errors.Is(err, errBadPlayer):
		return CodeInvalidParams
	case errors.Is(err, node.ErrNoNode):
		return CodeNotFound
	case errors.Is(err, node.ErrNodeFull), errors.Is(err, node.ErrDuplicatePlayer):
		return CodeRejected
	default:
		return CodeInternalError
	}
}
