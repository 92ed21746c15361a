package core

import "errors"

// Validation errors. Each one drops the transaction and leaves the node untouched.
var (
	ErrDecode             = errors.New("transaction decode failed")
	ErrInvalidOutputCount = errors.New("invalid number of script outputs")
	ErrMissingDatum       = errors.New("script output has no inline datum")
	ErrDatumDecode        = errors.New("datum is not a game state")
	ErrUnknownPlayer      = errors.New("no tracked player for game state admin")
)

// Reason maps a validation error to a short label for logs and metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrInvalidOutputCount):
		return "output_count"
	case errors.Is(err, ErrMissingDatum):
		return "missing_datum"
	case errors.Is(err, ErrDatumDecode):
		return "datum_decode"
	case errors.Is(err, ErrUnknownPlayer):
		return "unknown_player"
	default:
		return "other"
	}
}
