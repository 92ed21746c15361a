// Package ledger decodes and encodes the on-chain formats a Hydra head
// speaks: era-tagged CBOR transactions, Shelley addresses, Plutus data and
// the JSON UTxO snapshot served over HTTP.
//
// Only the parts needed to read game-state outputs and to build a
// new-game transaction are modelled. Everything else in a transaction body
// is carried as raw CBOR and ignored.
package ledger
