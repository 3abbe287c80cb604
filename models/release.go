package models

import "math/big"

// ReleaseEvent is one entry of the append-only release log
type ReleaseEvent struct {
	ID          string   `json:"id"`          // uuid
	Seq         uint64   `json:"seq"`         // position in the log, starting at 1
	Key         string   `json:"key"`         // round index or investor address
	Kind        string   `json:"kind"`        // "round" or "investor"
	Beneficiary string   `json:"beneficiary"` // recipient of the transfer
	Amount      *big.Int `json:"amount"`      // delta transferred by this release
	Released    *big.Int `json:"released"`    // cumulative released after this release
	Timestamp   int64    `json:"timestamp"`   // unix seconds
}
