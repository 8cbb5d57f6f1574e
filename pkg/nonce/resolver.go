// Package nonce picks Safe nonces for new proposals.
//
// Pending proposals change under our feet as other owners propose and
// execute, so nothing here caches: callers pass a fresh snapshot each time.
// Two callers racing to the same nonce are settled by the transaction
// service, which rejects the second submission.
package nonce

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNonceTooLow = errors.New("nonce already used on chain")
	ErrNonceTaken  = errors.New("nonce claimed by another pending proposal")
)

// Pending is the slice of a queued proposal the resolver cares about.
type Pending struct {
	Nonce      uint64
	SafeTxHash common.Hash
}

// Next returns the lowest nonce >= onChain that no pending proposal claims:
// the first gap in the sorted pending nonces, or the highest one plus one.
func Next(onChain uint64, pending []uint64) uint64 {
	sorted := make([]uint64, len(pending))
	copy(sorted, pending)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	candidate := onChain
	for _, n := range sorted {
		if n < candidate {
			// Below the on-chain nonce, or a duplicate of one already passed.
			continue
		}
		if n > candidate {
			break
		}
		candidate++
	}
	return candidate
}

// Validate checks a caller-chosen nonce. Re-submitting the exact same
// payload (same safeTxHash) at a claimed nonce is allowed.
func Validate(onChain uint64, pending []Pending, candidate uint64, safeTxHash common.Hash) error {
	if candidate < onChain {
		return fmt.Errorf("%w: %d < %d", ErrNonceTooLow, candidate, onChain)
	}
	for _, p := range pending {
		if p.Nonce == candidate && p.SafeTxHash != safeTxHash {
			return fmt.Errorf("%w: %d by %s", ErrNonceTaken, candidate, p.SafeTxHash.Hex())
		}
	}
	return nil
}

// Nonces extracts the nonce of every pending entry.
func Nonces(pending []Pending) []uint64 {
	out := make([]uint64, len(pending))
	for i, p := range pending {
		out[i] = p.Nonce
	}
	return out
}
