// Package event defines the messages the watcher publishes.
package event

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Type string

const (
	ProposalCreated   Type = "proposal.created"
	ProposalConfirmed Type = "proposal.confirmed"
	ProposalReady     Type = "proposal.ready"
	ProposalDropped   Type = "proposal.dropped"
)

// ProposalEvent is published keyed by SafeTxHash.
// Topic: observer.topic (safe_events by default)
type ProposalEvent struct {
	Type          Type           `json:"type"`
	ChainID       uint64         `json:"chain_id"`
	Safe          common.Address `json:"safe"`
	SafeTxHash    common.Hash    `json:"safe_tx_hash"`
	Nonce         uint64         `json:"nonce"`
	Confirmations int            `json:"confirmations"`
	Threshold     uint64         `json:"threshold"`
	Ready         bool           `json:"ready"`
	ObservedAt    time.Time      `json:"observed_at"`
}
