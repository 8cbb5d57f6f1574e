package model

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AccountInfo is a point-in-time snapshot of a Safe. It is stale as soon as
// it is returned; fetch again to observe new state.
type AccountInfo struct {
	Address         common.Address   `json:"address"`
	Nonce           uint64           `json:"nonce"`
	Threshold       uint64           `json:"threshold"`
	Owners          []common.Address `json:"owners"`
	MasterCopy      *common.Address  `json:"masterCopy"`
	Modules         []common.Address `json:"modules"`
	FallbackHandler *common.Address  `json:"fallbackHandler"`
	Guard           *common.Address  `json:"guard"`
	Version         string           `json:"version"`
}

// UnmarshalJSON decodes the service payload and enforces the owner and
// threshold invariants, so an AccountInfo value is always valid.
func (a *AccountInfo) UnmarshalJSON(data []byte) error {
	type alias AccountInfo
	aux := struct {
		*alias
		Nonce     flexUint64 `json:"nonce"`
		Threshold flexUint64 `json:"threshold"`
		Version   *string    `json:"version"`
	}{alias: (*alias)(a)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.Nonce = uint64(aux.Nonce)
	a.Threshold = uint64(aux.Threshold)
	a.Version = ""
	if aux.Version != nil {
		a.Version = *aux.Version
	}
	return a.Validate()
}

// Validate checks 1 <= threshold <= len(owners) and that owners are unique.
func (a *AccountInfo) Validate() error {
	n := uint64(len(a.Owners))
	if a.Threshold < 1 || a.Threshold > n {
		return fmt.Errorf("%w: threshold %d, %d owners", ErrInvalidThreshold, a.Threshold, n)
	}
	seen := make(map[common.Address]struct{}, n)
	for _, o := range a.Owners {
		if _, dup := seen[o]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateOwner, o.Hex())
		}
		seen[o] = struct{}{}
	}
	return nil
}

// IsOwner reports whether addr is in the owner set.
func (a *AccountInfo) IsOwner(addr common.Address) bool {
	for _, o := range a.Owners {
		if o == addr {
			return true
		}
	}
	return false
}
