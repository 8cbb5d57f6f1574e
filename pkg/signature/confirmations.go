package signature

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"safe-core/pkg/model"
)

var ErrNotEnoughSignatures = errors.New("not enough owner signatures")

// Merge returns a new confirmation set with c added. A confirmation from an
// owner already present replaces the old one. set is not modified.
func Merge(set []model.Confirmation, c model.Confirmation) []model.Confirmation {
	out := make([]model.Confirmation, 0, len(set)+1)
	replaced := false
	for _, existing := range set {
		if existing.Owner == c.Owner {
			if !replaced {
				out = append(out, c)
				replaced = true
			}
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, c)
	}
	return out
}

// Readiness summarises a confirmation set against an owner snapshot.
type Readiness struct {
	Threshold uint64
	// Confirmed owners, in owner-set order.
	Confirmed []common.Address
	// Signers that are not owners. They never count toward the threshold.
	Foreign []common.Address
	// Owners that have not signed yet.
	Missing []common.Address
	Ready   bool
}

// Check evaluates set against info. Ready requires at least threshold
// distinct owner confirmations and no foreign signer in the set.
func Check(info *model.AccountInfo, set []model.Confirmation) Readiness {
	signed := make(map[common.Address]bool, len(set))
	r := Readiness{Threshold: info.Threshold}

	for _, c := range set {
		if signed[c.Owner] {
			continue
		}
		signed[c.Owner] = true
		if !info.IsOwner(c.Owner) {
			r.Foreign = append(r.Foreign, c.Owner)
		}
	}
	for _, o := range info.Owners {
		if signed[o] {
			r.Confirmed = append(r.Confirmed, o)
		} else {
			r.Missing = append(r.Missing, o)
		}
	}

	r.Ready = uint64(len(r.Confirmed)) >= info.Threshold && len(r.Foreign) == 0
	return r
}

func (r Readiness) String() string {
	return fmt.Sprintf("%d/%d confirmations, %d foreign, ready=%t",
		len(r.Confirmed), r.Threshold, len(r.Foreign), r.Ready)
}

// Pack concatenates threshold owner signatures ordered by owner address
// ascending, the layout checkNSignatures expects. Foreign and malformed
// signatures are skipped. An on-chain approval without a signature is
// encoded as a v = 1 pre-approved hash signature.
func Pack(info *model.AccountInfo, set []model.Confirmation) ([]byte, error) {
	type entry struct {
		owner common.Address
		sig   []byte
	}

	seen := make(map[common.Address]bool, len(set))
	var usable []entry
	for _, c := range set {
		if seen[c.Owner] || !info.IsOwner(c.Owner) {
			continue
		}
		sig := []byte(c.Signature)
		if len(sig) == 0 && c.SignatureType == model.SignatureApprovedHash {
			sig = ApprovedHashSignature(c.Owner)
		}
		// Contract signatures carry a dynamic part and are not packed here.
		if len(sig) != sigLen || sig[64] == 0 {
			continue
		}
		seen[c.Owner] = true
		usable = append(usable, entry{owner: c.Owner, sig: sig})
	}

	if uint64(len(usable)) < info.Threshold {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughSignatures, len(usable), info.Threshold)
	}

	sort.Slice(usable, func(i, j int) bool {
		return bytes.Compare(usable[i].owner.Bytes(), usable[j].owner.Bytes()) < 0
	})

	packed := make([]byte, 0, int(info.Threshold)*sigLen)
	for _, e := range usable[:info.Threshold] {
		packed = append(packed, e.sig...)
	}
	return packed, nil
}
