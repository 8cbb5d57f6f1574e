// Package history builds multisig transaction history queries and walks the
// paginated results lazily.
package history

import (
	"context"
	"math/big"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// Fetcher is the slice of the transport the iterator needs.
type Fetcher interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	GetURL(ctx context.Context, rawURL string, out any) error
}

// Builder accumulates filters. It is a value: every setter returns a new
// Builder and the receiver is left untouched, so partially built queries can
// be shared and extended freely.
type Builder struct {
	fetcher    Fetcher
	minNonce   *uint64
	maxNonce   *uint64
	nonce      *uint64
	executed   *bool
	trusted    *bool
	to         *common.Address
	safeTxHash *common.Hash
	txHash     *common.Hash
	value      *big.Int
	minValue   *big.Int
	maxValue   *big.Int
	ordering   string
	limit      int
	pageSize   int
	offset     int
}

// DefaultPageSize is requested when neither PageSize nor Limit is set.
const DefaultPageSize = 100

// DefaultOrdering lists oldest nonce first, proposals for the same nonce by
// creation time.
const DefaultOrdering = "nonce,created"

func New(f Fetcher) Builder {
	return Builder{fetcher: f}
}

func (b Builder) MinNonce(n uint64) Builder { b.minNonce = &n; return b }

func (b Builder) MaxNonce(n uint64) Builder { b.maxNonce = &n; return b }

// Nonce matches one nonce exactly, e.g. to list competing proposals.
func (b Builder) Nonce(n uint64) Builder { b.nonce = &n; return b }

// Executed restricts to executed (true) or pending (false) transactions.
func (b Builder) Executed(v bool) Builder { b.executed = &v; return b }

func (b Builder) Trusted(v bool) Builder { b.trusted = &v; return b }

func (b Builder) To(addr common.Address) Builder { b.to = &addr; return b }

func (b Builder) SafeTxHash(h common.Hash) Builder { b.safeTxHash = &h; return b }

// TransactionHash matches the on-chain execution transaction.
func (b Builder) TransactionHash(h common.Hash) Builder { b.txHash = &h; return b }

// Value matches an exact value in wei and clears MinValue and MaxValue.
func (b Builder) Value(v *big.Int) Builder {
	b.value = new(big.Int).Set(v)
	b.minValue, b.maxValue = nil, nil
	return b
}

// MinValue keeps transactions with value >= v and clears Value.
func (b Builder) MinValue(v *big.Int) Builder {
	b.minValue = new(big.Int).Set(v)
	b.value = nil
	return b
}

// MaxValue keeps transactions with value <= v and clears Value.
func (b Builder) MaxValue(v *big.Int) Builder {
	b.maxValue = new(big.Int).Set(v)
	b.value = nil
	return b
}

// Ordering overrides the service-side ordering, e.g. "-nonce". Pages are
// then yielded as the service returns them.
func (b Builder) Ordering(fields string) Builder { b.ordering = fields; return b }

// Limit caps the number of transactions the iterator yields. Zero means no
// cap.
func (b Builder) Limit(n int) Builder { b.limit = n; return b }

// PageSize sets how many transactions are fetched per request.
func (b Builder) PageSize(n int) Builder { b.pageSize = n; return b }

// Offset skips the first n transactions on the service side.
func (b Builder) Offset(n int) Builder { b.offset = n; return b }

// Query returns a fresh iterator over the Safe's history. No request is
// made until the first call to Next.
func (b Builder) Query(safe common.Address) *Iterator {
	return &Iterator{
		fetcher:  b.fetcher,
		path:     "api/v1/safes/" + safe.Hex() + "/multisig-transactions/",
		query:    b.values(),
		sorted:   b.ordering == "" || b.ordering == DefaultOrdering,
		minNonce: b.minNonce,
		maxNonce: b.maxNonce,
		limit:    b.limit,
	}
}

func (b Builder) values() url.Values {
	q := url.Values{}
	ordering := b.ordering
	if ordering == "" {
		ordering = DefaultOrdering
	}
	q.Set("ordering", ordering)
	if b.minNonce != nil {
		q.Set("nonce__gte", strconv.FormatUint(*b.minNonce, 10))
	}
	if b.maxNonce != nil {
		q.Set("nonce__lte", strconv.FormatUint(*b.maxNonce, 10))
	}
	if b.nonce != nil {
		q.Set("nonce", strconv.FormatUint(*b.nonce, 10))
	}
	if b.executed != nil {
		q.Set("executed", strconv.FormatBool(*b.executed))
	}
	if b.trusted != nil {
		q.Set("trusted", strconv.FormatBool(*b.trusted))
	}
	if b.to != nil {
		q.Set("to", b.to.Hex())
	}
	if b.safeTxHash != nil {
		q.Set("safe_tx_hash", b.safeTxHash.Hex())
	}
	if b.txHash != nil {
		q.Set("transaction_hash", b.txHash.Hex())
	}
	if b.value != nil {
		q.Set("value", b.value.String())
	}
	// The service filters value with strict bounds only.
	if b.minValue != nil && b.minValue.Sign() > 0 {
		q.Set("value__gt", new(big.Int).Sub(b.minValue, big.NewInt(1)).String())
	}
	if b.maxValue != nil {
		q.Set("value__lt", new(big.Int).Add(b.maxValue, big.NewInt(1)).String())
	}

	size := b.pageSize
	if size <= 0 {
		size = DefaultPageSize
		if b.limit > 0 && b.limit < size {
			size = b.limit
		}
	}
	q.Set("limit", strconv.Itoa(size))
	if b.offset > 0 {
		q.Set("offset", strconv.Itoa(b.offset))
	}
	return q
}
