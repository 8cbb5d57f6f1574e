package history

import (
	"context"
	"errors"
	"math/big"
	"net/url"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safe-core/pkg/model"
)

var safeAddr = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

type fakeFetcher struct {
	first    model.Page[model.MultisigTransaction]
	byURL    map[string]model.Page[model.MultisigTransaction]
	failURL  string
	gets     int
	getURLs  []string
	lastPath string
	lastQ    url.Values
}

func (f *fakeFetcher) Get(_ context.Context, path string, query url.Values, out any) error {
	f.gets++
	f.lastPath = path
	f.lastQ = query
	*out.(*model.Page[model.MultisigTransaction]) = f.first
	return nil
}

func (f *fakeFetcher) GetURL(_ context.Context, rawURL string, out any) error {
	f.getURLs = append(f.getURLs, rawURL)
	if rawURL == f.failURL {
		return errors.New("boom")
	}
	page, ok := f.byURL[rawURL]
	if !ok {
		return errors.New("unexpected url " + rawURL)
	}
	*out.(*model.Page[model.MultisigTransaction]) = page
	return nil
}

func tx(nonce uint64, submitted time.Time) model.MultisigTransaction {
	return model.MultisigTransaction{
		Safe:           safeAddr,
		Nonce:          nonce,
		SafeTxHash:     common.BigToHash(new(big.Int).SetUint64(nonce*1000 + uint64(submitted.Unix()%1000))),
		SubmissionDate: submitted,
	}
}

func strp(s string) *string { return &s }

func TestBuilderIsImmutable(t *testing.T) {
	base := New(&fakeFetcher{}).MinNonce(15)
	narrowed := base.MaxNonce(25).Executed(true)

	q1 := base.values()
	q2 := narrowed.values()

	assert.Equal(t, "15", q1.Get("nonce__gte"))
	assert.Empty(t, q1.Get("nonce__lte"))
	assert.Empty(t, q1.Get("executed"))

	assert.Equal(t, "15", q2.Get("nonce__gte"))
	assert.Equal(t, "25", q2.Get("nonce__lte"))
	assert.Equal(t, "true", q2.Get("executed"))
}

func TestQueryParameters(t *testing.T) {
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	hash := common.HexToHash("0x01")
	execHash := common.HexToHash("0x02")
	min := big.NewInt(1000)
	q := New(nil).
		Nonce(7).
		Trusted(false).
		To(to).
		SafeTxHash(hash).
		TransactionHash(execHash).
		MinValue(min).
		MaxValue(big.NewInt(2000)).
		Limit(10).
		Offset(20).
		values()
	min.SetInt64(1)

	assert.Equal(t, "7", q.Get("nonce"))
	assert.Equal(t, "false", q.Get("trusted"))
	assert.Equal(t, to.Hex(), q.Get("to"))
	assert.Equal(t, hash.Hex(), q.Get("safe_tx_hash"))
	assert.Equal(t, "10", q.Get("limit"))
	assert.Equal(t, "20", q.Get("offset"))
	assert.Equal(t, execHash.Hex(), q.Get("transaction_hash"))
	assert.Equal(t, "999", q.Get("value__gt"), "builder keeps its own copy")
	assert.Equal(t, "2001", q.Get("value__lt"))
	assert.Empty(t, q.Get("value"))
	assert.Equal(t, "nonce,created", q.Get("ordering"))
	assert.Equal(t, "-nonce", New(nil).Ordering("-nonce").values().Get("ordering"))

	assert.Equal(t, "100", New(nil).values().Get("limit"))
	assert.Equal(t, "5", New(nil).PageSize(5).Limit(50).values().Get("limit"))
}

func TestIteratorWalksPagesInOrder(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	next := "https://safe-transaction-mainnet.safe.global/api/v1/safes/x/multisig-transactions/?limit=3&offset=3"

	f := &fakeFetcher{
		first: model.Page[model.MultisigTransaction]{
			Count: 6,
			Next:  strp(next),
			// Out of order within the page, two proposals share nonce 16.
			Results: []model.MultisigTransaction{
				tx(16, now.Add(2*time.Minute)),
				tx(15, now),
				tx(16, now.Add(time.Minute)),
			},
		},
		byURL: map[string]model.Page[model.MultisigTransaction]{
			next: {
				Count:   6,
				Results: []model.MultisigTransaction{tx(17, now), tx(24, now), tx(25, now)},
			},
		},
	}

	it := New(f).MinNonce(15).MaxNonce(25).Query(safeAddr)
	assert.Equal(t, 0, f.gets, "no request before Next")

	got, err := it.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "api/v1/safes/"+safeAddr.Hex()+"/multisig-transactions/", f.lastPath)
	assert.Equal(t, "15", f.lastQ.Get("nonce__gte"))
	assert.Equal(t, "25", f.lastQ.Get("nonce__lte"))
	assert.Equal(t, []string{next}, f.getURLs)

	var nonces []uint64
	for _, m := range got {
		nonces = append(nonces, m.Nonce)
	}
	assert.Equal(t, []uint64{15, 16, 16, 17, 24, 25}, nonces)
	assert.True(t, got[1].SubmissionDate.Before(got[2].SubmissionDate))
	assert.Equal(t, uint64(6), it.Total())
	assert.Equal(t, 2, it.Pages())
}

func TestIteratorIsLazy(t *testing.T) {
	now := time.Now().UTC()
	next := "https://svc.example/api/v1/next"
	f := &fakeFetcher{
		first: model.Page[model.MultisigTransaction]{
			Next:    strp(next),
			Results: []model.MultisigTransaction{tx(1, now), tx(2, now)},
		},
		byURL: map[string]model.Page[model.MultisigTransaction]{
			next: {Results: []model.MultisigTransaction{tx(3, now)}},
		},
	}

	it := New(f).Query(safeAddr)
	ctx := context.Background()

	require.True(t, it.Next(ctx))
	assert.Equal(t, uint64(1), it.Transaction().Nonce)
	require.True(t, it.Next(ctx))
	assert.Empty(t, f.getURLs, "second page not fetched while first is buffered")

	require.True(t, it.Next(ctx))
	assert.Equal(t, uint64(3), it.Transaction().Nonce)
	assert.Len(t, f.getURLs, 1)

	assert.False(t, it.Next(ctx))
	assert.False(t, it.Next(ctx))
	assert.NoError(t, it.Err())
	assert.Nil(t, it.Transaction())
	assert.Equal(t, 1, f.gets)
}

func TestIteratorFiltersOutOfRange(t *testing.T) {
	now := time.Now().UTC()
	f := &fakeFetcher{
		first: model.Page[model.MultisigTransaction]{
			Results: []model.MultisigTransaction{tx(3, now), tx(4, now), tx(9, now)},
		},
	}
	got, err := New(f).MinNonce(4).MaxNonce(8).Query(safeAddr).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(4), got[0].Nonce)
}

func TestIteratorLimit(t *testing.T) {
	now := time.Now().UTC()
	f := &fakeFetcher{
		first: model.Page[model.MultisigTransaction]{
			Next:    strp("https://svc.example/never"),
			Results: []model.MultisigTransaction{tx(1, now), tx(2, now), tx(3, now)},
		},
	}
	got, err := New(f).Limit(2).Query(safeAddr).Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Empty(t, f.getURLs)
}

func TestIteratorStopsOnError(t *testing.T) {
	now := time.Now().UTC()
	next := "https://svc.example/broken"
	f := &fakeFetcher{
		first: model.Page[model.MultisigTransaction]{
			Next:    strp(next),
			Results: []model.MultisigTransaction{tx(1, now)},
		},
		failURL: next,
	}
	got, err := New(f).Query(safeAddr).Collect(context.Background())
	require.Error(t, err)
	assert.Len(t, got, 1)
}

func TestEmptyHistory(t *testing.T) {
	f := &fakeFetcher{}
	it := New(f).Query(safeAddr)
	assert.False(t, it.Next(context.Background()))
	assert.NoError(t, it.Err())
	assert.Equal(t, 1, f.gets)
}

func TestValueFiltersExclusive(t *testing.T) {
	exact := New(nil).MinValue(big.NewInt(10)).Value(big.NewInt(5)).values()
	assert.Equal(t, "5", exact.Get("value"))
	assert.Empty(t, exact.Get("value__gt"))

	ranged := New(nil).Value(big.NewInt(5)).MaxValue(big.NewInt(7)).MinValue(big.NewInt(0)).values()
	assert.Empty(t, ranged.Get("value"))
	assert.Empty(t, ranged.Get("value__gt"), "zero lower bound matches everything")
	assert.Equal(t, "8", ranged.Get("value__lt"))
}

func TestCustomOrderingKeepsServiceOrder(t *testing.T) {
	now := time.Now().UTC()
	f := &fakeFetcher{
		first: model.Page[model.MultisigTransaction]{
			Results: []model.MultisigTransaction{tx(9, now), tx(8, now), tx(7, now)},
		},
	}
	got, err := New(f).Ordering("-nonce").Query(safeAddr).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(9), got[0].Nonce)
	assert.Equal(t, uint64(7), got[2].Nonce)
	assert.Equal(t, "-nonce", f.lastQ.Get("ordering"))
}
