package executor

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	chainID  int64
	sent     []*types.Transaction
	receipts int
	status   uint64
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(f.chainID), nil }

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(10_000_000_000)}, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	f.receipts++
	if f.receipts < 2 {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: f.status, BlockNumber: big.NewInt(100)}, nil
}

func TestNewChecksChainID(t *testing.T) {
	key, _ := crypto.GenerateKey()
	_, err := New(context.Background(), &fakeBackend{chainID: 1}, 100, key)
	assert.ErrorIs(t, err, ErrChainMismatch)
}

func TestDialRejectsWrongChain(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		calls++
		assert.Equal(t, "eth_chainId", req.Method)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "0x5"})
	}))
	defer srv.Close()

	key, _ := crypto.GenerateKey()
	e, err := Dial(context.Background(), srv.URL, 1, key)
	assert.ErrorIs(t, err, ErrChainMismatch)
	assert.Nil(t, e)
	assert.Equal(t, 1, calls)
}

func TestExecuteBuildsDynamicFeeTx(t *testing.T) {
	key, _ := crypto.GenerateKey()
	backend := &fakeBackend{chainID: 100}
	e, err := New(context.Background(), backend, 100, key)
	require.NoError(t, err)

	safe := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	calldata := []byte{0x6a, 0x76, 0x12, 0x02}
	hash, err := e.Execute(context.Background(), safe, calldata)
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(120_000), tx.Gas())
	assert.Equal(t, safe, *tx.To())
	assert.Equal(t, calldata, tx.Data())
	assert.Equal(t, big.NewInt(22_000_000_000), tx.GasFeeCap())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(100)), tx)
	require.NoError(t, err)
	assert.Equal(t, e.From(), from)
}

func TestExecuteWaitsForReceipt(t *testing.T) {
	key, _ := crypto.GenerateKey()

	backend := &fakeBackend{chainID: 1, status: types.ReceiptStatusSuccessful}
	e, err := New(context.Background(), backend, 1, key)
	require.NoError(t, err)
	e.Wait = time.Second
	e.PollInterval = time.Millisecond

	_, err = e.Execute(context.Background(), common.HexToAddress("0x01"), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.receipts)

	reverted := &fakeBackend{chainID: 1, status: types.ReceiptStatusFailed}
	e, _ = New(context.Background(), reverted, 1, key)
	e.Wait = time.Second
	e.PollInterval = time.Millisecond
	_, err = e.Execute(context.Background(), common.HexToAddress("0x01"), nil)
	assert.ErrorIs(t, err, ErrReverted)
}
