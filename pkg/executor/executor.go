// Package executor sends execTransaction calls to a Safe from a local
// relayer key.
package executor

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"safe-core/pkg/logger"
)

var (
	ErrChainMismatch = errors.New("rpc chain id does not match the configured chain")
	ErrReverted      = errors.New("transaction reverted")
)

// Backend is the part of ethclient.Client the executor uses.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// EthExecutor signs and sends EIP-1559 transactions. It is not safe for
// concurrent Execute calls from the same key: nonces come from
// PendingNonceAt.
type EthExecutor struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int

	// GasMargin is added to the estimate, in percent.
	GasMargin uint64
	// Wait, when non-zero, makes Execute block until the receipt arrives or
	// Wait elapses.
	Wait         time.Duration
	PollInterval time.Duration
}

// Dial connects to rpcURL and checks that it serves chainID.
func Dial(ctx context.Context, rpcURL string, chainID uint64, key *ecdsa.PrivateKey) (*EthExecutor, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	e, err := New(ctx, client, chainID, key)
	if err != nil {
		client.Close()
		return nil, err
	}
	return e, nil
}

func New(ctx context.Context, backend Backend, chainID uint64, key *ecdsa.PrivateKey) (*EthExecutor, error) {
	got, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("rpc chain id: %w", err)
	}
	if got.Uint64() != chainID {
		return nil, fmt.Errorf("%w: rpc %s, configured %d", ErrChainMismatch, got, chainID)
	}
	return &EthExecutor{
		backend:      backend,
		key:          key,
		from:         crypto.PubkeyToAddress(key.PublicKey),
		chainID:      got,
		GasMargin:    20,
		PollInterval: 2 * time.Second,
	}, nil
}

func (e *EthExecutor) From() common.Address { return e.from }

func (e *EthExecutor) Execute(ctx context.Context, safe common.Address, calldata []byte) (common.Hash, error) {
	nonce, err := e.backend.PendingNonceAt(ctx, e.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}
	gas, err := e.backend.EstimateGas(ctx, ethereum.CallMsg{From: e.from, To: &safe, Data: calldata})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}
	gas += gas * e.GasMargin / 100

	tip, err := e.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest tip: %w", err)
	}
	head, err := e.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   e.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &safe,
		Data:      calldata,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(e.chainID), e.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	logger.Info("sent execTransaction",
		zap.String("safe", safe.Hex()),
		zap.String("txHash", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas),
	)

	if e.Wait > 0 {
		if err := e.waitMined(ctx, signed.Hash()); err != nil {
			return signed.Hash(), err
		}
	}
	return signed.Hash(), nil
}

func (e *EthExecutor) waitMined(ctx context.Context, hash common.Hash) error {
	ctx, cancel := context.WithTimeout(ctx, e.Wait)
	defer cancel()
	ticker := time.NewTicker(e.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("%w: %s in block %s", ErrReverted, hash.Hex(), receipt.BlockNumber)
			}
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			logger.Warn("receipt lookup failed", zap.String("txHash", hash.Hex()), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
