package safeclient

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"safe-core/pkg/logger"
	"safe-core/pkg/model"
	"safe-core/pkg/monitor"
	"safe-core/pkg/signature"
)

// Executor sends execTransaction calldata to the Safe on chain and returns
// the Ethereum transaction hash.
type Executor interface {
	Execute(ctx context.Context, safe common.Address, calldata []byte) (common.Hash, error)
}

// Execution is everything needed to execute a proposal on chain.
// TransactionHash stays zero until an Executor sent it.
type Execution struct {
	SafeTxHash      common.Hash
	Transaction     *model.MultisigTransaction
	Readiness       signature.Readiness
	Signatures      []byte
	Calldata        []byte
	TransactionHash common.Hash
}

// PrepareExecution checks that the proposal can be executed now and builds
// its execTransaction calldata without sending anything.
func (c *Client) PrepareExecution(ctx context.Context, safe common.Address, hash common.Hash) (*Execution, error) {
	tx, err := c.Transaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	if tx.Safe != safe {
		return nil, fmt.Errorf("%w: %s belongs to %s", ErrWrongSafe, hash.Hex(), tx.Safe.Hex())
	}
	if tx.IsExecuted {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExecuted, hash.Hex())
	}
	info, err := c.AccountInfo(ctx, safe)
	if err != nil {
		return nil, err
	}
	if tx.Nonce != info.Nonce {
		return nil, fmt.Errorf("%w: proposal has %d, safe is at %d", ErrNotNextNonce, tx.Nonce, info.Nonce)
	}
	if err := c.verifyHash(tx, info.Version, hash); err != nil {
		return nil, err
	}

	set := verified(hash, tx.Confirmations)
	readiness := signature.Check(info, set)
	if !readiness.Ready {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, readiness)
	}
	packed, err := signature.Pack(info, set)
	if err != nil {
		return nil, err
	}
	calldata, err := signature.EncodeExecTransaction(tx.SafeTx(), packed)
	if err != nil {
		return nil, err
	}
	return &Execution{
		SafeTxHash:  hash,
		Transaction: tx,
		Readiness:   readiness,
		Signatures:  packed,
		Calldata:    calldata,
	}, nil
}

// Execute prepares the proposal and hands it to the configured Executor.
func (c *Client) Execute(ctx context.Context, safe common.Address, hash common.Hash) (*Execution, error) {
	if c.executor == nil {
		return nil, ErrNoExecutor
	}
	exec, err := c.PrepareExecution(ctx, safe, hash)
	if err != nil {
		return nil, err
	}
	txHash, err := c.executor.Execute(ctx, safe, exec.Calldata)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", hash.Hex(), err)
	}
	exec.TransactionHash = txHash

	monitor.IncExecutions(c.service.ChainID)
	logger.Info("executed safe transaction",
		zap.String("safe", safe.Hex()),
		zap.String("safeTxHash", hash.Hex()),
		zap.String("txHash", txHash.Hex()),
	)
	return exec, nil
}

// verified drops confirmations whose signature does not recover to the
// owner the service attributes it to. On-chain approvals without a
// signature are kept.
func verified(hash common.Hash, set []model.Confirmation) []model.Confirmation {
	out := make([]model.Confirmation, 0, len(set))
	for _, c := range set {
		if len(c.Signature) == 0 {
			if c.SignatureType == model.SignatureApprovedHash {
				out = append(out, c)
			}
			continue
		}
		owner, _, err := signature.Recover(hash, c.Signature)
		if err != nil || owner != c.Owner {
			logger.Warn("ignoring confirmation with bad signature",
				zap.String("safeTxHash", hash.Hex()),
				zap.String("owner", c.Owner.Hex()),
				zap.Error(err),
			)
			continue
		}
		out = append(out, c)
	}
	return out
}
