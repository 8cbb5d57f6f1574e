package safeclient

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"safe-core/pkg/logger"
	"safe-core/pkg/model"
	"safe-core/pkg/monitor"
	"safe-core/pkg/nonce"
	"safe-core/pkg/signature"
	"safe-core/pkg/transport"
)

// Propose signs p with signer and submits it to the service. When p.Nonce
// is nil the next free nonce is used; otherwise it is validated against the
// on-chain nonce and the pending queue. The stored proposal is returned.
func (c *Client) Propose(ctx context.Context, safe common.Address, p model.Proposal, signer signature.Signer) (*model.MultisigTransaction, error) {
	if signer == nil {
		return nil, ErrNoSigner
	}
	if !p.Operation.Valid() {
		return nil, fmt.Errorf("%w: %d", model.ErrUnknownOperation, p.Operation)
	}

	if c.lock != nil {
		key := "propose:" + strconv.FormatUint(c.service.ChainID, 10) + ":" + safe.Hex()
		ok, err := c.lock.Acquire(ctx, key, c.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire propose lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLocked, safe.Hex())
		}
		defer func() {
			if err := c.lock.Release(context.WithoutCancel(ctx), key); err != nil {
				logger.Warn("release propose lock", zap.String("safe", safe.Hex()), zap.Error(err))
			}
		}()
	}

	info, err := c.AccountInfo(ctx, safe)
	if err != nil {
		return nil, err
	}
	queued, err := c.Pending(ctx, safe, info.Nonce)
	if err != nil {
		return nil, err
	}
	pending := pendingNonces(queued)

	n := nonce.Next(info.Nonce, nonce.Nonces(pending))
	if p.Nonce != nil {
		n = *p.Nonce
	}
	tx := p.WithNonce(n)
	hash, err := signature.SafeTxHash(c.service.ChainID, safe, info.Version, tx)
	if err != nil {
		return nil, err
	}
	if p.Nonce != nil {
		if err := nonce.Validate(info.Nonce, pending, n, hash); err != nil {
			return nil, err
		}
	}

	conf, err := signature.Sign(ctx, signer, hash)
	if err != nil {
		return nil, err
	}
	if !info.IsOwner(conf.Owner) {
		return nil, fmt.Errorf("%w: %s", ErrNotOwner, conf.Owner.Hex())
	}

	origin := p.Origin
	if origin == "" {
		origin = c.origin
	}
	body := model.NewProposeRequest(tx, hash, conf.Owner, conf.Signature, origin)
	if err := c.http.Post(ctx, safePath(safe, "multisig-transactions/"), body, nil); err != nil {
		return nil, fmt.Errorf("propose %s: %w", hash.Hex(), err)
	}

	stored, err := c.Transaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	if err := c.verifyHash(stored, info.Version, hash); err != nil {
		return nil, err
	}

	monitor.IncProposals(c.service.ChainID)
	logger.Info("proposed safe transaction",
		zap.String("safe", safe.Hex()),
		zap.String("safeTxHash", hash.Hex()),
		zap.Uint64("nonce", n),
		zap.String("sender", conf.Owner.Hex()),
	)
	return stored, nil
}

// Confirm adds signer's confirmation to an existing proposal and returns the
// updated proposal.
func (c *Client) Confirm(ctx context.Context, safe common.Address, hash common.Hash, signer signature.Signer) (*model.MultisigTransaction, error) {
	if signer == nil {
		return nil, ErrNoSigner
	}
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
	if err := c.verifyHash(tx, info.Version, hash); err != nil {
		return nil, err
	}

	conf, err := signature.Sign(ctx, signer, hash)
	if err != nil {
		return nil, err
	}
	if !info.IsOwner(conf.Owner) {
		return nil, fmt.Errorf("%w: %s", ErrNotOwner, conf.Owner.Hex())
	}
	if hasOwner(verified(hash, tx.Confirmations), conf.Owner) {
		logger.Info("owner already confirmed",
			zap.String("safeTxHash", hash.Hex()),
			zap.String("owner", conf.Owner.Hex()),
		)
		return tx, nil
	}

	req := model.ConfirmRequest{Signature: conf.Signature.String()}
	if err := c.http.Post(ctx, txPath(hash, "confirmations/"), req, nil); err != nil {
		return nil, fmt.Errorf("confirm %s: %w", hash.Hex(), err)
	}

	updated, err := c.Transaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	// The service may not list the new confirmation yet.
	if !hasOwner(updated.Confirmations, conf.Owner) {
		updated.Confirmations = signature.Merge(updated.Confirmations, conf)
	}
	monitor.IncConfirmations(c.service.ChainID)
	logger.Info("confirmed safe transaction",
		zap.String("safe", safe.Hex()),
		zap.String("safeTxHash", hash.Hex()),
		zap.String("owner", conf.Owner.Hex()),
		zap.Int("confirmations", len(updated.Confirmations)),
	)
	return updated, nil
}

func hasOwner(set []model.Confirmation, owner common.Address) bool {
	for _, c := range set {
		if c.Owner == owner {
			return true
		}
	}
	return false
}

// verifyHash recomputes the safeTxHash from the service's copy of tx and
// checks it against want.
func (c *Client) verifyHash(tx *model.MultisigTransaction, version string, want common.Hash) error {
	got, err := signature.SafeTxHash(c.service.ChainID, tx.Safe, version, tx.SafeTx())
	if err != nil {
		return err
	}
	if got != want || tx.SafeTxHash != want {
		return &transport.DecodeError{
			URL: c.http.BaseURL() + txPath(want, ""),
			Err: fmt.Errorf("%w: local %s, service %s, recomputed %s", ErrHashMismatch, want.Hex(), tx.SafeTxHash.Hex(), got.Hex()),
		}
	}
	return nil
}
