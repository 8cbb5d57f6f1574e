package signature

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"safe-core/pkg/model"
)

// Signer is the signing capability supplied by the caller: a wallet, a
// hardware device or a remote KMS. Digest is always a 32-byte safeTxHash.
//
// The returned signature is 65 bytes r||s||v. v = 27/28 means the digest was
// signed directly; v = 31/32 means it was signed as an eth_sign message.
type Signer interface {
	Sign(ctx context.Context, digest []byte) ([]byte, error)
}

var (
	ErrBadSignature = errors.New("malformed signature")
	ErrWrongSigner  = errors.New("signature does not recover to the expected owner")
)

const sigLen = 65

// Sign asks signer for a signature over safeTxHash and returns the resulting
// confirmation with its recovered owner.
func Sign(ctx context.Context, signer Signer, safeTxHash common.Hash) (model.Confirmation, error) {
	sig, err := signer.Sign(ctx, safeTxHash.Bytes())
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("sign %s: %w", safeTxHash.Hex(), err)
	}
	owner, sigType, err := Recover(safeTxHash, sig)
	if err != nil {
		return model.Confirmation{}, err
	}
	return model.Confirmation{
		Owner:          owner,
		SubmissionDate: time.Now().UTC(),
		Signature:      sig,
		SignatureType:  sigType,
	}, nil
}

// Recover returns the owner a Safe would attribute sig to.
//
//	v = 0         contract signature, owner in r
//	v = 1         pre-approved hash, owner in r
//	v = 27, 28    ECDSA over safeTxHash
//	v = 31, 32    ECDSA over the eth_sign prefixed safeTxHash
func Recover(safeTxHash common.Hash, sig []byte) (common.Address, model.SignatureType, error) {
	if len(sig) < sigLen {
		return common.Address{}, "", fmt.Errorf("%w: %d bytes", ErrBadSignature, len(sig))
	}
	v := sig[64]
	switch {
	case v == 0:
		return common.BytesToAddress(sig[12:32]), model.SignatureContract, nil
	case v == 1:
		return common.BytesToAddress(sig[12:32]), model.SignatureApprovedHash, nil
	case v == 27 || v == 28:
		owner, err := ecrecover(safeTxHash.Bytes(), sig[:sigLen], 27)
		return owner, model.SignatureEOA, err
	case v == 31 || v == 32:
		owner, err := ecrecover(accounts.TextHash(safeTxHash.Bytes()), sig[:sigLen], 31)
		return owner, model.SignatureEthSign, err
	}
	return common.Address{}, "", fmt.Errorf("%w: unsupported v %d", ErrBadSignature, v)
}

func ecrecover(digest, sig []byte, offset byte) (common.Address, error) {
	rsv := make([]byte, sigLen)
	copy(rsv, sig)
	rsv[64] -= offset
	pub, err := crypto.SigToPub(digest, rsv)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// ApprovedHashSignature builds the v = 1 signature Safe accepts for an owner
// that called approveHash on chain.
func ApprovedHashSignature(owner common.Address) []byte {
	sig := make([]byte, sigLen)
	copy(sig[12:32], owner.Bytes())
	sig[64] = 1
	return sig
}
