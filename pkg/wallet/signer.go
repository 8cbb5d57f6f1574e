// Package wallet holds local owner keys and signs Safe transaction hashes
// with them.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrNoKey = errors.New("no signing key configured")

// KeySigner signs 32-byte digests with a local secp256k1 key.
//
// By default it signs the digest itself and returns v = 27/28. In eth_sign
// mode it signs the EIP-191 prefixed digest and returns v = 31/32, the
// marker Safe uses to recognise such signatures.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	ethSign bool
}

type Option func(*KeySigner)

// EthSign switches the signer to eth_sign mode.
func EthSign() Option {
	return func(s *KeySigner) { s.ethSign = true }
}

func NewKeySigner(key *ecdsa.PrivateKey, opts ...Option) *KeySigner {
	s := &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromHex loads a raw private key, with or without 0x.
func FromHex(hexKey string, opts ...Option) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return NewKeySigner(key, opts...), nil
}

// FromMnemonic derives the key at path (DefaultPath when empty).
func FromMnemonic(mnemonic, passphrase, path string, opts ...Option) (*KeySigner, error) {
	if !ValidMnemonic(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}
	seed, err := Seed(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = DefaultPath
	}
	key, err := DeriveKey(seed, path)
	if err != nil {
		return nil, err
	}
	return NewKeySigner(key, opts...), nil
}

// FromKeystore decrypts filename and loads whatever secret it holds: a
// mnemonic, derived at path, or a hex private key.
func FromKeystore(filename, password, path string, opts ...Option) (*KeySigner, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, err
	}
	k, err := LoadFromFile(filename)
	if err != nil {
		return nil, err
	}
	secret, err := Decrypt(k, password)
	if err != nil {
		return nil, err
	}
	if ValidMnemonic(secret) {
		return FromMnemonic(secret, "", path, opts...)
	}
	return FromHex(secret, opts...)
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

// PrivateKey exposes the key so the same account can pay for execution.
func (s *KeySigner) PrivateKey() *ecdsa.PrivateKey {
	return s.key
}

func (s *KeySigner) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}

	offset := byte(27)
	if s.ethSign {
		digest = accounts.TextHash(digest)
		offset = 31
	}
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return nil, err
	}
	sig[64] += offset
	return sig, nil
}
