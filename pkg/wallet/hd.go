package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultPath is the first account of the standard Ethereum BIP-44 tree.
const DefaultPath = "m/44'/60'/0'/0/0"

var (
	ErrInvalidSeed = errors.New("invalid seed length")
	ErrInvalidPath = errors.New("invalid derivation path")
)

// ParsePath turns "m/44'/60'/0'/0/0" (or with h for hardened) into child
// indexes.
func ParsePath(path string) ([]uint32, error) {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "m")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil, nil
	}

	var out []uint32
	for _, segment := range strings.Split(path, "/") {
		hardened := false
		if strings.HasSuffix(segment, "'") || strings.HasSuffix(segment, "h") {
			hardened = true
			segment = segment[:len(segment)-1]
		}
		val, err := strconv.ParseUint(segment, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %q", ErrInvalidPath, segment)
		}
		index := uint32(val)
		if hardened {
			index += hdkeychain.HardenedKeyStart
		}
		out = append(out, index)
	}
	return out, nil
}

// DeriveKey walks path from the BIP-32 master key of seed and returns the
// secp256k1 private key at the leaf.
func DeriveKey(seed []byte, path string) (*ecdsa.PrivateKey, error) {
	if len(seed) < hdkeychain.MinSeedBytes || len(seed) > hdkeychain.MaxSeedBytes {
		return nil, ErrInvalidSeed
	}
	indexes, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	// The network only affects xprv serialisation, never the key material.
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	for _, index := range indexes {
		key, err = key.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", index, err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return crypto.ToECDSA(priv.Serialize())
}
