// Package signature derives Safe transaction hashes and turns owner
// signatures into something execTransaction accepts.
package signature

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/mod/semver"

	"safe-core/pkg/model"
)

var (
	// SafeTxTypeHash is keccak256 of the SafeTx EIP-712 type.
	SafeTxTypeHash = crypto.Keccak256Hash([]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))

	// DomainTypeHash is used from Safe 1.3.0 on, which binds the chain id.
	DomainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))

	// LegacyDomainTypeHash is used by Safe 1.0.0 up to 1.2.x.
	LegacyDomainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(address verifyingContract)"))
)

var (
	bytes32Ty, _ = abi.NewType("bytes32", "", nil)
	addressTy, _ = abi.NewType("address", "", nil)
	uint256Ty, _ = abi.NewType("uint256", "", nil)
	uint8Ty, _   = abi.NewType("uint8", "", nil)

	domainArgs = abi.Arguments{
		{Type: bytes32Ty},
		{Type: uint256Ty},
		{Type: addressTy},
	}
	legacyDomainArgs = abi.Arguments{
		{Type: bytes32Ty},
		{Type: addressTy},
	}
	safeTxArgs = abi.Arguments{
		{Type: bytes32Ty}, // typehash
		{Type: addressTy}, // to
		{Type: uint256Ty}, // value
		{Type: bytes32Ty}, // keccak256(data)
		{Type: uint8Ty},   // operation
		{Type: uint256Ty}, // safeTxGas
		{Type: uint256Ty}, // baseGas
		{Type: uint256Ty}, // gasPrice
		{Type: addressTy}, // gasToken
		{Type: addressTy}, // refundReceiver
		{Type: uint256Ty}, // nonce
	}
)

// usesChainID reports whether a Safe of this version binds chainId in its
// domain. Unknown or unparsable versions are treated as current.
func usesChainID(version string) bool {
	v := strings.TrimSpace(version)
	if v == "" {
		return true
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return true
	}
	return semver.Compare(v, "v1.3.0") >= 0
}

// DomainSeparator returns the EIP-712 domain hash of a Safe.
func DomainSeparator(chainID uint64, safe common.Address, version string) (common.Hash, error) {
	var (
		packed []byte
		err    error
	)
	if usesChainID(version) {
		packed, err = domainArgs.Pack([32]byte(DomainTypeHash), new(big.Int).SetUint64(chainID), safe)
	} else {
		packed, err = legacyDomainArgs.Pack([32]byte(LegacyDomainTypeHash), safe)
	}
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack domain: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// StructHash returns hashStruct(SafeTx).
func StructHash(tx model.SafeTx) (common.Hash, error) {
	if !tx.Operation.Valid() {
		return common.Hash{}, fmt.Errorf("%w: %d", model.ErrUnknownOperation, tx.Operation)
	}
	for name, v := range map[string]*big.Int{
		"value": tx.Value, "safeTxGas": tx.SafeTxGas, "baseGas": tx.BaseGas, "gasPrice": tx.GasPrice,
	} {
		if v != nil && (v.Sign() < 0 || v.BitLen() > 256) {
			return common.Hash{}, fmt.Errorf("%s out of uint256 range: %s", name, v)
		}
	}

	packed, err := safeTxArgs.Pack(
		[32]byte(SafeTxTypeHash),
		tx.To,
		orZero(tx.Value),
		[32]byte(crypto.Keccak256Hash(tx.Data)),
		uint8(tx.Operation),
		orZero(tx.SafeTxGas),
		orZero(tx.BaseGas),
		orZero(tx.GasPrice),
		tx.GasToken,
		tx.RefundReceiver,
		new(big.Int).SetUint64(tx.Nonce),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack safe tx: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// SafeTxHash is keccak256(0x19 0x01 domainSeparator structHash), the value
// owners sign and the service indexes proposals by.
func SafeTxHash(chainID uint64, safe common.Address, version string, tx model.SafeTx) (common.Hash, error) {
	domain, err := DomainSeparator(chainID, safe, version)
	if err != nil {
		return common.Hash{}, err
	}
	structHash, err := StructHash(tx)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domain[:], structHash[:]), nil
}

func orZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}
