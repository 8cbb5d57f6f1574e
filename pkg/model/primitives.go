package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseAddress parses a 20-byte hex address. All-lower or all-upper input is
// accepted as is; mixed case must carry a valid EIP-55 checksum.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		mixed, err := common.NewMixedcaseAddressFromString(s)
		if err != nil {
			return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		if !mixed.ValidChecksum() {
			return common.Address{}, fmt.Errorf("%w: %q", ErrBadChecksum, s)
		}
	}
	return common.HexToAddress(s), nil
}

// BigInt is an unsigned integer that decodes from a JSON number or a decimal
// (or 0x-prefixed hex) string and encodes as a decimal string.
type BigInt big.Int

// NewBigInt copies x. A nil x yields zero.
func NewBigInt(x *big.Int) *BigInt {
	b := new(big.Int)
	if x != nil {
		b.Set(x)
	}
	return (*BigInt)(b)
}

// Int returns a copy of b as a *big.Int; nil reads as zero.
func (b *BigInt) Int() *big.Int {
	if b == nil {
		return new(big.Int)
	}
	return new(big.Int).Set((*big.Int)(b))
}

func (b *BigInt) String() string {
	return b.Int().String()
}

func (b *BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Int().String())
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	v, err := parseUnsigned(data)
	if err != nil {
		return err
	}
	if v == nil {
		v = new(big.Int)
	}
	(*big.Int)(b).Set(v)
	return nil
}

// flexUint64 accepts both 5 and "5"; the service has returned nonces in
// either form across versions.
type flexUint64 uint64

func (f *flexUint64) UnmarshalJSON(data []byte) error {
	v, err := parseUnsigned(data)
	if err != nil {
		return err
	}
	if v == nil {
		*f = 0
		return nil
	}
	if !v.IsUint64() {
		return fmt.Errorf("%w: %s overflows uint64", ErrInvalidNumber, v)
	}
	*f = flexUint64(v.Uint64())
	return nil
}

func parseUnsigned(data []byte) (*big.Int, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidNumber, s)
		}
		s = unq
	}
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidNumber)
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidNumber, string(data))
	}
	return v, nil
}

// Bytes is hex encoded call data or signature bytes. Unlike hexutil.Bytes it
// tolerates JSON null and the empty string.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.Encode(b))
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("hex bytes: %w", err)
	}
	if s == "" || s == "0x" {
		*b = nil
		return nil
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return fmt.Errorf("hex bytes %q: %w", s, err)
	}
	*b = raw
	return nil
}

func (b Bytes) String() string {
	return hexutil.Encode(b)
}
