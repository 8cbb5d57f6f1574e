package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Page is one page of a paginated listing. Next is the absolute URL of the
// following page, nil on the last one.
type Page[T any] struct {
	Count    uint64  `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type TokenType string

const (
	TokenERC20   TokenType = "ERC20"
	TokenERC721  TokenType = "ERC721"
	TokenERC1155 TokenType = "ERC1155"
	TokenNative  TokenType = "NATIVE_TOKEN"
)

// Token is token metadata indexed by the service.
type Token struct {
	Type     TokenType      `json:"type"`
	Address  common.Address `json:"address"`
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Decimals *int           `json:"decimals"`
	LogoURI  string         `json:"logoUri"`
}

type BalanceToken struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	LogoURI  string `json:"logoUri"`
}

// Balance is one asset held by a Safe. TokenAddress and Token are nil for
// the chain's native coin.
type Balance struct {
	TokenAddress   *common.Address `json:"tokenAddress"`
	Token          *BalanceToken   `json:"token"`
	Balance        *BigInt         `json:"balance"`
	EthValue       decimal.Decimal `json:"ethValue"`
	Timestamp      *time.Time      `json:"timestamp"`
	FiatBalance    decimal.Decimal `json:"fiatBalance"`
	FiatConversion decimal.Decimal `json:"fiatConversion"`
	FiatCode       string          `json:"fiatCode"`
}

// Amount scales the raw balance by the token decimals (18 for the native
// coin).
func (b Balance) Amount() decimal.Decimal {
	decimals := int32(18)
	if b.Token != nil {
		decimals = int32(b.Token.Decimals)
	}
	return decimal.NewFromBigInt(b.Balance.Int(), -decimals)
}
