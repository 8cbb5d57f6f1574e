// Package networks lists the public Safe Transaction Service deployments.
package networks

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnknownChain is returned for chain ids without a known service.
var ErrUnknownChain = errors.New("no transaction service known for chain")

// Service identifies one transaction service instance and the chain it indexes.
type Service struct {
	URL     string
	ChainID uint64
}

var (
	Ethereum    = Service{URL: "https://safe-transaction-mainnet.safe.global/", ChainID: 1}
	GnosisChain = Service{URL: "https://safe-transaction-gnosis-chain.safe.global/", ChainID: 100}
	Arbitrum    = Service{URL: "https://safe-transaction-arbitrum.safe.global/", ChainID: 42161}
	Avalanche   = Service{URL: "https://safe-transaction-avalanche.safe.global/", ChainID: 43114}
	Aurora      = Service{URL: "https://safe-transaction-aurora.safe.global/", ChainID: 1313161554}
	BSC         = Service{URL: "https://safe-transaction-bsc.safe.global/", ChainID: 56}
	Optimism    = Service{URL: "https://safe-transaction-optimism.safe.global/", ChainID: 10}
	Polygon     = Service{URL: "https://safe-transaction-polygon.safe.global/", ChainID: 137}
	Base        = Service{URL: "https://safe-transaction-base.safe.global/", ChainID: 8453}
	Sepolia     = Service{URL: "https://safe-transaction-sepolia.safe.global/", ChainID: 11155111}
	Goerli      = Service{URL: "https://safe-transaction-goerli.safe.global/", ChainID: 5}
	EWC         = Service{URL: "https://safe-transaction.ewc.gnosis.io/", ChainID: 246}
	Volta       = Service{URL: "https://safe-transaction.volta.gnosis.io/", ChainID: 73799}
)

var known = []Service{
	Ethereum, GnosisChain, Arbitrum, Avalanche, Aurora, BSC,
	Optimism, Polygon, Base, Sepolia, Goerli, EWC, Volta,
}

// ByChainID returns the public service for chainID.
func ByChainID(chainID uint64) (Service, error) {
	for _, s := range known {
		if s.ChainID == chainID {
			return s, nil
		}
	}
	return Service{}, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
}

// Resolve builds a Service from config: an explicit URL wins, otherwise the
// chain id must be known.
func Resolve(rawURL string, chainID uint64) (Service, error) {
	if rawURL == "" {
		return ByChainID(chainID)
	}
	return New(rawURL, chainID)
}

// New validates rawURL and normalises it to end with a slash so relative
// API paths resolve under it.
func New(rawURL string, chainID uint64) (Service, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Service{}, fmt.Errorf("invalid service url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Service{}, fmt.Errorf("invalid service url %q: scheme must be http or https", rawURL)
	}
	if u.Host == "" {
		return Service{}, fmt.Errorf("invalid service url %q: missing host", rawURL)
	}
	if chainID == 0 {
		return Service{}, errors.New("chain id must be positive")
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return Service{URL: u.String(), ChainID: chainID}, nil
}
