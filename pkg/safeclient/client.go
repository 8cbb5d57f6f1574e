// Package safeclient is the entry point for talking to a Safe Transaction
// Service: reading Safe state and history, proposing and confirming
// multisig transactions, and executing them once enough owners signed.
package safeclient

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"safe-core/pkg/cache"
	"safe-core/pkg/history"
	"safe-core/pkg/lock"
	"safe-core/pkg/logger"
	"safe-core/pkg/model"
	"safe-core/pkg/networks"
	"safe-core/pkg/nonce"
	"safe-core/pkg/transport"
)

// Client is safe for concurrent use. It holds no per-Safe state: every call
// reads fresh data from the service.
type Client struct {
	service  networks.Service
	http     *transport.Client
	tokens   cache.Cache
	tokenTTL time.Duration
	lock     lock.DistributedLock
	lockTTL  time.Duration
	executor Executor
	origin   string
}

type options struct {
	transport []transport.Option
	tokens    cache.Cache
	tokenTTL  time.Duration
	lock      lock.DistributedLock
	lockTTL   time.Duration
	executor  Executor
	origin    string
}

type Option func(*options)

// WithTransport passes options through to the HTTP transport.
func WithTransport(opts ...transport.Option) Option {
	return func(o *options) { o.transport = append(o.transport, opts...) }
}

// WithTokenCache serves Token lookups from c for ttl.
func WithTokenCache(c cache.Cache, ttl time.Duration) Option {
	return func(o *options) { o.tokens, o.tokenTTL = c, ttl }
}

// WithLock serialises nonce selection and submission per Safe across every
// process sharing l.
func WithLock(l lock.DistributedLock, ttl time.Duration) Option {
	return func(o *options) { o.lock, o.lockTTL = l, ttl }
}

func WithExecutor(e Executor) Option {
	return func(o *options) { o.executor = e }
}

// WithOrigin sets the default origin recorded with new proposals.
func WithOrigin(origin string) Option {
	return func(o *options) { o.origin = origin }
}

func New(service networks.Service, opts ...Option) (*Client, error) {
	o := options{tokenTTL: time.Hour, lockTTL: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if service.ChainID == 0 {
		return nil, fmt.Errorf("%w: chain id 0", networks.ErrUnknownChain)
	}
	tc, err := transport.New(service.URL, o.transport...)
	if err != nil {
		return nil, err
	}
	return &Client{
		service:  service,
		http:     tc,
		tokens:   o.tokens,
		tokenTTL: o.tokenTTL,
		lock:     o.lock,
		lockTTL:  o.lockTTL,
		executor: o.executor,
		origin:   o.origin,
	}, nil
}

func (c *Client) ChainID() uint64 { return c.service.ChainID }

func (c *Client) Service() networks.Service { return c.service }

func safePath(safe common.Address, rest string) string {
	return "api/v1/safes/" + safe.Hex() + "/" + rest
}

func txPath(hash common.Hash, rest string) string {
	return "api/v1/multisig-transactions/" + hash.Hex() + "/" + rest
}

// AccountInfo returns the Safe's owners, threshold and on-chain nonce.
func (c *Client) AccountInfo(ctx context.Context, safe common.Address) (*model.AccountInfo, error) {
	var info model.AccountInfo
	if err := c.http.Get(ctx, safePath(safe, ""), nil, &info); err != nil {
		return nil, fmt.Errorf("account info %s: %w", safe.Hex(), err)
	}
	return &info, nil
}

// History returns a query builder bound to this client.
func (c *Client) History() history.Builder {
	return history.New(c.http)
}

// Pending lists unexecuted proposals at or above fromNonce.
func (c *Client) Pending(ctx context.Context, safe common.Address, fromNonce uint64) ([]model.MultisigTransaction, error) {
	txs, err := c.History().Executed(false).MinNonce(fromNonce).Query(safe).Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending proposals %s: %w", safe.Hex(), err)
	}
	return txs, nil
}

// NextNonce returns the lowest nonce no pending proposal claims.
func (c *Client) NextNonce(ctx context.Context, safe common.Address) (uint64, error) {
	info, err := c.AccountInfo(ctx, safe)
	if err != nil {
		return 0, err
	}
	pending, err := c.Pending(ctx, safe, info.Nonce)
	if err != nil {
		return 0, err
	}
	return nonce.Next(info.Nonce, nonce.Nonces(pendingNonces(pending))), nil
}

func pendingNonces(txs []model.MultisigTransaction) []nonce.Pending {
	out := make([]nonce.Pending, len(txs))
	for i, t := range txs {
		out[i] = nonce.Pending{Nonce: t.Nonce, SafeTxHash: t.SafeTxHash}
	}
	return out
}

// Transaction fetches one multisig transaction by safeTxHash.
func (c *Client) Transaction(ctx context.Context, hash common.Hash) (*model.MultisigTransaction, error) {
	var tx model.MultisigTransaction
	if err := c.http.Get(ctx, txPath(hash, ""), nil, &tx); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", hash.Hex(), err)
	}
	return &tx, nil
}

// EstimateSafeTxGas asks the service how much gas the inner call needs.
func (c *Client) EstimateSafeTxGas(ctx context.Context, safe common.Address, tx model.MetaTransaction) (*big.Int, error) {
	if !tx.Operation.Valid() {
		return nil, fmt.Errorf("%w: %d", model.ErrUnknownOperation, tx.Operation)
	}
	path := safePath(safe, "multisig-transactions/estimations/")
	var resp model.EstimateResponse
	if err := c.http.Post(ctx, path, model.NewEstimateRequest(tx), &resp); err != nil {
		return nil, fmt.Errorf("estimate safeTxGas: %w", err)
	}
	if resp.SafeTxGas == nil {
		return nil, &transport.DecodeError{URL: c.http.BaseURL() + path, Err: fmt.Errorf("missing safeTxGas")}
	}
	return resp.SafeTxGas.Int(), nil
}

// Balances lists the Safe's assets with fiat values.
func (c *Client) Balances(ctx context.Context, safe common.Address, trusted, excludeSpam bool) ([]model.Balance, error) {
	q := url.Values{}
	q.Set("trusted", strconv.FormatBool(trusted))
	q.Set("exclude_spam", strconv.FormatBool(excludeSpam))
	var out []model.Balance
	if err := c.http.Get(ctx, safePath(safe, "balances/usd/"), q, &out); err != nil {
		return nil, fmt.Errorf("balances %s: %w", safe.Hex(), err)
	}
	return out, nil
}

// Token returns metadata for one token, through the token cache when one is
// configured. Cache failures fall back to the service.
func (c *Client) Token(ctx context.Context, addr common.Address) (*model.Token, error) {
	key := "token:" + strconv.FormatUint(c.service.ChainID, 10) + ":" + addr.Hex()
	if c.tokens != nil {
		var cached model.Token
		if err := c.tokens.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	var tok model.Token
	if err := c.http.Get(ctx, "api/v1/tokens/"+addr.Hex()+"/", nil, &tok); err != nil {
		return nil, fmt.Errorf("token %s: %w", addr.Hex(), err)
	}
	if c.tokens != nil {
		if err := c.tokens.Set(ctx, key, &tok, c.tokenTTL); err != nil {
			logger.Warn("token cache set failed", zap.String("token", addr.Hex()), zap.Error(err))
		}
	}
	return &tok, nil
}

// TokenFilter narrows a token listing. Limit caps the number of results,
// 100 when zero. Decimals takes precedence over MinDecimals and MaxDecimals.
type TokenFilter struct {
	Name        string
	Symbol      string
	Address     *common.Address
	Decimals    *int
	MinDecimals *int
	MaxDecimals *int
	Limit       int
	Offset      int
}

// Tokens lists indexed tokens, following pagination until Limit results.
func (c *Client) Tokens(ctx context.Context, f TokenFilter) ([]model.Token, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if f.Name != "" {
		q.Set("name", f.Name)
	}
	if f.Symbol != "" {
		q.Set("symbol", f.Symbol)
	}
	if f.Address != nil {
		q.Set("address", f.Address.Hex())
	}
	// Decimal bounds are strict on the service side.
	switch {
	case f.Decimals != nil:
		q.Set("decimals", strconv.Itoa(*f.Decimals))
	default:
		if f.MinDecimals != nil && *f.MinDecimals > 0 {
			q.Set("decimals__gt", strconv.Itoa(*f.MinDecimals-1))
		}
		if f.MaxDecimals != nil {
			q.Set("decimals__lt", strconv.Itoa(*f.MaxDecimals+1))
		}
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}

	var out []model.Token
	var page model.Page[model.Token]
	if err := c.http.Get(ctx, "api/v1/tokens/", q, &page); err != nil {
		return nil, fmt.Errorf("tokens: %w", err)
	}
	for {
		out = append(out, page.Results...)
		if len(out) >= limit || page.Next == nil {
			break
		}
		next := *page.Next
		page = model.Page[model.Token]{}
		if err := c.http.GetURL(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("tokens: %w", err)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
