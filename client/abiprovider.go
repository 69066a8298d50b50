package client

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/digigaia/kudu/abi"
	"github.com/digigaia/kudu/chain"
)

// ABIProvider resolves the ABI of a contract account.
type ABIProvider interface {
	GetABI(ctx context.Context, account chain.Name) (*abi.ABI, error)
}

// CachedABIProvider fetches ABIs from a node and keeps parsed copies in an
// LRU cache, optionally backed by an on-disk store that survives restarts.
// It implements chain.ActionDecoder so it can be handed directly to
// Action.Decoded.
type CachedABIProvider struct {
	client *Client
	cache  *lru.Cache
	store  *ABIStore
	log    *zap.Logger
}

// ProviderOption configures a CachedABIProvider.
type ProviderOption func(*CachedABIProvider)

// WithStore persists fetched ABI documents to an on-disk store.
func WithStore(store *ABIStore) ProviderOption {
	return func(p *CachedABIProvider) { p.store = store }
}

// WithProviderLogger attaches a logger.
func WithProviderLogger(log *zap.Logger) ProviderOption {
	return func(p *CachedABIProvider) { p.log = log }
}

// NewCachedABIProvider creates a provider caching up to size parsed ABIs.
func NewCachedABIProvider(c *Client, size int, opts ...ProviderOption) (*CachedABIProvider, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	p := &CachedABIProvider{client: c, cache: cache, log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// GetABI resolves the ABI for an account: memory cache first, then the
// on-disk store, then the node. Fetches populate both layers.
func (p *CachedABIProvider) GetABI(ctx context.Context, account chain.Name) (*abi.ABI, error) {
	if cached, ok := p.cache.Get(account); ok {
		return cached.(*abi.ABI), nil
	}
	if p.store != nil {
		if doc, err := p.store.Get(account); err == nil {
			parsed, err := abi.New(doc)
			if err == nil {
				p.cache.Add(account, parsed)
				return parsed, nil
			}
			p.log.Warn("discarding stored ABI", zap.Stringer("account", account), zap.Error(err))
		}
	}
	doc, err := p.client.GetRawABIDocument(ctx, account)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.New(doc)
	if err != nil {
		return nil, fmt.Errorf("parsing ABI of %s: %w", account, err)
	}
	p.cache.Add(account, parsed)
	if p.store != nil {
		if err := p.store.Put(account, doc); err != nil {
			p.log.Warn("persisting ABI failed", zap.Stringer("account", account), zap.Error(err))
		}
	}
	p.log.Debug("fetched ABI", zap.Stringer("account", account))
	return parsed, nil
}

// Invalidate drops an account's ABI from the memory cache, forcing a
// refetch on next use. The on-disk copy is replaced by the refetch.
func (p *CachedABIProvider) Invalidate(account chain.Name) {
	p.cache.Remove(account)
}

// DecodeActionData implements chain.ActionDecoder.
func (p *CachedABIProvider) DecodeActionData(account, name chain.Name, data []byte) (map[string]any, error) {
	parsed, err := p.GetABI(context.Background(), account)
	if err != nil {
		return nil, fmt.Errorf("%w: account %s: %v", chain.ErrABIRequired, account, err)
	}
	return parsed.DecodeAction(name, data)
}

// EncodeActionData is the inverse convenience: it encodes named fields into
// action data using the account's ABI.
func (p *CachedABIProvider) EncodeActionData(ctx context.Context, account, name chain.Name, fields any) ([]byte, error) {
	parsed, err := p.GetABI(ctx, account)
	if err != nil {
		return nil, err
	}
	return parsed.EncodeAction(name, fields)
}

var _ chain.ActionDecoder = (*CachedABIProvider)(nil)
