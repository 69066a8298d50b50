package abi

import (
	"fmt"
	"sync"

	"github.com/digigaia/kudu/chain"
)

// Registry is an in-memory map from contract account to parsed ABI. It
// implements chain.ActionDecoder, so actions can be decoded against
// whatever set of contracts the caller has registered. Safe for concurrent
// use.
type Registry struct {
	mu   sync.RWMutex
	abis map[chain.Name]*ABI
}

func NewRegistry() *Registry {
	return &Registry{abis: make(map[chain.Name]*ABI)}
}

// Register parses and stores the ABI document for an account, replacing any
// previous one.
func (r *Registry) Register(account chain.Name, doc []byte) (*ABI, error) {
	a, err := New(doc)
	if err != nil {
		return nil, fmt.Errorf("registering ABI for %s: %w", account, err)
	}
	r.mu.Lock()
	r.abis[account] = a
	r.mu.Unlock()
	return a, nil
}

// Add stores an already-parsed ABI for an account.
func (r *Registry) Add(account chain.Name, a *ABI) {
	r.mu.Lock()
	r.abis[account] = a
	r.mu.Unlock()
}

// Lookup returns the ABI registered for an account, or nil.
func (r *Registry) Lookup(account chain.Name) *ABI {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.abis[account]
}

// DecodeActionData decodes an action payload against the registered ABI of
// its account. It fails with chain.ErrABIRequired when none is registered.
func (r *Registry) DecodeActionData(account, name chain.Name, data []byte) (map[string]any, error) {
	a := r.Lookup(account)
	if a == nil {
		return nil, fmt.Errorf("%w: account %s", chain.ErrABIRequired, account)
	}
	return a.DecodeAction(name, data)
}
