package abi

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/digigaia/kudu/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDecodesActions(t *testing.T) {
	r := NewRegistry()
	token := chain.MustNewName("eosio.token")
	_, err := r.Register(token, []byte(tokenABI))
	require.NoError(t, err)
	require.NotNil(t, r.Lookup(token))

	data, err := hex.DecodeString(transferHex)
	require.NoError(t, err)
	fields, err := r.DecodeActionData(token, chain.MustNewName("transfer"), data)
	require.NoError(t, err)
	assert.Equal(t, "alice", fields["from"])

	// The registry satisfies the decoder interface the chain package wants.
	act := &chain.Action{
		Account: token,
		Name:    chain.MustNewName("transfer"),
		Data:    chain.Bytes(data),
	}
	decoded, err := act.DecodeData(r)
	require.NoError(t, err)
	assert.Equal(t, "bob", decoded["to"])
}

func TestRegistryMissingAccount(t *testing.T) {
	r := NewRegistry()
	_, err := r.DecodeActionData(chain.MustNewName("ghost"), chain.MustNewName("transfer"), nil)
	assert.True(t, errors.Is(err, chain.ErrABIRequired))
	assert.Nil(t, r.Lookup(chain.MustNewName("ghost")))
}

func TestRegistryReplaceAndAdd(t *testing.T) {
	r := NewRegistry()
	token := chain.MustNewName("eosio.token")

	_, err := r.Register(token, []byte(`{"version": "nope"}`))
	assert.True(t, errors.Is(err, ErrInvalidABI))
	assert.Nil(t, r.Lookup(token))

	a := mustABI(t, tokenABI)
	r.Add(token, a)
	assert.Same(t, a, r.Lookup(token))
}

var _ chain.ActionDecoder = (*Registry)(nil)
