package chain

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/digigaia/kudu/bstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionLevelWireForm(t *testing.T) {
	p, err := NewPermissionLevel("eosio", "active")
	require.NoError(t, err)
	assert.Equal(t, "eosio@active", p.String())

	s := bstream.NewWriter()
	p.Pack(s)
	assert.Equal(t, "0000000000ea305500000000a8ed3232", hex.EncodeToString(s.Bytes()))

	var got PermissionLevel
	require.NoError(t, got.Unpack(bstream.New(s.Bytes())))
	assert.Equal(t, p, got)
}

func TestPermissionLevelRejectsBadNames(t *testing.T) {
	_, err := NewPermissionLevel("EOSIO", "active")
	assert.True(t, errors.Is(err, ErrNameNotNormalized))
	_, err = NewPermissionLevel("eosio", "not a permission")
	assert.True(t, errors.Is(err, ErrNameNotNormalized))
}

func TestPermissionLevelMatchesShape(t *testing.T) {
	p, err := NewPermissionLevel("alice", "active")
	require.NoError(t, err)

	assert.True(t, p.MatchesShape(p))
	assert.True(t, p.MatchesShape(&p))
	assert.True(t, p.MatchesShape(map[string]any{"actor": "alice", "permission": "active"}))
	assert.True(t, p.MatchesShape(map[string]string{"actor": "alice", "permission": "active"}))
	assert.True(t, p.MatchesShape([2]string{"alice", "active"}))
	assert.True(t, p.MatchesShape([]string{"alice", "active"}))

	assert.False(t, p.MatchesShape(map[string]any{"actor": "bob", "permission": "active"}))
	assert.False(t, p.MatchesShape([]string{"alice"}))
	assert.False(t, p.MatchesShape(42))
}

func testAction(t *testing.T) *Action {
	t.Helper()
	auth, err := NewPermissionLevel("alice", "active")
	require.NoError(t, err)
	data, err := hex.DecodeString("0000000000855c340000000000000e3de80300000000000003534f4e000000000479657021")
	require.NoError(t, err)
	return &Action{
		Account:       MustNewName("eosio.token"),
		Name:          MustNewName("transfer"),
		Authorization: []PermissionLevel{auth},
		Data:          Bytes(data),
	}
}

func TestActionWireRoundTrip(t *testing.T) {
	act := testAction(t)
	s := bstream.NewWriter()
	act.Pack(s)

	var got Action
	r := bstream.New(s.Bytes())
	require.NoError(t, got.Unpack(r))
	require.NoError(t, r.AssertEnd())
	assert.Equal(t, act.Account, got.Account)
	assert.Equal(t, act.Name, got.Name)
	assert.Equal(t, act.Authorization, got.Authorization)
	assert.Equal(t, act.Data, got.Data)
}

func TestActionDecodeDataWithoutDecoder(t *testing.T) {
	act := testAction(t)
	_, err := act.DecodeData(nil)
	assert.True(t, errors.Is(err, ErrABIRequired))
	_, err = act.Decoded(nil)
	assert.True(t, errors.Is(err, ErrABIRequired))
}

type staticDecoder map[string]any

func (d staticDecoder) DecodeActionData(account, name Name, data []byte) (map[string]any, error) {
	return d, nil
}

func TestActionDecoded(t *testing.T) {
	act := testAction(t)
	fields := staticDecoder{"from": "alice", "to": "bob"}

	doc, err := act.Decoded(fields)
	require.NoError(t, err)
	assert.Equal(t, "eosio.token", doc["account"])
	assert.Equal(t, "transfer", doc["name"])
	assert.Equal(t, map[string]any(fields), doc["data"])
	auths := doc["authorization"].([]map[string]any)
	require.Len(t, auths, 1)
	assert.Equal(t, "alice", auths[0]["actor"])
}

func TestActionMatchesShape(t *testing.T) {
	act := testAction(t)
	assert.True(t, act.MatchesShape(*act))
	assert.True(t, act.MatchesShape(act))

	assert.True(t, act.MatchesShape(map[string]any{
		"account": "eosio.token",
		"name":    "transfer",
		"authorization": []any{
			map[string]any{"actor": "alice", "permission": "active"},
		},
		"data": act.Data.String(),
	}))

	// A decoded-form payload cannot be verified without an ABI.
	assert.False(t, act.MatchesShape(map[string]any{
		"account": "eosio.token",
		"name":    "transfer",
		"data":    map[string]any{"from": "alice"},
	}))

	assert.False(t, act.MatchesShape(map[string]any{
		"account": "eosio.token",
		"name":    "issue",
	}))
	other := *act
	other.Data = append([]byte(nil), act.Data...)
	other.Data[0] ^= 0xff
	assert.False(t, act.MatchesShape(&other))
}

func TestActionMatchesShapeDecoded(t *testing.T) {
	act := testAction(t)
	dec := staticDecoder{"from": "alice", "to": "bob"}

	assert.True(t, act.MatchesShapeDecoded(map[string]any{
		"account": "eosio.token",
		"name":    "transfer",
		"data":    map[string]any{"from": "alice", "to": "bob"},
	}, dec))

	// Same envelope, different payload.
	assert.False(t, act.MatchesShapeDecoded(map[string]any{
		"account": "eosio.token",
		"name":    "transfer",
		"data":    map[string]any{"from": "alice", "to": "carol"},
	}, dec))

	// No decoder means decoded payloads stay unverifiable.
	assert.False(t, act.MatchesShapeDecoded(map[string]any{
		"account": "eosio.token",
		"name":    "transfer",
		"data":    map[string]any{"from": "alice", "to": "bob"},
	}, nil))
}
