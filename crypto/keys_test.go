package crypto

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wifFD3       = "5KQwrPbwdL6PhXujxW37FSSQZ1JiwsST4cqQzDeyXtP79zkvFD3"
	pvtK1FD3     = "PVT_K1_2bfGi9rYsXQSXXTvJbDAPhHLQUojjaNLomdm3cEJ1XTzMqUt3V"
	legacyPubFD3 = "EOS6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5GDW5CV"
	modernPubFD3 = "PUB_K1_6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5BoDq63"
)

func TestWIFPrivateKey(t *testing.T) {
	key, err := NewPrivateKey(wifFD3)
	require.NoError(t, err)
	assert.Equal(t, K1, key.Curve)
	// Keys parsed from WIF render back as WIF.
	assert.Equal(t, wifFD3, key.String())
	assert.Equal(t, pvtK1FD3, key.ModernString())

	pub, err := key.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, legacyPubFD3, pub.String())
	assert.Equal(t, modernPubFD3, pub.ModernString())
}

func TestModernPrivateKey(t *testing.T) {
	key, err := NewPrivateKey(pvtK1FD3)
	require.NoError(t, err)
	assert.Equal(t, K1, key.Curve)
	// Keys parsed from the modern form render back in the modern form.
	assert.Equal(t, pvtK1FD3, key.String())
	wif, err := key.LegacyString()
	require.NoError(t, err)
	assert.Equal(t, wifFD3, wif)

	pub, err := key.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, modernPubFD3, pub.String())
}

func TestR1PrivateKeyRoundTrip(t *testing.T) {
	const text = "PVT_R1_PtoxLPzJZURZmPS4e26pjBiAn41mkkLPrET5qHnwDvbvqFEL6"
	key, err := NewPrivateKey(text)
	require.NoError(t, err)
	assert.Equal(t, R1, key.Curve)
	assert.Equal(t, text, key.String())

	pub, err := key.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, R1, pub.Curve)
	assert.Equal(t, "PUB_R1_", pub.String()[:7])

	// R1 keys have no legacy forms.
	_, err = key.LegacyString()
	assert.True(t, errors.Is(err, ErrInvalidKeyFormat))
	_, err = pub.LegacyString()
	assert.True(t, errors.Is(err, ErrInvalidKeyFormat))
}

func TestPublicKeyRoundTrip(t *testing.T) {
	// The all-zero key is a valid byte string even if no private key maps
	// to it.
	const zeros = "EOS1111111111111111111111111111111114T1Anm"
	pub, err := NewPublicKey(zeros)
	require.NoError(t, err)
	assert.Equal(t, zeros, pub.String())
	for _, b := range pub.Data {
		assert.Zero(t, b)
	}

	modern, err := NewPublicKey(modernPubFD3)
	require.NoError(t, err)
	assert.Equal(t, modernPubFD3, modern.String())
	legacy, err := NewPublicKey(legacyPubFD3)
	require.NoError(t, err)
	assert.Equal(t, legacyPubFD3, legacy.String())
	// Same key material, different text renderings.
	assert.Equal(t, modern.Data, legacy.Data)
}

func TestKeyParsingErrors(t *testing.T) {
	// Corrupted checksum.
	_, err := NewPublicKey("EOS6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5GDW5CW")
	assert.True(t, errors.Is(err, ErrChecksumMismatch))

	_, err = NewPublicKey("PUB_X9_aaaa")
	assert.True(t, errors.Is(err, ErrUnknownCurve))

	_, err = NewPublicKey("not a key")
	assert.Error(t, err)

	_, err = NewPrivateKey("5KQwr")
	assert.True(t, errors.Is(err, ErrInvalidKeyFormat))
}

func TestWAKeysAreTextOnly(t *testing.T) {
	key, err := GeneratePrivateKey(K1)
	require.NoError(t, err)
	pub, err := key.PublicKey()
	require.NoError(t, err)

	// Wire form takes a curve tag byte then the key bytes; WA never packs.
	wa := &PublicKey{Curve: WA, Data: pub.Data}
	assert.Equal(t, "PUB_WA_", wa.ModernString()[:7])
}

func TestGeneratePrivateKey(t *testing.T) {
	for _, curve := range []CurveType{K1, R1} {
		key, err := GeneratePrivateKey(curve)
		require.NoError(t, err)
		assert.Equal(t, curve, key.Curve)
		assert.Len(t, key.Data, PrivateKeySize)

		// Round-trip through text.
		parsed, err := NewPrivateKey(key.ModernString())
		require.NoError(t, err)
		assert.Equal(t, key.Data, parsed.Data)
	}
	_, err := GeneratePrivateKey(WA)
	assert.True(t, errors.Is(err, ErrUnknownCurve))
}

func TestKeyJSON(t *testing.T) {
	key, err := NewPrivateKey(wifFD3)
	require.NoError(t, err)
	blob, err := json.Marshal(key)
	require.NoError(t, err)
	assert.Equal(t, `"`+wifFD3+`"`, string(blob))

	var got PrivateKey
	require.NoError(t, json.Unmarshal(blob, &got))
	assert.Equal(t, key.Data, got.Data)

	pub, err := key.PublicKey()
	require.NoError(t, err)
	blob, err = json.Marshal(pub)
	require.NoError(t, err)
	assert.Equal(t, `"`+legacyPubFD3+`"`, string(blob))
}
