package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignK1Deterministic(t *testing.T) {
	key, err := NewPrivateKey(wifFD3)
	require.NoError(t, err)
	digest := sha256.Sum256([]byte("payload"))

	a, err := key.Sign(digest)
	require.NoError(t, err)
	b, err := key.Sign(digest)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
	assert.True(t, strings.HasPrefix(a.String(), "SIG_K1_"))
}

func TestSignK1Canonical(t *testing.T) {
	key, err := NewPrivateKey(wifFD3)
	require.NoError(t, err)

	// Every signature must come out canonical, whatever the digest.
	for i := 0; i < 32; i++ {
		digest := sha256.Sum256([]byte(fmt.Sprintf("message %d", i)))
		sig, err := key.Sign(digest)
		require.NoError(t, err)
		assert.True(t, sig.IsCanonical(), "digest %d", i)
		require.Len(t, sig.Data, SignatureSize)
		// Header byte carries 27 + 4 + recid with recid in 0..3.
		assert.GreaterOrEqual(t, sig.Data[0], byte(31))
		assert.LessOrEqual(t, sig.Data[0], byte(34))
	}
}

func TestSignAndRecoverK1(t *testing.T) {
	key, err := NewPrivateKey(wifFD3)
	require.NoError(t, err)
	pub, err := key.PublicKey()
	require.NoError(t, err)
	digest := sha256.Sum256([]byte("recover me"))

	sig, err := key.Sign(digest)
	require.NoError(t, err)
	recovered, err := sig.RecoverPublicKey(digest)
	require.NoError(t, err)
	assert.Equal(t, pub.Data, recovered.Data)
	assert.True(t, sig.Verify(digest, pub))

	// A different digest must not verify.
	other := sha256.Sum256([]byte("different"))
	assert.False(t, sig.Verify(other, pub))
}

func TestSignAndRecoverR1(t *testing.T) {
	key, err := NewPrivateKey("PVT_R1_PtoxLPzJZURZmPS4e26pjBiAn41mkkLPrET5qHnwDvbvqFEL6")
	require.NoError(t, err)
	pub, err := key.PublicKey()
	require.NoError(t, err)
	digest := sha256.Sum256([]byte("recover me"))

	sig, err := key.Sign(digest)
	require.NoError(t, err)
	assert.True(t, sig.IsCanonical())
	assert.True(t, strings.HasPrefix(sig.String(), "SIG_R1_"))

	recovered, err := sig.RecoverPublicKey(digest)
	require.NoError(t, err)
	assert.Equal(t, pub.Data, recovered.Data)
	assert.True(t, sig.Verify(digest, pub))
}

func TestSignatureTextRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey(K1)
	require.NoError(t, err)
	digest := sha256.Sum256([]byte("text round trip"))
	sig, err := key.Sign(digest)
	require.NoError(t, err)

	parsed, err := NewSignature(sig.String())
	require.NoError(t, err)
	assert.Equal(t, sig.Curve, parsed.Curve)
	assert.Equal(t, sig.Data, parsed.Data)
}

func TestSignatureParsingErrors(t *testing.T) {
	_, err := NewSignature("EOS6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5GDW5CV")
	assert.True(t, errors.Is(err, ErrInvalidKeyFormat))
	_, err = NewSignature("SIG_K1_abc")
	assert.Error(t, err)
}

func TestWACannotSign(t *testing.T) {
	key := &PrivateKey{Curve: WA, Data: make([]byte, PrivateKeySize)}
	_, err := key.Sign(sha256.Sum256([]byte("x")))
	assert.True(t, errors.Is(err, ErrUnknownCurve))
}
