package chain

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/digigaia/kudu/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transferJSON = `{
	"expiration": "2023-05-31T12:00:00",
	"ref_block_num": 12345,
	"ref_block_prefix": 3439362012,
	"max_net_usage_words": 0,
	"max_cpu_usage_ms": 0,
	"delay_sec": 0,
	"context_free_actions": [],
	"actions": [{
		"account": "eosio.token",
		"name": "transfer",
		"authorization": [{"actor": "alice", "permission": "active"}],
		"data": "0000000000855c340000000000000e3de80300000000000003534f4e000000000479657021"
	}],
	"transaction_extensions": []
}`

func testTransaction(t *testing.T) *Transaction {
	t.Helper()
	tx, err := NewTransactionFromJSON([]byte(transferJSON))
	require.NoError(t, err)
	return tx
}

func TestNewTransactionFromJSON(t *testing.T) {
	tx := testTransaction(t)
	assert.Equal(t, "2023-05-31T12:00:00", tx.Expiration.String())
	assert.Equal(t, uint16(12345), tx.RefBlockNum)
	assert.Equal(t, uint32(3439362012), tx.RefBlockPrefix)
	require.Len(t, tx.Actions, 1)
	assert.Equal(t, MustNewName("eosio.token"), tx.Actions[0].Account)
}

func TestNewTransactionFromJSONRejectsNonObjects(t *testing.T) {
	for _, doc := range []string{`"not a transaction"`, `42`, `[1,2,3]`, ``, `   `} {
		_, err := NewTransactionFromJSON([]byte(doc))
		assert.True(t, errors.Is(err, ErrInvalidInput), "input %q", doc)
	}
}

func TestTransactionEncodeGoldenBytes(t *testing.T) {
	tx := testTransaction(t)
	const want = "c03677643930dc7f00cd000000000100a6823403ea3055000000572d3ccdcd01" +
		"0000000000855c3400000000a8ed3232250000000000855c340000000000000e" +
		"3de80300000000000003534f4e00000000047965702100"
	assert.Equal(t, want, hex.EncodeToString(tx.Encode()))
}

func TestTransactionWireRoundTrip(t *testing.T) {
	tx := testTransaction(t)
	packed := tx.Encode()

	got, err := DecodeTransaction(packed)
	require.NoError(t, err)
	assert.Equal(t, tx.TransactionHeader, got.TransactionHeader)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, tx.Actions[0].Data, got.Actions[0].Data)

	// Trailing bytes after a complete transaction are an error.
	_, err = DecodeTransaction(append(packed, 0x00))
	assert.Error(t, err)
}

func TestTransactionJSONRoundTrip(t *testing.T) {
	tx := testTransaction(t)
	blob, err := json.Marshal(tx)
	require.NoError(t, err)
	got, err := NewTransactionFromJSON(blob)
	require.NoError(t, err)
	assert.Equal(t, tx, got)
}

func TestSigningDigestDependsOnChainID(t *testing.T) {
	tx := testTransaction(t)
	chainA, err := NewChecksum256("aca376f206b8fc25a6ed44dbdc66547c36c6c33e3a119ffbeaef943642f0e906")
	require.NoError(t, err)
	chainB, err := NewChecksum256("0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)

	assert.Equal(t, tx.SigningDigest(chainA), tx.SigningDigest(chainA))
	assert.NotEqual(t, tx.SigningDigest(chainA), tx.SigningDigest(chainB))
}

func TestSigningDigestWithContextFreeData(t *testing.T) {
	tx := testTransaction(t)
	chainID, err := NewChecksum256("aca376f206b8fc25a6ed44dbdc66547c36c6c33e3a119ffbeaef943642f0e906")
	require.NoError(t, err)

	assert.Equal(t,
		"92ec53beca09a13000360b946324b0a54691de12947afc4b7c25cff5653a22b3",
		signingDigest(chainID, tx.Encode(), nil).String())

	// With data attached the CFD slot is the hash of the packed vector
	// (01 02 aa bb here), not of the raw blobs.
	cfd := []Bytes{{0xaa, 0xbb}}
	assert.Equal(t, "0102aabb", hex.EncodeToString(encodeContextFreeData(cfd)))
	assert.Equal(t,
		"5ac692c0a0fcb3a9403023cffab1668e350c191f79130b314e5e01b0ac8a4782",
		signingDigest(chainID, tx.Encode(), cfd).String())
}

func TestSignWithContextFreeDataRecovers(t *testing.T) {
	tx := testTransaction(t)
	chainID, err := NewChecksum256("aca376f206b8fc25a6ed44dbdc66547c36c6c33e3a119ffbeaef943642f0e906")
	require.NoError(t, err)
	key, err := crypto.NewPrivateKey("5KQwrPbwdL6PhXujxW37FSSQZ1JiwsST4cqQzDeyXtP79zkvFD3")
	require.NoError(t, err)

	signed := &SignedTransaction{
		Transaction:     *tx,
		ContextFreeData: []Bytes{{0xaa, 0xbb}},
	}
	sig, err := signed.Sign(key, chainID)
	require.NoError(t, err)

	pub, err := key.PublicKey()
	require.NoError(t, err)
	digest := signingDigest(chainID, tx.Encode(), signed.ContextFreeData)
	recovered, err := sig.RecoverPublicKey(digest)
	require.NoError(t, err)
	assert.Equal(t, pub.ModernString(), recovered.ModernString())
}

func TestSignedTransactionSignAndRecover(t *testing.T) {
	tx := testTransaction(t)
	chainID, err := NewChecksum256("aca376f206b8fc25a6ed44dbdc66547c36c6c33e3a119ffbeaef943642f0e906")
	require.NoError(t, err)
	key, err := crypto.NewPrivateKey("5KQwrPbwdL6PhXujxW37FSSQZ1JiwsST4cqQzDeyXtP79zkvFD3")
	require.NoError(t, err)

	signed := &SignedTransaction{Transaction: *tx}
	sig, err := signed.Sign(key, chainID)
	require.NoError(t, err)
	require.Len(t, signed.Signatures, 1)
	assert.True(t, sig.IsCanonical())

	pub, err := key.PublicKey()
	require.NoError(t, err)
	digest := tx.SigningDigest(chainID)
	recovered, err := sig.RecoverPublicKey(digest)
	require.NoError(t, err)
	assert.Equal(t, pub.ModernString(), recovered.ModernString())
}

func TestPackedTransactionRoundTrip(t *testing.T) {
	tx := testTransaction(t)
	signed := &SignedTransaction{Transaction: *tx}

	for _, compression := range []uint8{CompressionNone, CompressionZlib} {
		packed, err := signed.Pack(compression)
		require.NoError(t, err)
		assert.Equal(t, compression, packed.Compression)

		got, err := packed.Unpacked()
		require.NoError(t, err)
		assert.Equal(t, tx.TransactionHeader, got.TransactionHeader)
		require.Len(t, got.Actions, 1)
		assert.Equal(t, tx.Actions[0].Data, got.Actions[0].Data)
	}
}

func TestPackedTransactionID(t *testing.T) {
	tx := testTransaction(t)
	signed := &SignedTransaction{Transaction: *tx}

	plain, err := signed.Pack(CompressionNone)
	require.NoError(t, err)
	compressed, err := signed.Pack(CompressionZlib)
	require.NoError(t, err)

	// The id is the digest of the raw transaction, so compression must not
	// change it.
	idPlain, err := plain.ID()
	require.NoError(t, err)
	idCompressed, err := compressed.ID()
	require.NoError(t, err)
	assert.Equal(t, idPlain, idCompressed)
}

func TestPackedTransactionUnknownCompression(t *testing.T) {
	tx := testTransaction(t)
	signed := &SignedTransaction{Transaction: *tx}
	_, err := signed.Pack(7)
	assert.True(t, errors.Is(err, ErrUnknownCompression))

	packed, err := signed.Pack(CompressionNone)
	require.NoError(t, err)
	packed.Compression = 7
	_, err = packed.Unpacked()
	assert.True(t, errors.Is(err, ErrUnknownCompression))
}
