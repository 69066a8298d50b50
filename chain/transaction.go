package chain

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/digigaia/kudu/bstream"
	"github.com/digigaia/kudu/crypto"
)

// Compression modes of the packed transaction envelope.
const (
	CompressionNone uint8 = 0
	CompressionZlib uint8 = 1
)

var (
	// ErrInvalidInput marks construction from a value of the wrong shape,
	// e.g. a JSON string where an object is required.
	ErrInvalidInput = errors.New("chain: invalid input shape")
	// ErrUnknownCompression marks an unsupported compression tag.
	ErrUnknownCompression = errors.New("chain: unknown compression mode")
)

// TransactionExtension is an opaque protocol extension slot. JSON renders it
// as a [type, hex] pair, matching the node API.
type TransactionExtension struct {
	Type uint16
	Data Bytes
}

func (e TransactionExtension) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Type, e.Data.String()})
}

func (e *TransactionExtension) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: transaction extension must be a [type, data] pair", ErrInvalidInput)
	}
	if err := json.Unmarshal(pair[0], &e.Type); err != nil {
		return err
	}
	return e.Data.UnmarshalJSON(pair[1])
}

func (e TransactionExtension) Pack(s *bstream.ByteStream) {
	s.WriteU16(e.Type)
	e.Data.Pack(s)
}

func (e *TransactionExtension) Unpack(s *bstream.ByteStream) error {
	v, err := s.ReadU16()
	if err != nil {
		return err
	}
	e.Type = v
	return e.Data.Unpack(s)
}

// TransactionHeader carries the expiration and resource limits common to
// all transactions. Field order is the exact wire order.
type TransactionHeader struct {
	Expiration       TimePointSec `json:"expiration"`
	RefBlockNum      uint16       `json:"ref_block_num"`
	RefBlockPrefix   uint32       `json:"ref_block_prefix"`
	MaxNetUsageWords uint32       `json:"max_net_usage_words"`
	MaxCPUUsageMS    uint8        `json:"max_cpu_usage_ms"`
	DelaySec         uint32       `json:"delay_sec"`
}

func (h *TransactionHeader) Pack(s *bstream.ByteStream) {
	h.Expiration.Pack(s)
	s.WriteU16(h.RefBlockNum)
	s.WriteU32(h.RefBlockPrefix)
	s.WriteVaruint32(h.MaxNetUsageWords)
	s.WriteU8(h.MaxCPUUsageMS)
	s.WriteVaruint32(h.DelaySec)
}

func (h *TransactionHeader) Unpack(s *bstream.ByteStream) error {
	if err := h.Expiration.Unpack(s); err != nil {
		return err
	}
	var err error
	if h.RefBlockNum, err = s.ReadU16(); err != nil {
		return err
	}
	if h.RefBlockPrefix, err = s.ReadU32(); err != nil {
		return err
	}
	if h.MaxNetUsageWords, err = s.ReadVaruint32(); err != nil {
		return err
	}
	if h.MaxCPUUsageMS, err = s.ReadU8(); err != nil {
		return err
	}
	h.DelaySec, err = s.ReadVaruint32()
	return err
}

// Transaction is a header followed by context-free actions, actions and
// extensions, each as a count-prefixed vector.
type Transaction struct {
	TransactionHeader
	ContextFreeActions []Action               `json:"context_free_actions"`
	Actions            []Action               `json:"actions"`
	Extensions         []TransactionExtension `json:"transaction_extensions"`
}

// NewTransactionFromJSON builds a transaction from a JSON object. Inputs
// that are valid JSON but not objects (e.g. a bare string) fail with
// ErrInvalidInput rather than a decoding panic deeper down.
func NewTransactionFromJSON(data []byte) (*Transaction, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: transaction must be a JSON object", ErrInvalidInput)
	}
	tx := new(Transaction)
	if err := json.Unmarshal(data, tx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return tx, nil
}

func packActions(s *bstream.ByteStream, actions []Action) {
	s.WriteVaruint32(uint32(len(actions)))
	for i := range actions {
		actions[i].Pack(s)
	}
}

func unpackActions(s *bstream.ByteStream) ([]Action, error) {
	n, err := s.ReadVaruint32()
	if err != nil {
		return nil, err
	}
	actions := make([]Action, n)
	for i := range actions {
		if err := actions[i].Unpack(s); err != nil {
			return nil, err
		}
	}
	return actions, nil
}

func (tx *Transaction) Pack(s *bstream.ByteStream) {
	tx.TransactionHeader.Pack(s)
	packActions(s, tx.ContextFreeActions)
	packActions(s, tx.Actions)
	s.WriteVaruint32(uint32(len(tx.Extensions)))
	for i := range tx.Extensions {
		tx.Extensions[i].Pack(s)
	}
}

func (tx *Transaction) Unpack(s *bstream.ByteStream) error {
	if err := tx.TransactionHeader.Unpack(s); err != nil {
		return err
	}
	var err error
	if tx.ContextFreeActions, err = unpackActions(s); err != nil {
		return err
	}
	if tx.Actions, err = unpackActions(s); err != nil {
		return err
	}
	n, err := s.ReadVaruint32()
	if err != nil {
		return err
	}
	tx.Extensions = make([]TransactionExtension, n)
	for i := range tx.Extensions {
		if err := tx.Extensions[i].Unpack(s); err != nil {
			return err
		}
	}
	return nil
}

// Encode returns the canonical wire bytes.
func (tx *Transaction) Encode() []byte {
	s := bstream.NewWriter()
	tx.Pack(s)
	return s.Bytes()
}

// DecodeTransaction decodes wire bytes, rejecting trailing garbage.
func DecodeTransaction(data []byte) (*Transaction, error) {
	s := bstream.New(data)
	tx := new(Transaction)
	if err := tx.Unpack(s); err != nil {
		return nil, err
	}
	if err := s.AssertEnd(); err != nil {
		return nil, err
	}
	return tx, nil
}

// SigningDigest computes the digest signed for this transaction on the
// given chain: sha256(chain_id ++ packed_trx ++ cfd_hash), where cfd_hash
// is 32 zero bytes when no context-free data is attached.
func (tx *Transaction) SigningDigest(chainID Checksum256) Checksum256 {
	return signingDigest(chainID, tx.Encode(), nil)
}

func signingDigest(chainID Checksum256, packedTrx []byte, contextFreeData []Bytes) Checksum256 {
	h := sha256.New()
	h.Write(chainID[:])
	h.Write(packedTrx)
	// The CFD slot hashes the packed form (count prefix plus length-prefixed
	// blobs), not the raw blobs.
	var cfdHash [32]byte
	if len(contextFreeData) > 0 {
		cfdHash = sha256.Sum256(encodeContextFreeData(contextFreeData))
	}
	h.Write(cfdHash[:])
	var out Checksum256
	copy(out[:], h.Sum(nil))
	return out
}

// SignedTransaction is a transaction together with the signatures collected
// so far and any context-free data blobs.
type SignedTransaction struct {
	Transaction
	Signatures      []*crypto.Signature `json:"signatures"`
	ContextFreeData []Bytes             `json:"context_free_data"`
}

// Sign appends a signature over the transaction for the given chain.
func (tx *SignedTransaction) Sign(key *crypto.PrivateKey, chainID Checksum256) (*crypto.Signature, error) {
	digest := signingDigest(chainID, tx.Transaction.Encode(), tx.ContextFreeData)
	sig, err := key.Sign(digest)
	if err != nil {
		return nil, err
	}
	tx.Signatures = append(tx.Signatures, sig)
	return sig, nil
}

// Pack builds the submission envelope, compressing the transaction payload
// when mode is CompressionZlib.
func (tx *SignedTransaction) Pack(compression uint8) (*PackedTransaction, error) {
	packedCfd, err := compressPayload(encodeContextFreeData(tx.ContextFreeData), compression)
	if err != nil {
		return nil, err
	}
	if len(tx.ContextFreeData) == 0 {
		packedCfd = nil
	}
	packedTrx, err := compressPayload(tx.Transaction.Encode(), compression)
	if err != nil {
		return nil, err
	}
	return &PackedTransaction{
		Signatures:            append([]*crypto.Signature(nil), tx.Signatures...),
		Compression:           compression,
		PackedContextFreeData: packedCfd,
		PackedTrx:             packedTrx,
	}, nil
}

func encodeContextFreeData(cfd []Bytes) []byte {
	s := bstream.NewWriter()
	s.WriteVaruint32(uint32(len(cfd)))
	for _, blob := range cfd {
		blob.Pack(s)
	}
	return s.Bytes()
}

func compressPayload(data []byte, compression uint8) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil
	case CompressionZlib:
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, compression)
	}
}

func decompressPayload(data []byte, compression uint8) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil
	case CompressionZlib:
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, compression)
	}
}

// PackedTransaction is the envelope submitted to the chain: signatures, a
// compression tag and the (possibly compressed) packed transaction bytes.
type PackedTransaction struct {
	Signatures            []*crypto.Signature `json:"signatures"`
	Compression           uint8               `json:"compression"`
	PackedContextFreeData Bytes               `json:"packed_context_free_data"`
	PackedTrx             Bytes               `json:"packed_trx"`
}

// Unpacked decompresses and decodes the inner transaction.
func (p *PackedTransaction) Unpacked() (*Transaction, error) {
	raw, err := decompressPayload(p.PackedTrx, p.Compression)
	if err != nil {
		return nil, err
	}
	return DecodeTransaction(raw)
}

// ID is the transaction id: sha256 of the uncompressed packed transaction.
func (p *PackedTransaction) ID() (Checksum256, error) {
	raw, err := decompressPayload(p.PackedTrx, p.Compression)
	if err != nil {
		return Checksum256{}, err
	}
	return Checksum256(sha256.Sum256(raw)), nil
}
