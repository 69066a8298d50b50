package chain

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/digigaia/kudu/bstream"
)

var ErrInvalidChecksumLen = errors.New("chain: invalid checksum length")

// Bytes is a raw byte string rendered as bare hex in JSON, matching the node
// API convention for action data and packed transactions.
type Bytes []byte

func (b Bytes) String() string { return hex.EncodeToString(b) }

// Pack appends a varuint32 length prefix followed by the bytes.
func (b Bytes) Pack(s *bstream.ByteStream) {
	s.WriteVarBytes(b)
}

// Unpack reads a length-prefixed byte string.
func (b *Bytes) Unpack(s *bstream.ByteStream) error {
	v, err := s.ReadVarBytes()
	if err != nil {
		return err
	}
	*b = append(Bytes(nil), v...)
	return nil
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("chain: invalid hex byte string: %w", err)
	}
	*b = v
	return nil
}

// Checksum160 is a ripemd160 digest.
type Checksum160 [20]byte

// Checksum256 is a sha256 digest. Chain ids, transaction ids and signing
// digests all take this form.
type Checksum256 [32]byte

// Checksum512 is a sha512 digest.
type Checksum512 [64]byte

func (c Checksum160) String() string { return hex.EncodeToString(c[:]) }
func (c Checksum256) String() string { return hex.EncodeToString(c[:]) }
func (c Checksum512) String() string { return hex.EncodeToString(c[:]) }

func (c Checksum160) Pack(s *bstream.ByteStream) { s.WriteBytes(c[:]) }
func (c Checksum256) Pack(s *bstream.ByteStream) { s.WriteBytes(c[:]) }
func (c Checksum512) Pack(s *bstream.ByteStream) { s.WriteBytes(c[:]) }

func (c *Checksum160) Unpack(s *bstream.ByteStream) error {
	b, err := s.ReadBytes(20)
	if err != nil {
		return err
	}
	copy(c[:], b)
	return nil
}

func (c *Checksum256) Unpack(s *bstream.ByteStream) error {
	b, err := s.ReadBytes(32)
	if err != nil {
		return err
	}
	copy(c[:], b)
	return nil
}

func (c *Checksum512) Unpack(s *bstream.ByteStream) error {
	b, err := s.ReadBytes(64)
	if err != nil {
		return err
	}
	copy(c[:], b)
	return nil
}

// NewChecksum256 parses a 64-character hex string.
func NewChecksum256(s string) (Checksum256, error) {
	var c Checksum256
	b, err := hex.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("chain: invalid checksum hex: %w", err)
	}
	if len(b) != 32 {
		return c, fmt.Errorf("%w: want 32 bytes, got %d", ErrInvalidChecksumLen, len(b))
	}
	copy(c[:], b)
	return c, nil
}

func (c Checksum160) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }
func (c Checksum256) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }
func (c Checksum512) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func unmarshalChecksum(data []byte, dst []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("chain: invalid checksum hex: %w", err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidChecksumLen, len(dst), len(b))
	}
	copy(dst, b)
	return nil
}

func (c *Checksum160) UnmarshalJSON(data []byte) error { return unmarshalChecksum(data, c[:]) }
func (c *Checksum256) UnmarshalJSON(data []byte) error { return unmarshalChecksum(data, c[:]) }
func (c *Checksum512) UnmarshalJSON(data []byte) error { return unmarshalChecksum(data, c[:]) }
