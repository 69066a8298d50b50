// Package bstream implements the primitive binary layer of the Antelope wire
// format: little-endian fixed-width integers, ULEB128 variable-length
// integers, zigzag signed variants and length-prefixed byte strings.
//
// A ByteStream is a flat cursor over a byte buffer. Reads consume from the
// cursor, writes append at the end. All read failures report the offset at
// which decoding stopped.
package bstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTruncated is returned when a read runs past the end of the stream.
	ErrTruncated = errors.New("bstream: unexpected end of stream")
	// ErrVarintOverflow is returned when a variable-length integer does not
	// fit in 32 bits.
	ErrVarintOverflow = errors.New("bstream: varint overflows 32 bits")
	// ErrLeftover is returned by strict decoders when input bytes remain
	// after the value has been fully read.
	ErrLeftover = errors.New("bstream: leftover bytes after decoding")
)

// ByteStream is a read/write cursor over an in-memory byte buffer.
// The zero value is an empty stream ready for writing.
type ByteStream struct {
	buf []byte
	pos int
}

// New returns a stream reading from data. The slice is not copied.
func New(data []byte) *ByteStream {
	return &ByteStream{buf: data}
}

// NewWriter returns an empty stream ready for appending.
func NewWriter() *ByteStream {
	return &ByteStream{}
}

// Bytes returns the full underlying buffer, including already-read bytes.
func (s *ByteStream) Bytes() []byte { return s.buf }

// Pos returns the current read offset.
func (s *ByteStream) Pos() int { return s.pos }

// Remaining returns the number of unread bytes.
func (s *ByteStream) Remaining() int { return len(s.buf) - s.pos }

// AssertEnd returns ErrLeftover unless the stream has been fully consumed.
func (s *ByteStream) AssertEnd() error {
	if s.Remaining() != 0 {
		return fmt.Errorf("%w: %d bytes remaining at offset %d", ErrLeftover, s.Remaining(), s.pos)
	}
	return nil
}

func (s *ByteStream) read(n int) ([]byte, error) {
	if s.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, s.pos, s.Remaining())
	}
	out := s.buf[s.pos : s.pos+n]
	s.pos += n
	return out, nil
}

// ReadBytes consumes and returns exactly n bytes.
func (s *ByteStream) ReadBytes(n int) ([]byte, error) {
	return s.read(n)
}

// ReadByte consumes a single byte.
func (s *ByteStream) ReadByte() (byte, error) {
	b, err := s.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *ByteStream) ReadU8() (uint8, error) { return s.ReadByte() }

func (s *ByteStream) ReadU16() (uint16, error) {
	b, err := s.read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (s *ByteStream) ReadU32() (uint32, error) {
	b, err := s.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s *ByteStream) ReadU64() (uint64, error) {
	b, err := s.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadU128 returns the little-endian 16-byte value as (lo, hi) words.
func (s *ByteStream) ReadU128() (lo, hi uint64, err error) {
	b, err := s.read(16)
	if err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:]), nil
}

func (s *ByteStream) ReadI8() (int8, error) {
	v, err := s.ReadByte()
	return int8(v), err
}

func (s *ByteStream) ReadI16() (int16, error) {
	v, err := s.ReadU16()
	return int16(v), err
}

func (s *ByteStream) ReadI32() (int32, error) {
	v, err := s.ReadU32()
	return int32(v), err
}

func (s *ByteStream) ReadI64() (int64, error) {
	v, err := s.ReadU64()
	return int64(v), err
}

func (s *ByteStream) ReadF32() (float32, error) {
	v, err := s.ReadU32()
	return math.Float32frombits(v), err
}

func (s *ByteStream) ReadF64() (float64, error) {
	v, err := s.ReadU64()
	return math.Float64frombits(v), err
}

// ReadVaruint32 decodes a ULEB128 unsigned integer of at most 32 bits.
func (s *ByteStream) ReadVaruint32() (uint32, error) {
	var out uint64
	var shift uint
	for {
		b, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		out |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 35 {
			return 0, fmt.Errorf("%w: at offset %d", ErrVarintOverflow, s.pos)
		}
	}
	if out > math.MaxUint32 {
		return 0, fmt.Errorf("%w: value %d", ErrVarintOverflow, out)
	}
	return uint32(out), nil
}

// ReadVarint32 decodes a zigzag-encoded signed integer of at most 32 bits.
func (s *ByteStream) ReadVarint32() (int32, error) {
	u, err := s.ReadVaruint32()
	if err != nil {
		return 0, err
	}
	return int32(u>>1) ^ -int32(u&1), nil
}

// ReadVarBytes decodes a varuint32 length prefix followed by that many bytes.
func (s *ByteStream) ReadVarBytes() ([]byte, error) {
	n, err := s.ReadVaruint32()
	if err != nil {
		return nil, err
	}
	return s.read(int(n))
}

// ReadString decodes a length-prefixed UTF-8 string.
func (s *ByteStream) ReadString() (string, error) {
	b, err := s.ReadVarBytes()
	return string(b), err
}

// ReadBool decodes a single presence byte. Any nonzero value is true.
func (s *ByteStream) ReadBool() (bool, error) {
	b, err := s.ReadByte()
	return b != 0, err
}

func (s *ByteStream) WriteBytes(b []byte) {
	s.buf = append(s.buf, b...)
}

// WriteU8 appends a single byte.
func (s *ByteStream) WriteU8(v uint8) {
	s.buf = append(s.buf, v)
}

func (s *ByteStream) WriteU16(v uint16) {
	s.buf = binary.LittleEndian.AppendUint16(s.buf, v)
}

func (s *ByteStream) WriteU32(v uint32) {
	s.buf = binary.LittleEndian.AppendUint32(s.buf, v)
}

func (s *ByteStream) WriteU64(v uint64) {
	s.buf = binary.LittleEndian.AppendUint64(s.buf, v)
}

// WriteU128 writes the (lo, hi) words as a little-endian 16-byte value.
func (s *ByteStream) WriteU128(lo, hi uint64) {
	s.WriteU64(lo)
	s.WriteU64(hi)
}

func (s *ByteStream) WriteI8(v int8)   { s.WriteU8(byte(v)) }
func (s *ByteStream) WriteI16(v int16) { s.WriteU16(uint16(v)) }
func (s *ByteStream) WriteI32(v int32) { s.WriteU32(uint32(v)) }
func (s *ByteStream) WriteI64(v int64) { s.WriteU64(uint64(v)) }

func (s *ByteStream) WriteF32(v float32) { s.WriteU32(math.Float32bits(v)) }
func (s *ByteStream) WriteF64(v float64) { s.WriteU64(math.Float64bits(v)) }

// WriteVaruint32 encodes v as ULEB128.
func (s *ByteStream) WriteVaruint32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		s.WriteU8(b)
		if v == 0 {
			return
		}
	}
}

// WriteVarint32 encodes v with zigzag mapping then ULEB128.
func (s *ByteStream) WriteVarint32(v int32) {
	s.WriteVaruint32(uint32((v << 1) ^ (v >> 31)))
}

// WriteVarBytes writes a varuint32 length prefix followed by b.
func (s *ByteStream) WriteVarBytes(b []byte) {
	s.WriteVaruint32(uint32(len(b)))
	s.WriteBytes(b)
}

// WriteString writes a length-prefixed UTF-8 string.
func (s *ByteStream) WriteString(v string) {
	s.WriteVaruint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *ByteStream) WriteBool(v bool) {
	if v {
		s.WriteU8(1)
	} else {
		s.WriteU8(0)
	}
}
