package crypto

import (
	"fmt"

	"github.com/digigaia/kudu/bstream"
)

// Wire forms prefix the key or signature bytes with a one-byte curve tag.
// WA material is variable length and not supported on the wire by this
// toolkit.

// Pack appends the curve tag and the compressed key bytes.
func (k *PublicKey) Pack(s *bstream.ByteStream) error {
	if k.Curve == WA {
		return fmt.Errorf("%w: WA public keys have no fixed wire form", ErrUnknownCurve)
	}
	s.WriteU8(byte(k.Curve))
	s.WriteBytes(k.Data)
	return nil
}

// Unpack reads a curve tag followed by 33 key bytes.
func (k *PublicKey) Unpack(s *bstream.ByteStream) error {
	tag, err := s.ReadU8()
	if err != nil {
		return err
	}
	curve := CurveType(tag)
	if curve != K1 && curve != R1 {
		return fmt.Errorf("%w: wire tag %d", ErrUnknownCurve, tag)
	}
	data, err := s.ReadBytes(PublicKeySize)
	if err != nil {
		return err
	}
	k.Curve = curve
	k.Data = append([]byte(nil), data...)
	k.legacy = curve == K1
	return nil
}

// Pack appends the curve tag and the 65 compact signature bytes.
func (s *Signature) Pack(w *bstream.ByteStream) error {
	if s.Curve == WA {
		return fmt.Errorf("%w: WA signatures have no fixed wire form", ErrUnknownCurve)
	}
	w.WriteU8(byte(s.Curve))
	w.WriteBytes(s.Data)
	return nil
}

// Unpack reads a curve tag followed by 65 signature bytes.
func (s *Signature) Unpack(w *bstream.ByteStream) error {
	tag, err := w.ReadU8()
	if err != nil {
		return err
	}
	curve := CurveType(tag)
	if curve != K1 && curve != R1 {
		return fmt.Errorf("%w: wire tag %d", ErrUnknownCurve, tag)
	}
	data, err := w.ReadBytes(SignatureSize)
	if err != nil {
		return err
	}
	s.Curve = curve
	s.Data = append([]byte(nil), data...)
	return nil
}
