package chain

import "github.com/digigaia/kudu/bstream"

// VarUint32 is a 32-bit unsigned integer carried on the wire as ULEB128.
// JSON renders it as a plain number.
type VarUint32 uint32

func (v VarUint32) Pack(s *bstream.ByteStream) {
	s.WriteVaruint32(uint32(v))
}

func (v *VarUint32) Unpack(s *bstream.ByteStream) error {
	u, err := s.ReadVaruint32()
	if err != nil {
		return err
	}
	*v = VarUint32(u)
	return nil
}

// VarInt32 is a 32-bit signed integer carried on the wire zigzag-encoded.
type VarInt32 int32

func (v VarInt32) Pack(s *bstream.ByteStream) {
	s.WriteVarint32(int32(v))
}

func (v *VarInt32) Unpack(s *bstream.ByteStream) error {
	i, err := s.ReadVarint32()
	if err != nil {
		return err
	}
	*v = VarInt32(i)
	return nil
}
