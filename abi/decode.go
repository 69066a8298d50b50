package abi

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/digigaia/kudu/bstream"
	"github.com/digigaia/kudu/chain"
	"github.com/digigaia/kudu/crypto"
)

// Decode translates binary data into a JSON-friendly value of the named
// type. Trailing bytes are an error: a payload must be consumed exactly.
func (a *ABI) Decode(typeName string, data []byte) (any, error) {
	s := bstream.New(data)
	v, err := a.decodeType(s, typeName)
	if err != nil {
		return nil, err
	}
	if err := s.AssertEnd(); err != nil {
		return nil, fmt.Errorf("%w: type %q: %v", ErrDecode, typeName, err)
	}
	return v, nil
}

// DecodeAction decodes an action payload using the struct registered for
// the action name.
func (a *ABI) DecodeAction(name chain.Name, data []byte) (map[string]any, error) {
	structName := a.ActionType(name)
	if structName == "" {
		return nil, fmt.Errorf("%w: no action %q in ABI", ErrUnknownType, name)
	}
	v, err := a.Decode(structName, data)
	if err != nil {
		return nil, err
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: action type %q is not a struct", ErrDecode, structName)
	}
	return fields, nil
}

// DecodeTableRow decodes a table row using the struct registered for the
// table name.
func (a *ABI) DecodeTableRow(table chain.Name, data []byte) (map[string]any, error) {
	structName := a.TableType(table)
	if structName == "" {
		return nil, fmt.Errorf("%w: no table %q in ABI", ErrUnknownType, table)
	}
	v, err := a.Decode(structName, data)
	if err != nil {
		return nil, err
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: table type %q is not a struct", ErrDecode, structName)
	}
	return fields, nil
}

func (a *ABI) decodeType(s *bstream.ByteStream, typeName string) (any, error) {
	switch {
	case strings.HasSuffix(typeName, "$"):
		// Binary extensions at the tail of a struct; the caller handles the
		// absent case, here the data is present.
		return a.decodeType(s, strings.TrimSuffix(typeName, "$"))
	case strings.HasSuffix(typeName, "[]"):
		inner := strings.TrimSuffix(typeName, "[]")
		n, err := s.ReadVaruint32()
		if err != nil {
			return nil, fmt.Errorf("%w: array count of %q: %v", ErrDecode, typeName, err)
		}
		out := make([]any, 0, n)
		for i := uint32(0); i < n; i++ {
			v, err := a.decodeType(s, inner)
			if err != nil {
				return nil, fmt.Errorf("%w: element %d of %q: %v", ErrDecode, i, typeName, err)
			}
			out = append(out, v)
		}
		return out, nil
	case strings.HasSuffix(typeName, "?"):
		present, err := s.ReadBool()
		if err != nil {
			return nil, fmt.Errorf("%w: presence flag of %q: %v", ErrDecode, typeName, err)
		}
		if !present {
			return nil, nil
		}
		return a.decodeType(s, strings.TrimSuffix(typeName, "?"))
	}

	name := a.resolveAlias(typeName)
	if name != typeName {
		// The alias target may itself carry a suffix.
		return a.decodeType(s, name)
	}
	if isBuiltin(name) {
		return a.decodeBuiltin(s, name)
	}
	if v, ok := a.variants[name]; ok {
		tag, err := s.ReadVaruint32()
		if err != nil {
			return nil, fmt.Errorf("%w: variant tag of %q: %v", ErrDecode, name, err)
		}
		if int(tag) >= len(v.Types) {
			return nil, fmt.Errorf("%w: variant %q tag %d out of range", ErrDecode, name, tag)
		}
		alt := v.Types[tag]
		inner, err := a.decodeType(s, alt)
		if err != nil {
			return nil, err
		}
		return []any{alt, inner}, nil
	}
	if st, ok := a.structs[name]; ok {
		out := make(map[string]any)
		if err := a.decodeStructInto(s, st, out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q at offset %d", ErrUnknownType, typeName, s.Pos())
}

func (a *ABI) decodeStructInto(s *bstream.ByteStream, st *Struct, out map[string]any) error {
	if st.Base != "" {
		base := a.structs[a.resolveAlias(st.Base)]
		if err := a.decodeStructInto(s, base, out); err != nil {
			return err
		}
	}
	for _, f := range st.Fields {
		if strings.HasSuffix(f.Type, "$") && s.Remaining() == 0 {
			// A missing binary extension ends the struct.
			break
		}
		v, err := a.decodeType(s, f.Type)
		if err != nil {
			return fmt.Errorf("%w: field %s.%s: %v", ErrDecode, st.Name, f.Name, err)
		}
		out[f.Name] = v
	}
	return nil
}

func (a *ABI) decodeBuiltin(s *bstream.ByteStream, name string) (any, error) {
	wrap := func(v any, err error) (any, error) {
		if err != nil {
			return nil, fmt.Errorf("%w: %s at offset %d: %v", ErrDecode, name, s.Pos(), err)
		}
		return v, nil
	}
	switch name {
	case "bool":
		return wrap(s.ReadBool())
	case "int8":
		v, err := s.ReadI8()
		return wrap(int64(v), err)
	case "int16":
		v, err := s.ReadI16()
		return wrap(int64(v), err)
	case "int32":
		v, err := s.ReadI32()
		return wrap(int64(v), err)
	case "int64":
		v, err := s.ReadI64()
		return wrap(v, err)
	case "uint8":
		v, err := s.ReadU8()
		return wrap(uint64(v), err)
	case "uint16":
		v, err := s.ReadU16()
		return wrap(uint64(v), err)
	case "uint32":
		v, err := s.ReadU32()
		return wrap(uint64(v), err)
	case "uint64":
		v, err := s.ReadU64()
		return wrap(v, err)
	case "varint32":
		v, err := s.ReadVarint32()
		return wrap(int64(v), err)
	case "varuint32":
		v, err := s.ReadVaruint32()
		return wrap(uint64(v), err)
	case "int128":
		lo, hi, err := s.ReadU128()
		if err != nil {
			return wrap(nil, err)
		}
		return int128String(lo, hi), nil
	case "uint128":
		lo, hi, err := s.ReadU128()
		if err != nil {
			return wrap(nil, err)
		}
		return uint128String(lo, hi), nil
	case "float32":
		v, err := s.ReadF32()
		return wrap(float64(v), err)
	case "float64":
		return wrap(s.ReadF64())
	case "bytes":
		var b chain.Bytes
		if err := b.Unpack(s); err != nil {
			return wrap(nil, err)
		}
		return b.String(), nil
	case "string":
		return wrap(s.ReadString())
	case "name":
		var n chain.Name
		if err := n.Unpack(s); err != nil {
			return wrap(nil, err)
		}
		return n.String(), nil
	case "symbol":
		var y chain.Symbol
		if err := y.Unpack(s); err != nil {
			return wrap(nil, err)
		}
		return y.String(), nil
	case "symbol_code":
		var c chain.SymbolCode
		if err := c.Unpack(s); err != nil {
			return wrap(nil, err)
		}
		return c.String(), nil
	case "asset":
		var v chain.Asset
		if err := v.Unpack(s); err != nil {
			return wrap(nil, err)
		}
		return v.String(), nil
	case "extended_asset":
		var v chain.ExtendedAsset
		if err := v.Unpack(s); err != nil {
			return wrap(nil, err)
		}
		return map[string]any{
			"quantity": v.Quantity.String(),
			"contract": v.Contract.String(),
		}, nil
	case "time_point":
		var t chain.TimePoint
		if err := t.Unpack(s); err != nil {
			return wrap(nil, err)
		}
		return t.String(), nil
	case "time_point_sec":
		var t chain.TimePointSec
		if err := t.Unpack(s); err != nil {
			return wrap(nil, err)
		}
		return t.String(), nil
	case "block_timestamp_type":
		var t chain.BlockTimestamp
		if err := t.Unpack(s); err != nil {
			return wrap(nil, err)
		}
		return t.String(), nil
	case "checksum160":
		var c chain.Checksum160
		if err := c.Unpack(s); err != nil {
			return wrap(nil, err)
		}
		return c.String(), nil
	case "checksum256":
		var c chain.Checksum256
		if err := c.Unpack(s); err != nil {
			return wrap(nil, err)
		}
		return c.String(), nil
	case "checksum512":
		var c chain.Checksum512
		if err := c.Unpack(s); err != nil {
			return wrap(nil, err)
		}
		return c.String(), nil
	case "public_key":
		var k crypto.PublicKey
		if err := k.Unpack(s); err != nil {
			return wrap(nil, err)
		}
		return k.String(), nil
	case "signature":
		var sig crypto.Signature
		if err := sig.Unpack(s); err != nil {
			return wrap(nil, err)
		}
		return sig.String(), nil
	default:
		return nil, fmt.Errorf("%w: builtin %q", ErrUnknownType, name)
	}
}

// uint128String renders the little-endian (lo, hi) words as decimal.
func uint128String(lo, hi uint64) string {
	u := new(uint256.Int)
	u[0], u[1] = lo, hi
	return u.Dec()
}

// int128String renders a two's-complement 128-bit value as decimal.
func int128String(lo, hi uint64) string {
	if hi&(1<<63) == 0 {
		return uint128String(lo, hi)
	}
	// Negate within 128 bits.
	u := new(uint256.Int)
	u[0], u[1] = ^lo, ^hi
	u.AddUint64(u, 1)
	u[2], u[3] = 0, 0
	return "-" + u.Dec()
}
