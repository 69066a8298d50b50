package abi

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"github.com/digigaia/kudu/bstream"
	"github.com/digigaia/kudu/chain"
	"github.com/digigaia/kudu/crypto"
)

// Encode translates a JSON-friendly value into the binary form of the named
// type. It is the structural inverse of Decode.
func (a *ABI) Encode(typeName string, v any) ([]byte, error) {
	s := bstream.NewWriter()
	if err := a.encodeType(s, typeName, v); err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}

// EncodeJSON parses a JSON document and encodes it as the named type.
// Numbers are kept in their textual form so 64-bit values do not lose
// precision.
func (a *ABI) EncodeJSON(typeName string, doc []byte) ([]byte, error) {
	dec := json.NewDecoder(strings.NewReader(string(doc)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return a.Encode(typeName, v)
}

// EncodeAction encodes action parameters using the struct registered for
// the action name.
func (a *ABI) EncodeAction(name chain.Name, v any) ([]byte, error) {
	structName := a.ActionType(name)
	if structName == "" {
		return nil, fmt.Errorf("%w: no action %q in ABI", ErrUnknownType, name)
	}
	return a.Encode(structName, v)
}

func (a *ABI) encodeType(s *bstream.ByteStream, typeName string, v any) error {
	switch {
	case strings.HasSuffix(typeName, "$"):
		return a.encodeType(s, strings.TrimSuffix(typeName, "$"), v)
	case strings.HasSuffix(typeName, "[]"):
		inner := strings.TrimSuffix(typeName, "[]")
		items, ok := v.([]any)
		if !ok {
			return fmt.Errorf("%w: %q wants a sequence, got %T", ErrEncode, typeName, v)
		}
		s.WriteVaruint32(uint32(len(items)))
		for i, item := range items {
			if err := a.encodeType(s, inner, item); err != nil {
				return fmt.Errorf("%w: element %d of %q: %v", ErrEncode, i, typeName, err)
			}
		}
		return nil
	case strings.HasSuffix(typeName, "?"):
		if v == nil {
			s.WriteBool(false)
			return nil
		}
		s.WriteBool(true)
		return a.encodeType(s, strings.TrimSuffix(typeName, "?"), v)
	}

	name := a.resolveAlias(typeName)
	if name != typeName {
		// The alias target may itself carry a suffix.
		return a.encodeType(s, name, v)
	}
	if isBuiltin(name) {
		return a.encodeBuiltin(s, name, v)
	}
	if variant, ok := a.variants[name]; ok {
		pair, ok := v.([]any)
		if !ok || len(pair) != 2 {
			return fmt.Errorf("%w: variant %q wants a [type, value] pair, got %T", ErrEncode, name, v)
		}
		altName, ok := pair[0].(string)
		if !ok {
			return fmt.Errorf("%w: variant %q selector must be a string", ErrEncode, name)
		}
		for i, alt := range variant.Types {
			if alt == altName {
				s.WriteVaruint32(uint32(i))
				return a.encodeType(s, alt, pair[1])
			}
		}
		return fmt.Errorf("%w: %q is not an alternative of variant %q", ErrEncode, altName, name)
	}
	if st, ok := a.structs[name]; ok {
		fields, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: struct %q wants an object, got %T", ErrEncode, name, v)
		}
		return a.encodeStructFrom(s, st, fields)
	}
	return fmt.Errorf("%w: %q", ErrUnknownType, typeName)
}

func (a *ABI) encodeStructFrom(s *bstream.ByteStream, st *Struct, fields map[string]any) error {
	if st.Base != "" {
		base := a.structs[a.resolveAlias(st.Base)]
		if err := a.encodeStructFrom(s, base, fields); err != nil {
			return err
		}
	}
	for _, f := range st.Fields {
		v, present := fields[f.Name]
		if !present {
			if strings.HasSuffix(f.Type, "$") {
				// Missing binary extensions terminate the encoding.
				break
			}
			if strings.HasSuffix(f.Type, "?") {
				s.WriteBool(false)
				continue
			}
			return fmt.Errorf("%w: missing field %s.%s", ErrEncode, st.Name, f.Name)
		}
		if err := a.encodeType(s, f.Type, v); err != nil {
			return fmt.Errorf("%w: field %s.%s: %v", ErrEncode, st.Name, f.Name, err)
		}
	}
	return nil
}

func (a *ABI) encodeBuiltin(s *bstream.ByteStream, name string, v any) error {
	switch name {
	case "bool":
		b, ok := v.(bool)
		if !ok {
			return typeErr(name, v)
		}
		s.WriteBool(b)
	case "int8", "int16", "int32", "int64", "varint32":
		i, err := toInt64(v)
		if err != nil {
			return err
		}
		switch name {
		case "int8":
			if i < math.MinInt8 || i > math.MaxInt8 {
				return rangeErr(name, v)
			}
			s.WriteI8(int8(i))
		case "int16":
			if i < math.MinInt16 || i > math.MaxInt16 {
				return rangeErr(name, v)
			}
			s.WriteI16(int16(i))
		case "int32":
			if i < math.MinInt32 || i > math.MaxInt32 {
				return rangeErr(name, v)
			}
			s.WriteI32(int32(i))
		case "varint32":
			if i < math.MinInt32 || i > math.MaxInt32 {
				return rangeErr(name, v)
			}
			s.WriteVarint32(int32(i))
		default:
			s.WriteI64(i)
		}
	case "uint8", "uint16", "uint32", "uint64", "varuint32":
		u, err := toUint64(v)
		if err != nil {
			return err
		}
		switch name {
		case "uint8":
			if u > math.MaxUint8 {
				return rangeErr(name, v)
			}
			s.WriteU8(uint8(u))
		case "uint16":
			if u > math.MaxUint16 {
				return rangeErr(name, v)
			}
			s.WriteU16(uint16(u))
		case "uint32":
			if u > math.MaxUint32 {
				return rangeErr(name, v)
			}
			s.WriteU32(uint32(u))
		case "varuint32":
			if u > math.MaxUint32 {
				return rangeErr(name, v)
			}
			s.WriteVaruint32(uint32(u))
		default:
			s.WriteU64(u)
		}
	case "int128", "uint128":
		str, err := toNumericString(v)
		if err != nil {
			return err
		}
		lo, hi, err := parse128(str, name == "int128")
		if err != nil {
			return err
		}
		s.WriteU128(lo, hi)
	case "float32":
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		s.WriteF32(float32(f))
	case "float64":
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		s.WriteF64(f)
	case "bytes":
		str, ok := v.(string)
		if !ok {
			return typeErr(name, v)
		}
		raw, err := hex.DecodeString(str)
		if err != nil {
			return fmt.Errorf("%w: bytes value is not hex: %v", ErrEncode, err)
		}
		s.WriteVarBytes(raw)
	case "string":
		str, ok := v.(string)
		if !ok {
			return typeErr(name, v)
		}
		s.WriteString(str)
	case "name":
		str, ok := v.(string)
		if !ok {
			return typeErr(name, v)
		}
		n, err := chain.NewName(str)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}
		n.Pack(s)
	case "symbol":
		str, ok := v.(string)
		if !ok {
			return typeErr(name, v)
		}
		y, err := chain.ParseSymbol(str)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}
		y.Pack(s)
	case "symbol_code":
		str, ok := v.(string)
		if !ok {
			return typeErr(name, v)
		}
		c, err := chain.NewSymbolCode(str)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}
		c.Pack(s)
	case "asset":
		str, ok := v.(string)
		if !ok {
			return typeErr(name, v)
		}
		q, err := chain.ParseAsset(str)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}
		q.Pack(s)
	case "extended_asset":
		fields, ok := v.(map[string]any)
		if !ok {
			return typeErr(name, v)
		}
		quantity, _ := fields["quantity"].(string)
		contract, _ := fields["contract"].(string)
		q, err := chain.ParseAsset(quantity)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}
		c, err := chain.NewName(contract)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}
		chain.ExtendedAsset{Quantity: q, Contract: c}.Pack(s)
	case "time_point":
		str, ok := v.(string)
		if !ok {
			return typeErr(name, v)
		}
		t, err := chain.ParseTimePoint(str)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}
		t.Pack(s)
	case "time_point_sec":
		str, ok := v.(string)
		if !ok {
			return typeErr(name, v)
		}
		t, err := chain.ParseTimePointSec(str)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}
		t.Pack(s)
	case "block_timestamp_type":
		str, ok := v.(string)
		if !ok {
			return typeErr(name, v)
		}
		t, err := chain.ParseBlockTimestamp(str)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}
		t.Pack(s)
	case "checksum160", "checksum256", "checksum512":
		str, ok := v.(string)
		if !ok {
			return typeErr(name, v)
		}
		raw, err := hex.DecodeString(str)
		if err != nil {
			return fmt.Errorf("%w: checksum value is not hex: %v", ErrEncode, err)
		}
		want := map[string]int{"checksum160": 20, "checksum256": 32, "checksum512": 64}[name]
		if len(raw) != want {
			return fmt.Errorf("%w: %s wants %d bytes, got %d", ErrEncode, name, want, len(raw))
		}
		s.WriteBytes(raw)
	case "public_key":
		str, ok := v.(string)
		if !ok {
			return typeErr(name, v)
		}
		k, err := crypto.NewPublicKey(str)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}
		if err := k.Pack(s); err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}
	case "signature":
		str, ok := v.(string)
		if !ok {
			return typeErr(name, v)
		}
		sig, err := crypto.NewSignature(str)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}
		if err := sig.Pack(s); err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}
	default:
		return fmt.Errorf("%w: builtin %q", ErrUnknownType, name)
	}
	return nil
}

func typeErr(name string, v any) error {
	return fmt.Errorf("%w: %s cannot encode a %T", ErrEncode, name, v)
}

func rangeErr(name string, v any) error {
	return fmt.Errorf("%w: value %v out of range for %s", ErrEncode, v, name)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEncode, err)
		}
		return i, nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, rangeErr("int64", v)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrEncode, v)
		}
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEncode, err)
		}
		return i, nil
	default:
		return 0, typeErr("integer", v)
	}
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEncode, err)
		}
		return u, nil
	case int:
		if n < 0 {
			return 0, rangeErr("uint64", v)
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, rangeErr("uint64", v)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	case float64:
		if n < 0 || n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %v is not an unsigned integer", ErrEncode, v)
		}
		return uint64(n), nil
	case string:
		u, err := strconv.ParseUint(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEncode, err)
		}
		return u, nil
	default:
		return 0, typeErr("unsigned integer", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEncode, err)
		}
		return f, nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEncode, err)
		}
		return f, nil
	default:
		return 0, typeErr("float", v)
	}
}

func toNumericString(v any) (string, error) {
	switch n := v.(type) {
	case string:
		return n, nil
	case json.Number:
		return n.String(), nil
	case int:
		return strconv.Itoa(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case uint64:
		return strconv.FormatUint(n, 10), nil
	default:
		return "", typeErr("decimal string", v)
	}
}

// parse128 converts a decimal string into little-endian (lo, hi) words,
// two's complement when signed.
func parse128(str string, signed bool) (lo, hi uint64, err error) {
	negative := strings.HasPrefix(str, "-")
	if negative {
		if !signed {
			return 0, 0, fmt.Errorf("%w: uint128 cannot be negative", ErrEncode)
		}
		str = str[1:]
	}
	u, err := uint256.FromDecimal(str)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad 128-bit decimal: %v", ErrEncode, err)
	}
	if u[2] != 0 || u[3] != 0 {
		return 0, 0, fmt.Errorf("%w: value does not fit in 128 bits", ErrEncode)
	}
	lo, hi = u[0], u[1]
	if signed {
		limit := uint64(1) << 63
		if negative {
			if hi > limit || (hi == limit && lo > 0) {
				return 0, 0, fmt.Errorf("%w: value does not fit in int128", ErrEncode)
			}
			lo = ^lo + 1
			hi = ^hi
			if lo == 0 {
				hi++
			}
		} else if hi >= limit {
			return 0, 0, fmt.Errorf("%w: value does not fit in int128", ErrEncode)
		}
	}
	return lo, hi, nil
}
