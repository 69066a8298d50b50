package chain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/digigaia/kudu/bstream"
)

const maxSymbolPrecision = 18

var (
	ErrInvalidSymbolCode = errors.New("chain: invalid symbol code")
	ErrInvalidSymbol     = errors.New("chain: invalid symbol")
)

// SymbolCode is a currency ticker of one to seven uppercase letters, packed
// one byte per character little-endian into a 64-bit integer.
type SymbolCode uint64

// NewSymbolCode validates and packs a ticker such as "EOS".
func NewSymbolCode(s string) (SymbolCode, error) {
	if len(s) < 1 || len(s) > 7 {
		return 0, fmt.Errorf("%w: %q must be 1 to 7 characters", ErrInvalidSymbolCode, s)
	}
	var value uint64
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("%w: %q may only contain uppercase letters", ErrInvalidSymbolCode, s)
		}
		value = value<<8 | uint64(c)
	}
	return SymbolCode(value), nil
}

func (c SymbolCode) String() string {
	out := make([]byte, 0, 7)
	v := uint64(c)
	for v != 0 {
		out = append(out, byte(v&0xff))
		v >>= 8
	}
	return string(out)
}

// IsValid reports whether the packed value decodes to a well-formed ticker.
func (c SymbolCode) IsValid() bool {
	v := uint64(c)
	if v == 0 {
		return false
	}
	seenEnd := false
	for i := 0; i < 7; i++ {
		b := byte(v & 0xff)
		v >>= 8
		if b == 0 {
			seenEnd = true
			continue
		}
		if seenEnd || b < 'A' || b > 'Z' {
			return false
		}
	}
	return true
}

func (c SymbolCode) Pack(s *bstream.ByteStream) { s.WriteU64(uint64(c)) }

func (c *SymbolCode) Unpack(s *bstream.ByteStream) error {
	v, err := s.ReadU64()
	if err != nil {
		return err
	}
	*c = SymbolCode(v)
	return nil
}

func (c SymbolCode) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *SymbolCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := NewSymbolCode(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Symbol combines a SymbolCode with a decimal precision: code<<8 | precision.
type Symbol uint64

// NewSymbol builds a symbol from a precision and a ticker.
func NewSymbol(precision uint8, code string) (Symbol, error) {
	if precision > maxSymbolPrecision {
		return 0, fmt.Errorf("%w: precision %d exceeds %d", ErrInvalidSymbol, precision, maxSymbolPrecision)
	}
	c, err := NewSymbolCode(code)
	if err != nil {
		return 0, err
	}
	return Symbol(uint64(c)<<8 | uint64(precision)), nil
}

// ParseSymbol parses the "4,EOS" text form used by the node API.
func ParseSymbol(s string) (Symbol, error) {
	var precision uint8
	var code string
	if _, err := fmt.Sscanf(s, "%d,%s", &precision, &code); err != nil {
		return 0, fmt.Errorf("%w: %q is not of the form <precision>,<code>", ErrInvalidSymbol, s)
	}
	return NewSymbol(precision, code)
}

func (y Symbol) Precision() uint8 { return uint8(y & 0xff) }
func (y Symbol) Code() SymbolCode { return SymbolCode(y >> 8) }
func (y Symbol) String() string   { return fmt.Sprintf("%d,%s", y.Precision(), y.Code()) }
func (y Symbol) IsValid() bool    { return y.Code().IsValid() && y.Precision() <= maxSymbolPrecision }

func (y Symbol) Pack(s *bstream.ByteStream) { s.WriteU64(uint64(y)) }

func (y *Symbol) Unpack(s *bstream.ByteStream) error {
	v, err := s.ReadU64()
	if err != nil {
		return err
	}
	*y = Symbol(v)
	return nil
}

func (y Symbol) MarshalJSON() ([]byte, error) { return json.Marshal(y.String()) }

func (y *Symbol) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseSymbol(s)
	if err != nil {
		return err
	}
	*y = v
	return nil
}
