// Package chain defines the value types of the Antelope wire protocol:
// names, symbols, assets, timestamps, permission levels, actions and
// transactions, together with their exact binary and JSON encodings.
package chain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/digigaia/kudu/bstream"
)

// Name alphabet. Index in this string is the 5-bit symbol value, '.' is 0.
const nameCharmap = ".12345abcdefghijklmnopqrstuvwxyz"

var (
	ErrNameTooLong       = errors.New("chain: name longer than 13 characters")
	ErrNameNotNormalized = errors.New("chain: name not normalized")
)

// Name is an account, action or permission identifier of up to 13 characters
// over the alphabet ".12345a-z", packed into a 64-bit integer. Equality and
// hashing operate on the integer, so values that normalize identically
// compare equal.
type Name uint64

// NewName validates and packs s. It fails when s is longer than 13
// characters or contains a character outside the name alphabet. A name with
// trailing dots is rejected as well since it does not survive a round-trip.
func NewName(s string) (Name, error) {
	if len(s) > 13 {
		return 0, fmt.Errorf("%w: %q", ErrNameTooLong, s)
	}
	n := packName(s)
	if n.String() != s {
		return 0, fmt.Errorf("%w: %q", ErrNameNotNormalized, s)
	}
	return n, nil
}

// MustNewName is NewName for statically known inputs. It panics on error.
func MustNewName(s string) Name {
	n, err := NewName(s)
	if err != nil {
		panic(err)
	}
	return n
}

func charToSymbol(c byte) uint64 {
	switch {
	case c >= 'a' && c <= 'z':
		return uint64(c-'a') + 6
	case c >= '1' && c <= '5':
		return uint64(c-'1') + 1
	default:
		return 0
	}
}

func packName(s string) Name {
	var value uint64
	for i := 0; i < len(s) && i <= 12; i++ {
		sym := charToSymbol(s[i])
		if i < 12 {
			value |= (sym & 0x1f) << uint(64-5*(i+1))
		} else {
			value |= sym & 0x0f
		}
	}
	return Name(value)
}

// String unpacks the name, trimming the trailing padding dots that zero bits
// produce.
func (n Name) String() string {
	out := []byte(".............")
	tmp := uint64(n)
	for i := 0; i <= 12; i++ {
		var c byte
		if i == 0 {
			c = nameCharmap[tmp&0x0f]
			tmp >>= 4
		} else {
			c = nameCharmap[tmp&0x1f]
			tmp >>= 5
		}
		out[12-i] = c
	}
	end := len(out)
	for end > 0 && out[end-1] == '.' {
		end--
	}
	return string(out[:end])
}

// Pack appends the 8-byte little-endian form.
func (n Name) Pack(s *bstream.ByteStream) {
	s.WriteU64(uint64(n))
}

// Unpack reads the 8-byte little-endian form.
func (n *Name) Unpack(s *bstream.ByteStream) error {
	v, err := s.ReadU64()
	if err != nil {
		return err
	}
	*n = Name(v)
	return nil
}

func (n Name) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

func (n *Name) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := NewName(s)
	if err != nil {
		return err
	}
	*n = v
	return nil
}
