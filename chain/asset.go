package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/digigaia/kudu/bstream"
)

// Largest magnitude an asset amount may carry, 2^62-1.
const maxAssetAmount = (1 << 62) - 1

var ErrInvalidAsset = errors.New("chain: invalid asset")

// Asset is a token quantity: a signed 64-bit amount scaled by the symbol's
// precision. The text form is "<fixed-point amount> <code>", e.g.
// "1.2345 FOO".
type Asset struct {
	Amount int64
	Symbol Symbol
}

// NewAsset validates the amount range and symbol.
func NewAsset(amount int64, symbol Symbol) (Asset, error) {
	a := Asset{Amount: amount, Symbol: symbol}
	if err := a.validate(); err != nil {
		return Asset{}, err
	}
	return a, nil
}

func (a Asset) validate() error {
	if a.Amount > maxAssetAmount || a.Amount < -maxAssetAmount {
		return fmt.Errorf("%w: amount %d out of range", ErrInvalidAsset, a.Amount)
	}
	if !a.Symbol.IsValid() {
		return fmt.Errorf("%w: bad symbol", ErrInvalidAsset)
	}
	return nil
}

// ParseAsset parses the "1.2345 FOO" text form. The number of digits after
// the decimal point fixes the symbol precision.
func ParseAsset(s string) (Asset, error) {
	amountPart, codePart, found := strings.Cut(strings.TrimSpace(s), " ")
	if !found {
		return Asset{}, fmt.Errorf("%w: %q is missing a symbol code", ErrInvalidAsset, s)
	}
	var precision uint8
	digits := amountPart
	if intPart, fracPart, hasDot := strings.Cut(amountPart, "."); hasDot {
		if len(fracPart) == 0 || len(fracPart) > maxSymbolPrecision {
			return Asset{}, fmt.Errorf("%w: bad fractional part in %q", ErrInvalidAsset, s)
		}
		precision = uint8(len(fracPart))
		digits = intPart + fracPart
	}
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: bad amount in %q: %v", ErrInvalidAsset, s, err)
	}
	symbol, err := NewSymbol(precision, codePart)
	if err != nil {
		return Asset{}, err
	}
	return NewAsset(amount, symbol)
}

func (a Asset) String() string {
	precision := int(a.Symbol.Precision())
	// Split the sign off the formatted digits instead of negating, which
	// would overflow on MinInt64.
	sign := ""
	digits := strconv.FormatInt(a.Amount, 10)
	if a.Amount < 0 {
		sign, digits = "-", digits[1:]
	}
	if precision == 0 {
		return fmt.Sprintf("%s%s %s", sign, digits, a.Symbol.Code())
	}
	for len(digits) <= precision {
		digits = "0" + digits
	}
	dot := len(digits) - precision
	return fmt.Sprintf("%s%s.%s %s", sign, digits[:dot], digits[dot:], a.Symbol.Code())
}

func (a Asset) Pack(s *bstream.ByteStream) {
	s.WriteI64(a.Amount)
	a.Symbol.Pack(s)
}

func (a *Asset) Unpack(s *bstream.ByteStream) error {
	amount, err := s.ReadI64()
	if err != nil {
		return err
	}
	if amount > maxAssetAmount || amount < -maxAssetAmount {
		return fmt.Errorf("%w: amount %d out of range", ErrInvalidAsset, amount)
	}
	var symbol Symbol
	if err := symbol.Unpack(s); err != nil {
		return err
	}
	a.Amount, a.Symbol = amount, symbol
	return nil
}

func (a Asset) MarshalJSON() ([]byte, error) { return json.Marshal(a.String()) }

func (a *Asset) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseAsset(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ExtendedAsset pairs a quantity with the contract that issues it. The text
// form is "<asset>@<contract>".
type ExtendedAsset struct {
	Quantity Asset `json:"quantity"`
	Contract Name  `json:"contract"`
}

// ParseExtendedAsset parses the "1.2345 FOO@contract" text form.
func ParseExtendedAsset(s string) (ExtendedAsset, error) {
	quantityPart, contractPart, found := strings.Cut(s, "@")
	if !found {
		return ExtendedAsset{}, fmt.Errorf("%w: %q is missing a contract", ErrInvalidAsset, s)
	}
	quantity, err := ParseAsset(quantityPart)
	if err != nil {
		return ExtendedAsset{}, err
	}
	contract, err := NewName(contractPart)
	if err != nil {
		return ExtendedAsset{}, err
	}
	return ExtendedAsset{Quantity: quantity, Contract: contract}, nil
}

func (e ExtendedAsset) String() string {
	return fmt.Sprintf("%s@%s", e.Quantity, e.Contract)
}

func (e ExtendedAsset) Pack(s *bstream.ByteStream) {
	e.Quantity.Pack(s)
	e.Contract.Pack(s)
}

func (e *ExtendedAsset) Unpack(s *bstream.ByteStream) error {
	if err := e.Quantity.Unpack(s); err != nil {
		return err
	}
	return e.Contract.Unpack(s)
}
