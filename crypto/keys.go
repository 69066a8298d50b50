// Package crypto implements the Antelope key and signature text codecs and
// the transaction signing primitives for the K1 (secp256k1) and R1 (P-256)
// curves. Key material is immutable after parsing and round-trips to the
// exact text it was parsed from.
package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/ripemd160"
)

// CurveType tags key material with its elliptic curve family.
type CurveType byte

const (
	K1 CurveType = iota // secp256k1, the legacy default
	R1                  // P-256
	WA                  // WebAuthn, text round-trip only
)

const (
	PublicKeySize  = 33
	PrivateKeySize = 32
	SignatureSize  = 65

	legacyPublicKeyPrefix = "EOS"
	wifVersionByte        = 0x80
)

var (
	ErrInvalidKeyFormat = errors.New("crypto: invalid key format")
	ErrChecksumMismatch = errors.New("crypto: checksum mismatch")
	ErrUnknownCurve     = errors.New("crypto: unknown curve type")
)

func (c CurveType) String() string {
	switch c {
	case K1:
		return "K1"
	case R1:
		return "R1"
	case WA:
		return "WA"
	default:
		return fmt.Sprintf("CurveType(%d)", byte(c))
	}
}

func curveFromTag(tag string) (CurveType, error) {
	switch tag {
	case "K1":
		return K1, nil
	case "R1":
		return R1, nil
	case "WA":
		return WA, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCurve, tag)
	}
}

// ripemdChecksum computes the 4-byte checksum of the modern text forms:
// ripemd160 over the key bytes salted with the curve tag. The legacy "EOS"
// form uses an empty salt.
func ripemdChecksum(data []byte, salt string) []byte {
	h := ripemd160.New()
	h.Write(data)
	h.Write([]byte(salt))
	return h.Sum(nil)[:4]
}

func sha256d(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// base58CheckEncode appends the salted ripemd checksum and encodes.
func base58CheckEncode(data []byte, salt string) string {
	buf := make([]byte, 0, len(data)+4)
	buf = append(buf, data...)
	buf = append(buf, ripemdChecksum(data, salt)...)
	return base58.Encode(buf)
}

// base58CheckDecode strips and verifies the salted ripemd checksum.
func base58CheckDecode(s, salt string) ([]byte, error) {
	raw := base58.Decode(s)
	if len(raw) < 5 {
		return nil, fmt.Errorf("%w: base58 payload too short", ErrInvalidKeyFormat)
	}
	data, sum := raw[:len(raw)-4], raw[len(raw)-4:]
	if !bytes.Equal(sum, ripemdChecksum(data, salt)) {
		return nil, ErrChecksumMismatch
	}
	return data, nil
}

// splitModern splits e.g. "PUB_K1_<base58>" into its curve and payload,
// verifying the tag-salted checksum.
func splitModern(s, kind string) (CurveType, []byte, error) {
	rest, found := strings.CutPrefix(s, kind+"_")
	if !found {
		return 0, nil, fmt.Errorf("%w: missing %s_ prefix in %q", ErrInvalidKeyFormat, kind, s)
	}
	tag, payload, found := strings.Cut(rest, "_")
	if !found {
		return 0, nil, fmt.Errorf("%w: missing curve tag in %q", ErrInvalidKeyFormat, s)
	}
	curve, err := curveFromTag(tag)
	if err != nil {
		return 0, nil, err
	}
	data, err := base58CheckDecode(payload, tag)
	if err != nil {
		return 0, nil, err
	}
	return curve, data, nil
}

func modernString(kind string, curve CurveType, data []byte) string {
	tag := curve.String()
	return kind + "_" + tag + "_" + base58CheckEncode(data, tag)
}

// PublicKey is a compressed curve point. K1 keys remember whether they were
// parsed from (or should render to) the legacy "EOS..." form.
type PublicKey struct {
	Curve  CurveType
	Data   []byte
	legacy bool
}

// NewPublicKey parses either the legacy "EOS..." form or the modern
// "PUB_<CURVE>_..." form.
func NewPublicKey(s string) (*PublicKey, error) {
	if rest, found := strings.CutPrefix(s, legacyPublicKeyPrefix); found && !strings.Contains(s, "_") {
		data, err := base58CheckDecode(rest, "")
		if err != nil {
			return nil, fmt.Errorf("parsing legacy public key %q: %w", s, err)
		}
		if len(data) != PublicKeySize {
			return nil, fmt.Errorf("%w: public key is %d bytes, want %d", ErrInvalidKeyFormat, len(data), PublicKeySize)
		}
		return &PublicKey{Curve: K1, Data: data, legacy: true}, nil
	}
	curve, data, err := splitModern(s, "PUB")
	if err != nil {
		return nil, fmt.Errorf("parsing public key %q: %w", s, err)
	}
	if curve != WA && len(data) != PublicKeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes, want %d", ErrInvalidKeyFormat, len(data), PublicKeySize)
	}
	return &PublicKey{Curve: curve, Data: data}, nil
}

// String renders the canonical text form: the legacy "EOS..." form for keys
// parsed from it, "PUB_<CURVE>_..." otherwise.
func (k *PublicKey) String() string {
	if k.legacy && k.Curve == K1 {
		return legacyPublicKeyPrefix + base58CheckEncode(k.Data, "")
	}
	return modernString("PUB", k.Curve, k.Data)
}

// LegacyString renders the "EOS..." form. Only K1 keys have one.
func (k *PublicKey) LegacyString() (string, error) {
	if k.Curve != K1 {
		return "", fmt.Errorf("%w: no legacy form for %s public keys", ErrInvalidKeyFormat, k.Curve)
	}
	return legacyPublicKeyPrefix + base58CheckEncode(k.Data, ""), nil
}

// ModernString renders the "PUB_<CURVE>_..." form regardless of how the key
// was parsed.
func (k *PublicKey) ModernString() string {
	return modernString("PUB", k.Curve, k.Data)
}

func (k *PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := NewPublicKey(s)
	if err != nil {
		return err
	}
	*k = *v
	return nil
}

// PrivateKey is a curve scalar. K1 keys remember whether they were parsed
// from the legacy WIF form.
type PrivateKey struct {
	Curve  CurveType
	Data   []byte
	legacy bool
}

// NewPrivateKey parses either a legacy WIF string (base58 of
// 0x80 ++ key ++ sha256d checksum) or the modern "PVT_<CURVE>_..." form.
// Both the double-sha256 and the single-sha256 WIF checksum variants found
// in the wild are accepted.
func NewPrivateKey(s string) (*PrivateKey, error) {
	if strings.HasPrefix(s, "PVT_") {
		curve, data, err := splitModern(s, "PVT")
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		if len(data) != PrivateKeySize {
			return nil, fmt.Errorf("%w: private key is %d bytes, want %d", ErrInvalidKeyFormat, len(data), PrivateKeySize)
		}
		return &PrivateKey{Curve: curve, Data: data}, nil
	}
	raw := base58.Decode(s)
	if len(raw) != 1+PrivateKeySize+4 {
		return nil, fmt.Errorf("%w: WIF payload is %d bytes, want %d", ErrInvalidKeyFormat, len(raw), 1+PrivateKeySize+4)
	}
	if raw[0] != wifVersionByte {
		return nil, fmt.Errorf("%w: WIF version byte 0x%02x, want 0x%02x", ErrInvalidKeyFormat, raw[0], wifVersionByte)
	}
	payload, sum := raw[:len(raw)-4], raw[len(raw)-4:]
	single := sha256.Sum256(payload)
	if !bytes.Equal(sum, sha256d(payload)[:4]) && !bytes.Equal(sum, single[:4]) {
		return nil, fmt.Errorf("parsing WIF private key: %w", ErrChecksumMismatch)
	}
	return &PrivateKey{Curve: K1, Data: append([]byte(nil), payload[1:]...), legacy: true}, nil
}

// String renders WIF for keys parsed from WIF, "PVT_<CURVE>_..." otherwise.
func (k *PrivateKey) String() string {
	if k.legacy && k.Curve == K1 {
		payload := make([]byte, 0, 1+PrivateKeySize)
		payload = append(payload, wifVersionByte)
		payload = append(payload, k.Data...)
		return base58.Encode(append(payload, sha256d(payload)[:4]...))
	}
	return modernString("PVT", k.Curve, k.Data)
}

// ModernString renders the "PVT_<CURVE>_..." form regardless of how the key
// was parsed.
func (k *PrivateKey) ModernString() string {
	return modernString("PVT", k.Curve, k.Data)
}

// LegacyString renders the WIF form. Only K1 keys have one.
func (k *PrivateKey) LegacyString() (string, error) {
	if k.Curve != K1 {
		return "", fmt.Errorf("%w: no WIF form for %s private keys", ErrInvalidKeyFormat, k.Curve)
	}
	payload := make([]byte, 0, 1+PrivateKeySize)
	payload = append(payload, wifVersionByte)
	payload = append(payload, k.Data...)
	return base58.Encode(append(payload, sha256d(payload)[:4]...)), nil
}

// PublicKey derives the compressed public key. The result renders in the
// legacy form when the private key itself is legacy.
func (k *PrivateKey) PublicKey() (*PublicKey, error) {
	switch k.Curve {
	case K1:
		priv, _ := btcec.PrivKeyFromBytes(k.Data)
		return &PublicKey{Curve: K1, Data: priv.PubKey().SerializeCompressed(), legacy: k.legacy}, nil
	case R1:
		priv, err := k.r1Key()
		if err != nil {
			return nil, err
		}
		data := elliptic.MarshalCompressed(elliptic.P256(), priv.PublicKey.X, priv.PublicKey.Y)
		return &PublicKey{Curve: R1, Data: data}, nil
	default:
		return nil, fmt.Errorf("%w: cannot derive public key for %s", ErrUnknownCurve, k.Curve)
	}
}

func (k *PrivateKey) r1Key() (*ecdsa.PrivateKey, error) {
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(k.Data)
	if d.Sign() <= 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("%w: R1 scalar out of range", ErrInvalidKeyFormat)
	}
	priv := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve},
		D:         d,
	}
	priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(k.Data)
	return priv, nil
}

func (k *PrivateKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *PrivateKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := NewPrivateKey(s)
	if err != nil {
		return err
	}
	*k = *v
	return nil
}
