package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Compact signatures carry the recovery id in the header byte as
// 27 + 4 + recid, the +4 marking a compressed public key.
const compactSigHeaderBase = 27 + 4

var (
	ErrInvalidPrivateKey = errors.New("crypto: invalid private key")
	ErrSignFailed        = errors.New("crypto: could not produce a canonical signature")
	ErrRecoverFailed     = errors.New("crypto: could not recover public key")
)

// Signature is a 65-byte compact recoverable signature:
// [header, R (32 bytes), S (32 bytes)].
type Signature struct {
	Curve CurveType
	Data  []byte
}

// NewSignature parses the "SIG_<CURVE>_..." text form.
func NewSignature(s string) (*Signature, error) {
	curve, data, err := splitModern(s, "SIG")
	if err != nil {
		return nil, fmt.Errorf("parsing signature %q: %w", s, err)
	}
	if curve != WA && len(data) != SignatureSize {
		return nil, fmt.Errorf("%w: signature is %d bytes, want %d", ErrInvalidKeyFormat, len(data), SignatureSize)
	}
	return &Signature{Curve: curve, Data: data}, nil
}

func (s *Signature) String() string {
	return modernString("SIG", s.Curve, s.Data)
}

func (s *Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	v, err := NewSignature(str)
	if err != nil {
		return err
	}
	*s = *v
	return nil
}

// IsCanonical reports whether the R and S components satisfy the chain's
// canonical form: neither may have its high bit set nor start with a zero
// byte followed by a clear high bit.
func (s *Signature) IsCanonical() bool {
	return isCanonicalCompact(s.Data)
}

func isCanonicalCompact(sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}
	return sig[1]&0x80 == 0 &&
		!(sig[1] == 0 && sig[2]&0x80 == 0) &&
		sig[33]&0x80 == 0 &&
		!(sig[33] == 0 && sig[34]&0x80 == 0)
}

// Sign produces a canonical compact signature over a 32-byte digest.
func (k *PrivateKey) Sign(digest [32]byte) (*Signature, error) {
	switch k.Curve {
	case K1:
		data, err := signK1(k.Data, digest)
		if err != nil {
			return nil, err
		}
		return &Signature{Curve: K1, Data: data}, nil
	case R1:
		data, err := signR1(k, digest)
		if err != nil {
			return nil, err
		}
		return &Signature{Curve: R1, Data: data}, nil
	default:
		return nil, fmt.Errorf("%w: cannot sign with %s keys", ErrUnknownCurve, k.Curve)
	}
}

// signK1 runs deterministic RFC 6979 nonce generation with an incrementing
// extra-iteration counter until the resulting compact signature is
// canonical. The message is never altered between attempts.
func signK1(privBytes []byte, digest [32]byte) ([]byte, error) {
	var d secp256k1.ModNScalar
	if overflow := d.SetByteSlice(privBytes); overflow || d.IsZero() {
		return nil, ErrInvalidPrivateKey
	}
	var e secp256k1.ModNScalar
	e.SetByteSlice(digest[:])
	for iter := uint32(0); iter < 128; iter++ {
		nonce := secp256k1.NonceRFC6979(privBytes, digest[:], nil, nil, iter)
		sig, ok := signK1WithNonce(&d, &e, nonce)
		nonce.Zero()
		if ok && isCanonicalCompact(sig) {
			return sig, nil
		}
	}
	return nil, ErrSignFailed
}

func signK1WithNonce(d, e, nonce *secp256k1.ModNScalar) ([]byte, bool) {
	var kG secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(nonce, &kG)
	kG.ToAffine()

	var r secp256k1.ModNScalar
	overflow := r.SetBytes(kG.X.Bytes())
	if r.IsZero() {
		return nil, false
	}
	recID := byte(overflow << 1)
	if kG.Y.IsOdd() {
		recID |= 1
	}

	// s = k⁻¹ (e + r·d) mod n, then flip to the low half of the order.
	kInv := new(secp256k1.ModNScalar).InverseValNonConst(nonce)
	s := new(secp256k1.ModNScalar).Mul2(&r, d)
	s.Add(e).Mul(kInv)
	if s.IsZero() {
		return nil, false
	}
	if s.IsOverHalfOrder() {
		s.Negate()
		recID ^= 1
	}

	out := make([]byte, SignatureSize)
	out[0] = compactSigHeaderBase + recID
	rb := r.Bytes()
	sb := s.Bytes()
	copy(out[1:33], rb[:])
	copy(out[33:], sb[:])
	return out, true
}

// signR1 signs with P-256 and fresh randomness per attempt, retrying until
// the compact form is canonical. The recovery id is found by recovering the
// candidate public keys and matching against the signer's.
func signR1(k *PrivateKey, digest [32]byte) ([]byte, error) {
	priv, err := k.r1Key()
	if err != nil {
		return nil, err
	}
	curve := elliptic.P256()
	halfN := new(big.Int).Rsh(curve.Params().N, 1)
	pub := elliptic.MarshalCompressed(curve, priv.PublicKey.X, priv.PublicKey.Y)
	for attempt := 0; attempt < 128; attempt++ {
		r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
		if err != nil {
			return nil, err
		}
		if s.Cmp(halfN) > 0 {
			s.Sub(curve.Params().N, s)
		}
		recID, err := r1RecoveryID(digest, r, s, pub)
		if err != nil {
			continue
		}
		out := make([]byte, SignatureSize)
		out[0] = compactSigHeaderBase + recID
		r.FillBytes(out[1:33])
		s.FillBytes(out[33:])
		if isCanonicalCompact(out) {
			return out, nil
		}
	}
	return nil, ErrSignFailed
}

func r1RecoveryID(digest [32]byte, r, s *big.Int, compressedPub []byte) (byte, error) {
	for recID := byte(0); recID < 2; recID++ {
		x, y, err := recoverR1Point(digest, r, s, recID)
		if err != nil {
			continue
		}
		if bytes.Equal(elliptic.MarshalCompressed(elliptic.P256(), x, y), compressedPub) {
			return recID, nil
		}
	}
	return 0, ErrRecoverFailed
}

// recoverR1Point computes Q = r⁻¹(s·R - e·G) for the candidate point R
// implied by the signature's r component and the recovery id's y parity.
func recoverR1Point(digest [32]byte, r, s *big.Int, recID byte) (*big.Int, *big.Int, error) {
	curve := elliptic.P256()
	params := curve.Params()
	if r.Sign() <= 0 || r.Cmp(params.N) >= 0 || s.Sign() <= 0 || s.Cmp(params.N) >= 0 {
		return nil, nil, ErrRecoverFailed
	}
	x := new(big.Int).Set(r)
	if x.Cmp(params.P) >= 0 {
		return nil, nil, ErrRecoverFailed
	}
	// y² = x³ - 3x + b mod p; p ≡ 3 mod 4 so the root is v^((p+1)/4).
	y2 := new(big.Int).Exp(x, big.NewInt(3), params.P)
	y2.Sub(y2, new(big.Int).Lsh(x, 1))
	y2.Sub(y2, x)
	y2.Add(y2, params.B)
	y2.Mod(y2, params.P)
	exp := new(big.Int).Add(params.P, big.NewInt(1))
	exp.Rsh(exp, 2)
	y := new(big.Int).Exp(y2, exp, params.P)
	if new(big.Int).Exp(y, big.NewInt(2), params.P).Cmp(y2) != 0 {
		return nil, nil, ErrRecoverFailed
	}
	if byte(y.Bit(0)) != recID&1 {
		y.Sub(params.P, y)
	}
	if !curve.IsOnCurve(x, y) {
		return nil, nil, ErrRecoverFailed
	}

	e := new(big.Int).SetBytes(digest[:])
	e.Mod(e, params.N)
	rInv := new(big.Int).ModInverse(r, params.N)
	if rInv == nil {
		return nil, nil, ErrRecoverFailed
	}
	u1 := new(big.Int).Neg(e)
	u1.Mul(u1, rInv)
	u1.Mod(u1, params.N)
	u2 := new(big.Int).Mul(s, rInv)
	u2.Mod(u2, params.N)

	x1, y1 := curve.ScalarBaseMult(u1.Bytes())
	x2, y2p := curve.ScalarMult(x, y, u2.Bytes())
	qx, qy := curve.Add(x1, y1, x2, y2p)
	if qx.Sign() == 0 && qy.Sign() == 0 {
		return nil, nil, ErrRecoverFailed
	}
	return qx, qy, nil
}

// RecoverPublicKey recovers the compressed public key that produced the
// signature over digest.
func (s *Signature) RecoverPublicKey(digest [32]byte) (*PublicKey, error) {
	switch s.Curve {
	case K1:
		pub, _, err := btcecdsa.RecoverCompact(s.Data, digest[:])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRecoverFailed, err)
		}
		return &PublicKey{Curve: K1, Data: pub.SerializeCompressed(), legacy: true}, nil
	case R1:
		if len(s.Data) != SignatureSize {
			return nil, ErrRecoverFailed
		}
		r := new(big.Int).SetBytes(s.Data[1:33])
		sv := new(big.Int).SetBytes(s.Data[33:])
		x, y, err := recoverR1Point(digest, r, sv, s.Data[0]-compactSigHeaderBase)
		if err != nil {
			return nil, err
		}
		return &PublicKey{Curve: R1, Data: elliptic.MarshalCompressed(elliptic.P256(), x, y)}, nil
	default:
		return nil, fmt.Errorf("%w: cannot recover %s signatures", ErrUnknownCurve, s.Curve)
	}
}

// Verify reports whether the signature over digest was produced by pub.
func (s *Signature) Verify(digest [32]byte, pub *PublicKey) bool {
	if pub == nil || s.Curve != pub.Curve {
		return false
	}
	switch s.Curve {
	case K1:
		recovered, _, err := btcecdsa.RecoverCompact(s.Data, digest[:])
		if err != nil {
			return false
		}
		return bytes.Equal(recovered.SerializeCompressed(), pub.Data)
	case R1:
		if len(s.Data) != SignatureSize {
			return false
		}
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), pub.Data)
		if x == nil {
			return false
		}
		r := new(big.Int).SetBytes(s.Data[1:33])
		sv := new(big.Int).SetBytes(s.Data[33:])
		return ecdsa.Verify(&ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, digest[:], r, sv)
	default:
		return false
	}
}

// GeneratePrivateKey creates a fresh random key on the given curve.
func GeneratePrivateKey(curve CurveType) (*PrivateKey, error) {
	switch curve {
	case K1:
		priv, err := btcec.NewPrivateKey()
		if err != nil {
			return nil, err
		}
		return &PrivateKey{Curve: K1, Data: priv.Serialize(), legacy: true}, nil
	case R1:
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, err
		}
		data := make([]byte, PrivateKeySize)
		priv.D.FillBytes(data)
		return &PrivateKey{Curve: R1, Data: data}, nil
	default:
		return nil, fmt.Errorf("%w: cannot generate %s keys", ErrUnknownCurve, curve)
	}
}

// PrivateKeyFromBytes wraps a raw 32-byte scalar. K1 keys render as WIF.
func PrivateKeyFromBytes(curve CurveType, data []byte) (*PrivateKey, error) {
	if len(data) != PrivateKeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes, want %d", ErrInvalidKeyFormat, len(data), PrivateKeySize)
	}
	k := &PrivateKey{Curve: curve, Data: append([]byte(nil), data...), legacy: curve == K1}
	if _, err := k.PublicKey(); err != nil {
		return nil, err
	}
	return k, nil
}
