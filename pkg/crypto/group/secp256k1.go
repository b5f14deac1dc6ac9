package group

import (
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"io"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Secp256k1Element is a point on the secp256k1 curve.
type Secp256k1Element struct {
	point *btcec.PublicKey
}

// Bytes returns the compressed point encoding (33 bytes).
func (e *Secp256k1Element) Bytes() []byte {
	if e == nil || e.point == nil {
		return nil
	}
	return e.point.SerializeCompressed()
}

// Equal reports whether two points are identical.
func (e *Secp256k1Element) Equal(other Element) bool {
	o, ok := other.(*Secp256k1Element)
	if !ok {
		return false
	}
	if e == nil || o == nil || e.point == nil || o.point == nil {
		return e == o
	}
	return e.point.IsEqual(o.point)
}

// IsIdentity reports whether this is the point at infinity. btcec cannot
// represent the identity as a PublicKey, so a nil point stands in for it;
// ParseElement never produces one.
func (e *Secp256k1Element) IsIdentity() bool {
	return e == nil || e.point == nil
}

// Secp256k1Scalar is a scalar modulo the secp256k1 group order.
type Secp256k1Scalar struct {
	scalar *big.Int
}

// Bytes returns the scalar as a 32-byte big-endian slice.
func (s *Secp256k1Scalar) Bytes() []byte {
	if s == nil || s.scalar == nil {
		return nil
	}
	return s.scalar.FillBytes(make([]byte, 32))
}

// BigInt returns a copy of the scalar value.
func (s *Secp256k1Scalar) BigInt() *big.Int {
	if s == nil || s.scalar == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(s.scalar)
}

// Secp256k1Group implements Group over the secp256k1 curve with the standard
// base point as g and a derived second generator h.
type Secp256k1Group struct {
	h    *btcec.PublicKey
	rand io.Reader
}

// NewSecp256k1 creates a secp256k1 group instance. The second generator is
// h = kH*G with kH = SHA-512(hGenSeed) mod n, public and reproducible.
func NewSecp256k1() *Secp256k1Group {
	seed := sha512.Sum512([]byte(hGenSeed))
	kH := new(big.Int).SetBytes(seed[:])
	kH.Mod(kH, btcec.S256().N)

	_, h := btcec.PrivKeyFromBytes(kH.FillBytes(make([]byte, 32)))
	return &Secp256k1Group{h: h, rand: rand.Reader}
}

// SetRand replaces the randomness source. Only tests should inject anything
// other than crypto/rand.
func (g *Secp256k1Group) SetRand(r io.Reader) {
	g.rand = r
}

// Name returns the curve name.
func (g *Secp256k1Group) Name() string {
	return "secp256k1"
}

// GeneratorG returns the standard secp256k1 base point.
func (g *Secp256k1Group) GeneratorG() Element {
	_, pub := btcec.PrivKeyFromBytes(big.NewInt(1).FillBytes(make([]byte, 32)))
	return &Secp256k1Element{point: pub}
}

// GeneratorH returns the derived second generator.
func (g *Secp256k1Group) GeneratorH() Element {
	return &Secp256k1Element{point: g.h}
}

// ParseElement parses a compressed or uncompressed point encoding.
func (g *Secp256k1Group) ParseElement(b []byte) (Element, error) {
	if len(b) == 0 {
		return nil, ErrInvalidElement
	}

	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidElement, err)
	}

	e := &Secp256k1Element{point: pub}
	if err := g.ValidateElement(e); err != nil {
		return nil, err
	}

	return e, nil
}

// ParseScalar parses a 32-byte big-endian scalar in [0, n-1]. Zero parses:
// responses and derived challenges can legitimately reduce to it.
func (g *Secp256k1Group) ParseScalar(b []byte) (Scalar, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: expected 32 bytes, got %d", ErrInvalidScalar, len(b))
	}

	v := new(big.Int).SetBytes(b)
	if v.Cmp(g.Order()) >= 0 {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidScalar)
	}

	return &Secp256k1Scalar{scalar: v}, nil
}

// Exp computes s * P. A nil result stands in for the point at infinity,
// which s = 0 produces for any base.
func (g *Secp256k1Group) Exp(base Element, s Scalar) Element {
	p, ok := base.(*Secp256k1Element)
	if !ok || p.point == nil {
		return nil
	}
	sc, ok := s.(*Secp256k1Scalar)
	if !ok || sc.scalar == nil {
		return nil
	}
	if sc.scalar.Sign() == 0 {
		return nil
	}

	rx, ry := btcec.S256().ScalarMult(p.point.X(), p.point.Y(), sc.scalar.Bytes())
	return elementFromCoords(rx, ry)
}

// Combine returns P + Q, the group operation. The identity, represented as a
// nil element, is neutral on either side.
func (g *Secp256k1Group) Combine(a, b Element) Element {
	if isSecp256k1Identity(a) {
		return b
	}
	if isSecp256k1Identity(b) {
		return a
	}

	pa, ok := a.(*Secp256k1Element)
	if !ok {
		return nil
	}
	pb, ok := b.(*Secp256k1Element)
	if !ok {
		return nil
	}

	rx, ry := btcec.S256().Add(pa.point.X(), pa.point.Y(), pb.point.X(), pb.point.Y())
	return elementFromCoords(rx, ry)
}

func isSecp256k1Identity(e Element) bool {
	if e == nil {
		return true
	}
	p, ok := e.(*Secp256k1Element)
	return ok && p.IsIdentity()
}

// Order returns n, the order of the secp256k1 group.
func (g *Secp256k1Group) Order() *big.Int {
	return new(big.Int).Set(btcec.S256().N)
}

// RandomScalar samples a uniform scalar in [1, n-1].
func (g *Secp256k1Group) RandomScalar() (Scalar, error) {
	bound := new(big.Int).Sub(g.Order(), big.NewInt(1))
	v, err := rand.Int(g.rand, bound)
	if err != nil {
		return nil, fmt.Errorf("failed to sample scalar: %w", err)
	}
	v.Add(v, big.NewInt(1))

	return &Secp256k1Scalar{scalar: v}, nil
}

// ValidateElement checks that the point is on the curve and not the identity.
// secp256k1 has cofactor 1, so on-curve non-identity implies membership in
// the prime-order group.
func (g *Secp256k1Group) ValidateElement(e Element) error {
	p, ok := e.(*Secp256k1Element)
	if !ok {
		return ErrInvalidElement
	}

	if p.IsIdentity() {
		return ErrIdentityElement
	}

	if !btcec.S256().IsOnCurve(p.point.X(), p.point.Y()) {
		return ErrNotInSubgroup
	}

	return nil
}

// elementFromCoords rebuilds a point from affine coordinates via its
// uncompressed encoding. Returns nil for the point at infinity.
func elementFromCoords(x, y *big.Int) Element {
	if x.Sign() == 0 && y.Sign() == 0 {
		return nil
	}

	raw := append([]byte{0x04}, append(x.FillBytes(make([]byte, 32)), y.FillBytes(make([]byte, 32))...)...)
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil
	}
	return &Secp256k1Element{point: pub}
}
