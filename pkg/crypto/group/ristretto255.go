package group

import (
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"io"
	"math/big"

	"github.com/gtank/ristretto255"
)

// hGenSeed feeds the derivation of the second generator h for the elliptic
// backends: h = g^kH with kH = fromUniform(SHA-512(hGenSeed)). kH is public
// and reproducible by anyone; Chaum-Pedersen does not rely on h's discrete
// log being unknown, only on g and h being fixed ahead of time.
const hGenSeed = "cpauth/1/h-gen"

// Ristretto255Element is a point in the Ristretto255 prime-order group.
type Ristretto255Element struct {
	point *ristretto255.Element
}

// Bytes returns the canonical 32-byte encoding of the point.
func (e *Ristretto255Element) Bytes() []byte {
	if e == nil || e.point == nil {
		return nil
	}

	encoded := e.point.Encode(nil)
	out := make([]byte, len(encoded))
	copy(out, encoded)
	return out
}

// Equal reports whether two points are identical.
func (e *Ristretto255Element) Equal(other Element) bool {
	o, ok := other.(*Ristretto255Element)
	if !ok {
		return false
	}

	switch {
	case e == nil && o == nil:
		return true
	case e == nil || o == nil:
		return false
	}

	return e.point.Equal(o.point) == 1
}

// IsIdentity reports whether the point is the identity element.
func (e *Ristretto255Element) IsIdentity() bool {
	if e == nil || e.point == nil {
		return true
	}

	return e.point.Equal(ristretto255.NewIdentityElement()) == 1
}

// Ristretto255Scalar is a scalar modulo the Ristretto255 group order.
type Ristretto255Scalar struct {
	scalar *ristretto255.Scalar
}

// Bytes returns the canonical 32-byte big-endian encoding of the scalar
// (converted from the library's internal little-endian form).
func (s *Ristretto255Scalar) Bytes() []byte {
	if s == nil || s.scalar == nil {
		return nil
	}

	le := s.scalar.Bytes()
	be := make([]byte, len(le))
	for i := range le {
		be[len(le)-1-i] = le[i]
	}
	return be
}

// BigInt returns the scalar value as a big.Int.
func (s *Ristretto255Scalar) BigInt() *big.Int {
	if s == nil || s.scalar == nil {
		return big.NewInt(0)
	}

	return new(big.Int).SetBytes(s.Bytes())
}

// Ristretto255Group implements Group over the Ristretto prime-order group,
// the Curve25519-family backend used by the non-interactive variant.
type Ristretto255Group struct {
	g    *ristretto255.Element
	h    *ristretto255.Element
	rand io.Reader
}

// NewRistretto255 creates a Ristretto255 group with the canonical base point
// as g and the derived second generator as h.
func NewRistretto255() *Ristretto255Group {
	one := ristretto255.NewScalar()
	oneBytes := make([]byte, 32)
	oneBytes[0] = 1 // little-endian
	if _, err := one.SetCanonicalBytes(oneBytes); err != nil {
		panic(fmt.Sprintf("ristretto255: unit scalar rejected: %v", err))
	}
	g := ristretto255.NewIdentityElement()
	g.ScalarBaseMult(one)

	seed := sha512.Sum512([]byte(hGenSeed))
	kH := ristretto255.NewScalar()
	if _, err := kH.SetUniformBytes(seed[:]); err != nil {
		panic(fmt.Sprintf("ristretto255: h derivation failed: %v", err))
	}

	h := ristretto255.NewIdentityElement()
	h.ScalarBaseMult(kH)

	return &Ristretto255Group{g: g, h: h, rand: rand.Reader}
}

// SetRand replaces the randomness source. Only tests should inject anything
// other than crypto/rand.
func (g *Ristretto255Group) SetRand(r io.Reader) {
	g.rand = r
}

// Name returns the canonical group name.
func (g *Ristretto255Group) Name() string {
	return "ristretto255"
}

// GeneratorG returns the canonical Ristretto base point.
func (g *Ristretto255Group) GeneratorG() Element {
	elem := ristretto255.NewIdentityElement()
	elem.Add(ristretto255.NewIdentityElement(), g.g)
	return &Ristretto255Element{point: elem}
}

// GeneratorH returns the derived second generator.
func (g *Ristretto255Group) GeneratorH() Element {
	elem := ristretto255.NewIdentityElement()
	elem.Add(ristretto255.NewIdentityElement(), g.h)
	return &Ristretto255Element{point: elem}
}

// ParseElement decodes a canonical 32-byte Ristretto point encoding and
// rejects the identity.
func (g *Ristretto255Group) ParseElement(b []byte) (Element, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: expected 32 bytes, got %d", ErrInvalidElement, len(b))
	}

	elem := ristretto255.NewIdentityElement()
	if _, err := elem.SetCanonicalBytes(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidElement, err)
	}

	e := &Ristretto255Element{point: elem}
	if e.IsIdentity() {
		return nil, ErrIdentityElement
	}

	return e, nil
}

// ParseScalar decodes a 32-byte big-endian scalar in [0, q-1]. Zero parses:
// responses and derived challenges can legitimately reduce to it.
func (g *Ristretto255Group) ParseScalar(b []byte) (Scalar, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: expected 32 bytes, got %d", ErrInvalidScalar, len(b))
	}

	bi := new(big.Int).SetBytes(b)
	if bi.Cmp(g.Order()) >= 0 {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidScalar)
	}

	le := make([]byte, 32)
	be := bi.FillBytes(make([]byte, 32))
	for i := range be {
		le[i] = be[len(be)-1-i]
	}

	sc := ristretto255.NewScalar()
	if _, err := sc.SetCanonicalBytes(le); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScalar, err)
	}

	return &Ristretto255Scalar{scalar: sc}, nil
}

// Exp computes s * P.
func (g *Ristretto255Group) Exp(base Element, s Scalar) Element {
	p, ok := base.(*Ristretto255Element)
	if !ok || p.point == nil {
		return nil
	}
	sc, ok := s.(*Ristretto255Scalar)
	if !ok || sc.scalar == nil {
		return nil
	}

	elem := ristretto255.NewIdentityElement()
	elem.ScalarMult(sc.scalar, p.point)
	return &Ristretto255Element{point: elem}
}

// Combine returns P + Q, the group operation.
func (g *Ristretto255Group) Combine(a, b Element) Element {
	ra, ok := a.(*Ristretto255Element)
	if !ok || ra.point == nil {
		return nil
	}
	rb, ok := b.(*Ristretto255Element)
	if !ok || rb.point == nil {
		return nil
	}

	elem := ristretto255.NewIdentityElement()
	elem.Add(ra.point, rb.point)
	return &Ristretto255Element{point: elem}
}

// Order returns the order of the Ristretto255 group.
func (g *Ristretto255Group) Order() *big.Int {
	// l = 2^252 + 27742317777372353535851937790883648493
	order := new(big.Int).Lsh(big.NewInt(1), 252)
	addend, _ := new(big.Int).SetString("27742317777372353535851937790883648493", 10)
	return order.Add(order, addend)
}

// RandomScalar returns a uniformly random non-zero scalar.
func (g *Ristretto255Group) RandomScalar() (Scalar, error) {
	seed := make([]byte, 64)
	if _, err := io.ReadFull(g.rand, seed); err != nil {
		return nil, fmt.Errorf("failed to sample scalar: %w", err)
	}

	sc := ristretto255.NewScalar()
	if _, err := sc.SetUniformBytes(seed); err != nil {
		return nil, fmt.Errorf("failed to derive scalar: %w", err)
	}

	s := &Ristretto255Scalar{scalar: sc}
	if s.BigInt().Sign() == 0 {
		return g.RandomScalar()
	}
	return s, nil
}

// ValidateElement ensures the element is a non-identity Ristretto point.
func (g *Ristretto255Group) ValidateElement(e Element) error {
	re, ok := e.(*Ristretto255Element)
	if !ok || re.point == nil {
		return ErrInvalidElement
	}

	if re.IsIdentity() {
		return ErrIdentityElement
	}

	return nil
}
