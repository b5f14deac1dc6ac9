package group

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
)

// rfc3526Prime2048 is the 2048-bit MODP safe prime from RFC 3526 section 3.
const rfc3526Prime2048 = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
	"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
	"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
	"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
	"15728E5A8AACAA68FFFFFFFFFFFFFFFF"

// MODPElement is a residue in the quadratic-residue subgroup modulo p.
type MODPElement struct {
	v    *big.Int
	size int
}

// Bytes returns the element as a fixed-width big-endian encoding of p's
// byte length.
func (e *MODPElement) Bytes() []byte {
	if e == nil || e.v == nil {
		return nil
	}
	return e.v.FillBytes(make([]byte, e.size))
}

// Equal compares the fixed-width encodings in constant time.
func (e *MODPElement) Equal(other Element) bool {
	o, ok := other.(*MODPElement)
	if !ok || e == nil || o == nil {
		return false
	}
	return subtle.ConstantTimeCompare(e.Bytes(), o.Bytes()) == 1
}

// IsIdentity reports whether the element is 1, the multiplicative identity.
func (e *MODPElement) IsIdentity() bool {
	return e == nil || e.v == nil || e.v.Cmp(big.NewInt(1)) == 0
}

// MODPScalar is an exponent modulo the subgroup order q.
type MODPScalar struct {
	v    *big.Int
	size int
}

// Bytes returns the scalar zero-padded to q's byte length, big-endian.
func (s *MODPScalar) Bytes() []byte {
	if s == nil || s.v == nil {
		return nil
	}
	return s.v.FillBytes(make([]byte, s.size))
}

// BigInt returns a copy of the scalar value.
func (s *MODPScalar) BigInt() *big.Int {
	if s == nil || s.v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(s.v)
}

// MODPGroup is the subgroup of quadratic residues modulo a safe prime p.
// The subgroup has prime order q = (p-1)/2, so every non-identity element
// is a generator and membership is checked with a single exponentiation.
type MODPGroup struct {
	name string
	p    *big.Int
	q    *big.Int
	g    *big.Int
	h    *big.Int
	rand io.Reader

	elemSize   int
	scalarSize int
}

// NewMODPGroup builds a group from explicit parameters. p must be a safe
// prime with q = (p-1)/2 prime, and g, h must be distinct quadratic residues.
// Exposed so tests can run the protocol in a small toy group.
func NewMODPGroup(name string, p, q, g, h *big.Int) (*MODPGroup, error) {
	grp := &MODPGroup{
		name:       name,
		p:          new(big.Int).Set(p),
		q:          new(big.Int).Set(q),
		g:          new(big.Int).Set(g),
		h:          new(big.Int).Set(h),
		rand:       rand.Reader,
		elemSize:   (p.BitLen() + 7) / 8,
		scalarSize: (q.BitLen() + 7) / 8,
	}

	check := new(big.Int).Mul(q, big.NewInt(2))
	check.Add(check, big.NewInt(1))
	if check.Cmp(p) != 0 {
		return nil, fmt.Errorf("modp: q is not (p-1)/2")
	}
	if g.Cmp(h) == 0 {
		return nil, fmt.Errorf("modp: generators g and h must be distinct")
	}
	for _, gen := range []*big.Int{g, h} {
		if err := grp.validateResidue(gen); err != nil {
			return nil, fmt.Errorf("modp: bad generator %v: %w", gen, err)
		}
	}

	return grp, nil
}

// NewRFC3526Group returns the 2048-bit MODP group from RFC 3526 with
// generators g = 4 and h = 9. The RFC's generator is 2; its square 4 (and
// likewise 9 = 3^2) is a quadratic residue and therefore lies in the
// prime-order subgroup. Both values are fixed and public.
func NewRFC3526Group() *MODPGroup {
	p, ok := new(big.Int).SetString(rfc3526Prime2048, 16)
	if !ok {
		panic("modp: invalid RFC 3526 prime constant")
	}
	q := new(big.Int).Rsh(new(big.Int).Sub(p, big.NewInt(1)), 1)

	grp, err := NewMODPGroup("modp2048", p, q, big.NewInt(4), big.NewInt(9))
	if err != nil {
		panic(fmt.Sprintf("modp: RFC 3526 parameters rejected: %v", err))
	}
	return grp
}

// SetRand replaces the randomness source. Only tests should inject anything
// other than crypto/rand.
func (g *MODPGroup) SetRand(r io.Reader) {
	g.rand = r
}

// Name returns the group identifier.
func (g *MODPGroup) Name() string {
	return g.name
}

// GeneratorG returns the first fixed generator.
func (g *MODPGroup) GeneratorG() Element {
	return &MODPElement{v: new(big.Int).Set(g.g), size: g.elemSize}
}

// GeneratorH returns the second fixed generator.
func (g *MODPGroup) GeneratorH() Element {
	return &MODPElement{v: new(big.Int).Set(g.h), size: g.elemSize}
}

// ParseElement decodes a fixed-width residue and checks subgroup membership.
func (g *MODPGroup) ParseElement(b []byte) (Element, error) {
	if len(b) == 0 || len(b) > g.elemSize {
		return nil, fmt.Errorf("%w: expected at most %d bytes, got %d", ErrInvalidElement, g.elemSize, len(b))
	}

	v := new(big.Int).SetBytes(b)
	if err := g.validateResidue(v); err != nil {
		return nil, err
	}

	return &MODPElement{v: v, size: g.elemSize}, nil
}

// ParseScalar decodes a big-endian scalar in [0, q-1]. Zero is a legitimate
// wire value: the response s = k - c*x mod q can land on it.
func (g *MODPGroup) ParseScalar(b []byte) (Scalar, error) {
	if len(b) == 0 || len(b) > g.scalarSize {
		return nil, fmt.Errorf("%w: expected at most %d bytes, got %d", ErrInvalidScalar, g.scalarSize, len(b))
	}

	v := new(big.Int).SetBytes(b)
	if v.Cmp(g.q) >= 0 {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidScalar)
	}

	return &MODPScalar{v: v, size: g.scalarSize}, nil
}

// Exp computes base^s mod p.
func (g *MODPGroup) Exp(base Element, s Scalar) Element {
	b, ok := base.(*MODPElement)
	if !ok || b.v == nil {
		return nil
	}
	sc, ok := s.(*MODPScalar)
	if !ok || sc.v == nil {
		return nil
	}

	return &MODPElement{v: new(big.Int).Exp(b.v, sc.v, g.p), size: g.elemSize}
}

// Combine computes a*b mod p, the group operation.
func (g *MODPGroup) Combine(a, b Element) Element {
	ma, ok := a.(*MODPElement)
	if !ok || ma.v == nil {
		return nil
	}
	mb, ok := b.(*MODPElement)
	if !ok || mb.v == nil {
		return nil
	}

	v := new(big.Int).Mul(ma.v, mb.v)
	v.Mod(v, g.p)
	return &MODPElement{v: v, size: g.elemSize}
}

// Order returns q.
func (g *MODPGroup) Order() *big.Int {
	return new(big.Int).Set(g.q)
}

// RandomScalar samples a uniform scalar in [1, q-1].
func (g *MODPGroup) RandomScalar() (Scalar, error) {
	bound := new(big.Int).Sub(g.q, big.NewInt(1))
	v, err := rand.Int(g.rand, bound)
	if err != nil {
		return nil, fmt.Errorf("failed to sample scalar: %w", err)
	}
	v.Add(v, big.NewInt(1))

	return &MODPScalar{v: v, size: g.scalarSize}, nil
}

// ValidateElement checks range, subgroup membership, and non-identity.
func (g *MODPGroup) ValidateElement(e Element) error {
	m, ok := e.(*MODPElement)
	if !ok || m.v == nil {
		return ErrInvalidElement
	}
	return g.validateResidue(m.v)
}

// validateResidue enforces 1 < v < p and v^q == 1 mod p. The order check is
// what blocks small-subgroup confinement: an element of order 2 would pass
// the range check but fail the exponentiation.
func (g *MODPGroup) validateResidue(v *big.Int) error {
	if v.Sign() <= 0 || v.Cmp(g.p) >= 0 {
		return fmt.Errorf("%w: out of range", ErrInvalidElement)
	}
	if v.Cmp(big.NewInt(1)) == 0 {
		return ErrIdentityElement
	}
	if new(big.Int).Exp(v, g.q, g.p).Cmp(big.NewInt(1)) != 0 {
		return ErrNotInSubgroup
	}
	return nil
}
