// Package group abstracts the prime-order groups in which the Chaum-Pedersen
// protocol runs.
//
// # Supported Groups
//
// The package supports three group backends:
//
//   - modp2048: the multiplicative subgroup of quadratic residues modulo the
//     RFC 3526 2048-bit safe prime. Elements are 256 bytes, scalars 256 bytes.
//     This is the group the classic interactive variant runs over.
//
//   - ristretto255: a prime-order group built on Curve25519. Points and
//     scalars are both 32 bytes. This is the group the non-interactive
//     (Fiat-Shamir) variant runs over.
//
//   - secp256k1: the Bitcoin curve, offered as an alternative elliptic
//     backend. Points are 33 bytes (compressed), scalars 32 bytes.
//
// # Two Generators
//
// Unlike plain Schnorr identification, Chaum-Pedersen proves that two group
// elements share the same discrete logarithm: y1 = g^x and y2 = h^x. Every
// Group therefore publishes two fixed, independent generators g and h. The
// derivation of h is documented per backend and reproducible by anyone; the
// protocol does not require h's discrete log relative to g to be secret,
// only that both generators are fixed before any secret is chosen.
//
// # Security Properties
//
// All implementations must reject elements outside the prime-order subgroup
// before use. Accepting an element of small order (or the identity) would
// let a prover pass verification without knowing the secret, so ParseElement
// and ValidateElement are the first line of defense against small-subgroup
// and invalid-curve-point attacks.
package group

import (
	"fmt"
	"math/big"
)

// Element represents a member of the prime-order group: a residue modulo p
// for modp2048, or a curve point for the elliptic backends.
type Element interface {
	// Bytes returns the canonical fixed-width serialization of the element.
	// Fixed widths are load-bearing: the Fiat-Shamir transcript concatenates
	// element encodings, and variable-length encodings would make the
	// concatenation ambiguous.
	Bytes() []byte

	// Equal reports whether two elements are the same group member.
	// Constant-time where the representation allows.
	Equal(other Element) bool

	// IsIdentity reports whether this is the identity element.
	// Proofs involving the identity are trivially forgeable.
	IsIdentity() bool
}

// Scalar represents an exponent modulo the group order q.
//
// Scalars appear as password-derived secrets x, per-attempt nonces k,
// challenges c, and responses s = k - c*x mod q.
type Scalar interface {
	// Bytes returns the scalar as a fixed-width big-endian byte slice,
	// zero-padded to the byte length of the group order.
	Bytes() []byte

	// BigInt returns a copy of the scalar value for modular arithmetic.
	BigInt() *big.Int
}

// Group abstracts the algebra shared by both protocol variants.
//
// The proof engine only ever talks to this interface, which is what lets the
// interactive MODP flow and the non-interactive curve flow share one set of
// verification equations.
type Group interface {
	// Name returns the group identifier (e.g. "modp2048", "ristretto255").
	// Recorded at registration and embedded in issued session credentials.
	Name() string

	// GeneratorG returns the first fixed generator g.
	GeneratorG() Element

	// GeneratorH returns the second fixed generator h, distinct from g.
	// See each backend for the documented derivation.
	GeneratorH() Element

	// ParseElement deserializes and validates a group element.
	// Returns ErrInvalidElement (or a wrapper of it) for encodings that are
	// malformed or denote a value outside the prime-order subgroup.
	ParseElement(b []byte) (Element, error)

	// ParseScalar deserializes a scalar, rejecting values outside [0, q-1].
	// Zero is admitted: a response s = k - c*x mod q (or a hash-derived
	// challenge) can legitimately reduce to it. Secrets and nonces stay
	// nonzero because their samplers never produce zero.
	ParseScalar(b []byte) (Scalar, error)

	// Exp computes base^s: modular exponentiation for modp2048, scalar
	// multiplication for the elliptic backends.
	Exp(base Element, s Scalar) Element

	// Combine applies the group operation: modular multiplication for
	// modp2048, point addition for the elliptic backends. Verification
	// computes Combine(Exp(g, s), Exp(y1, c)) and compares it against r1.
	Combine(a, b Element) Element

	// Order returns q, the prime order of the group. All scalar arithmetic
	// is performed modulo q.
	Order() *big.Int

	// RandomScalar samples a uniform scalar in [1, q-1] from the group's
	// randomness source (crypto/rand unless a test injects its own).
	RandomScalar() (Scalar, error)

	// ValidateElement checks that an element is safe for cryptographic use:
	// inside the prime-order subgroup and not the identity.
	ValidateElement(e Element) error
}

var (
	// ErrInvalidElement indicates an encoding that is not a member of the
	// expected prime-order subgroup. Always fatal to the request.
	ErrInvalidElement = fmt.Errorf("invalid group element")

	// ErrInvalidScalar indicates a scalar outside [0, q-1].
	ErrInvalidScalar = fmt.Errorf("invalid scalar")

	// ErrIdentityElement indicates the identity element.
	ErrIdentityElement = fmt.Errorf("element is the identity")

	// ErrNotInSubgroup indicates a value that failed the subgroup
	// membership check.
	ErrNotInSubgroup = fmt.Errorf("element is not in the prime-order subgroup")
)
