// Package chaumpedersen implements the Chaum-Pedersen protocol for
// zero-knowledge proof of a shared discrete logarithm.
//
// # Protocol Overview
//
// The prover holds a secret scalar x and has published the commitment pair
// (y1, y2) = (g^x, h^x) over two fixed generators g and h. A login attempt
// proves knowledge of x without revealing it:
//
//  1. COMMITMENT (Prover → Verifier):
//     - Prover samples a fresh random nonce k
//     - Prover computes (r1, r2) = (g^k, h^k) and sends them
//
//  2. CHALLENGE:
//     - Interactive variant: the verifier samples a random scalar c after
//       receiving the commitment and sends it back
//     - Non-interactive variant (Fiat-Shamir): the prover derives
//       c = H(g || h || y1 || y2 || r1 || r2) mod q itself
//
//  3. RESPONSE (Prover → Verifier):
//     - Prover computes s = k - c*x (mod q) and sends it
//
//  4. VERIFICATION:
//     - Verifier accepts iff g^s * y1^c == r1 AND h^s * y2^c == r2
//
// # Why This Works
//
// Substituting s = k - c*x into the first equation:
//
//	g^s * y1^c = g^(k - c*x) * g^(x*c) = g^k = r1
//
// and identically for h. Both equations must hold; checking only one would
// let a prover use unrelated exponents for g and h.
//
// # Nonce Discipline
//
// The nonce k must be fresh for every attempt. Two responses s1, s2 under
// the same k and distinct challenges c1, c2 satisfy two linear equations in
// the two unknowns k and x, so any observer recovers the secret as
// x = (s2 - s1) / (c1 - c2) mod q. Commit never accepts a caller-supplied
// nonce for exactly this reason.
package chaumpedersen

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"
	"math/big"

	"github.com/Elvis339/chaum-pedersen-zkp/pkg/crypto/group"
)

// Domain separation constants. Hashes computed for different purposes must
// never be interchangeable, even on identical inputs.
const (
	// DomainChallenge prefixes the Fiat-Shamir transcript hash.
	DomainChallenge = "cpauth/1/chal"

	// DomainSecret prefixes the password-to-scalar derivation.
	DomainSecret = "cpauth/1/secret"
)

// SecretScalar derives the prover's secret exponent from a password:
//
//	x = SHA-512(DomainSecret || password) mod q
//
// The derivation is fixed; changing it would invalidate every stored
// commitment pair, so it is versioned through the domain prefix.
func SecretScalar(grp group.Group, password []byte) (group.Scalar, error) {
	h := sha512.New()
	h.Write([]byte(DomainSecret))
	h.Write(password)

	x := new(big.Int).SetBytes(h.Sum(nil))
	x.Mod(x, grp.Order())
	if x.Sign() == 0 {
		// A zero secret would make (y1, y2) the identity pair. The reduction
		// of a 512-bit hash hits it with negligible probability.
		return nil, fmt.Errorf("degenerate secret scalar")
	}

	return scalarFromBigInt(grp, x)
}

// PublicCommitment computes the registration pair (y1, y2) = (g^x, h^x).
func PublicCommitment(grp group.Group, x group.Scalar) (y1, y2 group.Element) {
	return grp.Exp(grp.GeneratorG(), x), grp.Exp(grp.GeneratorH(), x)
}

// Commit starts a login attempt: it samples a fresh nonce k and computes the
// proof commitment (r1, r2) = (g^k, h^k). The caller must retain k until the
// response is computed and must never reuse it.
func Commit(grp group.Group) (k group.Scalar, r1, r2 group.Element, err error) {
	k, err = grp.RandomScalar()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to sample nonce: %w", err)
	}

	r1 = grp.Exp(grp.GeneratorG(), k)
	r2 = grp.Exp(grp.GeneratorH(), k)
	if r1 == nil || r2 == nil {
		return nil, nil, nil, fmt.Errorf("failed to compute proof commitment")
	}

	return k, r1, r2, nil
}

// SolveChallenge computes the response s = k - c*x mod q.
func SolveChallenge(grp group.Group, k, c, x group.Scalar) (group.Scalar, error) {
	q := grp.Order()

	cx := new(big.Int).Mul(c.BigInt(), x.BigInt())
	cx.Mod(cx, q)

	s := new(big.Int).Sub(k.BigInt(), cx)
	s.Mod(s, q) // big.Int.Mod wraps into [0, q) for q > 0

	return scalarFromBigInt(grp, s)
}

// ChallengeSource produces the verifier's challenge for one login attempt.
// The two implementations are what distinguish the protocol variants; the
// commitment, response, and verification equations are identical.
//
// Production code uses RandomChallenge or TranscriptChallenge; tests may
// substitute a deterministic source for fixture scenarios.
type ChallengeSource interface {
	Challenge(grp group.Group, y1, y2, r1, r2 group.Element) (group.Scalar, error)
}

// RandomChallenge is the interactive source: a uniformly random scalar,
// sampled only after the commitment has been received and independent of it.
type RandomChallenge struct {
	// Rand is the entropy source; nil means crypto/rand.
	Rand io.Reader
}

// Challenge samples a uniform scalar in [1, q-1], ignoring the transcript.
func (r RandomChallenge) Challenge(grp group.Group, _, _, _, _ group.Element) (group.Scalar, error) {
	src := r.Rand
	if src == nil {
		src = rand.Reader
	}

	bound := new(big.Int).Sub(grp.Order(), big.NewInt(1))
	v, err := rand.Int(src, bound)
	if err != nil {
		return nil, fmt.Errorf("failed to sample challenge: %w", err)
	}
	v.Add(v, big.NewInt(1))

	return scalarFromBigInt(grp, v)
}

// TranscriptChallenge is the Fiat-Shamir source: the challenge is a hash of
// the full public transcript, so prover and verifier derive the same value
// independently and neither can choose it after the fact.
type TranscriptChallenge struct{}

// Challenge derives the transcript hash challenge.
func (TranscriptChallenge) Challenge(grp group.Group, y1, y2, r1, r2 group.Element) (group.Scalar, error) {
	return DeriveChallenge(grp, y1, y2, r1, r2)
}

// DeriveChallenge computes the Fiat-Shamir challenge scalar:
//
//	c = SHA-256(DomainChallenge || g || h || y1 || y2 || r1 || r2) mod q
//
// Every public value that influences the verification equations is bound
// into the hash. Omitting any one of them would let a malicious party pick
// that value after seeing the challenge, which is exactly the freedom the
// interactive protocol denies the prover. All encodings are the fixed-width
// canonical forms from the group backend, so the concatenation is
// unambiguous without length prefixes.
func DeriveChallenge(grp group.Group, y1, y2, r1, r2 group.Element) (group.Scalar, error) {
	h := sha256.New()
	h.Write([]byte(DomainChallenge))
	h.Write(grp.GeneratorG().Bytes())
	h.Write(grp.GeneratorH().Bytes())
	h.Write(y1.Bytes())
	h.Write(y2.Bytes())
	h.Write(r1.Bytes())
	h.Write(r2.Bytes())

	c := new(big.Int).SetBytes(h.Sum(nil))
	c.Mod(c, grp.Order())

	// Zero is a valid (if astronomically unlikely) reduction of the hash;
	// the verification equations degrade gracefully to g^s == r1, h^s == r2.
	return scalarFromBigInt(grp, c)
}

// VerificationResult carries the outcome of proof verification. Error holds
// the reason an ill-formed proof was rejected; callers must not forward the
// distinction between a wrong secret and tampering to the prover.
type VerificationResult struct {
	Valid bool
	Error error
}

// Verify checks a Chaum-Pedersen proof from its wire encodings:
//
//	g^s * y1^c == r1  AND  h^s * y2^c == r2
//
// All four elements are parsed and validated for subgroup membership before
// any arithmetic, and both scalars are range-checked; a malformed input is a
// rejection, never a panic. Both equations are always evaluated.
func Verify(grp group.Group, y1, y2, r1, r2, c, s []byte) (*VerificationResult, error) {
	Y1, err := parseChecked(grp, y1)
	if err != nil {
		return &VerificationResult{Error: fmt.Errorf("invalid y1: %w", err)}, nil
	}
	Y2, err := parseChecked(grp, y2)
	if err != nil {
		return &VerificationResult{Error: fmt.Errorf("invalid y2: %w", err)}, nil
	}
	R1, err := parseChecked(grp, r1)
	if err != nil {
		return &VerificationResult{Error: fmt.Errorf("invalid r1: %w", err)}, nil
	}
	R2, err := parseChecked(grp, r2)
	if err != nil {
		return &VerificationResult{Error: fmt.Errorf("invalid r2: %w", err)}, nil
	}

	cs, err := grp.ParseScalar(c)
	if err != nil {
		return &VerificationResult{Error: fmt.Errorf("invalid challenge: %w", err)}, nil
	}
	ss, err := grp.ParseScalar(s)
	if err != nil {
		return &VerificationResult{Error: fmt.Errorf("invalid response: %w", err)}, nil
	}

	// Left equation: g^s * y1^c == r1
	lhs1 := grp.Combine(grp.Exp(grp.GeneratorG(), ss), grp.Exp(Y1, cs))
	if lhs1 == nil {
		return &VerificationResult{Error: fmt.Errorf("failed to compute g^s * y1^c")}, nil
	}

	// Right equation: h^s * y2^c == r2
	lhs2 := grp.Combine(grp.Exp(grp.GeneratorH(), ss), grp.Exp(Y2, cs))
	if lhs2 == nil {
		return &VerificationResult{Error: fmt.Errorf("failed to compute h^s * y2^c")}, nil
	}

	ok1 := lhs1.Equal(R1)
	ok2 := lhs2.Equal(R2)

	return &VerificationResult{Valid: ok1 && ok2}, nil
}

// Proof is the non-interactive proof transmitted by the prover. The
// challenge is deliberately absent; the verifier recomputes it from the
// transcript, which is what makes a tampered commitment self-defeating.
type Proof struct {
	R1 []byte
	R2 []byte
	S  []byte
}

// Prove produces a non-interactive proof of knowledge of x. Each call
// samples a fresh nonce; everything after the nonce is a deterministic
// function of the transcript.
func Prove(grp group.Group, x group.Scalar) (*Proof, error) {
	k, r1, r2, err := Commit(grp)
	if err != nil {
		return nil, err
	}

	y1, y2 := PublicCommitment(grp, x)

	c, err := DeriveChallenge(grp, y1, y2, r1, r2)
	if err != nil {
		return nil, err
	}

	s, err := SolveChallenge(grp, k, c, x)
	if err != nil {
		return nil, err
	}

	return &Proof{R1: r1.Bytes(), R2: r2.Bytes(), S: s.Bytes()}, nil
}

// VerifyNonInteractive checks a Fiat-Shamir proof against a stored
// commitment pair, re-deriving the challenge from the received transcript.
func VerifyNonInteractive(grp group.Group, y1, y2 []byte, proof *Proof) (*VerificationResult, error) {
	Y1, err := parseChecked(grp, y1)
	if err != nil {
		return &VerificationResult{Error: fmt.Errorf("invalid y1: %w", err)}, nil
	}
	Y2, err := parseChecked(grp, y2)
	if err != nil {
		return &VerificationResult{Error: fmt.Errorf("invalid y2: %w", err)}, nil
	}
	R1, err := parseChecked(grp, proof.R1)
	if err != nil {
		return &VerificationResult{Error: fmt.Errorf("invalid r1: %w", err)}, nil
	}
	R2, err := parseChecked(grp, proof.R2)
	if err != nil {
		return &VerificationResult{Error: fmt.Errorf("invalid r2: %w", err)}, nil
	}

	c, err := DeriveChallenge(grp, Y1, Y2, R1, R2)
	if err != nil {
		return &VerificationResult{Error: err}, nil
	}

	return Verify(grp, Y1.Bytes(), Y2.Bytes(), R1.Bytes(), R2.Bytes(), c.Bytes(), proof.S)
}

// parseChecked parses an element and runs the full membership validation.
func parseChecked(grp group.Group, b []byte) (group.Element, error) {
	e, err := grp.ParseElement(b)
	if err != nil {
		return nil, err
	}
	if err := grp.ValidateElement(e); err != nil {
		return nil, err
	}
	return e, nil
}

// scalarFromBigInt round-trips a big.Int through the group's canonical
// scalar encoding, enforcing the [0, q-1] range.
func scalarFromBigInt(grp group.Group, v *big.Int) (group.Scalar, error) {
	return grp.ParseScalar(padToOrderBytes(v, grp))
}

// padToOrderBytes serializes a big.Int zero-padded to the byte length of
// the group order.
func padToOrderBytes(v *big.Int, grp group.Group) []byte {
	size := (grp.Order().BitLen() + 7) / 8
	return v.FillBytes(make([]byte, size))
}
