package chaumpedersen

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/Elvis339/chaum-pedersen-zkp/pkg/crypto/group"
)

// toyGroup is a small safe-prime group (p=23, q=11, g=4, h=9) used for
// fixture scenarios with hand-checkable numbers.
func toyGroup(t *testing.T) *group.MODPGroup {
	t.Helper()

	grp, err := group.NewMODPGroup("toy",
		big.NewInt(23), big.NewInt(11), big.NewInt(4), big.NewInt(9))
	if err != nil {
		t.Fatalf("failed to build toy group: %v", err)
	}
	return grp
}

func mustScalar(t *testing.T, grp group.Group, v int64) group.Scalar {
	t.Helper()

	s, err := grp.ParseScalar(padToOrderBytes(big.NewInt(v), grp))
	if err != nil {
		t.Fatalf("failed to build scalar %d: %v", v, err)
	}
	return s
}

func TestInteractiveScenarios(t *testing.T) {
	grp := toyGroup(t)

	x := mustScalar(t, grp, 6)
	k := mustScalar(t, grp, 7)
	c := mustScalar(t, grp, 4)

	y1, y2 := PublicCommitment(grp, x)
	r1 := grp.Exp(grp.GeneratorG(), k)
	r2 := grp.Exp(grp.GeneratorH(), k)

	t.Run("HonestProverAccepted", func(t *testing.T) {
		s, err := SolveChallenge(grp, k, c, x)
		if err != nil {
			t.Fatalf("failed to solve challenge: %v", err)
		}

		// s = 7 - 4*6 mod 11 = 5
		if got := s.BigInt().Int64(); got != 5 {
			t.Fatalf("expected s=5, got %d", got)
		}

		result, err := Verify(grp, y1.Bytes(), y2.Bytes(), r1.Bytes(), r2.Bytes(), c.Bytes(), s.Bytes())
		if err != nil {
			t.Fatalf("verify errored: %v", err)
		}
		if !result.Valid {
			t.Error("honest proof should be accepted")
		}
	})

	t.Run("ZeroResponseAccepted", func(t *testing.T) {
		// c = 3 makes the honest response wrap to zero: s = 7 - 3*6 mod 11 = 0.
		// The equations still hold by hand: g^0 * y1^3 = 2^3 mod 23 = 8 = r1
		// and h^0 * y2^3 = 3^3 mod 23 = 4 = r2, so a zero response from the
		// right secret must be accepted like any other.
		c3 := mustScalar(t, grp, 3)
		s, err := SolveChallenge(grp, k, c3, x)
		if err != nil {
			t.Fatalf("failed to solve challenge: %v", err)
		}
		if s.BigInt().Sign() != 0 {
			t.Fatalf("expected s=0, got %v", s.BigInt())
		}

		result, err := Verify(grp, y1.Bytes(), y2.Bytes(), r1.Bytes(), r2.Bytes(), c3.Bytes(), s.Bytes())
		if err != nil {
			t.Fatalf("verify errored: %v", err)
		}
		if result.Error != nil {
			t.Fatalf("zero response should parse, got: %v", result.Error)
		}
		if !result.Valid {
			t.Error("honest proof with zero response should be accepted")
		}
	})

	t.Run("WrongSecretRejected", func(t *testing.T) {
		wrongX := mustScalar(t, grp, 5)
		s, err := SolveChallenge(grp, k, c, wrongX)
		if err != nil {
			t.Fatalf("failed to solve challenge: %v", err)
		}

		result, err := Verify(grp, y1.Bytes(), y2.Bytes(), r1.Bytes(), r2.Bytes(), c.Bytes(), s.Bytes())
		if err != nil {
			t.Fatalf("verify errored: %v", err)
		}
		if result.Valid {
			t.Error("proof from wrong secret should be rejected")
		}
	})

	t.Run("WrongSecretRejectedForEveryChallenge", func(t *testing.T) {
		// Soundness check: with a fixed commitment and a wrong secret, no
		// admissible challenge in the toy group produces a valid response.
		wrongX := mustScalar(t, grp, 5)
		for cv := int64(1); cv < 11; cv++ {
			ci := mustScalar(t, grp, cv)
			s, err := SolveChallenge(grp, k, ci, wrongX)
			if err != nil {
				t.Fatalf("failed to solve challenge %d: %v", cv, err)
			}

			result, err := Verify(grp, y1.Bytes(), y2.Bytes(), r1.Bytes(), r2.Bytes(), ci.Bytes(), s.Bytes())
			if err != nil {
				t.Fatalf("verify errored for c=%d: %v", cv, err)
			}
			if result.Valid {
				t.Errorf("wrong secret accepted for c=%d", cv)
			}
		}
	})

	t.Run("OutOfRangeScalarRejected", func(t *testing.T) {
		// c = q is out of [0, q-1]
		result, err := Verify(grp, y1.Bytes(), y2.Bytes(), r1.Bytes(), r2.Bytes(), []byte{11}, []byte{5})
		if err != nil {
			t.Fatalf("verify errored: %v", err)
		}
		if result.Valid || result.Error == nil {
			t.Error("out-of-range challenge should be rejected with an error")
		}
	})

	t.Run("NonMemberElementRejected", func(t *testing.T) {
		// 5 is not a quadratic residue mod 23, so it fails membership.
		result, err := Verify(grp, []byte{5}, y2.Bytes(), r1.Bytes(), r2.Bytes(), c.Bytes(), []byte{5})
		if err != nil {
			t.Fatalf("verify errored: %v", err)
		}
		if result.Valid || result.Error == nil {
			t.Error("non-member y1 should be rejected with an error")
		}
	})
}

func TestCompleteness(t *testing.T) {
	groups := map[string]group.Group{
		"modp2048":     group.NewRFC3526Group(),
		"ristretto255": group.NewRistretto255(),
		"secp256k1":    group.NewSecp256k1(),
	}

	for name, grp := range groups {
		grp := grp
		t.Run(name, func(t *testing.T) {
			x, err := SecretScalar(grp, []byte("nyancat"))
			if err != nil {
				t.Fatalf("failed to derive secret: %v", err)
			}
			y1, y2 := PublicCommitment(grp, x)

			for i := 0; i < 4; i++ {
				k, r1, r2, err := Commit(grp)
				if err != nil {
					t.Fatalf("commit failed: %v", err)
				}

				c, err := RandomChallenge{}.Challenge(grp, y1, y2, r1, r2)
				if err != nil {
					t.Fatalf("challenge failed: %v", err)
				}

				s, err := SolveChallenge(grp, k, c, x)
				if err != nil {
					t.Fatalf("respond failed: %v", err)
				}

				result, err := Verify(grp, y1.Bytes(), y2.Bytes(), r1.Bytes(), r2.Bytes(), c.Bytes(), s.Bytes())
				if err != nil {
					t.Fatalf("verify errored: %v", err)
				}
				if !result.Valid {
					t.Fatalf("honest proof %d rejected", i)
				}
			}
		})
	}
}

func TestFiatShamir(t *testing.T) {
	grp := group.NewRistretto255()

	x, err := SecretScalar(grp, []byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("failed to derive secret: %v", err)
	}
	y1, y2 := PublicCommitment(grp, x)

	t.Run("RoundTrip", func(t *testing.T) {
		proof, err := Prove(grp, x)
		if err != nil {
			t.Fatalf("prove failed: %v", err)
		}

		result, err := VerifyNonInteractive(grp, y1.Bytes(), y2.Bytes(), proof)
		if err != nil {
			t.Fatalf("verify errored: %v", err)
		}
		if !result.Valid {
			t.Error("honest proof should be accepted")
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		// With a fixed nonce the whole proof is a function of its inputs:
		// running the prover steps twice must give identical transcripts.
		k, err := grp.RandomScalar()
		if err != nil {
			t.Fatalf("failed to sample nonce: %v", err)
		}

		build := func() ([]byte, []byte, []byte, []byte) {
			r1 := grp.Exp(grp.GeneratorG(), k)
			r2 := grp.Exp(grp.GeneratorH(), k)
			c, err := DeriveChallenge(grp, y1, y2, r1, r2)
			if err != nil {
				t.Fatalf("derive failed: %v", err)
			}
			s, err := SolveChallenge(grp, k, c, x)
			if err != nil {
				t.Fatalf("respond failed: %v", err)
			}
			return r1.Bytes(), r2.Bytes(), c.Bytes(), s.Bytes()
		}

		r1a, r2a, ca, sa := build()
		r1b, r2b, cb, sb := build()

		if !bytes.Equal(r1a, r1b) || !bytes.Equal(r2a, r2b) || !bytes.Equal(ca, cb) || !bytes.Equal(sa, sb) {
			t.Error("identical inputs must produce identical proofs")
		}
	})

	t.Run("ChallengeBindsEveryInput", func(t *testing.T) {
		_, r1, r2, err := Commit(grp)
		if err != nil {
			t.Fatalf("commit failed: %v", err)
		}

		base, err := DeriveChallenge(grp, y1, y2, r1, r2)
		if err != nil {
			t.Fatalf("derive failed: %v", err)
		}

		// Swapping any transcript position changes the challenge.
		permutations := [][4]group.Element{
			{y2, y1, r1, r2},
			{y1, y2, r2, r1},
			{r1, y2, y1, r2},
		}
		for i, p := range permutations {
			c, err := DeriveChallenge(grp, p[0], p[1], p[2], p[3])
			if err != nil {
				t.Fatalf("derive failed for permutation %d: %v", i, err)
			}
			if bytes.Equal(base.Bytes(), c.Bytes()) {
				t.Errorf("permutation %d did not change the challenge", i)
			}
		}
	})

	t.Run("TamperedProofRejected", func(t *testing.T) {
		proof, err := Prove(grp, x)
		if err != nil {
			t.Fatalf("prove failed: %v", err)
		}

		flipped := make([]byte, len(proof.S))
		copy(flipped, proof.S)
		flipped[len(flipped)-1] ^= 1

		result, err := VerifyNonInteractive(grp, y1.Bytes(), y2.Bytes(), &Proof{R1: proof.R1, R2: proof.R2, S: flipped})
		if err != nil {
			t.Fatalf("verify errored: %v", err)
		}
		if result.Valid {
			t.Error("tampered response should be rejected")
		}

		swapped := &Proof{R1: proof.R2, R2: proof.R1, S: proof.S}
		result, err = VerifyNonInteractive(grp, y1.Bytes(), y2.Bytes(), swapped)
		if err != nil {
			t.Fatalf("verify errored: %v", err)
		}
		if result.Valid {
			t.Error("swapped commitments should be rejected")
		}
	})

	t.Run("WrongPasswordRejected", func(t *testing.T) {
		wrongX, err := SecretScalar(grp, []byte("incorrect horse"))
		if err != nil {
			t.Fatalf("failed to derive secret: %v", err)
		}

		proof, err := Prove(grp, wrongX)
		if err != nil {
			t.Fatalf("prove failed: %v", err)
		}

		result, err := VerifyNonInteractive(grp, y1.Bytes(), y2.Bytes(), proof)
		if err != nil {
			t.Fatalf("verify errored: %v", err)
		}
		if result.Valid {
			t.Error("proof for a different secret should be rejected")
		}
	})
}

// TestNonceReuseRecoversSecret documents why the nonce must be fresh per
// attempt: two responses under the same k and distinct challenges form two
// linear equations whose solution is the secret. The engine never reuses a
// nonce; this asserts the property of the math the rule protects against.
func TestNonceReuseRecoversSecret(t *testing.T) {
	grp := toyGroup(t)
	q := grp.Order()

	x := mustScalar(t, grp, 6)
	k := mustScalar(t, grp, 7)
	c1 := mustScalar(t, grp, 3)
	c2 := mustScalar(t, grp, 8)

	s1, err := SolveChallenge(grp, k, c1, x)
	if err != nil {
		t.Fatalf("failed to solve challenge: %v", err)
	}
	s2, err := SolveChallenge(grp, k, c2, x)
	if err != nil {
		t.Fatalf("failed to solve challenge: %v", err)
	}

	// x = (s2 - s1) / (c1 - c2) mod q
	num := new(big.Int).Sub(s2.BigInt(), s1.BigInt())
	num.Mod(num, q)
	den := new(big.Int).Sub(c1.BigInt(), c2.BigInt())
	den.Mod(den, q)

	recovered := new(big.Int).Mul(num, new(big.Int).ModInverse(den, q))
	recovered.Mod(recovered, q)

	if recovered.Cmp(x.BigInt()) != 0 {
		t.Fatalf("expected to recover x=%v, got %v", x.BigInt(), recovered)
	}
}

func TestSecretScalarIsStable(t *testing.T) {
	grp := group.NewRistretto255()

	a, err := SecretScalar(grp, []byte("hunter2"))
	if err != nil {
		t.Fatalf("failed to derive secret: %v", err)
	}
	b, err := SecretScalar(grp, []byte("hunter2"))
	if err != nil {
		t.Fatalf("failed to derive secret: %v", err)
	}

	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("same password must derive the same scalar")
	}

	other, err := SecretScalar(grp, []byte("hunter3"))
	if err != nil {
		t.Fatalf("failed to derive secret: %v", err)
	}
	if bytes.Equal(a.Bytes(), other.Bytes()) {
		t.Error("different passwords must derive different scalars")
	}
}

func TestCommitSamplesFreshNonces(t *testing.T) {
	grp := group.NewRistretto255()

	k1, _, _, err := Commit(grp)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	k2, _, _, err := Commit(grp)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if bytes.Equal(k1.Bytes(), k2.Bytes()) {
		t.Error("consecutive commits must use distinct nonces")
	}
}
