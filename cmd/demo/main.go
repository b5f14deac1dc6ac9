// Command demo walks both Chaum-Pedersen protocol variants in-process,
// without a network: the interactive three-move exchange over the RFC 3526
// MODP group, and the Fiat-Shamir one-shot proof over ristretto255.
package main

import (
	"encoding/hex"
	"fmt"
	"log"

	"github.com/Elvis339/chaum-pedersen-zkp/pkg/crypto/chaumpedersen"
	"github.com/Elvis339/chaum-pedersen-zkp/pkg/crypto/group"
)

func main() {
	fmt.Println("Chaum-Pedersen zero-knowledge authentication demo")
	fmt.Println()

	interactive()
	fmt.Println()
	fiatShamir()
}

func interactive() {
	fmt.Println("--- Interactive variant (modp2048) ---")
	grp := group.NewRFC3526Group()

	// Registration: the client derives x from its password and publishes
	// (y1, y2). Only the commitment pair reaches the server.
	x, err := chaumpedersen.SecretScalar(grp, []byte("nyancat"))
	if err != nil {
		log.Fatalf("secret derivation failed: %v", err)
	}
	y1, y2 := chaumpedersen.PublicCommitment(grp, x)
	fmt.Printf("registered y1=%s...\n", hex.EncodeToString(y1.Bytes())[:16])

	// Move 1: prover commits with a fresh nonce.
	k, r1, r2, err := chaumpedersen.Commit(grp)
	if err != nil {
		log.Fatalf("commit failed: %v", err)
	}

	// Move 2: verifier sends a random challenge.
	c, err := chaumpedersen.RandomChallenge{}.Challenge(grp, y1, y2, r1, r2)
	if err != nil {
		log.Fatalf("challenge failed: %v", err)
	}

	// Move 3: prover responds s = k - c*x mod q.
	s, err := chaumpedersen.SolveChallenge(grp, k, c, x)
	if err != nil {
		log.Fatalf("respond failed: %v", err)
	}

	result, err := chaumpedersen.Verify(grp,
		y1.Bytes(), y2.Bytes(), r1.Bytes(), r2.Bytes(), c.Bytes(), s.Bytes())
	if err != nil {
		log.Fatalf("verify failed: %v", err)
	}
	fmt.Printf("honest prover accepted: %v\n", result.Valid)

	// A prover with the wrong password fails both equations.
	wrongX, _ := chaumpedersen.SecretScalar(grp, []byte("nyandog"))
	wrongS, _ := chaumpedersen.SolveChallenge(grp, k, c, wrongX)
	result, _ = chaumpedersen.Verify(grp,
		y1.Bytes(), y2.Bytes(), r1.Bytes(), r2.Bytes(), c.Bytes(), wrongS.Bytes())
	fmt.Printf("wrong-password prover accepted: %v\n", result.Valid)
}

func fiatShamir() {
	fmt.Println("--- Non-interactive variant (ristretto255) ---")
	grp := group.NewRistretto255()

	x, err := chaumpedersen.SecretScalar(grp, []byte("nyancat"))
	if err != nil {
		log.Fatalf("secret derivation failed: %v", err)
	}
	y1, y2 := chaumpedersen.PublicCommitment(grp, x)

	// One shot: the challenge is the transcript hash, so the proof carries
	// only (r1, r2, s).
	proof, err := chaumpedersen.Prove(grp, x)
	if err != nil {
		log.Fatalf("prove failed: %v", err)
	}
	fmt.Printf("proof: r1=%s... s=%s...\n",
		hex.EncodeToString(proof.R1)[:16], hex.EncodeToString(proof.S)[:16])

	result, err := chaumpedersen.VerifyNonInteractive(grp, y1.Bytes(), y2.Bytes(), proof)
	if err != nil {
		log.Fatalf("verify failed: %v", err)
	}
	fmt.Printf("honest prover accepted: %v\n", result.Valid)

	// Tampering with any transcript input shifts the recomputed challenge
	// and the proof no longer verifies.
	tampered := &chaumpedersen.Proof{R1: proof.R2, R2: proof.R1, S: proof.S}
	result, _ = chaumpedersen.VerifyNonInteractive(grp, y1.Bytes(), y2.Bytes(), tampered)
	fmt.Printf("tampered proof accepted: %v\n", result.Valid)
}
