// Package jwt mints and verifies the session credentials issued after a
// successful zero-knowledge login. Tokens are ES256-signed JWTs; the signing
// keys are published through a JWKS endpoint so resource servers can verify
// credentials without sharing secrets with the auth server.
package jwt

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// TokenSigner signs session credentials.
type TokenSigner interface {
	// Sign creates a JWT with the given claims.
	Sign(claims map[string]interface{}) (string, error)

	// JWKS returns the public keys for verification.
	JWKS() jwk.Set

	// Algorithm returns the signing algorithm.
	Algorithm() string
}

// Claims are the parsed contents of a session credential.
type Claims struct {
	Issuer    string    `json:"iss"`
	Subject   string    `json:"sub"`
	Audience  string    `json:"aud"`
	IssuedAt  int64     `json:"iat"`
	ExpiresAt int64     `json:"exp"`
	ZK        *ZKClaims `json:"zk,omitempty"`
}

// ZKClaims record which proof produced the credential.
type ZKClaims struct {
	Scheme  string `json:"scheme"`  // "chaum-pedersen"
	Group   string `json:"grp"`     // "modp2048", "ristretto255", "secp256k1"
	Variant string `json:"variant"` // "interactive" or "fiat-shamir"
	User    string `json:"user"`    // registered username
}

// ES256Signer signs tokens with an ECDSA P-256 key.
type ES256Signer struct {
	privateKey *ecdsa.PrivateKey
	keyID      string
	issuer     string
	jwks       jwk.Set
}

// NewES256Signer creates an ES256 signer and its JWKS from a private key.
func NewES256Signer(privateKey *ecdsa.PrivateKey, keyID, issuer string) (*ES256Signer, error) {
	publicJWK, err := jwk.FromRaw(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK from public key: %w", err)
	}

	if err := publicJWK.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, fmt.Errorf("failed to set key ID: %w", err)
	}
	if err := publicJWK.Set(jwk.AlgorithmKey, "ES256"); err != nil {
		return nil, fmt.Errorf("failed to set algorithm: %w", err)
	}
	if err := publicJWK.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("failed to set key usage: %w", err)
	}

	jwks := jwk.NewSet()
	jwks.AddKey(publicJWK)

	return &ES256Signer{
		privateKey: privateKey,
		keyID:      keyID,
		issuer:     issuer,
		jwks:       jwks,
	}, nil
}

// Sign creates a JWT with the given claims.
func (s *ES256Signer) Sign(claims map[string]interface{}) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims(claims))
	token.Header["kid"] = s.keyID

	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}

	return signed, nil
}

// JWKS returns the public keys for verification.
func (s *ES256Signer) JWKS() jwk.Set {
	return s.jwks
}

// Algorithm returns the signing algorithm.
func (s *ES256Signer) Algorithm() string {
	return "ES256"
}

// Verifier validates session credentials against an issuer's JWKS.
type Verifier struct {
	issuerJWKS jwk.Set
}

// NewVerifier creates a credential verifier.
func NewVerifier(issuerJWKS jwk.Set) *Verifier {
	return &Verifier{issuerJWKS: issuerJWKS}
}

// Verify parses and validates a token, checking signature, expiry, and
// audience, and returns its claims.
func (v *Verifier) Verify(tokenString, expectedAudience string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("missing key ID")
		}

		key, ok := v.issuerJWKS.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("key not found: %s", kid)
		}

		var publicKey interface{}
		if err := key.Raw(&publicKey); err != nil {
			return nil, fmt.Errorf("failed to extract public key: %w", err)
		}

		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid JWT")
	}

	claimsMap, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", token.Claims)
	}

	aud, ok := claimsMap["aud"].(string)
	if !ok {
		return nil, fmt.Errorf("missing audience claim")
	}
	if aud != expectedAudience {
		return nil, fmt.Errorf("invalid audience: expected %s, got %s", expectedAudience, aud)
	}

	return parseClaimsMap(claimsMap), nil
}

func parseClaimsMap(claimsMap jwt.MapClaims) *Claims {
	claims := &Claims{}

	if iss, ok := claimsMap["iss"].(string); ok {
		claims.Issuer = iss
	}
	if sub, ok := claimsMap["sub"].(string); ok {
		claims.Subject = sub
	}
	if aud, ok := claimsMap["aud"].(string); ok {
		claims.Audience = aud
	}
	if iat, ok := claimsMap["iat"].(float64); ok {
		claims.IssuedAt = int64(iat)
	}
	if exp, ok := claimsMap["exp"].(float64); ok {
		claims.ExpiresAt = int64(exp)
	}

	if zkRaw, ok := claimsMap["zk"].(map[string]interface{}); ok {
		claims.ZK = &ZKClaims{}
		if scheme, ok := zkRaw["scheme"].(string); ok {
			claims.ZK.Scheme = scheme
		}
		if grp, ok := zkRaw["grp"].(string); ok {
			claims.ZK.Group = grp
		}
		if variant, ok := zkRaw["variant"].(string); ok {
			claims.ZK.Variant = variant
		}
		if user, ok := zkRaw["user"].(string); ok {
			claims.ZK.User = user
		}
	}

	return claims
}

// MintSessionToken creates the session credential issued after a verified
// proof. The subject is pairwise (opaque per audience); the zk claims name
// the scheme, group, and variant that authenticated the user.
func MintSessionToken(
	signer TokenSigner,
	issuer, audience, username string,
	groupName, variant string,
	ttl time.Duration,
) (string, error) {
	now := time.Now()

	claims := map[string]interface{}{
		"iss": issuer,
		"sub": PairwiseSubject(username, audience),
		"aud": audience,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"zk": map[string]interface{}{
			"scheme":  "chaum-pedersen",
			"grp":     groupName,
			"variant": variant,
			"user":    username,
		},
	}

	return signer.Sign(claims)
}

// PairwiseSubject derives a deterministic but opaque subject identifier, so
// two audiences cannot correlate the same user by subject.
func PairwiseSubject(username, audience string) string {
	h := sha256.New()
	h.Write([]byte("cpauth/1/sub"))
	h.Write([]byte(username))
	h.Write([]byte(audience))

	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
