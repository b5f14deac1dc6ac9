// Package auth implements the server side of the Chaum-Pedersen login
// protocol: registration of public commitment pairs, the interactive
// challenge/response flow, and the non-interactive one-shot flow. A session
// credential (JWT) is issued on success.
//
// A login attempt moves through a strict sequence: registration lookup,
// commitment received, challenge issued (or self-derived by the prover),
// response received, verified. Sessions are single-use and expire; a failed
// or consumed session can only be replaced by a fresh commitment with a
// fresh nonce.
package auth

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Elvis339/chaum-pedersen-zkp/pkg/crypto/chaumpedersen"
	"github.com/Elvis339/chaum-pedersen-zkp/pkg/crypto/group"
	"github.com/Elvis339/chaum-pedersen-zkp/pkg/jwt"
	"github.com/Elvis339/chaum-pedersen-zkp/pkg/middleware"
	"github.com/Elvis339/chaum-pedersen-zkp/pkg/storage"
)

// Variant names recorded in issued credentials.
const (
	VariantInteractive = "interactive"
	VariantFiatShamir  = "fiat-shamir"
)

// Config holds handler configuration.
type Config struct {
	Issuer     string        // credential issuer
	Audience   string        // credential audience
	TokenTTL   time.Duration // credential lifetime
	SessionTTL time.Duration // interactive login session lifetime
}

// Handlers serves the authentication endpoints.
type Handlers struct {
	store     storage.Store
	grp       group.Group
	signer    jwt.TokenSigner
	challenge chaumpedersen.ChallengeSource
	config    Config
}

// NewHandlers creates the authentication handlers. A nil challenge source
// defaults to cryptographically random challenges.
func NewHandlers(
	store storage.Store,
	grp group.Group,
	signer jwt.TokenSigner,
	challenge chaumpedersen.ChallengeSource,
	config Config,
) *Handlers {
	if challenge == nil {
		challenge = chaumpedersen.RandomChallenge{}
	}
	return &Handlers{
		store:     store,
		grp:       grp,
		signer:    signer,
		challenge: challenge,
		config:    config,
	}
}

// RegisterRequest carries a new user's public commitment pair.
type RegisterRequest struct {
	User string `json:"user"`
	Y1   string `json:"y1"` // g^x, hex
	Y2   string `json:"y2"` // h^x, hex
}

// ChallengeRequest opens an interactive login attempt.
type ChallengeRequest struct {
	User string `json:"user"`
	R1   string `json:"r1"` // g^k, hex
	R2   string `json:"r2"` // h^k, hex
}

// ChallengeResponse returns the server's challenge.
type ChallengeResponse struct {
	AuthID string `json:"auth_id"`
	C      string `json:"c"` // challenge scalar, hex
}

// VerifyRequest completes an interactive login attempt.
type VerifyRequest struct {
	AuthID string `json:"auth_id"`
	S      string `json:"s"` // response scalar, hex
}

// LoginRequest is the non-interactive one-shot login: the challenge is
// absent because the verifier recomputes it from the transcript.
type LoginRequest struct {
	User string `json:"user"`
	R1   string `json:"r1"`
	R2   string `json:"r2"`
	S    string `json:"s"`
}

// TokenResponse carries the issued session credential.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Register stores a username → (y1, y2) commitment pair.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.User == "" {
		http.Error(w, "username required", http.StatusBadRequest)
		return
	}

	y1, err := h.parseElement(req.Y1)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid y1: %v", err), http.StatusBadRequest)
		return
	}
	y2, err := h.parseElement(req.Y2)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid y2: %v", err), http.StatusBadRequest)
		return
	}

	banned, err := h.store.IsInDenylist(req.User)
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if banned {
		http.Error(w, "username is banned", http.StatusForbidden)
		return
	}

	user := &storage.User{
		Username: req.User,
		Group:    h.grp.Name(),
		Y1:       y1.Bytes(),
		Y2:       y2.Bytes(),
	}
	if err := h.store.CreateUser(user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			http.Error(w, "user already exists", http.StatusConflict)
		} else {
			http.Error(w, "storage error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"status": "created"})
}

// Challenge receives the prover's commitment (r1, r2) and answers with a
// fresh random challenge, opening a single-use login session. The challenge
// is sampled only after the commitment has arrived and independently of it.
func (h *Handlers) Challenge(w http.ResponseWriter, r *http.Request) {
	var req ChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	user, err := h.lookupActiveUser(w, req.User)
	if err != nil {
		return
	}

	r1, err := h.parseElement(req.R1)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid r1: %v", err), http.StatusBadRequest)
		return
	}
	r2, err := h.parseElement(req.R2)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid r2: %v", err), http.StatusBadRequest)
		return
	}

	y1, err := h.grp.ParseElement(user.Y1)
	if err != nil {
		http.Error(w, "stored commitment is corrupt", http.StatusInternalServerError)
		return
	}
	y2, err := h.grp.ParseElement(user.Y2)
	if err != nil {
		http.Error(w, "stored commitment is corrupt", http.StatusInternalServerError)
		return
	}

	c, err := h.challenge.Challenge(h.grp, y1, y2, r1, r2)
	if err != nil {
		http.Error(w, "failed to generate challenge", http.StatusInternalServerError)
		return
	}

	session := &storage.LoginSession{
		ID:        uuid.New().String(),
		Username:  user.Username,
		R1:        r1.Bytes(),
		R2:        r2.Bytes(),
		C:         c.Bytes(),
		ExpiresAt: time.Now().Add(h.config.SessionTTL),
	}
	if err := h.store.CreateSession(session); err != nil {
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ChallengeResponse{
		AuthID: session.ID,
		C:      hex.EncodeToString(c.Bytes()),
	})
}

// Verify receives the response scalar for an open session and runs the
// verification equations. The session is claimed before any arithmetic, so
// two concurrent calls for the same id cannot both be verified; a failed
// proof discards the session and a fresh commitment is required.
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	session, err := h.store.ClaimSession(req.AuthID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrSessionNotFound):
			http.Error(w, "session not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrSessionExpired):
			http.Error(w, "session expired", http.StatusGone)
		case errors.Is(err, storage.ErrSessionUsed):
			http.Error(w, "session already used", http.StatusConflict)
		default:
			http.Error(w, "storage error", http.StatusInternalServerError)
		}
		return
	}

	s, err := decodeHex(req.S)
	if err != nil {
		h.store.DeleteSession(session.ID)
		http.Error(w, "authentication rejected", http.StatusUnauthorized)
		return
	}

	user, err := h.store.GetUser(session.Username)
	if err != nil {
		h.store.DeleteSession(session.ID)
		http.Error(w, "authentication rejected", http.StatusUnauthorized)
		return
	}

	result, err := chaumpedersen.Verify(h.grp, user.Y1, user.Y2, session.R1, session.R2, session.C, s)
	if err != nil || !result.Valid {
		// A wrong secret and a tampered proof are indistinguishable to the
		// caller; anything more specific is an oracle.
		h.store.DeleteSession(session.ID)
		http.Error(w, "authentication rejected", http.StatusUnauthorized)
		return
	}

	h.store.DeleteSession(session.ID)
	h.issueToken(w, user.Username, VariantInteractive)
}

// Login is the non-interactive flow: commitment and response arrive in one
// request, the challenge is recomputed from the transcript, and no session
// state is needed.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	user, err := h.lookupActiveUser(w, req.User)
	if err != nil {
		return
	}

	r1, err := decodeHex(req.R1)
	if err != nil {
		http.Error(w, "authentication rejected", http.StatusUnauthorized)
		return
	}
	r2, err := decodeHex(req.R2)
	if err != nil {
		http.Error(w, "authentication rejected", http.StatusUnauthorized)
		return
	}
	s, err := decodeHex(req.S)
	if err != nil {
		http.Error(w, "authentication rejected", http.StatusUnauthorized)
		return
	}

	proof := &chaumpedersen.Proof{R1: r1, R2: r2, S: s}
	result, err := chaumpedersen.VerifyNonInteractive(h.grp, user.Y1, user.Y2, proof)
	if err != nil || !result.Valid {
		http.Error(w, "authentication rejected", http.StatusUnauthorized)
		return
	}

	h.issueToken(w, user.Username, VariantFiatShamir)
}

// JWKS publishes the credential verification keys.
func (h *Handlers) JWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")

	if err := json.NewEncoder(w).Encode(h.signer.JWKS()); err != nil {
		http.Error(w, "failed to encode JWKS", http.StatusInternalServerError)
	}
}

// WhoAmI echoes the verified claims of the presented credential. It sits
// behind middleware.RequireSession and exists so the issued token can be
// exercised end to end.
func (h *Handlers) WhoAmI(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "credential verification required", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sub": claims.Subject,
		"zk":  claims.ZK,
	})
}

func (h *Handlers) issueToken(w http.ResponseWriter, username, variant string) {
	token, err := jwt.MintSessionToken(
		h.signer,
		h.config.Issuer,
		h.config.Audience,
		username,
		h.grp.Name(),
		variant,
		h.config.TokenTTL,
	)
	if err != nil {
		http.Error(w, "failed to mint token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(h.config.TokenTTL.Seconds()),
	})
}

// lookupActiveUser fetches a registered, non-denylisted user, writing the
// error response itself when the lookup fails.
func (h *Handlers) lookupActiveUser(w http.ResponseWriter, username string) (*storage.User, error) {
	user, err := h.store.GetUser(username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
		} else {
			http.Error(w, "storage error", http.StatusInternalServerError)
		}
		return nil, err
	}

	banned, err := h.store.IsInDenylist(username)
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return nil, err
	}
	if banned {
		http.Error(w, "username is banned", http.StatusForbidden)
		return nil, fmt.Errorf("user %s is banned", username)
	}

	return user, nil
}

// parseElement hex-decodes and fully validates a group element.
func (h *Handlers) parseElement(s string) (group.Element, error) {
	b, err := decodeHex(s)
	if err != nil {
		return nil, err
	}

	e, err := h.grp.ParseElement(b)
	if err != nil {
		return nil, err
	}
	if err := h.grp.ValidateElement(e); err != nil {
		return nil, err
	}

	return e, nil
}

func decodeHex(s string) ([]byte, error) {
	if len(s) >= 2 && s[:2] == "0x" {
		s = s[2:]
	}
	return hex.DecodeString(s)
}
