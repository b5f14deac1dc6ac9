// Package client implements the prover side of the Chaum-Pedersen login
// protocol over the auth server's HTTP API: password-to-scalar derivation,
// registration, and both login flows. The password never leaves the process;
// only group elements and response scalars go on the wire.
package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Elvis339/chaum-pedersen-zkp/pkg/crypto/chaumpedersen"
	"github.com/Elvis339/chaum-pedersen-zkp/pkg/crypto/group"
)

// Client talks to a cpauth server.
type Client struct {
	baseURL string
	grp     group.Group
	http    *http.Client
}

// New creates a client for the given server. The group must match the one
// the server was started with.
func New(baseURL string, grp group.Group) *Client {
	return &Client{
		baseURL: baseURL,
		grp:     grp,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetHTTPClient replaces the underlying HTTP client, e.g. for tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.http = hc
}

type registerRequest struct {
	User string `json:"user"`
	Y1   string `json:"y1"`
	Y2   string `json:"y2"`
}

type challengeRequest struct {
	User string `json:"user"`
	R1   string `json:"r1"`
	R2   string `json:"r2"`
}

type challengeResponse struct {
	AuthID string `json:"auth_id"`
	C      string `json:"c"`
}

type verifyRequest struct {
	AuthID string `json:"auth_id"`
	S      string `json:"s"`
}

type loginRequest struct {
	User string `json:"user"`
	R1   string `json:"r1"`
	R2   string `json:"r2"`
	S    string `json:"s"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Register derives the secret scalar from the password, computes the public
// commitment pair (g^x, h^x), and registers it under the username.
func (c *Client) Register(ctx context.Context, username, password string) error {
	x, err := chaumpedersen.SecretScalar(c.grp, []byte(password))
	if err != nil {
		return fmt.Errorf("failed to derive secret: %w", err)
	}

	y1, y2 := chaumpedersen.PublicCommitment(c.grp, x)

	var ok map[string]string
	return c.post(ctx, "/register", registerRequest{
		User: username,
		Y1:   hex.EncodeToString(y1.Bytes()),
		Y2:   hex.EncodeToString(y2.Bytes()),
	}, &ok)
}

// Login runs the interactive three-move protocol: send the commitment,
// receive the server's challenge, send the response, collect the credential.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	x, err := chaumpedersen.SecretScalar(c.grp, []byte(password))
	if err != nil {
		return "", fmt.Errorf("failed to derive secret: %w", err)
	}

	k, r1, r2, err := chaumpedersen.Commit(c.grp)
	if err != nil {
		return "", err
	}

	var chal challengeResponse
	if err := c.post(ctx, "/auth/challenge", challengeRequest{
		User: username,
		R1:   hex.EncodeToString(r1.Bytes()),
		R2:   hex.EncodeToString(r2.Bytes()),
	}, &chal); err != nil {
		return "", err
	}

	cBytes, err := hex.DecodeString(chal.C)
	if err != nil {
		return "", fmt.Errorf("server sent malformed challenge: %w", err)
	}
	cScalar, err := c.grp.ParseScalar(cBytes)
	if err != nil {
		return "", fmt.Errorf("server sent invalid challenge: %w", err)
	}

	s, err := chaumpedersen.SolveChallenge(c.grp, k, cScalar, x)
	if err != nil {
		return "", err
	}

	var tok tokenResponse
	if err := c.post(ctx, "/auth/verify", verifyRequest{
		AuthID: chal.AuthID,
		S:      hex.EncodeToString(s.Bytes()),
	}, &tok); err != nil {
		return "", err
	}

	return tok.AccessToken, nil
}

// LoginNonInteractive runs the Fiat-Shamir flow: the challenge is derived
// locally from the transcript hash and the whole proof travels in one
// request.
func (c *Client) LoginNonInteractive(ctx context.Context, username, password string) (string, error) {
	x, err := chaumpedersen.SecretScalar(c.grp, []byte(password))
	if err != nil {
		return "", fmt.Errorf("failed to derive secret: %w", err)
	}

	proof, err := chaumpedersen.Prove(c.grp, x)
	if err != nil {
		return "", err
	}

	var tok tokenResponse
	if err := c.post(ctx, "/auth/login", loginRequest{
		User: username,
		R1:   hex.EncodeToString(proof.R1),
		R2:   hex.EncodeToString(proof.R2),
		S:    hex.EncodeToString(proof.S),
	}, &tok); err != nil {
		return "", err
	}

	return tok.AccessToken, nil
}

// WhoAmI calls the credential-protected endpoint with a bearer token.
func (c *Client) WhoAmI(ctx context.Context, token string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(msg))
}
