package jwt

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKeyPEMRoundTrip(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "signing.pem")

	key, err := GenerateES256KeyPair()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	if err := SavePrivateKeyPEM(key, keyFile); err != nil {
		t.Fatalf("failed to save key: %v", err)
	}

	info, err := os.Stat(keyFile)
	if err != nil {
		t.Fatalf("failed to stat key file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 key file permissions, got %o", perm)
	}

	loaded, err := LoadPrivateKeyPEM(keyFile)
	if err != nil {
		t.Fatalf("failed to load key: %v", err)
	}
	if !loaded.Equal(key) {
		t.Error("loaded key differs from saved key")
	}
}

func TestLoadPrivateKeyPEMRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.pem")
	if err := os.WriteFile(bad, []byte("not a pem file"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := LoadPrivateKeyPEM(bad); err == nil {
		t.Error("expected error for non-PEM content")
	}
	if _, err := LoadPrivateKeyPEM(filepath.Join(dir, "missing.pem")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestKeyConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "key.json")

	config := &KeyConfig{KeyID: "key-2026", Issuer: "https://auth.example.com"}
	if err := SaveKeyConfig(config, configFile); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := LoadKeyConfig(configFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if loaded.KeyID != config.KeyID || loaded.Issuer != config.Issuer {
		t.Errorf("config round-trip mismatch: %+v", loaded)
	}
}

func TestGenerateKeyPairFilesAndSigner(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "signing.pem")
	configFile := filepath.Join(dir, "key.json")

	if err := GenerateKeyPairFiles("key-1", "https://auth.example.com", keyFile, configFile); err != nil {
		t.Fatalf("failed to generate key pair files: %v", err)
	}

	signer, err := NewES256SignerFromFile(keyFile, configFile)
	if err != nil {
		t.Fatalf("failed to build signer from files: %v", err)
	}

	if _, ok := signer.JWKS().LookupKeyID("key-1"); !ok {
		t.Error("JWKS should contain the configured key ID")
	}
}
