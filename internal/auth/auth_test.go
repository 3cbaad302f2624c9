package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func writeKeyFile(t *testing.T, key *rsa.PrivateKey, pkcs8 bool) string {
	t.Helper()

	var der []byte
	var blockType string
	if pkcs8 {
		var err error
		der, err = x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			t.Fatalf("marshal pkcs8: %v", err)
		}
		blockType = "PRIVATE KEY"
	} else {
		der = x509.MarshalPKCS1PrivateKey(key)
		blockType = "RSA PRIVATE KEY"
	}

	path := filepath.Join(t.TempDir(), "key.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	return path
}

func TestLoadPrivateKey(t *testing.T) {
	key := generateTestKey(t)

	tests := []struct {
		name  string
		pkcs8 bool
	}{
		{"pkcs8", true},
		{"pkcs1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeKeyFile(t, key, tt.pkcs8)
			loaded, err := LoadPrivateKey(path)
			if err != nil {
				t.Fatalf("LoadPrivateKey failed: %v", err)
			}
			if loaded.N.Cmp(key.N) != 0 {
				t.Error("loaded key does not match original")
			}
		})
	}
}

func TestLoadPrivateKey_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pem")
	if err := os.WriteFile(path, []byte("not a pem file"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPrivateKey(path); err == nil {
		t.Error("expected error for invalid PEM, got nil")
	}
}

func TestLoadCredentials_MissingFields(t *testing.T) {
	if _, err := LoadCredentials("", "/tmp/key.pem"); err == nil {
		t.Error("expected error for empty key ID")
	}
	if _, err := LoadCredentials("key-1", ""); err == nil {
		t.Error("expected error for empty key path")
	}
}

func TestSignRequest(t *testing.T) {
	key := generateTestKey(t)
	creds := &Credentials{KeyID: "key-1", PrivateKey: key}

	headers, err := creds.SignRequest("GET", "/events/query")
	if err != nil {
		t.Fatalf("SignRequest failed: %v", err)
	}

	if headers[HeaderAccessKey] != "key-1" {
		t.Errorf("access key header = %q, want %q", headers[HeaderAccessKey], "key-1")
	}
	if headers[HeaderTimestamp] == "" {
		t.Error("timestamp header is empty")
	}

	// Verify the signature against the public key.
	sig, err := base64.StdEncoding.DecodeString(headers[HeaderSignature])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	message := fmt.Sprintf("%sGET/events/query", headers[HeaderTimestamp])
	hashed := sha256.Sum256([]byte(message))
	err = rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, hashed[:], sig,
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	if err != nil {
		t.Errorf("signature verification failed: %v", err)
	}
}
