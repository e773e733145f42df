package config

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte(`{"openai":"sk-secret"}`)

	blob, err := EncryptWithPassphrase(plaintext, "passphrase")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if bytes.Contains(blob, []byte("sk-secret")) {
		t.Fatal("ciphertext leaks plaintext")
	}

	decrypted, err := DecryptWithPassphrase(blob, "passphrase")
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("round trip mismatch: %q", decrypted)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	blob, err := EncryptWithPassphrase([]byte("data"), "right")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if _, err := DecryptWithPassphrase(blob, "wrong"); err == nil {
		t.Error("expected error with wrong passphrase")
	}
}

func TestEncryptSaltsAreUnique(t *testing.T) {
	first, err := EncryptWithPassphrase([]byte("data"), "pass")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	second, err := EncryptWithPassphrase([]byte("data"), "pass")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Error("two encryptions of the same data must differ")
	}
}

func TestDecryptTruncatedBlob(t *testing.T) {
	if _, err := DecryptWithPassphrase([]byte("short"), "pass"); err == nil {
		t.Error("expected error for truncated blob")
	}
}
