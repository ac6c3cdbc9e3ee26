package config

import (
	"testing"
)

func TestCredentialStoreEnvFallback(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")

	store := NewCredentialStore(SecurityPlainText, "")
	if got := store.Get("anthropic"); got != "sk-from-env" {
		t.Errorf("expected env fallback, got %q", got)
	}

	// A stored key wins over the environment.
	store.Set("anthropic", "sk-stored")
	if got := store.Get("anthropic"); got != "sk-stored" {
		t.Errorf("expected stored key, got %q", got)
	}

	// Deleting restores the env fallback.
	store.Delete("anthropic")
	if got := store.Get("anthropic"); got != "sk-from-env" {
		t.Errorf("expected env fallback after delete, got %q", got)
	}

	if got := store.Get("ollama"); got != "" {
		t.Errorf("ollama has no key variable, got %q", got)
	}
}

func TestCredentialStoreSaveLoad(t *testing.T) {
	dir := t.TempDir()

	store := NewCredentialStore(SecurityPlainText, "")
	store.Set("openai", "sk-openai-test")
	store.Set("openrouter", "sk-or-test")
	if err := store.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := NewCredentialStore(SecurityPlainText, "")
	if err := reloaded.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := reloaded.Get("openai"); got != "sk-openai-test" {
		t.Errorf("reloaded key = %q", got)
	}
	if got := reloaded.Get("openrouter"); got != "sk-or-test" {
		t.Errorf("reloaded key = %q", got)
	}
}

func TestCredentialStoreLoadMissingFile(t *testing.T) {
	store := NewCredentialStore(SecurityPlainText, "")
	if err := store.Load(t.TempDir()); err != nil {
		t.Errorf("missing credentials file is not an error, got %v", err)
	}
}

func TestEncryptDecryptAESGCM(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	plaintext := []byte(`{"anthropic":"sk-secret"}`)
	ciphertext, err := encryptAESGCM(plaintext, key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if string(ciphertext) == string(plaintext) {
		t.Error("ciphertext equals plaintext")
	}

	decrypted, err := decryptAESGCM(ciphertext, key)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(decrypted) != string(plaintext) {
		t.Errorf("round-trip mismatch: %q", decrypted)
	}

	// Tampering fails authentication.
	ciphertext[len(ciphertext)-1] ^= 0xff
	if _, err := decryptAESGCM(ciphertext, key); err == nil {
		t.Error("expected authentication failure on tampered ciphertext")
	}

	if _, err := decryptAESGCM([]byte("short"), key); err == nil {
		t.Error("expected error for truncated ciphertext")
	}
}
