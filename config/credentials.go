package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SecurityMethod defines how credentials are stored at rest.
type SecurityMethod string

const (
	SecurityPlainText SecurityMethod = "plaintext"
	SecuritySSHKey    SecurityMethod = "ssh_key"
)

const (
	credentialsFile          = "credentials.json"
	credentialsEncryptedFile = "credentials.enc"
)

// envKeyFor maps a provider ID to the conventional API key variable.
func envKeyFor(providerID string) string {
	switch providerID {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}

// CredentialStore holds provider API keys. Keys saved through the store
// take precedence over the environment; the environment is the fallback
// so a fresh install works with just ANTHROPIC_API_KEY exported.
type CredentialStore struct {
	method      SecurityMethod
	credentials map[string]string // providerID -> API key
	encManager  *EncryptionManager
}

// NewCredentialStore creates a credential store for the given method.
func NewCredentialStore(method SecurityMethod, sshKeyPath string) *CredentialStore {
	store := &CredentialStore{
		method:      method,
		credentials: make(map[string]string),
	}
	if method == SecuritySSHKey {
		store.encManager = NewEncryptionManager(EncryptionSSHKey, ExpandPath(sshKeyPath))
	}
	return store
}

// SetPassphrase sets the passphrase for decrypting the SSH key.
func (c *CredentialStore) SetPassphrase(passphrase string) {
	if c.encManager != nil {
		c.encManager.SetPassphrase(passphrase)
	}
}

// RequiresPassphrase reports whether loading will need an SSH key
// passphrase that has not been provided yet.
func (c *CredentialStore) RequiresPassphrase() (bool, error) {
	if c.method != SecuritySSHKey {
		return false, nil
	}
	return IsSSHKeyEncrypted(c.encManager.sshKeyPath)
}

// Load reads credentials from the data directory. A missing file is not
// an error; the store starts empty and falls back to the environment.
func (c *CredentialStore) Load(dataDir string) error {
	switch c.method {
	case SecurityPlainText:
		path := filepath.Join(dataDir, credentialsFile)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read credentials: %w", err)
		}
		return json.Unmarshal(data, &c.credentials)

	case SecuritySSHKey:
		if err := c.encManager.Initialize(); err != nil {
			return err
		}
		path := filepath.Join(dataDir, credentialsEncryptedFile)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read credentials: %w", err)
		}
		plaintext, err := c.encManager.Decrypt(data)
		if err != nil {
			return fmt.Errorf("failed to decrypt credentials (wrong SSH key?): %w", err)
		}
		return json.Unmarshal(plaintext, &c.credentials)

	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}
}

// Save writes credentials to the data directory with mode 0600.
func (c *CredentialStore) Save(dataDir string) error {
	data, err := json.MarshalIndent(c.credentials, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	switch c.method {
	case SecurityPlainText:
		return os.WriteFile(filepath.Join(dataDir, credentialsFile), data, 0600)

	case SecuritySSHKey:
		if err := c.encManager.Initialize(); err != nil {
			return err
		}
		ciphertext, err := c.encManager.Encrypt(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt credentials: %w", err)
		}
		return os.WriteFile(filepath.Join(dataDir, credentialsEncryptedFile), ciphertext, 0600)

	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}
}

// Get resolves the API key for a provider: stored value first, then the
// provider's conventional environment variable.
func (c *CredentialStore) Get(providerID string) string {
	if key, ok := c.credentials[providerID]; ok && key != "" {
		return key
	}
	if envKey := envKeyFor(providerID); envKey != "" {
		return os.Getenv(envKey)
	}
	return ""
}

// Set stores an API key for a provider.
func (c *CredentialStore) Set(providerID, apiKey string) {
	c.credentials[providerID] = apiKey
}

// Delete removes a stored API key. The environment fallback still
// applies afterwards.
func (c *CredentialStore) Delete(providerID string) {
	delete(c.credentials, providerID)
}
