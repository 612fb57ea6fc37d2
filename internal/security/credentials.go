package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// Keyring service name
	keyringService = "schemamirror"
	// Salt for key derivation
	saltSize = 32
	// Number of iterations for PBKDF2
	pbkdf2Iterations = 100000
	// Key size for AES-256
	keySize = 32
)

// CredentialManager handles secure storage and retrieval of warehouse passwords.
// It prefers the system keyring and falls back to an encrypted file when no
// keyring is available (headless hosts, CI).
type CredentialManager struct {
	useKeyring bool
	storeDir   string
	masterKey  []byte
}

// NewCredentialManager creates a new credential manager storing fallback
// material under storeDir
func NewCredentialManager(storeDir string) (*CredentialManager, error) {
	cm := &CredentialManager{
		useKeyring: isKeyringAvailable(),
		storeDir:   storeDir,
	}

	if !cm.useKeyring {
		key, err := cm.getMasterKey()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize master key: %w", err)
		}
		cm.masterKey = key
	}

	return cm, nil
}

// Store securely stores a credential under the given name
func (cm *CredentialManager) Store(name, value string) error {
	if cm.useKeyring {
		return keyring.Set(keyringService, name, value)
	}
	return cm.storeEncrypted(name, value)
}

// Get retrieves a stored credential
func (cm *CredentialManager) Get(name string) (string, error) {
	if cm.useKeyring {
		return keyring.Get(keyringService, name)
	}
	return cm.getEncrypted(name)
}

// Delete removes a stored credential
func (cm *CredentialManager) Delete(name string) error {
	if cm.useKeyring {
		return keyring.Delete(keyringService, name)
	}
	return os.Remove(cm.credentialFile(name))
}

func isKeyringAvailable() bool {
	const probe = "schemamirror-keyring-probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, probe)
	return true
}

func (cm *CredentialManager) credentialFile(name string) string {
	sum := sha256.Sum256([]byte(name))
	return filepath.Join(cm.storeDir, fmt.Sprintf("cred_%x", sum[:8]))
}

func (cm *CredentialManager) masterKeyFile() string {
	return filepath.Join(cm.storeDir, "master.key")
}

// getMasterKey loads or creates the key material used for file encryption
func (cm *CredentialManager) getMasterKey() ([]byte, error) {
	keyFile := cm.masterKeyFile()

	if data, err := os.ReadFile(keyFile); err == nil { // #nosec G304 - path under config dir
		if len(data) >= saltSize {
			salt := data[:saltSize]
			return pbkdf2.Key(data[saltSize:], salt, pbkdf2Iterations, keySize, sha256.New), nil
		}
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	secret := make([]byte, keySize)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cm.storeDir, 0700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(keyFile, append(salt, secret...), 0600); err != nil {
		return nil, err
	}

	return pbkdf2.Key(secret, salt, pbkdf2Iterations, keySize, sha256.New), nil
}

func (cm *CredentialManager) storeEncrypted(name, value string) error {
	encrypted, err := cm.encrypt([]byte(value))
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}

	if err := os.MkdirAll(cm.storeDir, 0700); err != nil {
		return err
	}
	return os.WriteFile(cm.credentialFile(name), []byte(encrypted), 0600)
}

func (cm *CredentialManager) getEncrypted(name string) (string, error) {
	data, err := os.ReadFile(cm.credentialFile(name)) // #nosec G304 - path under config dir
	if err != nil {
		return "", fmt.Errorf("credential %s not found: %w", name, err)
	}

	decrypted, err := cm.decrypt(string(data))
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}
	return string(decrypted), nil
}

func (cm *CredentialManager) encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(cm.masterKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (cm *CredentialManager) decrypt(encoded string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cm.masterKey)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}
