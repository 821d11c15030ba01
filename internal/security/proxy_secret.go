package security

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	encryptionKeyEnv      = "PROXY_ENCRYPTION_KEY"
	encryptedSecretPrefix = "enc:v1:"
)

var (
	proxyCipherOnce sync.Once
	proxyCipherAEAD cipher.AEAD
	proxyCipherErr  error
)

func proxyCipher() (cipher.AEAD, error) {
	proxyCipherOnce.Do(func() {
		secret := strings.TrimSpace(os.Getenv(encryptionKeyEnv))
		if secret == "" {
			proxyCipherErr = errors.New("security: PROXY_ENCRYPTION_KEY is not set")
			return
		}
		key := sha256.Sum256([]byte(secret))
		proxyCipherAEAD, proxyCipherErr = chacha20poly1305.NewX(key[:])
	})
	return proxyCipherAEAD, proxyCipherErr
}

// ResetProxyCipherForTests clears the cached cipher so tests can swap the
// encryption key between cases.
func ResetProxyCipherForTests() {
	proxyCipherOnce = sync.Once{}
	proxyCipherAEAD = nil
	proxyCipherErr = nil
}

// EncryptProxySecret seals an upstream credential for storage. Empty secrets
// stay empty.
func EncryptProxySecret(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	aead, err := proxyCipher()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("security: generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encryptedSecretPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptProxySecret reverses EncryptProxySecret. The second return value
// reports whether the stored value was actually sealed; legacy plaintext
// values pass through unchanged with false.
func DecryptProxySecret(stored string) (string, bool, error) {
	if stored == "" {
		return "", false, nil
	}
	if !strings.HasPrefix(stored, encryptedSecretPrefix) {
		return stored, false, nil
	}

	aead, err := proxyCipher()
	if err != nil {
		return "", false, err
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, encryptedSecretPrefix))
	if err != nil {
		return "", false, fmt.Errorf("security: decode secret: %w", err)
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return "", false, errors.New("security: sealed secret too short")
	}

	nonce, ciphertext := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", false, fmt.Errorf("security: open secret: %w", err)
	}

	return string(plaintext), true, nil
}
