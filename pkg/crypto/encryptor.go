package crypto

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"filippo.io/age"
)

// Encryptor protects attendee form data (PII) at rest using an age X25519
// identity. Ciphertext is base64-encoded so it can live in a text column.
type Encryptor struct {
	identity  *age.X25519Identity
	recipient age.Recipient
}

// NewEncryptor creates an encryptor from an age identity string.
// If no key is provided, generates a new one (for development); data
// encrypted with a generated key is unreadable after restart.
func NewEncryptor(identityKey string) (*Encryptor, error) {
	var identity *age.X25519Identity
	var err error

	if identityKey == "" {
		identity, err = age.GenerateX25519Identity()
		if err != nil {
			return nil, fmt.Errorf("generating identity: %w", err)
		}
	} else {
		identity, err = age.ParseX25519Identity(identityKey)
		if err != nil {
			return nil, fmt.Errorf("parsing identity: %w", err)
		}
	}

	return &Encryptor{
		identity:  identity,
		recipient: identity.Recipient(),
	}, nil
}

// GenerateKey generates a new age identity key pair.
func GenerateKey() (identityKey string, publicKey string, err error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", err
	}
	return identity.String(), identity.Recipient().String(), nil
}

// EncryptString encrypts plaintext and returns base64 ciphertext.
func (e *Encryptor) EncryptString(plaintext string) (string, error) {
	var buf bytes.Buffer

	w, err := age.Encrypt(&buf, e.recipient)
	if err != nil {
		return "", fmt.Errorf("creating encryptor: %w", err)
	}

	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("writing encrypted data: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing encryptor: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecryptString decrypts base64 ciphertext produced by EncryptString.
func (e *Encryptor) DecryptString(encoded string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), e.identity)
	if err != nil {
		return "", fmt.Errorf("creating decryptor: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading decrypted data: %w", err)
	}

	return string(plaintext), nil
}
