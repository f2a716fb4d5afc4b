// Package envelope seals JSON payloads for a single recipient and opens them
// again. An envelope is a JWE in compact serialization: the content key is
// wrapped with RSA-OAEP-256 and the payload is sealed with AES-256-GCM.
package envelope

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jose "github.com/go-jose/go-jose/v3"
)

const (
	KeyAlgorithm      = jose.RSA_OAEP_256
	ContentEncryption = jose.A256GCM
	ContentType       = "JSON"

	compactParts = 5
)

var ErrKeyMissing = errors.New("key material missing")

// DecryptionError reports any failure to open an envelope: malformed input,
// the wrong recipient key, tampering or an undecodable plaintext.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	if e == nil || e.Err == nil {
		return "decryption failed"
	}
	return e.Err.Error()
}

func (e *DecryptionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Encrypt serializes payload as JSON and seals it for the holder of the
// private half of pub. A fresh content key and IV are drawn on every call.
func Encrypt(payload any, pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", fmt.Errorf("encrypt public key: %w", ErrKeyMissing)
	}
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	opts := (&jose.EncrypterOptions{}).WithContentType(ContentType)
	encrypter, err := jose.NewEncrypter(ContentEncryption, jose.Recipient{Algorithm: KeyAlgorithm, Key: pub}, opts)
	if err != nil {
		return "", fmt.Errorf("init encrypter: %w", err)
	}
	obj, err := encrypter.Encrypt(plaintext)
	if err != nil {
		return "", fmt.Errorf("encrypt payload: %w", err)
	}
	return obj.CompactSerialize()
}

// Decrypt opens an envelope produced by Encrypt and decodes the JSON value
// inside, so any payload Encrypt accepted comes back as its JSON form. Every
// failure other than a missing key is a *DecryptionError.
func Decrypt(envelope string, priv *rsa.PrivateKey) (any, error) {
	plaintext, err := Open(envelope, priv)
	if err != nil {
		return nil, err
	}
	var payload any
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, &DecryptionError{Err: fmt.Errorf("decode payload: %w", err)}
	}
	return payload, nil
}

// Open authenticates and decrypts an envelope and returns the raw plaintext.
func Open(envelope string, priv *rsa.PrivateKey) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("encrypt private key: %w", ErrKeyMissing)
	}
	envelope = strings.TrimSpace(envelope)
	if len(strings.Split(envelope, ".")) != compactParts {
		return nil, &DecryptionError{Err: errors.New("envelope is not a compact JWE")}
	}
	obj, err := jose.ParseEncrypted(envelope)
	if err != nil {
		return nil, &DecryptionError{Err: err}
	}
	if obj.Header.Algorithm != string(KeyAlgorithm) {
		return nil, &DecryptionError{Err: fmt.Errorf("unsupported key algorithm %q", obj.Header.Algorithm)}
	}
	plaintext, err := obj.Decrypt(priv)
	if err != nil {
		return nil, &DecryptionError{Err: err}
	}
	return plaintext, nil
}
