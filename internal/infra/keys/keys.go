package keys

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"securepay/internal/config"
	"securepay/internal/domain"
)

// Set holds the process-wide key material. It is populated once at startup
// and never mutated afterwards. Any field may be nil; callers report a nil
// key as domain.ErrKeyMissing at the time it is needed.
type Set struct {
	AuthPrivate    *rsa.PrivateKey
	AuthPublic     *rsa.PublicKey
	EncryptPrivate *rsa.PrivateKey
	EncryptPublic  *rsa.PublicKey
}

type source struct {
	purpose domain.KeyPurpose
	half    domain.KeyHalf
	base64  string
	file    string
}

func LoadFromConfig(cfg config.Config) (Set, error) {
	var set Set
	var err error

	if set.AuthPrivate, err = loadPrivate(source{domain.KeyPurposeAuth, domain.KeyHalfPrivate, cfg.AuthPrivateKeyBase64, cfg.AuthPrivateKeyFile}); err != nil {
		return Set{}, err
	}
	if set.AuthPublic, err = loadPublic(source{domain.KeyPurposeAuth, domain.KeyHalfPublic, cfg.AuthPublicKeyBase64, cfg.AuthPublicKeyFile}); err != nil {
		return Set{}, err
	}
	if set.EncryptPrivate, err = loadPrivate(source{domain.KeyPurposeEncrypt, domain.KeyHalfPrivate, cfg.EncryptPrivateKeyBase64, cfg.EncryptPrivateKeyFile}); err != nil {
		return Set{}, err
	}
	if set.EncryptPublic, err = loadPublic(source{domain.KeyPurposeEncrypt, domain.KeyHalfPublic, cfg.EncryptPublicKeyBase64, cfg.EncryptPublicKeyFile}); err != nil {
		return Set{}, err
	}

	if set.AuthPublic == nil && set.AuthPrivate != nil {
		set.AuthPublic = &set.AuthPrivate.PublicKey
	}
	if set.EncryptPublic == nil && set.EncryptPrivate != nil {
		set.EncryptPublic = &set.EncryptPrivate.PublicKey
	}
	return set, nil
}

// Missing lists the halves that are not loaded, e.g. "auth private".
func (s Set) Missing() []string {
	var out []string
	if s.AuthPrivate == nil {
		out = append(out, describe(domain.KeyPurposeAuth, domain.KeyHalfPrivate))
	}
	if s.AuthPublic == nil {
		out = append(out, describe(domain.KeyPurposeAuth, domain.KeyHalfPublic))
	}
	if s.EncryptPrivate == nil {
		out = append(out, describe(domain.KeyPurposeEncrypt, domain.KeyHalfPrivate))
	}
	if s.EncryptPublic == nil {
		out = append(out, describe(domain.KeyPurposeEncrypt, domain.KeyHalfPublic))
	}
	return out
}

func describe(purpose domain.KeyPurpose, half domain.KeyHalf) string {
	return string(purpose) + " " + string(half)
}

func readPEM(src source) ([]byte, error) {
	switch {
	case strings.TrimSpace(src.base64) != "":
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(src.base64))
		if err != nil {
			return nil, fmt.Errorf("%s key: decode base64: %w", describe(src.purpose, src.half), err)
		}
		return raw, nil
	case strings.TrimSpace(src.file) != "":
		raw, err := os.ReadFile(strings.TrimSpace(src.file))
		if err != nil {
			return nil, fmt.Errorf("%s key: %w", describe(src.purpose, src.half), err)
		}
		return raw, nil
	default:
		return nil, nil
	}
}

func loadPrivate(src source) (*rsa.PrivateKey, error) {
	raw, err := readPEM(src)
	if err != nil || raw == nil {
		return nil, err
	}
	key, err := ParsePrivateKeyPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("%s key: %w", describe(src.purpose, src.half), err)
	}
	return key, nil
}

func loadPublic(src source) (*rsa.PublicKey, error) {
	raw, err := readPEM(src)
	if err != nil || raw == nil {
		return nil, err
	}
	key, err := ParsePublicKeyPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("%s key: %w", describe(src.purpose, src.half), err)
	}
	return key, nil
}

// ParsePrivateKeyPEM accepts PKCS#8 ("PRIVATE KEY") and PKCS#1
// ("RSA PRIVATE KEY") blocks.
func ParsePrivateKeyPEM(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("private key is not RSA")
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
}

// ParsePublicKeyPEM accepts PKIX ("PUBLIC KEY") and PKCS#1
// ("RSA PUBLIC KEY") blocks.
func ParsePublicKeyPEM(raw []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("public key is not RSA")
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
}
