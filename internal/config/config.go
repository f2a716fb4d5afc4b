package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTokenIssuer = "securepay"
	DefaultTokenTTL    = 300 * time.Second
)

type Config struct {
	HTTPAddr string
	LogLevel string

	CORSAllowedOrigins []string

	TokenIssuer  string
	TokenTTLSecs int

	AuthPrivateKeyBase64    string
	AuthPrivateKeyFile      string
	AuthPublicKeyBase64     string
	AuthPublicKeyFile       string
	EncryptPrivateKeyBase64 string
	EncryptPrivateKeyFile   string
	EncryptPublicKeyBase64  string
	EncryptPublicKeyFile    string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":3000"
	}
	return Config{
		HTTPAddr:                addr,
		LogLevel:                envDefault("LOG_LEVEL", "info"),
		CORSAllowedOrigins:      envListDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TokenIssuer:             envDefault("TOKEN_ISSUER", DefaultTokenIssuer),
		TokenTTLSecs:            envIntDefault("TOKEN_TTL_SECONDS", int(DefaultTokenTTL/time.Second)),
		AuthPrivateKeyBase64:    os.Getenv("AUTH_PRIVATE_KEY_BASE64"),
		AuthPrivateKeyFile:      os.Getenv("AUTH_PRIVATE_KEY_FILE"),
		AuthPublicKeyBase64:     os.Getenv("AUTH_PUBLIC_KEY_BASE64"),
		AuthPublicKeyFile:       os.Getenv("AUTH_PUBLIC_KEY_FILE"),
		EncryptPrivateKeyBase64: os.Getenv("ENCRYPT_PRIVATE_KEY_BASE64"),
		EncryptPrivateKeyFile:   os.Getenv("ENCRYPT_PRIVATE_KEY_FILE"),
		EncryptPublicKeyBase64:  os.Getenv("ENCRYPT_PUBLIC_KEY_BASE64"),
		EncryptPublicKeyFile:    os.Getenv("ENCRYPT_PUBLIC_KEY_FILE"),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envListDefault(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func (c Config) TokenTTL() time.Duration {
	if c.TokenTTLSecs <= 0 {
		return DefaultTokenTTL
	}
	return time.Duration(c.TokenTTLSecs) * time.Second
}
