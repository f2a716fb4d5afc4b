package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"securepay/internal/config"
	httpinfra "securepay/internal/infra/http"
	"securepay/internal/infra/keys"
)

func futureExpiry() string {
	return time.Now().AddDate(2, 0, 0).Format("01/06")
}

func TestRunUsage(t *testing.T) {
	require.Equal(t, 1, run([]string{"securepay"}))
	require.Equal(t, 1, run([]string{"securepay", "refund"}))
}

func TestRunValidate(t *testing.T) {
	ok := []string{"securepay", "validate", "--card", "4111111111111111", "--exp", futureExpiry(), "--cvv", "123", "--postal", "12345"}
	require.Equal(t, 0, run(ok))

	bad := []string{"securepay", "validate", "--card", "4111111111111112", "--exp", "01/20", "--cvv", "1", "--postal", "1"}
	require.Equal(t, 1, run(bad))

	require.Equal(t, 1, run([]string{"securepay", "validate", "--bogus"}))
}

func TestRunTokenAndPay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	encryptKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	srv := httpinfra.NewServer(config.Config{}, keys.Set{
		AuthPrivate:    authKey,
		AuthPublic:     &authKey.PublicKey,
		EncryptPrivate: encryptKey,
		EncryptPublic:  &encryptKey.PublicKey,
	}, logger)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	require.Equal(t, 0, run([]string{"securepay", "token", "--url", ts.URL, "--client-id", "c1"}))
	require.Equal(t, 1, run([]string{"securepay", "token", "--url", ts.URL}))

	der, err := x509.MarshalPKIXPublicKey(&encryptKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	keyFile := filepath.Join(t.TempDir(), "encrypt_public.pem")
	require.NoError(t, os.WriteFile(keyFile, pubPEM, 0o644))

	pay := []string{"securepay", "pay", "--url", ts.URL, "--client-id", "c1", "--amount", "12.5",
		"--card", "4111 1111 1111 1111", "--exp", futureExpiry(), "--cvv", "123", "--postal", "12345"}
	require.Equal(t, 1, run(pay), "key file is required")
	require.Equal(t, 0, run(append(pay, "--key-file", keyFile)))

	invalid := []string{"securepay", "pay", "--url", ts.URL, "--client-id", "c1", "--amount", "1", "--key-file", keyFile,
		"--card", "1234", "--exp", futureExpiry(), "--cvv", "123", "--postal", "12345"}
	require.Equal(t, 1, run(invalid))
}
