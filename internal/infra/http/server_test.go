package http

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"securepay/internal/config"
	"securepay/internal/domain"
	"securepay/internal/infra/keys"
	"securepay/internal/infra/payload"
	"securepay/internal/infra/token"
	"securepay/internal/usecase"
	"securepay/pkg/envelope"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	keyOnce    sync.Once
	authKey    *rsa.PrivateKey
	encryptKey *rsa.PrivateKey
)

func testKeySet(t *testing.T) keys.Set {
	t.Helper()
	keyOnce.Do(func() {
		var err error
		if authKey, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic(err)
		}
		if encryptKey, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic(err)
		}
	})
	return keys.Set{
		AuthPrivate:    authKey,
		AuthPublic:     &authKey.PublicKey,
		EncryptPrivate: encryptKey,
		EncryptPublic:  &encryptKey.PublicKey,
	}
}

type testServer struct {
	srv   *Server
	now   time.Time
	logs  *test.Hook
	keys  keys.Set
	clock func() time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	set := testKeySet(t)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	ts := &testServer{now: time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC), logs: hook, keys: set}
	ts.clock = func() time.Time { return ts.now }
	authority := token.NewAuthority(set.AuthPrivate, set.AuthPublic, token.WithClock(ts.clock))
	ts.srv = NewServerWithDeps(config.Config{CORSAllowedOrigins: []string{"*"}}, ServerDeps{
		Issue: &usecase.IssueToken{Tokens: authority},
		Submit: &usecase.SubmitPayment{
			Tokens:   authority,
			Payloads: payload.Opener{Key: set.EncryptPrivate},
			Clock:    ts.clock,
		},
		Logger: logger,
	})
	return ts
}

func doRequest(t *testing.T, handler http.Handler, method, path, authorization string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireFailure(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Equal(t, map[string]any{"success": false, "error": message}, decodeBody(t, rec))
}

func (ts *testServer) issueToken(t *testing.T, clientID string) string {
	t.Helper()
	rec := doRequest(t, ts.srv.Handler(), http.MethodPost, "/auth", "", map[string]any{"clientId": clientID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	require.Equal(t, 300.0, body["expiresIn"])
	tokenString, _ := body["token"].(string)
	require.NotEmpty(t, tokenString)
	return tokenString
}

func TestPaymentFlow(t *testing.T) {
	ts := newTestServer(t)
	tokenString := ts.issueToken(t, "c1")

	sealed, err := envelope.Encrypt(map[string]any{
		"amount":         99.99,
		"cardNumber":     "4111111111111111",
		"expirationDate": "12/25",
		"cvv":            "123",
		"postalCode":     "12345",
	}, ts.keys.EncryptPublic)
	require.NoError(t, err)

	rec := doRequest(t, ts.srv.Handler(), http.MethodPost, "/payment", "Bearer "+tokenString, map[string]any{"payload_jwe": sealed})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	require.Equal(t, "Payment processed successfully", body["message"])
	require.Equal(t, 99.99, body["amount"])
	require.Equal(t, "c1", body["clientId"])
	require.Equal(t, "2025-04-02T08:00:00.000Z", body["timestamp"])
	txn, _ := body["transactionId"].(string)
	require.NotEmpty(t, txn)

	again := decodeBody(t, doRequest(t, ts.srv.Handler(), http.MethodPost, "/payment", "Bearer "+tokenString, map[string]any{"payload_jwe": sealed}))
	require.NotEqual(t, txn, again["transactionId"])

	for _, entry := range ts.logs.AllEntries() {
		line, err := entry.String()
		require.NoError(t, err)
		require.NotContains(t, line, tokenString)
		require.NotContains(t, line, "4111111111111111")
	}
}

func TestAuthRequiresClientID(t *testing.T) {
	ts := newTestServer(t)
	h := ts.srv.Handler()

	requireFailure(t, doRequest(t, h, http.MethodPost, "/auth", "", map[string]any{}), http.StatusBadRequest, "clientId is required")
	requireFailure(t, doRequest(t, h, http.MethodPost, "/auth", "", map[string]any{"clientId": ""}), http.StatusBadRequest, "clientId is required")
	requireFailure(t, doRequest(t, h, http.MethodPost, "/auth", "", "{not json"), http.StatusBadRequest, "clientId is required")
	requireFailure(t, doRequest(t, h, http.MethodPost, "/auth", "", nil), http.StatusBadRequest, "clientId is required")
}

func TestPaymentFailureMapping(t *testing.T) {
	ts := newTestServer(t)
	h := ts.srv.Handler()
	tokenString := ts.issueToken(t, "c1")

	t.Run("missing authorization", func(t *testing.T) {
		requireFailure(t, doRequest(t, h, http.MethodPost, "/payment", "", map[string]any{"payload_jwe": "x"}),
			http.StatusUnauthorized, "Authorization header required")
	})
	t.Run("wrong scheme", func(t *testing.T) {
		requireFailure(t, doRequest(t, h, http.MethodPost, "/payment", "Basic "+tokenString, map[string]any{"payload_jwe": "x"}),
			http.StatusUnauthorized, "Authorization header required")
	})
	t.Run("invalid token", func(t *testing.T) {
		requireFailure(t, doRequest(t, h, http.MethodPost, "/payment", "Bearer nope", map[string]any{"payload_jwe": "x"}),
			http.StatusUnauthorized, "Invalid auth token")
	})
	t.Run("auth checked before body", func(t *testing.T) {
		requireFailure(t, doRequest(t, h, http.MethodPost, "/payment", "Bearer nope", "{broken"),
			http.StatusUnauthorized, "Invalid auth token")
	})
	t.Run("missing payload", func(t *testing.T) {
		requireFailure(t, doRequest(t, h, http.MethodPost, "/payment", "Bearer "+tokenString, map[string]any{}),
			http.StatusBadRequest, "payload_jwe is required")
		requireFailure(t, doRequest(t, h, http.MethodPost, "/payment", "Bearer "+tokenString, "{broken"),
			http.StatusBadRequest, "payload_jwe is required")
	})
	t.Run("undecryptable payload", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPost, "/payment", "Bearer "+tokenString, map[string]any{"payload_jwe": "a.b.c"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decodeBody(t, rec)
		require.Equal(t, false, body["success"])
		require.True(t, strings.HasPrefix(body["error"].(string), "Failed to decrypt payload: "))
	})
	t.Run("expired token", func(t *testing.T) {
		ts.now = ts.now.Add(300 * time.Second)
		requireFailure(t, doRequest(t, h, http.MethodPost, "/payment", "Bearer "+tokenString, map[string]any{"payload_jwe": "x"}),
			http.StatusUnauthorized, "Auth token has expired")
	})
}

func TestMissingKeyMaterial(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv := NewServer(config.Config{CORSAllowedOrigins: []string{"*"}}, keys.Set{}, logger)
	h := srv.Handler()

	requireFailure(t, doRequest(t, h, http.MethodPost, "/auth", "", map[string]any{"clientId": "c1"}),
		http.StatusInternalServerError, "Server configuration error")
	requireFailure(t, doRequest(t, h, http.MethodPost, "/payment", "Bearer abc", map[string]any{"payload_jwe": "x"}),
		http.StatusInternalServerError, "Server configuration error")
}

type brokenVerifier struct{}

func (brokenVerifier) Verify(string) (domain.Claims, error) {
	return domain.Claims{}, errors.New("secret internal detail")
}

func TestServerFaultIsOpaque(t *testing.T) {
	logger, hook := test.NewNullLogger()
	srv := NewServerWithDeps(config.Config{}, ServerDeps{
		Submit: &usecase.SubmitPayment{Tokens: brokenVerifier{}},
		Logger: logger,
	})

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/payment", "Bearer abc", map[string]any{"payload_jwe": "x"})
	requireFailure(t, rec, http.StatusInternalServerError, "Internal server error")
	require.NotContains(t, rec.Body.String(), "secret internal detail")

	last := hook.LastEntry()
	require.NotNil(t, last)
	require.Equal(t, logrus.ErrorLevel, last.Level)
	require.Equal(t, "server_fault", last.Data["kind"])
}

func TestMetricsAndHealth(t *testing.T) {
	ts := newTestServer(t)
	h := ts.srv.Handler()
	ts.issueToken(t, "c1")
	doRequest(t, h, http.MethodPost, "/payment", "", nil)

	health := doRequest(t, h, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, health.Code)

	rec := doRequest(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `securepay_requests_total{operation="issue_token",outcome="success"} 1`)
	require.Contains(t, rec.Body.String(), `securepay_requests_total{operation="submit_payment",outcome="authentication"} 1`)
}

func TestNoRouteAndCORS(t *testing.T) {
	ts := newTestServer(t)
	h := ts.srv.Handler()

	requireFailure(t, doRequest(t, h, http.MethodGet, "/nope", "", nil), http.StatusNotFound, "Route not found")

	req := httptest.NewRequest(http.MethodOptions, "/payment", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPanicYieldsJSONFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.srv.r.GET("/explode", func(*gin.Context) { panic("card vault unreachable") })

	rec := doRequest(t, ts.srv.Handler(), http.MethodGet, "/explode", "", nil)
	requireFailure(t, rec, http.StatusInternalServerError, "Internal server error")
	require.NotContains(t, rec.Body.String(), "vault")

	last := ts.logs.LastEntry()
	require.NotNil(t, last)
	require.Equal(t, logrus.ErrorLevel, last.Level)
}

func TestPaymentAmountIsCopiedVerbatim(t *testing.T) {
	ts := newTestServer(t)
	tokenString := ts.issueToken(t, "c1")

	sealed, err := envelope.Encrypt(map[string]any{"amount": "12.50", "cardNumber": "4111111111111111"}, ts.keys.EncryptPublic)
	require.NoError(t, err)
	rec := doRequest(t, ts.srv.Handler(), http.MethodPost, "/payment", "Bearer "+tokenString, map[string]any{"payload_jwe": sealed})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "12.50", decodeBody(t, rec)["amount"])

	sealed, err = envelope.Encrypt(map[string]any{"cardNumber": "4111111111111111"}, ts.keys.EncryptPublic)
	require.NoError(t, err)
	rec = doRequest(t, ts.srv.Handler(), http.MethodPost, "/payment", "Bearer "+tokenString, map[string]any{"payload_jwe": sealed})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	require.Contains(t, body, "amount")
	require.Nil(t, body["amount"])
}
