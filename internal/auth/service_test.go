package auth_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tonscope/tokenrisk/internal/auth"
)

const testAddress = "EQAvlWFDxGF2lXm67y4yzC17wY79bbsE4QafajVgoVogeE7s"

func newTestService(t *testing.T, nonceTTL time.Duration) auth.AuthService {
	svc, err := auth.NewService(zap.NewNop(), "test-secret", 30*time.Minute, nonceTTL)
	require.NoError(t, err)
	return svc
}

func signNonce(t *testing.T, priv ed25519.PrivateKey, nonce string) string {
	message, err := hex.DecodeString(nonce)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, message))
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := auth.NewService(zap.NewNop(), "", time.Minute, time.Minute)
	assert.Error(t, err)
}

func TestWalletLoginFlow(t *testing.T) {
	svc := newTestService(t, 5*time.Minute)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	nonce, err := svc.GenerateNonce()
	require.NoError(t, err)
	assert.Len(t, nonce, 64)

	sig := signNonce(t, priv, nonce)
	require.NoError(t, svc.VerifySignature(testAddress, hex.EncodeToString(pub), nonce, sig))

	token, err := svc.IssueToken(testAddress)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	address, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, testAddress, address)
}

func TestVerifySignatureRejectsWrongKey(t *testing.T) {
	svc := newTestService(t, 5*time.Minute)

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	nonce, err := svc.GenerateNonce()
	require.NoError(t, err)

	// signed with a key that does not match the presented public key
	sig := signNonce(t, otherPriv, nonce)
	assert.Error(t, svc.VerifySignature(testAddress, hex.EncodeToString(pub), nonce, sig))
}

func TestVerifySignatureConsumesNonce(t *testing.T) {
	svc := newTestService(t, 5*time.Minute)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	nonce, err := svc.GenerateNonce()
	require.NoError(t, err)
	sig := signNonce(t, priv, nonce)

	require.NoError(t, svc.VerifySignature(testAddress, hex.EncodeToString(pub), nonce, sig))
	// replay with the same nonce fails
	assert.Error(t, svc.VerifySignature(testAddress, hex.EncodeToString(pub), nonce, sig))
}

func TestVerifySignatureUnknownNonce(t *testing.T) {
	svc := newTestService(t, 5*time.Minute)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	nonce := "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	sig := signNonce(t, priv, nonce)
	assert.Error(t, svc.VerifySignature(testAddress, hex.EncodeToString(pub), nonce, sig))
}

func TestVerifySignatureExpiredNonce(t *testing.T) {
	svc := newTestService(t, time.Nanosecond)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	nonce, err := svc.GenerateNonce()
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	sig := signNonce(t, priv, nonce)
	assert.Error(t, svc.VerifySignature(testAddress, hex.EncodeToString(pub), nonce, sig))
}

func TestVerifySignatureRejectsMalformedInputs(t *testing.T) {
	svc := newTestService(t, 5*time.Minute)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	nonce, err := svc.GenerateNonce()
	require.NoError(t, err)
	sig := signNonce(t, priv, nonce)

	// bad hex public key
	assert.Error(t, svc.VerifySignature(testAddress, "zz", nonce, sig))

	// wrong-length public key
	nonce2, err := svc.GenerateNonce()
	require.NoError(t, err)
	assert.Error(t, svc.VerifySignature(testAddress, "abcd", nonce2, sig))

	// bad base64 signature
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	nonce3, err := svc.GenerateNonce()
	require.NoError(t, err)
	assert.Error(t, svc.VerifySignature(testAddress, hex.EncodeToString(pub), nonce3, "!!!"))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(t, 5*time.Minute)

	_, err := svc.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestService(t, 5*time.Minute)
	other, err := auth.NewService(zap.NewNop(), "other-secret", 30*time.Minute, 5*time.Minute)
	require.NoError(t, err)

	token, err := other.IssueToken(testAddress)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
