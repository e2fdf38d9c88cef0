package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AuthService defines wallet-signature authentication operations
type AuthService interface {
	GenerateNonce() (string, error)
	VerifySignature(address, publicKeyHex, nonce, signatureB64 string) error
	IssueToken(address string) (string, error)
	ValidateToken(token string) (string, error)
}

// Service implements AuthService. Issued nonces live in process memory with
// a TTL and are consumed on first use, so a captured signature cannot be
// replayed.
type Service struct {
	logger    *zap.Logger
	jwtSecret string
	tokenTTL  time.Duration
	nonceTTL  time.Duration

	mutex  sync.Mutex
	nonces map[string]time.Time // nonce -> expiry
}

var _ AuthService = (*Service)(nil)

// NewService creates a new AuthService
func NewService(logger *zap.Logger, jwtSecret string, tokenTTL, nonceTTL time.Duration) (*Service, error) {
	if jwtSecret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	if tokenTTL <= 0 {
		tokenTTL = 30 * time.Minute
	}
	if nonceTTL <= 0 {
		nonceTTL = 5 * time.Minute
	}
	return &Service{
		logger:    logger,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		nonceTTL:  nonceTTL,
		nonces:    make(map[string]time.Time),
	}, nil
}

// GenerateNonce issues a random hex nonce the client must sign with its
// wallet key
func (s *Service) GenerateNonce() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(buf)

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.purgeExpiredLocked()
	s.nonces[nonce] = time.Now().Add(s.nonceTTL)

	return nonce, nil
}

// VerifySignature checks an ed25519 signature over a previously issued
// nonce. The nonce must still be outstanding and is consumed whether or not
// the signature verifies.
//
// TODO: derive the wallet address from the public key and require it to
// match the claimed address before issuing tokens for it.
func (s *Service) VerifySignature(address, publicKeyHex, nonce, signatureB64 string) error {
	s.mutex.Lock()
	expiry, ok := s.nonces[nonce]
	if ok {
		delete(s.nonces, nonce)
	}
	s.mutex.Unlock()

	if !ok {
		return fmt.Errorf("unauthorized: unknown nonce")
	}
	if time.Now().After(expiry) {
		return fmt.Errorf("unauthorized: nonce expired")
	}

	publicKey, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return fmt.Errorf("unauthorized: invalid public key encoding: %w", err)
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("unauthorized: invalid public key length: %d", len(publicKey))
	}

	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("unauthorized: invalid signature encoding: %w", err)
	}

	// The signed message is the raw nonce bytes
	message, err := hex.DecodeString(nonce)
	if err != nil {
		return fmt.Errorf("unauthorized: invalid nonce encoding: %w", err)
	}

	if !ed25519.Verify(ed25519.PublicKey(publicKey), message, signature) {
		s.logger.Warn("wallet signature verification failed", zap.String("address", address))
		return fmt.Errorf("unauthorized: signature verification failed")
	}

	return nil
}

// IssueToken creates a bearer JWT for the authenticated wallet address
func (s *Service) IssueToken(address string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": address,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses a bearer JWT and returns the wallet address it was
// issued for
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	address, err := claims.GetSubject()
	if err != nil || address == "" {
		return "", fmt.Errorf("token missing subject")
	}

	return address, nil
}

// purgeExpiredLocked drops expired nonces; callers hold s.mutex
func (s *Service) purgeExpiredLocked() {
	now := time.Now()
	for nonce, expiry := range s.nonces {
		if now.After(expiry) {
			delete(s.nonces, nonce)
		}
	}
}
