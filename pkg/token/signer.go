package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformed indicates the token does not have the expected shape.
	ErrMalformed = errors.New("malformed token")
	// ErrSignature indicates the signature does not match the payload.
	ErrSignature = errors.New("invalid token signature")
	// ErrExpired indicates the token is past its expiry.
	ErrExpired = errors.New("token expired")
)

// Claims is the payload carried by a session token.
type Claims struct {
	SessionID string
	ExpiresAt time.Time
}

// Signer issues and validates HMAC-signed attendance session tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner constructs a signer for the provided secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Issue returns a token binding the session to its expiry.
func (s *Signer) Issue(sessionID string, expiresAt time.Time) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session id required")
	}
	if strings.Contains(sessionID, ".") {
		return "", fmt.Errorf("session id must not contain '.'")
	}
	if len(s.secret) == 0 {
		return "", fmt.Errorf("signing secret missing")
	}
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	return strings.Join([]string{sessionID, ts, s.sign(sessionID, ts)}, "."), nil
}

// Parse validates a token and returns its claims.
func (s *Signer) Parse(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" {
		return Claims{}, ErrMalformed
	}
	sessionID, ts, signature := parts[0], parts[1], parts[2]

	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Claims{}, ErrMalformed
	}
	if !hmac.Equal([]byte(s.sign(sessionID, ts)), []byte(signature)) {
		return Claims{}, ErrSignature
	}
	expiresAt := time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return Claims{}, ErrExpired
	}
	return Claims{SessionID: sessionID, ExpiresAt: expiresAt}, nil
}

func (s *Signer) sign(sessionID, ts string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(sessionID + "|" + ts))
	return hex.EncodeToString(mac.Sum(nil))
}
