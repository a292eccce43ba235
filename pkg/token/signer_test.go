package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignerIssueAndParse(t *testing.T) {
	signer := NewSigner("secret")
	expiresAt := time.Now().Add(time.Hour)
	tok, err := signer.Issue("session-1", expiresAt)
	require.NoError(t, err)

	claims, err := signer.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, "session-1", claims.SessionID)
	require.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
}

func TestSignerRejectsExpired(t *testing.T) {
	signer := NewSigner("secret")
	tok, err := signer.Issue("session-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = signer.Parse(tok)
	require.ErrorIs(t, err, ErrExpired)
}

func TestSignerRejectsTampering(t *testing.T) {
	signer := NewSigner("secret")
	tok, err := signer.Issue("session-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = NewSigner("other").Parse(tok)
	require.ErrorIs(t, err, ErrSignature)

	_, err = signer.Parse("session-2" + tok[len("session-1"):])
	require.ErrorIs(t, err, ErrSignature)

	_, err = signer.Parse("garbage")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestSignerRequiresSecret(t *testing.T) {
	_, err := NewSigner("").Issue("session-1", time.Now())
	require.Error(t, err)
}
