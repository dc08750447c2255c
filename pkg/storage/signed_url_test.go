package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("exp-1", "school-1", "school-1/exp-1.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	grant, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "exp-1", grant.ExportID)
	require.Equal(t, "school-1", grant.SchoolID)
	require.Equal(t, "school-1/exp-1.csv", grant.Path)
	require.WithinDuration(t, expiresAt, grant.ExpiresAt, time.Second)
}

func TestSignerRejectsExpiredToken(t *testing.T) {
	signer := NewSigner("secret", time.Minute)
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return base }
	token, _, err := signer.Sign("exp-1", "school-1", "a.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	grant, err := signer.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.Equal(t, "exp-1", grant.ExportID)
}

func TestSignerRejectsTamperedToken(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, _, err := signer.Sign("exp-1", "school-1", "a.csv")
	require.NoError(t, err)

	other := NewSigner("different", time.Hour)
	_, err = other.Verify(token)
	require.ErrorIs(t, err, ErrTokenSignature)

	_, err = signer.Verify("garbage")
	require.ErrorIs(t, err, ErrTokenMalformed)
}
