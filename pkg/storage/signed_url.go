package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrTokenMalformed = errors.New("malformed download token")
	ErrTokenSignature = errors.New("invalid download token signature")
	ErrTokenExpired   = errors.New("download token expired")
)

// DownloadGrant is the content of a signed download token.
type DownloadGrant struct {
	ExportID  string    `json:"e"`
	SchoolID  string    `json:"s"`
	Path      string    `json:"p"`
	ExpiresAt time.Time `json:"x"`
}

// Signer issues and verifies HMAC-SHA256 download tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token granting access to path and the grant's expiry.
func (s *Signer) Sign(exportID, schoolID, path string) (string, time.Time, error) {
	if exportID == "" || schoolID == "" || path == "" {
		return "", time.Time{}, fmt.Errorf("export id, school id and path are required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	grant := DownloadGrant{
		ExportID:  exportID,
		SchoolID:  schoolID,
		Path:      path,
		ExpiresAt: s.now().Add(s.ttl).UTC().Truncate(time.Second),
	}
	raw, err := json.Marshal(grant)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode grant: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + s.mac(payload), grant.ExpiresAt, nil
}

// Verify checks the signature and expiry and returns the grant.
func (s *Signer) Verify(token string) (DownloadGrant, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok || payload == "" || sig == "" {
		return DownloadGrant{}, ErrTokenMalformed
	}
	if !hmac.Equal([]byte(s.mac(payload)), []byte(sig)) {
		return DownloadGrant{}, ErrTokenSignature
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return DownloadGrant{}, ErrTokenMalformed
	}
	var grant DownloadGrant
	if err := json.Unmarshal(raw, &grant); err != nil {
		return DownloadGrant{}, ErrTokenMalformed
	}
	if s.now().After(grant.ExpiresAt) {
		return grant, ErrTokenExpired
	}
	return grant, nil
}

func (s *Signer) mac(payload string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}
