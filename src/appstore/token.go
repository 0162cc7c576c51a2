package appstore

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Audience is the fixed JWT audience for the App Store Connect API.
const Audience = "appstoreconnect-v1"

// tokenLifetime is the token expiry window. The API rejects tokens valid
// for longer than 20 minutes.
const tokenLifetime = 20 * time.Minute

// TokenSource mints short-lived ES256 bearer tokens for the App Store
// Connect API. The private key is parsed once at construction; every
// Token call produces a brand-new token so the issuance time is always
// fresh. Tokens are never cached, logged, or otherwise retained.
type TokenSource struct {
	keyID      string
	issuerID   string
	privateKey *ecdsa.PrivateKey

	// now is stubbed in tests for deterministic claims.
	now func() time.Time
}

// NewTokenSource reads and parses the .p8 private key at keyPath.
// It fails when the key file cannot be read or parsed, or when either
// identifier is empty, so misconfiguration surfaces at startup instead
// of on the first API call.
func NewTokenSource(keyID, issuerID, keyPath string) (*TokenSource, error) {
	if keyID == "" {
		return nil, fmt.Errorf("appstore: key ID is required")
	}
	if issuerID == "" {
		return nil, fmt.Errorf("appstore: issuer ID is required")
	}

	pemBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("appstore: reading private key: %w", err)
	}

	privateKey, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("appstore: parsing private key: %w", err)
	}

	return &TokenSource{
		keyID:      keyID,
		issuerID:   issuerID,
		privateKey: privateKey,
		now:        time.Now,
	}, nil
}

// Token signs and returns a fresh bearer token. The token carries the
// key ID in its header, the issuer ID and fixed audience in its claims,
// and expires 20 minutes from issuance.
func (ts *TokenSource) Token() (string, error) {
	now := ts.now()

	claims := jwt.RegisteredClaims{
		Issuer:    ts.issuerID,
		Audience:  jwt.ClaimStrings{Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = ts.keyID

	signed, err := token.SignedString(ts.privateKey)
	if err != nil {
		return "", fmt.Errorf("appstore: signing token: %w", err)
	}
	return signed, nil
}
