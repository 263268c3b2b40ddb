// Package authn implements per-call party attestation. A caller self-signs a
// short-lived EdDSA JWT carrying its public key; the verifier accepts the
// claimed address only when it matches the address derived from that key and
// the signature checks out. No central credential store is involved, so any
// component can verify any party's calls.
package authn

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/syndrizzle/briq/pkg/domain"
)

var ErrUnauthorized = errors.New("unauthorized")

// KeyFromSeedHex builds a signing key from a hex-encoded 32-byte seed.
func KeyFromSeedHex(seed string) (ed25519.PrivateKey, error) {
	b, err := hex.DecodeString(seed)
	if err != nil {
		return nil, fmt.Errorf("decode key seed: %w", err)
	}
	if len(b) != ed25519.SeedSize {
		return nil, fmt.Errorf("key seed must be %d bytes", ed25519.SeedSize)
	}
	return ed25519.NewKeyFromSeed(b), nil
}

// TokenTTL caps how long an attestation stays valid.
const TokenTTL = 5 * time.Minute

type callerClaims struct {
	jwt.RegisteredClaims
	Pub string `json:"pub"`
}

// Token builds a bearer attestation for the holder of priv, valid from now.
func Token(priv ed25519.PrivateKey, now time.Time) (string, error) {
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return "", errors.New("not an ed25519 key")
	}
	claims := callerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(domain.AddressFromPublicKey(pub)),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
		Pub: base64.RawStdEncoding.EncodeToString(pub),
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
}

// Verifier authenticates Authorization headers. Now is overridable in tests;
// the zero value uses wall-clock time.
type Verifier struct {
	Now func() time.Time
}

func (v Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Authenticate returns the attested caller address, or ErrUnauthorized.
func (v Verifier) Authenticate(authorization string) (domain.Address, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return "", ErrUnauthorized
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authorization, prefix))
	if raw == "" {
		return "", ErrUnauthorized
	}

	claims := &callerClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		c, ok := t.Claims.(*callerClaims)
		if !ok {
			return nil, ErrUnauthorized
		}
		pub, err := base64.RawStdEncoding.DecodeString(c.Pub)
		if err != nil || len(pub) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: bad embedded key", ErrUnauthorized)
		}
		return ed25519.PublicKey(pub), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", ErrUnauthorized
	}

	pub, err := base64.RawStdEncoding.DecodeString(claims.Pub)
	if err != nil {
		return "", ErrUnauthorized
	}
	addr := domain.AddressFromPublicKey(ed25519.PublicKey(pub))
	if claims.Subject != string(addr) {
		return "", ErrUnauthorized
	}
	return addr, nil
}
