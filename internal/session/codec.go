// Package session issues and reads the sealed session cookie that carries the
// signed-in staff member and their backend bearer token.
//
// The cookie value is an HS256 JWT encrypted with XChaCha20-Poly1305. Both keys
// are derived from SESSION_SECRET with HKDF, so rotating the secret invalidates
// every outstanding session.
package session

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/boddenberg/logistica-web-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const issuer = "logistica-web"

var errMalformed = errors.New("session: malformed cookie value")

// Claims is the JWT body stored inside the sealed cookie.
type Claims struct {
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	AccessToken string             `json:"access_token"`
	IsSuperuser bool               `json:"su,omitempty"`
	Permissions []domain.ScreenID  `json:"perms"`
	Profile     *domain.ProfileRef `json:"profile,omitempty"`
	jwt.RegisteredClaims
}

// Codec seals sessions into cookie values and opens them back.
type Codec struct {
	signKey []byte
	aead    cipher.AEAD
	ttl     time.Duration
	now     func() time.Time
}

// NewCodec derives the signing and encryption keys from secret.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session: secret is required")
	}
	signKey, err := deriveKey(secret, "logistica session signing key")
	if err != nil {
		return nil, err
	}
	encKey, err := deriveKey(secret, "logistica session encryption key")
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(encKey)
	if err != nil {
		return nil, fmt.Errorf("session: init cipher: %w", err)
	}
	return &Codec{signKey: signKey, aead: aead, ttl: ttl, now: time.Now}, nil
}

func deriveKey(secret, info string) ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("session: derive key: %w", err)
	}
	return key, nil
}

// TTL is the lifetime of sealed sessions.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Seal signs and encrypts the session.
func (c *Codec) Seal(s *domain.Session) (string, error) {
	if s == nil {
		return "", errors.New("session: nil session")
	}
	now := c.now()
	claims := Claims{
		Name:        s.Name,
		Email:       s.Email,
		AccessToken: s.AccessToken,
		IsSuperuser: s.IsSuperuser,
		Permissions: s.Permissions,
		Profile:     s.Profile,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signKey)
	if err != nil {
		return "", fmt.Errorf("session: sign: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(token)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("session: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(token), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts and validates a cookie value.
func (c *Codec) Open(value string) (*domain.Session, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, errMalformed
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return nil, errMalformed
	}

	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("session: decrypt: %w", err)
	}

	var claims Claims
	_, err = jwt.ParseWithClaims(string(plain), &claims,
		func(t *jwt.Token) (any, error) { return c.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "sessão inválida ou expirada"}
	}

	return &domain.Session{
		UserID:      claims.Subject,
		Name:        claims.Name,
		Email:       claims.Email,
		AccessToken: claims.AccessToken,
		IsSuperuser: claims.IsSuperuser,
		Permissions: claims.Permissions,
		Profile:     claims.Profile,
	}, nil
}
