// Package tokens firma y verifica tokens de un solo propósito con expiración
// (confirmación de email, reset de password). Cada propósito usa su propia
// clave derivada del secreto, de modo que un token de reset nunca valida como
// confirmación y viceversa.
package tokens

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	PurposeEmailConfirm  = "email-confirm"
	PurposePasswordReset = "password-reset"

	DefaultTTL = 3600 * time.Second
)

// ErrInvalidToken agrupa firma inválida, propósito incorrecto y expiración:
// el llamador no debe poder distinguirlos.
var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	Email               string `json:"email"`
	PendingID           string `json:"pid,omitempty"`
	PasswordFingerprint string `json:"pwf,omitempty"`

	jwt.RegisteredClaims
}

type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("tokens: secret required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock reemplaza el reloj (tests).
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Signer) TTL() time.Duration { return s.ttl }

func (s *Signer) Issue(purpose string, c Claims) (string, error) {
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return "", errors.New("tokens: purpose required")
	}

	now := s.now().UTC()
	c.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strings.ToLower(strings.TrimSpace(c.Email)),
		Audience:  jwt.ClaimStrings{purpose},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString(s.key(purpose))
}

func (s *Signer) Verify(purpose, raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, ErrInvalidToken
	}

	var c Claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return s.key(purpose), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(purpose),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(c.Email) == "" {
		return Claims{}, ErrInvalidToken
	}
	return c, nil
}

// key = HMAC-SHA256(secret, purpose): el "salt" de propósito.
func (s *Signer) key(purpose string) []byte {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte("petpal." + purpose))
	return m.Sum(nil)
}

// Fingerprint resume un hash de password para atarlo a un token de reset.
func Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}
