package service

import (
	"fmt"
	"time"

	"secretdrop/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	SigningKey []byte // HS256 secret
}

// Tokens mints and validates the bearer tokens handed out on login.
type Tokens struct {
	cfg TokenConfig
}

func NewTokens(cfg TokenConfig) *Tokens {
	return &Tokens{cfg: cfg}
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (t *Tokens) Issue(user *domain.User) (string, error) {
	now := time.Now()
	claims := accessClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.AccessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.cfg.SigningKey)
}

// Verify parses an HS256 token and returns the user id it was issued to.
func (t *Tokens) Verify(raw string) (uuid.UUID, error) {
	claims := &accessClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (interface{}, error) {
		// Ensure HS* (HMAC) only
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %T", tok.Method)
		}
		return t.cfg.SigningKey, nil
	})
	if err != nil || !tok.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	// Every token this service mints carries the issuer; a missing claim is a
	// forgery, not a legacy token.
	if claims.Issuer != t.cfg.Issuer {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
