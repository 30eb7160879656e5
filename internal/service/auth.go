package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"secretdrop/internal/domain"
	"secretdrop/internal/dto"
	"secretdrop/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthConfig struct {
	BcryptCost        int
	MinPasswordLength int
}

// Auth handles account signup, login and current-user lookup. Secrets never
// depend on it beyond the owner id it resolves.
type Auth struct {
	store  *store.Store
	tokens *Tokens
	cfg    AuthConfig
}

func NewAuth(st *store.Store, tokens *Tokens, cfg AuthConfig) *Auth {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Auth{store: st, tokens: tokens, cfg: cfg}
}

func (a *Auth) Signup(ctx context.Context, req dto.SignupRequest) error {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return ErrEmptyCredential
	}
	if len(req.Password) < a.cfg.MinPasswordLength {
		return ErrPasswordLength
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), a.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (a *Auth) Login(ctx context.Context, req dto.LoginRequest) (string, *domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return "", nil, ErrEmptyCredential
	}

	user, err := a.store.Users().GetByEmail(ctx, email)
	if err != nil {
		// Uniform error: don't reveal whether the account exists.
		return "", nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	tok, err := a.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return tok, user, nil
}

func (a *Auth) CurrentUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := a.store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
