package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"secretdrop/internal/domain"
	"secretdrop/internal/netutil"
	"secretdrop/internal/store"
	"secretdrop/internal/token"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type SecretsConfig struct {
	TokenLength int
	BcryptCost  int
}

// tokenInsertRetries bounds the retry loop on a unique-token collision.
// This is the only retry in the lifecycle.
const tokenInsertRetries = 3

// Secrets owns the secret lifecycle: creation, existence probes and the
// at-most-once disclosure. All serialization between concurrent disclosure
// attempts happens in the backing store's transaction, never in memory, so
// the guarantee holds across multiple instances sharing one database.
type Secrets struct {
	store secretsStore
	cfg   SecretsConfig
}

func NewSecrets(st *store.Store, cfg SecretsConfig) *Secrets {
	if cfg.TokenLength <= 0 {
		cfg.TokenLength = token.DefaultLength
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Secrets{store: gormSecretsAdapter{store: st}, cfg: cfg}
}

type secretsStore interface {
	WithTx(ctx context.Context, fn func(tx secretsTx) error) error
	Secrets() secretStore
	AccessLogs() accessLogStore
}

type secretsTx interface {
	Secrets() secretStore
}

type secretStore interface {
	Create(ctx context.Context, sec *domain.Secret) error
	Exists(ctx context.Context, token string) (bool, error)
	GetForUpdate(ctx context.Context, token string) (*domain.Secret, error)
	DeleteByToken(ctx context.Context, token string) (int64, error)
}

type accessLogStore interface {
	Append(ctx context.Context, entry *domain.AccessLog) error
}

type gormSecretsAdapter struct {
	store *store.Store
}

func (g gormSecretsAdapter) WithTx(ctx context.Context, fn func(tx secretsTx) error) error {
	return g.store.WithTx(ctx, func(tx *store.Store) error {
		return fn(gormSecretsTxAdapter{tx: tx})
	})
}

func (g gormSecretsAdapter) Secrets() secretStore { return g.store.Secrets() }

func (g gormSecretsAdapter) AccessLogs() accessLogStore { return g.store.AccessLogs() }

type gormSecretsTxAdapter struct {
	tx *store.Store
}

func (g gormSecretsTxAdapter) Secrets() secretStore { return g.tx.Secrets() }

// Create stores a new secret and returns its shareable token. The viewer
// password is bcrypt-hashed before it touches the database; the plaintext is
// never persisted.
func (s *Secrets) Create(ctx context.Context, ownerID *uuid.UUID, message, password string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if password == "" {
		return "", ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash viewer password: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < tokenInsertRetries; attempt++ {
		tok, err := token.New(s.cfg.TokenLength)
		if err != nil {
			return "", err
		}
		sec := &domain.Secret{
			ID:           uuid.New(),
			Token:        tok,
			Message:      message,
			PasswordHash: string(hash),
			OwnerID:      ownerID,
			CreatedAt:    time.Now().UTC(),
		}
		err = s.store.Secrets().Create(ctx, sec)
		if err == nil {
			return tok, nil
		}
		if !errors.Is(err, store.ErrDuplicateKey) {
			return "", fmt.Errorf("store secret: %w", err)
		}
		// Token collision: astronomically unlikely, retry with a fresh one.
		lastErr = err
		slog.Warn("secret token collision, retrying", "attempt", attempt+1)
	}
	return "", fmt.Errorf("store secret: %w", lastErr)
}

// Probe reports whether a token still resolves to a live secret. Consumed
// and never-created tokens are indistinguishable, and probes leave no trace
// in the access log.
func (s *Secrets) Probe(ctx context.Context, tok string) (bool, error) {
	return s.store.Secrets().Exists(ctx, tok)
}

// Disclose runs the verify-then-consume protocol. At most one caller ever
// receives the message for a given token: the row is read under a row lock,
// the password is compared via bcrypt's own constant-time check, and the
// delete is conditional on the row still being there. Concurrent
// correct-password losers observe zero deleted rows and report not-found.
//
// Every attempt except internal errors lands in the access log. Logging is
// best-effort and runs after the transaction commits; a log write failure
// never rolls back a disclosure.
func (s *Secrets) Disclose(ctx context.Context, tok, password, ip, userAgent string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	var message string
	err := s.store.WithTx(ctx, func(tx secretsTx) error {
		sec, err := tx.Secrets().GetForUpdate(ctx, tok)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrSecretNotFound
			}
			return err
		}
		if bcrypt.CompareHashAndPassword([]byte(sec.PasswordHash), []byte(password)) != nil {
			// Wrong password never consumes the secret.
			return domain.ErrInvalidPassword
		}
		rows, err := tx.Secrets().DeleteByToken(ctx, tok)
		if err != nil {
			return err
		}
		if rows == 0 {
			// A concurrent disclosure got there first.
			return domain.ErrSecretNotFound
		}
		message = sec.Message
		return nil
	})

	switch {
	case err == nil:
		s.logAttempt(ctx, tok, true, ip, userAgent)
		return message, nil
	case errors.Is(err, domain.ErrSecretNotFound), errors.Is(err, domain.ErrInvalidPassword):
		s.logAttempt(ctx, tok, false, ip, userAgent)
		return "", err
	default:
		// Internal failure is not an attempt outcome; keep it out of the log.
		return "", fmt.Errorf("disclose secret: %w", err)
	}
}

func (s *Secrets) logAttempt(ctx context.Context, tok string, success bool, ip, userAgent string) {
	if normalized, ok := netutil.NormalizeIP(ip); ok {
		ip = normalized
	}
	entry := &domain.AccessLog{
		ID:          uuid.New(),
		SecretToken: tok,
		Success:     success,
		IPAddress:   ip,
		UserAgent:   netutil.TruncateUserAgent(userAgent),
		AttemptedAt: time.Now().UTC(),
	}
	if err := s.store.AccessLogs().Append(ctx, entry); err != nil {
		slog.Warn("access log append failed", "error", err, "token", tok, "success", success)
	}
}
