// Package idempotency records the outcome of keyed POST requests so that
// client retries replay the first response instead of re-executing.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartticket/ticket-api/internal/domain"
	"github.com/smartticket/ticket-api/internal/repository"
	apperrors "github.com/smartticket/ticket-api/pkg/util/errorutil"
)

const (
	// HeaderKey is the request header carrying the client's key.
	HeaderKey = "Idempotency-Key"
	// HeaderReplayed marks responses served from the ledger.
	HeaderReplayed = "Idempotent-Replayed"

	MaxKeyLength      = 100
	MaxResponseLength = 4000

	DefaultExpirationHours = 24
	minExpiration          = time.Hour
)

// Scope is the natural key of a ledger entry.
type Scope = repository.IdempotencyScope

// Options tune a Ledger.
type Options struct {
	ExpirationHours int
	Now             func() time.Time
}

// Ledger looks up and stores replayable outcomes.
type Ledger struct {
	repo       repository.IdempotencyRepository
	expiration time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewLedger constructs a ledger over repo.
func NewLedger(repo repository.IdempotencyRepository, opts Options, logger *zap.Logger) *Ledger {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		repo:       repo,
		expiration: Expiration(opts.ExpirationHours),
		now:        opts.Now,
		logger:     logger,
	}
}

// Expiration converts the configured hours into a retention window of
// at least one hour. Zero selects the default.
func Expiration(hours int) time.Duration {
	if hours == 0 {
		hours = DefaultExpirationHours
	}
	d := time.Duration(hours) * time.Hour
	if d < minExpiration {
		return minExpiration
	}
	return d
}

// ValidateKey rejects blank keys and keys longer than MaxKeyLength
// characters.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return apperrors.NewValidationError("Idempotency-Key must not be blank", nil)
	}
	if n := utf8.RuneCountInString(key); n > MaxKeyLength {
		return apperrors.NewValidationError(
			fmt.Sprintf("Idempotency-Key must be at most %d characters", MaxKeyLength),
			map[string]any{"max_length": MaxKeyLength, "length": n},
		)
	}
	return nil
}

// Find returns the live record for scope or nil. An expired record is
// removed on sight and reported as absent.
func (l *Ledger) Find(ctx context.Context, scope Scope) (*domain.IdempotencyRecord, error) {
	record, err := l.repo.Find(ctx, scope)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find idempotency record: %w", err)
	}
	if record.Expired(l.now()) {
		if err := l.repo.Delete(ctx, record); err != nil {
			return nil, fmt.Errorf("delete expired idempotency record: %w", err)
		}
		return nil, nil
	}
	return record, nil
}

// Record stores status and body for scope. It returns false when nothing
// was stored: the body was too large, or a concurrent request with the
// same scope recorded first.
func (l *Ledger) Record(ctx context.Context, scope Scope, status int, body []byte) (bool, error) {
	if n := utf8.RuneCount(body); n > MaxResponseLength {
		l.logger.Debug("idempotency response too large to record",
			zap.String("path", scope.Path),
			zap.Int("size", n),
		)
		return false, nil
	}

	now := l.now().UTC()
	record := &domain.IdempotencyRecord{
		ID:           uuid.NewString(),
		UserID:       scope.UserID,
		Key:          scope.Key,
		Path:         scope.Path,
		Method:       scope.Method,
		StatusCode:   status,
		ResponseBody: append([]byte(nil), body...),
		CreatedAt:    now,
		ExpiresAt:    now.Add(l.expiration),
	}
	if err := l.repo.Insert(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			l.logger.Warn("idempotency key recorded concurrently; first outcome kept",
				zap.String("user_id", scope.UserID),
				zap.String("path", scope.Path),
			)
			return false, nil
		}
		return false, fmt.Errorf("record idempotency outcome: %w", err)
	}
	return true, nil
}

// SweepExpired deletes every record whose expiry has passed.
func (l *Ledger) SweepExpired(ctx context.Context) (int64, error) {
	removed, err := l.repo.DeleteExpired(ctx, l.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep idempotency records: %w", err)
	}
	return removed, nil
}
