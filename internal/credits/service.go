// Package credits is the sole mutator of user balances. Every balance
// change goes through here, and every successful change appends one
// matching ledger row.
package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storyfairy/storyfairy-api/internal/models"
	"github.com/storyfairy/storyfairy-api/internal/store"
)

var (
	// ErrUserNotFound means the operation requires a provisioned user
	// record and none exists. Only GetBalance may create users.
	ErrUserNotFound = errors.New("credits: user not found")

	// ErrInsufficientCredits means a deduction would push the balance
	// below zero. The balance is unchanged.
	ErrInsufficientCredits = errors.New("credits: insufficient credits")

	// ErrInvalidAmount means the caller passed a non-positive amount.
	ErrInvalidAmount = errors.New("credits: amount must be positive")
)

// maxReplaceAttempts bounds the re-read/re-check/re-write loop when a
// conditional replace loses to a concurrent writer.
const maxReplaceAttempts = 3

// Service implements the credit ledger on top of a CreditStore.
type Service struct {
	store store.CreditStore
	log   *zap.Logger
	now   func() time.Time
}

func NewService(st store.CreditStore, log *zap.Logger) *Service {
	return &Service{
		store: st,
		log:   log,
		now:   time.Now,
	}
}

// GetBalance returns the user's current credit balance, lazily creating
// the record with the free-tier grant on first sight. A plain read of an
// existing user has no side effects.
func (s *Service) GetBalance(ctx context.Context, userID string) (int64, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err == nil {
		return user.Credits, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}

	now := s.now()
	newUser := &models.User{
		ID:        userID,
		UserID:    userID,
		Email:     "", // filled in later from purchase metadata
		Credits:   models.InitialCredits,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := s.store.CreateUser(ctx, newUser); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// A concurrent first read won the create. Use its record.
			existing, err := s.store.GetUser(ctx, userID)
			if err != nil {
				return 0, err
			}
			return existing.Credits, nil
		}
		return 0, err
	}

	s.log.Info("provisioned user with initial credits",
		zap.String("userId", userID),
		zap.Int64("credits", models.InitialCredits))
	return newUser.Credits, nil
}

// Deduct subtracts amount from the user's balance and appends a
// DEDUCTION transaction. It never lets the balance go negative: the
// check and the write run under the store's version precondition, with
// a bounded retry when a concurrent writer gets there first.
func (s *Service) Deduct(ctx context.Context, userID string, amount int64, description string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	for attempt := 1; attempt <= maxReplaceAttempts; attempt++ {
		user, err := s.store.GetUser(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return 0, ErrUserNotFound
			}
			return 0, err
		}

		if user.Credits < amount {
			return 0, ErrInsufficientCredits
		}

		newBalance := user.Credits - amount
		err = s.store.ReplaceUserCredits(ctx, userID, newBalance, user.Version, s.now())
		if errors.Is(err, store.ErrConflict) {
			s.log.Debug("credits replace lost, retrying",
				zap.String("userId", userID), zap.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		if err != nil {
			return 0, err
		}

		s.appendTransaction(ctx, userID, -amount, models.TxTypeDeduction, description, nil)
		return newBalance, nil
	}

	return 0, fmt.Errorf("deduct for %s: %w after %d attempts", userID, store.ErrConflict, maxReplaceAttempts)
}

// Add credits the user's balance and appends a PURCHASE transaction.
// A non-empty reference (the payment correlation id) is checked against
// the ledger first: an already-applied reference is a no-op returning
// the current balance, so duplicate payment webhooks cannot double-credit.
func (s *Service) Add(ctx context.Context, userID string, amount int64, description, reference string) (int64, error) {
	return s.credit(ctx, userID, amount, models.TxTypePurchase, description, reference)
}

// Refund credits the user's balance back and appends a REFUND
// transaction. Used when a paid-for operation fails after its deduction.
func (s *Service) Refund(ctx context.Context, userID string, amount int64, description string) (int64, error) {
	return s.credit(ctx, userID, amount, models.TxTypeRefund, description, "")
}

func (s *Service) credit(ctx context.Context, userID string, amount int64, txType, description, reference string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	if reference != "" {
		existing, err := s.store.GetTransactionByReference(ctx, userID, reference)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return 0, err
		}
		if existing != nil {
			s.log.Warn("duplicate purchase reference, skipping credit",
				zap.String("userId", userID), zap.String("reference", reference))
			user, err := s.store.GetUser(ctx, userID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return 0, ErrUserNotFound
				}
				return 0, err
			}
			return user.Credits, nil
		}
	}

	for attempt := 1; attempt <= maxReplaceAttempts; attempt++ {
		user, err := s.store.GetUser(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return 0, ErrUserNotFound
			}
			return 0, err
		}

		newBalance := user.Credits + amount
		err = s.store.ReplaceUserCredits(ctx, userID, newBalance, user.Version, s.now())
		if errors.Is(err, store.ErrConflict) {
			s.log.Debug("credits replace lost, retrying",
				zap.String("userId", userID), zap.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		if err != nil {
			return 0, err
		}

		var ref *string
		if reference != "" {
			ref = &reference
		}
		s.appendTransaction(ctx, userID, amount, txType, description, ref)
		return newBalance, nil
	}

	return 0, fmt.Errorf("add for %s: %w after %d attempts", userID, store.ErrConflict, maxReplaceAttempts)
}

// History returns the user's ledger, newest first. A never-seen user has
// an empty history; the initial grant is not a transaction.
func (s *Service) History(ctx context.Context, userID string) ([]models.CreditTransaction, error) {
	return s.store.GetUserTransactions(ctx, userID)
}

// appendTransaction writes the ledger row for a balance change that has
// already been applied. The ordering is deliberate: balance first,
// transaction second. If this append fails the client still gets the
// (correct) new balance, and the gap shows up in the audit sweep rather
// than as a double-spend.
func (s *Service) appendTransaction(ctx context.Context, userID string, amount int64, txType, description string, reference *string) {
	tx := &models.CreditTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		Reference:   reference,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		s.log.Error("ledger append failed after balance write",
			zap.String("userId", userID),
			zap.Int64("amount", amount),
			zap.String("type", txType),
			zap.Error(err))
	}
}
