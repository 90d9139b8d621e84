// Package store is the typed access layer for the two credit collections
// ('users' and 'credit_transactions') plus story persistence. It is the
// only package that talks SQL; callers branch on the sentinel errors
// below instead of inspecting driver errors.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/storyfairy/storyfairy-api/internal/models"
)

var (
	// ErrNotFound means the requested record does not exist. Callers must
	// treat this as a normal outcome, not a fault.
	ErrNotFound = errors.New("store: record not found")

	// ErrConflict means a conditional write lost: either the version
	// precondition on a replace failed, or an insert hit a duplicate key.
	// Callers are expected to re-read and retry.
	ErrConflict = errors.New("store: write conflict")
)

// CreditStore is the adapter the ledger service runs against.
type CreditStore interface {
	// GetUser returns the user record or ErrNotFound.
	GetUser(ctx context.Context, id string) (*models.User, error)

	// CreateUser inserts a new user record. A duplicate id yields
	// ErrConflict (another request provisioned the user first).
	CreateUser(ctx context.Context, user *models.User) error

	// ReplaceUserCredits sets the credits and updatedAt of the user,
	// conditional on the version the caller read. A stale version yields
	// ErrConflict; a missing user yields ErrNotFound.
	ReplaceUserCredits(ctx context.Context, id string, credits int64, version int64, now time.Time) error

	// CreateTransaction appends one immutable ledger row. The id doubles
	// as the idempotency key: a retried insert of the same id yields
	// ErrConflict rather than a second row.
	CreateTransaction(ctx context.Context, tx *models.CreditTransaction) error

	// GetTransactionByReference returns the user's transaction carrying
	// the given external reference, or ErrNotFound.
	GetTransactionByReference(ctx context.Context, userID, reference string) (*models.CreditTransaction, error)

	// GetUserTransactions returns the user's ledger, newest first.
	GetUserTransactions(ctx context.Context, userID string) ([]models.CreditTransaction, error)
}

// StoryStore persists generated stories.
type StoryStore interface {
	CreateStory(ctx context.Context, story *models.Story) error
	GetStory(ctx context.Context, id, userID string) (*models.Story, error)
	ListUserStories(ctx context.Context, userID string, limit int) ([]models.StorySummary, error)
	DeleteStory(ctx context.Context, id, userID string) error
}
