package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/storyfairy/storyfairy-api/internal/models"
)

// mysqlDuplicateEntry is the MySQL error number for a duplicate key.
const mysqlDuplicateEntry = 1062

// MySQLStore implements CreditStore and StoryStore on a MySQL pool.
type MySQLStore struct {
	DB *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{DB: db}
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

//
// --- Users ---
//

func (s *MySQLStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, user_id, email, credits, created_at, updated_at, version
		FROM users
		WHERE id = ?`

	var u models.User
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.UserID, &u.Email, &u.Credits, &u.CreatedAt, &u.UpdatedAt, &u.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *MySQLStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, user_id, email, credits, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.DB.ExecContext(ctx, query,
		user.ID, user.UserID, user.Email, user.Credits,
		user.CreatedAt, user.UpdatedAt, user.Version,
	)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *MySQLStore) ReplaceUserCredits(ctx context.Context, id string, credits int64, version int64, now time.Time) error {
	// The WHERE clause on version is the whole concurrency story: a
	// concurrent writer bumps the version, this update matches zero rows,
	// and the caller re-reads and retries.
	query := `
		UPDATE users
		SET credits = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`

	res, err := s.DB.ExecContext(ctx, query, credits, now, id, version)
	if err != nil {
		return fmt.Errorf("replace user credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace user credits: %w", err)
	}
	if affected == 0 {
		// Either the user vanished or the version is stale. Distinguish so
		// the service can report the right thing.
		var exists int
		err := s.DB.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("replace user credits: %w", err)
		}
		return ErrConflict
	}
	return nil
}

//
// --- Credit transactions ---
//

func (s *MySQLStore) CreateTransaction(ctx context.Context, tx *models.CreditTransaction) error {
	query := `
		INSERT INTO credit_transactions (id, user_id, amount, type, description, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.DB.ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.Amount, tx.Type, tx.Description, tx.Reference, tx.CreatedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (s *MySQLStore) GetTransactionByReference(ctx context.Context, userID, reference string) (*models.CreditTransaction, error) {
	query := `
		SELECT id, user_id, amount, type, description, reference, created_at
		FROM credit_transactions
		WHERE user_id = ? AND reference = ?
		LIMIT 1`

	var tx models.CreditTransaction
	err := s.DB.QueryRowContext(ctx, query, userID, reference).Scan(
		&tx.ID, &tx.UserID, &tx.Amount, &tx.Type, &tx.Description, &tx.Reference, &tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get transaction by reference: %w", err)
	}
	return &tx, nil
}

func (s *MySQLStore) GetUserTransactions(ctx context.Context, userID string) ([]models.CreditTransaction, error) {
	query := `
		SELECT id, user_id, amount, type, description, reference, created_at
		FROM credit_transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`

	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get user transactions: %w", err)
	}
	defer rows.Close()

	var list []models.CreditTransaction
	for rows.Next() {
		var tx models.CreditTransaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Type, &tx.Description, &tx.Reference, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		list = append(list, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get user transactions: %w", err)
	}
	return list, nil
}

// BalanceMismatch reports a user whose stored balance disagrees with
// the ledger sum plus the initial grant.
type BalanceMismatch struct {
	UserID   string
	Credits  int64
	Expected int64
}

// AuditBalances finds users violating the ledger-sum invariant
// (initial grant + SUM(amounts) == credits). Used by the background
// reconciliation sweep; it reports, it never repairs.
func (s *MySQLStore) AuditBalances(ctx context.Context, initialGrant int64) ([]BalanceMismatch, error) {
	query := `
		SELECT u.id, u.credits, ? + COALESCE(SUM(t.amount), 0) AS expected
		FROM users u
		LEFT JOIN credit_transactions t ON t.user_id = u.id
		GROUP BY u.id, u.credits
		HAVING u.credits <> expected`

	rows, err := s.DB.QueryContext(ctx, query, initialGrant)
	if err != nil {
		return nil, fmt.Errorf("audit balances: %w", err)
	}
	defer rows.Close()

	var list []BalanceMismatch
	for rows.Next() {
		var m BalanceMismatch
		if err := rows.Scan(&m.UserID, &m.Credits, &m.Expected); err != nil {
			return nil, fmt.Errorf("scan mismatch: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit balances: %w", err)
	}
	return list, nil
}

//
// --- Stories ---
//

func (s *MySQLStore) CreateStory(ctx context.Context, story *models.Story) error {
	sentences, err := json.Marshal(story.Sentences)
	if err != nil {
		return fmt.Errorf("marshal sentences: %w", err)
	}

	query := `
		INSERT INTO stories (id, user_id, title, topic, length, style, sentences, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.DB.ExecContext(ctx, query,
		story.ID, story.UserID, story.Title, story.Topic, story.Length, story.Style,
		sentences, story.CreatedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("create story: %w", err)
	}
	return nil
}

func (s *MySQLStore) GetStory(ctx context.Context, id, userID string) (*models.Story, error) {
	query := `
		SELECT id, user_id, title, topic, length, style, sentences, created_at
		FROM stories
		WHERE id = ? AND user_id = ?`

	var story models.Story
	var sentences []byte
	err := s.DB.QueryRowContext(ctx, query, id, userID).Scan(
		&story.ID, &story.UserID, &story.Title, &story.Topic, &story.Length, &story.Style,
		&sentences, &story.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get story: %w", err)
	}
	if err := json.Unmarshal(sentences, &story.Sentences); err != nil {
		return nil, fmt.Errorf("unmarshal sentences: %w", err)
	}
	return &story, nil
}

func (s *MySQLStore) ListUserStories(ctx context.Context, userID string, limit int) ([]models.StorySummary, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, title, length, style, created_at
		FROM stories
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := s.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list user stories: %w", err)
	}
	defer rows.Close()

	var list []models.StorySummary
	for rows.Next() {
		var st models.StorySummary
		if err := rows.Scan(&st.ID, &st.Title, &st.Length, &st.Style, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		list = append(list, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user stories: %w", err)
	}
	return list, nil
}

func (s *MySQLStore) DeleteStory(ctx context.Context, id, userID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM stories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
