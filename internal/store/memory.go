package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/storyfairy/storyfairy-api/internal/models"
)

// MemoryStore is an in-memory CreditStore/StoryStore for tests and
// local development. It honors the same version preconditions and
// duplicate-key conflicts as the MySQL implementation.
type MemoryStore struct {
	mu           sync.Mutex
	users        map[string]models.User
	transactions map[string]models.CreditTransaction
	stories      map[string]models.Story
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]models.User),
		transactions: make(map[string]models.CreditTransaction),
		stories:      make(map[string]models.Story),
	}
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.ID]; exists {
		return ErrConflict
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) ReplaceUserCredits(_ context.Context, id string, credits int64, version int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	if u.Version != version {
		return ErrConflict
	}
	u.Credits = credits
	u.UpdatedAt = now
	u.Version++
	m.users[id] = u
	return nil
}

func (m *MemoryStore) CreateTransaction(_ context.Context, tx *models.CreditTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.transactions[tx.ID]; exists {
		return ErrConflict
	}
	m.transactions[tx.ID] = *tx
	return nil
}

func (m *MemoryStore) GetTransactionByReference(_ context.Context, userID, reference string) (*models.CreditTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tx := range m.transactions {
		if tx.UserID == userID && tx.Reference != nil && *tx.Reference == reference {
			out := tx
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUserTransactions(_ context.Context, userID string) ([]models.CreditTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var list []models.CreditTransaction
	for _, tx := range m.transactions {
		if tx.UserID == userID {
			list = append(list, tx)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (m *MemoryStore) CreateStory(_ context.Context, story *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.stories[story.ID]; exists {
		return ErrConflict
	}
	m.stories[story.ID] = *story
	return nil
}

func (m *MemoryStore) GetStory(_ context.Context, id, userID string) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.stories[id]
	if !ok || st.UserID != userID {
		return nil, ErrNotFound
	}
	return &st, nil
}

func (m *MemoryStore) ListUserStories(_ context.Context, userID string, limit int) ([]models.StorySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	var list []models.StorySummary
	for _, st := range m.stories {
		if st.UserID == userID {
			list = append(list, models.StorySummary{
				ID:        st.ID,
				Title:     st.Title,
				Length:    st.Length,
				Style:     st.Style,
				CreatedAt: st.CreatedAt,
			})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *MemoryStore) DeleteStory(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.stories[id]
	if !ok || st.UserID != userID {
		return ErrNotFound
	}
	delete(m.stories, id)
	return nil
}
