package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/platform-services/internal/domain"
)

// memoryStore keeps users and refresh tokens in process memory.
// Records are copied on the way in and out so callers never share state with the store.
type memoryStore struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	users  map[string]domain.User
	tokens map[string]domain.RefreshToken
}

// NewMemoryRepositories creates repositories backed by process memory.
// Used when STORAGE_DRIVER=memory and by tests.
func NewMemoryRepositories() *Repositories {
	store := &memoryStore{
		users:  make(map[string]domain.User),
		tokens: make(map[string]domain.RefreshToken),
	}
	return &Repositories{
		User:  &memoryUserRepository{store: store},
		Token: &memoryTokenRepository{store: store},
		Tx:    &memoryTransactor{store: store},
	}
}

type memoryUserRepository struct {
	store *memoryStore
	inTx  bool
}

func (r *memoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	defer r.store.lockWrite(r.inTx)()

	if r.store.emailTaken(user.Email, "") {
		return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	r.store.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, user := range r.store.users {
		if user.Email == email && !user.IsDeleted() {
			u := user
			return &u, nil
		}
	}

	return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok || user.IsDeleted() {
		return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	return &user, nil
}

func (r *memoryUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	defer r.store.lockWrite(r.inTx)()

	existing, ok := r.store.users[user.ID]
	if !ok || existing.IsDeleted() {
		return fmt.Errorf("user with id %s not found: %w", user.ID, ErrNotFound)
	}

	if r.store.emailTaken(user.Email, user.ID) {
		return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
	}

	user.UpdatedAt = time.Now().UTC()
	r.store.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.store.mu.RLock()
	live := make([]domain.User, 0, len(r.store.users))
	for _, user := range r.store.users {
		if !user.IsDeleted() {
			live = append(live, user)
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(live, func(i, j int) bool {
		if live[i].CreatedAt.Equal(live[j].CreatedAt) {
			return live[i].ID < live[j].ID
		}
		return live[i].CreatedAt.Before(live[j].CreatedAt)
	})

	total := len(live)
	if offset >= total {
		return []*domain.User{}, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]*domain.User, 0, end-offset)
	for i := offset; i < end; i++ {
		u := live[i]
		page = append(page, &u)
	}

	return page, total, nil
}

// lockWrite takes the write lock. Writers outside a transaction also take
// txMu, so a rollback never discards their changes.
func (s *memoryStore) lockWrite(inTx bool) (unlock func()) {
	if inTx {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

// emailTaken must be called with mu held
func (s *memoryStore) emailTaken(email, exceptID string) bool {
	for id, user := range s.users {
		if id != exceptID && user.Email == email && !user.IsDeleted() {
			return true
		}
	}
	return false
}

type memoryTokenRepository struct {
	store *memoryStore
	inTx  bool
}

func (r *memoryTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	defer r.store.lockWrite(r.inTx)()

	for _, existing := range r.store.tokens {
		if existing.TokenHash == token.TokenHash {
			return fmt.Errorf("token with hash already exists: %w", ErrDuplicateToken)
		}
	}

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	r.store.tokens[token.ID] = *token
	return nil
}

func (r *memoryTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, token := range r.store.tokens {
		if token.TokenHash == tokenHash {
			t := token
			return &t, nil
		}
	}

	return nil, fmt.Errorf("token with hash not found: %w", ErrNotFound)
}

func (r *memoryTokenRepository) Revoke(ctx context.Context, tokenID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	defer r.store.lockWrite(r.inTx)()

	token, ok := r.store.tokens[tokenID]
	if !ok || token.RevokedAt != nil {
		return fmt.Errorf("live token with id %s not found: %w", tokenID, ErrNotFound)
	}

	revokedAt := at
	token.RevokedAt = &revokedAt
	r.store.tokens[tokenID] = token
	return nil
}

func (r *memoryTokenRepository) RevokeAllByUserID(ctx context.Context, userID string, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	defer r.store.lockWrite(r.inTx)()

	var n int64
	for id, token := range r.store.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			revokedAt := at
			token.RevokedAt = &revokedAt
			r.store.tokens[id] = token
			n++
		}
	}

	return n, nil
}

func (r *memoryTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	defer r.store.lockWrite(r.inTx)()

	var n int64
	for id, token := range r.store.tokens {
		if token.ExpiresAt.Before(before) {
			delete(r.store.tokens, id)
			n++
		}
	}

	return n, nil
}

// memoryTransactor serializes transactions against each other and against
// every other write, and restores a snapshot when fn fails
type memoryTransactor struct {
	store *memoryStore
}

func (t *memoryTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, users UserRepository, tokens TokenRepository) error) error {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	t.store.mu.RLock()
	users := make(map[string]domain.User, len(t.store.users))
	for k, v := range t.store.users {
		users[k] = v
	}
	tokens := make(map[string]domain.RefreshToken, len(t.store.tokens))
	for k, v := range t.store.tokens {
		tokens[k] = v
	}
	t.store.mu.RUnlock()

	if err := fn(ctx, &memoryUserRepository{store: t.store, inTx: true}, &memoryTokenRepository{store: t.store, inTx: true}); err != nil {
		t.store.mu.Lock()
		t.store.users = users
		t.store.tokens = tokens
		t.store.mu.Unlock()
		return err
	}

	return nil
}
