package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/platform-services/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRepositoryContract exercises behaviour every Repositories implementation must share
func runRepositoryContract(t *testing.T, newRepos func(t *testing.T) *Repositories) {
	t.Run("create and get user", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		user := newTestUser("Alice@Example.com")
		require.NoError(t, repos.User.Create(ctx, user))
		require.NotEmpty(t, user.ID)

		byEmail, err := repos.User.GetByEmail(ctx, "Alice@Example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		_, err = repos.User.GetByEmail(ctx, "alice@example.com")
		assert.ErrorIs(t, err, ErrNotFound, "email lookups are exact")

		byID, err := repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, byID.Email)
		assert.Equal(t, "Alice", *byID.FirstName)
		assert.Nil(t, byID.LastName)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		require.NoError(t, repos.User.Create(ctx, newTestUser("dup@example.com")))
		err := repos.User.Create(ctx, newTestUser("dup@example.com"))
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("soft deleted user is invisible and frees the email", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		user := newTestUser("gone@example.com")
		require.NoError(t, repos.User.Create(ctx, user))

		now := time.Now().UTC()
		user.IsActive = false
		user.DeletedAt = &now
		require.NoError(t, repos.User.Update(ctx, user))

		_, err := repos.User.GetByID(ctx, user.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, repos.User.Create(ctx, newTestUser("gone@example.com")))
	})

	t.Run("list pages in creation order", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		base := time.Now().UTC().Truncate(time.Second)
		for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
			u := newTestUser(email)
			u.CreatedAt = base.Add(time.Duration(i) * time.Second)
			u.UpdatedAt = u.CreatedAt
			require.NoError(t, repos.User.Create(ctx, u))
		}

		page, total, err := repos.User.List(ctx, 1, 5)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, page, 2)
		assert.Equal(t, "b@example.com", page[0].Email)
		assert.Equal(t, "c@example.com", page[1].Email)
	})

	t.Run("token lifecycle", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		user := newTestUser("tokens@example.com")
		require.NoError(t, repos.User.Create(ctx, user))

		now := time.Now().UTC().Truncate(time.Second)
		first := &domain.RefreshToken{UserID: user.ID, TokenHash: hashOf("first"), ExpiresAt: now.Add(time.Hour)}
		second := &domain.RefreshToken{UserID: user.ID, TokenHash: hashOf("second"), ExpiresAt: now.Add(time.Hour)}
		expired := &domain.RefreshToken{UserID: user.ID, TokenHash: hashOf("expired"), ExpiresAt: now.Add(-time.Hour)}
		require.NoError(t, repos.Token.Create(ctx, first))
		require.NoError(t, repos.Token.Create(ctx, second))
		require.NoError(t, repos.Token.Create(ctx, expired))

		err := repos.Token.Create(ctx, &domain.RefreshToken{UserID: user.ID, TokenHash: hashOf("first"), ExpiresAt: now.Add(time.Hour)})
		assert.ErrorIs(t, err, ErrDuplicateToken)

		got, err := repos.Token.GetByTokenHash(ctx, hashOf("first"))
		require.NoError(t, err)
		assert.True(t, got.IsValid(now))

		require.NoError(t, repos.Token.Revoke(ctx, first.ID, now))
		assert.ErrorIs(t, repos.Token.Revoke(ctx, first.ID, now), ErrNotFound, "second revoke finds no live record")

		n, err := repos.Token.RevokeAllByUserID(ctx, user.ID, now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		got, err = repos.Token.GetByTokenHash(ctx, hashOf("second"))
		require.NoError(t, err)
		assert.False(t, got.IsValid(now))

		deleted, err := repos.Token.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, err = repos.Token.GetByTokenHash(ctx, hashOf("expired"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()
		boom := errors.New("boom")

		err := repos.Tx.WithinTx(ctx, func(ctx context.Context, users UserRepository, tokens TokenRepository) error {
			if err := users.Create(ctx, newTestUser("tx@example.com")); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = repos.User.GetByEmail(ctx, "tx@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("transaction commits", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		var userID string
		err := repos.Tx.WithinTx(ctx, func(ctx context.Context, users UserRepository, tokens TokenRepository) error {
			u := newTestUser("commit@example.com")
			if err := users.Create(ctx, u); err != nil {
				return err
			}
			userID = u.ID
			return tokens.Create(ctx, &domain.RefreshToken{
				UserID:    u.ID,
				TokenHash: hashOf("commit"),
				ExpiresAt: time.Now().UTC().Add(time.Hour),
			})
		})
		require.NoError(t, err)

		token, err := repos.Token.GetByTokenHash(ctx, hashOf("commit"))
		require.NoError(t, err)
		assert.Equal(t, userID, token.UserID)
	})
}

func newTestUser(email string) *domain.User {
	first := "Alice"
	return &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: "hash",
		FirstName:    &first,
		IsActive:     true,
	}
}

// hashOf returns a 64 character stand-in for a token hash
func hashOf(s string) string {
	h := s
	for len(h) < 64 {
		h += "0"
	}
	return h[:64]
}
