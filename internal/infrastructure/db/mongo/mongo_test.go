package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/msblog/userpost-system/internal/core/domain"
)

// testDatabase connects to MONGO_TEST_URI and returns a throwaway database
// dropped at the end of the test.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	name := fmt.Sprintf("userpost_test_%d", time.Now().UnixNano())
	client, db, err := Connect(ctx, Config{URI: uri, Database: name, Timeout: 5 * time.Second})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestUserRepository_SequentialIDsAndDelete(t *testing.T) {
	db := testDatabase(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	a, err := repo.Save(ctx, &domain.User{Name: "alice"})
	require.NoError(t, err)
	b, err := repo.Save(ctx, &domain.User{Name: "bobby"})
	require.NoError(t, err)
	assert.Equal(t, a.ID+1, b.ID)

	exists, err := repo.ExistsByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	deleted, err := repo.DeleteByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repo.FindByID(ctx, a.ID)
	assert.True(t, errors.Is(err, domain.ErrUserNotFound))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "bobby", all[0].Name)
}

func TestPostRepository_DeleteByOwnerIsIdempotent(t *testing.T) {
	db := testDatabase(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureIndexes(ctx))

	for i := 0; i < 3; i++ {
		_, err := repo.Save(ctx, &domain.Post{UserID: 7, Body: "hello world"})
		require.NoError(t, err)
	}
	other, err := repo.Save(ctx, &domain.Post{UserID: 8, Body: "hello world"})
	require.NoError(t, err)

	n, err := repo.DeleteByOwner(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = repo.DeleteByOwner(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, n)

	left, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, other.ID, left[0].ID)

	_, err = repo.FindByOwnerAndID(ctx, 7, other.ID)
	assert.True(t, errors.Is(err, domain.ErrPostNotFound))

	got, err := repo.FindByOwnerAndID(ctx, 8, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Body)
}

func TestPendingNotificationRepository_Lifecycle(t *testing.T) {
	db := testDatabase(t)
	repo := NewPendingNotificationRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureIndexes(ctx))

	require.NoError(t, repo.Add(ctx, 42, errors.New("bus down")))

	pending, err := repo.Poll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(42), pending[0].UserID)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "bus down", pending[0].LastError)

	require.NoError(t, repo.MarkFailed(ctx, pending[0].ID, errors.New("still down")))
	pending, err = repo.Poll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Attempts)

	require.NoError(t, repo.MarkPublished(ctx, pending[0].ID))
	pending, err = repo.Poll(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
