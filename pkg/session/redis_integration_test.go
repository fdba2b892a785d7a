//go:build integration

package session_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hero/pkg/redis"
	"github.com/dmitrymomot/hero/pkg/session"
)

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := redis.Open(ctx, redis.Config{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := session.NewRedisStore(client, "test:session:"+time.Now().Format("150405.000")+":")

	sess := session.New("id-1", "tok-1", time.Now().Add(time.Minute))
	sess.Set("name", "alice")
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, "alice", got.Values["name"])

	got.Token = "tok-2"
	require.NoError(t, store.Update(ctx, got))
	_, err = store.Get(ctx, "tok-1")
	require.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, store.Touch(ctx, "id-1", time.Now()))
	require.NoError(t, store.Delete(ctx, "id-1"))
	_, err = store.Get(ctx, "tok-2")
	require.ErrorIs(t, err, session.ErrNotFound)
}
