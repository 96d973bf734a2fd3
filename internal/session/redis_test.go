package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisStore_SaveLoadDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	store := session.NewRedisStore(client)

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)

	s := session.New()
	s.Set("signup_email", "u@d.com")
	require.NoError(t, store.Save(ctx, s, time.Minute))

	got, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "u@d.com", got.Values["signup_email"])

	ttl, err := client.TTL(ctx, "session:"+s.ID).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Load(ctx, s.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
