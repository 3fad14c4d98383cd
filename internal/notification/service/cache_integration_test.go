//go:build integration

package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"foodbridge/internal/notification/models"
	"foodbridge/internal/notification/service"
	"foodbridge/internal/notification/store"
	"foodbridge/internal/platform/logger"
	platformredis "foodbridge/internal/platform/redis"
	id "foodbridge/pkg/domain"
	"foodbridge/pkg/testutil/containers"
)

func TestUnreadCountCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.FlushAll(ctx))

	cache, err := platformredis.New(rc.Addr)
	require.NoError(t, err)

	svc := service.New(store.NewInMemory(), logger.New(), service.WithCache(cache))
	user := id.NewUserID()

	_, err = svc.Emit(ctx, user, models.KindMatchProposal, "a", models.Meta{})
	require.NoError(t, err)
	n, err := svc.Emit(ctx, user, models.KindMatchProposal, "b", models.Meta{})
	require.NoError(t, err)

	// First read computes from the store and populates the cache.
	count, err := svc.UnreadCount(ctx, user)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	cacheKey := "notifications:unread:" + user.String()
	cached, err := rc.Client.Get(ctx, cacheKey).Result()
	require.NoError(t, err)
	require.Equal(t, "2", cached)

	// Marking read invalidates the cached counter, so the next read is fresh.
	require.NoError(t, svc.MarkRead(ctx, user, n.ID))

	exists, err := rc.Client.Exists(ctx, cacheKey).Result()
	require.NoError(t, err)
	require.Zero(t, exists)

	count, err = svc.UnreadCount(ctx, user)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// Emitting invalidates too.
	_, err = svc.Emit(ctx, user, models.KindDelivered, "c", models.Meta{})
	require.NoError(t, err)

	count, err = svc.UnreadCount(ctx, user)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
