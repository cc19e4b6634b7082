package authcache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starscout/starscout/internal/model"
)

func TestCacheHitAndMiss(t *testing.T) {
	cache := New(10, time.Minute)

	_, ok := cache.Get("token-1")
	require.False(t, ok)

	cache.Add("token-1", model.GithubUser{UserID: "1", Username: "alice"})
	user, ok := cache.Get("token-1")
	require.True(t, ok)
	require.Equal(t, "alice", user.Username)
}

func TestCacheEvictsAtCapacity(t *testing.T) {
	cache := New(3, time.Minute)
	for i := 0; i < 5; i++ {
		cache.Add(fmt.Sprintf("token-%d", i), model.GithubUser{UserID: fmt.Sprintf("%d", i)})
	}
	require.Equal(t, 3, cache.Len())

	// The oldest entries are gone, the newest survive.
	_, ok := cache.Get("token-0")
	require.False(t, ok)
	_, ok = cache.Get("token-4")
	require.True(t, ok)
}

func TestCacheEntriesExpire(t *testing.T) {
	cache := New(10, 20*time.Millisecond)
	cache.Add("token-1", model.GithubUser{UserID: "1"})

	_, ok := cache.Get("token-1")
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	_, ok = cache.Get("token-1")
	require.False(t, ok)
}
