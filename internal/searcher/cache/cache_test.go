package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/config"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/redis"
)

type fakeRemote struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
	gets int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{data: make(map[string][]byte)}
}

func (f *fakeRemote) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.fail {
		return nil, errors.New("connection refused")
	}
	v, ok := f.data[key]
	if !ok {
		return nil, pkgredis.ErrMiss
	}
	return v, nil
}

func (f *fakeRemote) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("connection refused")
	}
	f.data[key] = value
	return nil
}

func (f *fakeRemote) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func TestKey_DistinguishesModeQueryLimitAndGeneration(t *testing.T) {
	base := Key{Mode: "vector", Query: "agua sol", Limit: 10}
	assert.Equal(t, base.String(), Key{Mode: "vector", Query: "agua sol", Limit: 10}.String())
	assert.NotEqual(t, base.String(), Key{Mode: "boolean", Query: "agua sol", Limit: 10}.String())
	assert.NotEqual(t, base.String(), Key{Mode: "vector", Query: "sol agua", Limit: 10}.String())
	assert.NotEqual(t, base.String(), Key{Mode: "vector", Query: "agua sol", Limit: 5}.String())
	assert.NotEqual(t, base.String(), Key{Mode: "vector", Query: "agua sol", Limit: 10, Generation: 2}.String())
	assert.True(t, strings.HasPrefix(base.String(), keyPrefix+"vector:"))
}

func TestGetOrCompute_LocalTier(t *testing.T) {
	c, err := New(config.CacheConfig{Enabled: true, Size: 8})
	require.NoError(t, err)

	calls := 0
	compute := func() ([]Hit, error) {
		calls++
		return []Hit{{DocID: "A.pdf", Score: 0.5}}, nil
	}
	key := Key{Mode: "vector", Query: "agua", Limit: 10}

	hits, cached, err := c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, []Hit{{DocID: "A.pdf", Score: 0.5}}, hits)

	hits, cached, err = c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "A.pdf", hits[0].DocID)
	assert.Equal(t, 1, calls)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.LocalHits)
	assert.Equal(t, int64(1), stats.LocalMisses)
	assert.Equal(t, 1, stats.LocalEntries)
	assert.False(t, stats.RedisEnabled)
}

func TestGetOrCompute_ErrorsAreNotCached(t *testing.T) {
	c, err := New(config.CacheConfig{Enabled: true, Size: 8})
	require.NoError(t, err)
	key := Key{Mode: "boolean", Query: "agua AND", Limit: 0}

	_, _, err = c.GetOrCompute(context.Background(), key, func() ([]Hit, error) {
		return nil, errors.New("malformed")
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.Stats().LocalEntries)

	hits, cached, err := c.GetOrCompute(context.Background(), key, func() ([]Hit, error) { return nil, nil })
	require.NoError(t, err)
	assert.False(t, cached)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestGetOrCompute_CollapsesConcurrentMisses(t *testing.T) {
	c, err := New(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() ([]Hit, error) {
		calls.Add(1)
		<-release
		return []Hit{{DocID: "A.pdf"}}, nil
	}
	key := Key{Mode: "boolean", Query: "agua", Limit: 0}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, _, err := c.GetOrCompute(context.Background(), key, compute)
			assert.NoError(t, err)
			assert.Len(t, hits, 1)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(10))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestGetOrCompute_RemoteTier(t *testing.T) {
	remote := newFakeRemote()
	first, err := New(config.CacheConfig{Enabled: true, Size: 8}, WithRemote(remote, time.Minute))
	require.NoError(t, err)
	key := Key{Mode: "vector", Query: "agua", Limit: 3}

	_, cached, err := first.GetOrCompute(context.Background(), key, func() ([]Hit, error) {
		return []Hit{{DocID: "B.pdf", Score: 0.9}}, nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, remote.data, 1)

	// A second process sharing the namespace is served from Redis.
	second, err := New(config.CacheConfig{Enabled: true, Size: 8}, WithRemote(remote, time.Minute))
	require.NoError(t, err)
	hits, cached, err := second.GetOrCompute(context.Background(), key, func() ([]Hit, error) {
		t.Fatal("compute must not run on a shared hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, []Hit{{DocID: "B.pdf", Score: 0.9}}, hits)
	assert.Equal(t, int64(1), second.Stats().RedisHits)
	assert.Equal(t, "closed", second.Stats().Breaker)
}

func TestGetOrCompute_RemoteFailuresTripBreaker(t *testing.T) {
	remote := newFakeRemote()
	remote.fail = true
	c, err := New(config.CacheConfig{Enabled: false}, WithRemote(remote, time.Minute))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		hits, cached, err := c.GetOrCompute(context.Background(), Key{Mode: "boolean", Query: "q", Limit: i}, func() ([]Hit, error) {
			return []Hit{{DocID: "A.pdf"}}, nil
		})
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Len(t, hits, 1)
	}
	assert.Equal(t, "open", c.Stats().Breaker)
	// Once open, calls stop reaching the remote.
	assert.Less(t, remote.gets, 10)
}

func TestInvalidate(t *testing.T) {
	remote := newFakeRemote()
	remote.data["unrelated"] = []byte("x")
	c, err := New(config.CacheConfig{Enabled: true, Size: 8}, WithRemote(remote, time.Minute))
	require.NoError(t, err)
	key := Key{Mode: "boolean", Query: "agua", Limit: 0}

	_, _, err = c.GetOrCompute(context.Background(), key, func() ([]Hit, error) {
		return []Hit{{DocID: "A.pdf"}}, nil
	})
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(context.Background()))
	assert.Equal(t, 0, c.Stats().LocalEntries)
	assert.Equal(t, uint64(1), c.Stats().Generation)
	assert.Len(t, remote.data, 1)
	assert.Contains(t, remote.data, "unrelated")

	calls := 0
	_, cached, err := c.GetOrCompute(context.Background(), key, func() ([]Hit, error) {
		calls++
		return []Hit{{DocID: "B.pdf"}}, nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, calls)
}

func TestGetOrCompute_DoesNotStoreAcrossInvalidate(t *testing.T) {
	c, err := New(config.CacheConfig{Enabled: true, Size: 8})
	require.NoError(t, err)
	key := Key{Mode: "boolean", Query: "agua", Limit: 0}

	_, _, err = c.GetOrCompute(context.Background(), key, func() ([]Hit, error) {
		require.NoError(t, c.Invalidate(context.Background()))
		return []Hit{{DocID: "stale.pdf"}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Stats().LocalEntries)
}
