package encoder

import (
	"context"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/farmsense/poultryqa/internal/kv"
)

type memStore struct {
	data map[string][]byte
	gets int
	sets int
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.gets++
	v, ok := m.data[key]
	if !ok {
		return nil, kv.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.sets++
	m.data[key] = value
	return nil
}

func TestCached_MissThenHit(t *testing.T) {
	inner := &stubEncoder{vec: []float32{1.5, -2}}
	s := newMemStore()
	c := NewCached(inner, "neural", s, "pq:", time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	first, err := c.Encode(ctx, "broiler feed")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Encode(ctx, "broiler feed")
	if err != nil {
		t.Fatal(err)
	}

	if inner.calls != 1 {
		t.Errorf("inner backend called %d times, want 1", inner.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached vector %v differs from original %v", second, first)
	}
}

func TestCached_BackendsDoNotShareKeys(t *testing.T) {
	s := newMemStore()
	ctx := context.Background()

	neural := NewCached(&stubEncoder{vec: []float32{1}}, "neural", s, "pq:", time.Minute, nil, zap.NewNop())
	remote := NewCached(&stubEncoder{vec: []float32{2}}, "remote", s, "pq:", time.Minute, nil, zap.NewNop())

	if _, err := neural.Encode(ctx, "same query"); err != nil {
		t.Fatal(err)
	}
	vec, err := remote.Encode(ctx, "same query")
	if err != nil {
		t.Fatal(err)
	}
	if vec[0] != 2 {
		t.Error("remote must not serve the neural backend's cached vector")
	}
}

func TestCached_CorruptEntryTreatedAsMiss(t *testing.T) {
	inner := &stubEncoder{vec: []float32{3}}
	s := newMemStore()
	c := NewCached(inner, "neural", s, "pq:", time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	// Poison the exact key, then encode: the corrupt entry must be ignored.
	s.data[c.cacheKey("q")] = []byte{1, 2, 3} // not a multiple of 4

	vec, err := c.Encode(ctx, "q")
	if err != nil {
		t.Fatal(err)
	}
	if vec[0] != 3 || inner.calls != 1 {
		t.Error("corrupt cache entry must fall through to the backend")
	}
}

func TestVectorCacheCodec_RoundTrip(t *testing.T) {
	in := []float32{0, -1.25, 3.5e6}
	out, err := bytesToVector(vectorToCacheBytes(in))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip %v, want %v", out, in)
	}
}
