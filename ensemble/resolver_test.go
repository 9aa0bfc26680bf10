package ensemble

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/sciforest/fields"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/tree"
)

// fakeStore is an in-process Store standing in for redis.
type fakeStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[key]
	if !ok {
		return nil, scigoErrors.NewModelError("fakeStore", "no key "+key, scigoErrors.ErrModelNotFound)
	}
	return data, nil
}

func (s *fakeStore) Set(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
	return nil
}

func TestMemoryResolver(t *testing.T) {
	m := mustLoad(t, classifierDoc("model/1", 3, 1, 1))
	r := MemoryResolver{"model/1": m}
	got, err := r.Resolve(context.Background(), "model/1")
	require.NoError(t, err)
	assert.Same(t, m, got)

	_, err = r.Resolve(context.Background(), "model/2")
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrModelNotFound))
}

func TestDirResolver(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName("model/1")),
		[]byte(classifierDoc("model/1", 1, 3, 1)), 0o600))
	assert.Equal(t, "model_1.json", FileName("model/1"))

	r := &DirResolver{Dir: dir}
	m, err := r.Resolve(context.Background(), "model/1")
	require.NoError(t, err)
	assert.Equal(t, "model/1", m.ID())

	_, err = r.Resolve(context.Background(), "model/2")
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrModelNotFound))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Resolve(ctx, "model/1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCachedResolverEvicts(t *testing.T) {
	calls := 0
	next := ResolverFunc(func(_ context.Context, id string) (*tree.Model, error) {
		calls++
		return tree.Load([]byte(classifierDoc(id, 3, 1, 1)))
	})
	r, err := NewCachedResolver(next, 2)
	require.NoError(t, err)

	ctx := context.Background()
	for _, id := range []string{"model/1", "model/2", "model/1", "model/3", "model/2"} {
		_, err := r.Resolve(ctx, id)
		require.NoError(t, err)
	}
	// model/2 was evicted by model/3 as the least recently used entry.
	assert.Equal(t, 4, calls)
	assert.Equal(t, 2, r.Len())

	r.Purge()
	assert.Equal(t, 0, r.Len())

	_, err = NewCachedResolver(next, 0)
	assert.Error(t, err)
}

func TestStoreResolver(t *testing.T) {
	store := newFakeStore()
	table := fields.Table{
		"000000": {Name: "x", Optype: fields.Numeric},
		"000001": {Name: "renamed", Optype: fields.Categorical},
	}.WithIDs()
	r := NewStoreResolver(store, "sciforest", table)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "model/1")
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrModelNotFound))

	require.NoError(t, r.Put(ctx, "model/1", []byte(classifierDoc("model/1", 3, 1, 1))))
	assert.Contains(t, store.data, "sciforest:model/1")

	m, err := r.Resolve(ctx, "model/1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", m.Fields().Name("000001"))

	desc := &Descriptor{ID: "ensemble/redis", Models: []string{"model/1"}}
	e, err := New(ctx, desc, WithResolver(r))
	require.NoError(t, err)
	res, err := e.Predict(ctx, fields.Input{})
	require.NoError(t, err)
	assert.Equal(t, "A", res.Prediction.String())
}
