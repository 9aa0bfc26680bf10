package ensemble

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ezoic/sciforest/fields"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/tree"
)

// Resolver produces the component model with the given id.
type Resolver interface {
	Resolve(ctx context.Context, id string) (*tree.Model, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, id string) (*tree.Model, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, id string) (*tree.Model, error) {
	return f(ctx, id)
}

func notFound(id string) error {
	return scigoErrors.NewModelError("ensemble.Resolve", "no model "+id, scigoErrors.ErrModelNotFound)
}

// MemoryResolver serves models held in memory, keyed by id.
type MemoryResolver map[string]*tree.Model

// Resolve implements Resolver.
func (r MemoryResolver) Resolve(_ context.Context, id string) (*tree.Model, error) {
	m, ok := r[id]
	if !ok {
		return nil, notFound(id)
	}
	return m, nil
}

// DirResolver loads models from JSON files in Dir, one per model, named
// after the model id with "/" replaced by "_" ("model/5f2a" is read from
// "model_5f2a.json").
type DirResolver struct {
	Dir string
	// Fields, when set, replaces the field table of every loaded model.
	Fields fields.Table
}

// Resolve implements Resolver.
func (r *DirResolver) Resolve(ctx context.Context, id string) (*tree.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(r.Dir, FileName(id))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, notFound(id)
	}
	return tree.ReadFile(path, loadOptions(r.Fields)...)
}

// FileName is the file DirResolver reads model id from.
func FileName(id string) string {
	return strings.ReplaceAll(id, "/", "_") + ".json"
}

func loadOptions(t fields.Table) []tree.LoadOption {
	if t == nil {
		return nil
	}
	return []tree.LoadOption{tree.WithFields(t)}
}

// CachedResolver keeps the most recently resolved models in an LRU cache
// in front of another resolver.
type CachedResolver struct {
	next  Resolver
	cache *lru.Cache
}

// NewCachedResolver caches up to size models resolved by next.
func NewCachedResolver(next Resolver, size int) (*CachedResolver, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, scigoErrors.Wrapf(err, "creating model cache of size %d", size)
	}
	return &CachedResolver{next: next, cache: cache}, nil
}

// Resolve implements Resolver.
func (r *CachedResolver) Resolve(ctx context.Context, id string) (*tree.Model, error) {
	if m, ok := r.cache.Get(id); ok {
		return m.(*tree.Model), nil
	}
	m, err := r.next.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Add(id, m)
	return m, nil
}

// Len returns the number of cached models.
func (r *CachedResolver) Len() int {
	return r.cache.Len()
}

// Purge empties the cache.
func (r *CachedResolver) Purge() {
	r.cache.Purge()
}
