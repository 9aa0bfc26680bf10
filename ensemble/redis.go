package ensemble

import (
	"context"
	"fmt"

	"gopkg.in/redis.v5"

	"github.com/ezoic/sciforest/fields"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/tree"
)

// Store is a key-value store of serialized models.
type Store interface {
	// Get returns the data stored under key. A missing key returns an
	// error matching ErrModelNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

type redisStore struct {
	rc *redis.Client
}

// NewRedisStore builds a Store backed by a redis DB.
func NewRedisStore(rc *redis.Client) Store {
	return &redisStore{rc}
}

func (rs *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := rs.rc.Get(key).Result()
	if err == redis.Nil {
		return nil, scigoErrors.NewModelError("ensemble.redisStore", "no key "+key, scigoErrors.ErrModelNotFound)
	}
	if err != nil {
		return nil, scigoErrors.Wrapf(err, "retrieving %q from redis", key)
	}
	return []byte(data), nil
}

func (rs *redisStore) Set(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := rs.rc.Set(key, data, 0).Result(); err != nil {
		return scigoErrors.Wrapf(err, "storing %q in redis", key)
	}
	return nil
}

// StoreResolver loads models from a Store, under the key "<prefix>:<id>".
type StoreResolver struct {
	store  Store
	prefix string
	fields fields.Table
}

// NewStoreResolver resolves models from store. A non nil t replaces the
// field table of every loaded model.
func NewStoreResolver(store Store, prefix string, t fields.Table) *StoreResolver {
	return &StoreResolver{store: store, prefix: prefix, fields: t}
}

// NewRedisResolver resolves models from a redis DB.
func NewRedisResolver(rc *redis.Client, prefix string, t fields.Table) *StoreResolver {
	return NewStoreResolver(NewRedisStore(rc), prefix, t)
}

// Resolve implements Resolver.
func (r *StoreResolver) Resolve(ctx context.Context, id string) (*tree.Model, error) {
	data, err := r.store.Get(ctx, r.keyFor(id))
	if err != nil {
		return nil, err
	}
	return tree.Load(data, loadOptions(r.fields)...)
}

// Put stores the serialized model id.
func (r *StoreResolver) Put(ctx context.Context, id string, data []byte) error {
	return r.store.Set(ctx, r.keyFor(id), data)
}

func (r *StoreResolver) keyFor(id string) string {
	return fmt.Sprintf("%s:%s", r.prefix, id)
}
