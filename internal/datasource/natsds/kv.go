package natsds

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// bucket is the part of a JetStream key-value bucket the store uses.
type bucket interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
	Keys(ctx context.Context, opts ...jetstream.WatchOpt) ([]string, error)
}

// buckets opens and lists the buckets that hold docsets.
type buckets interface {
	Names(ctx context.Context) ([]string, error)
	// Bucket returns nil and no error when the bucket is missing and create is false.
	Bucket(ctx context.Context, name string, create bool) (bucket, error)
}

type jsBuckets struct {
	js jetstream.JetStream
}

func (b jsBuckets) Names(ctx context.Context) ([]string, error) {
	lister := b.js.KeyValueStoreNames(ctx)
	var out []string
	for name := range lister.Name() {
		out = append(out, name)
	}
	if err := lister.Error(); err != nil {
		return nil, fmt.Errorf("listing buckets: %w", err)
	}
	return out, nil
}

func (b jsBuckets) Bucket(ctx context.Context, name string, create bool) (bucket, error) {
	kv, err := b.js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, fmt.Errorf("opening bucket %s: %w", name, err)
	}
	if !create {
		return nil, nil
	}
	kv, err = b.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: name})
	if err != nil {
		return nil, fmt.Errorf("creating bucket %s: %w", name, err)
	}
	return kv, nil
}

// keys lists live keys; an empty bucket is not an error.
func keys(ctx context.Context, kv bucket) ([]string, error) {
	names, err := kv.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil, nil
	}
	return names, err
}

func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}

// docset strips prefix from a bucket name.
func docset(prefix, bucketName string) (string, bool) {
	if !strings.HasPrefix(bucketName, prefix) || len(bucketName) == len(prefix) {
		return "", false
	}
	return bucketName[len(prefix):], true
}
