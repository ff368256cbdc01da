package natsds

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/matsen/bibnet/internal/config"
	"github.com/matsen/bibnet/internal/datasource"
)

type entry struct {
	key   string
	value []byte
}

func (e *entry) Bucket() string                  { return "test-bucket" }
func (e *entry) Key() string                     { return e.key }
func (e *entry) Value() []byte                   { return e.value }
func (e *entry) Revision() uint64                { return 1 }
func (e *entry) Created() time.Time              { return time.Now() }
func (e *entry) Delta() uint64                   { return 0 }
func (e *entry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }

// memBucket is an in-memory bucket.
type memBucket struct {
	data map[string][]byte
}

func (b *memBucket) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	v, ok := b.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return &entry{key: key, value: v}, nil
}

func (b *memBucket) Put(_ context.Context, key string, value []byte) (uint64, error) {
	b.data[key] = value
	return uint64(len(b.data)), nil
}

func (b *memBucket) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	delete(b.data, key)
	return nil
}

func (b *memBucket) Keys(_ context.Context, _ ...jetstream.WatchOpt) ([]string, error) {
	if len(b.data) == 0 {
		return nil, jetstream.ErrNoKeysFound
	}
	var out []string
	for k := range b.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// memBuckets holds buckets by full name.
type memBuckets struct {
	all     map[string]bucket
	listErr error
}

func newMem() *memBuckets { return &memBuckets{all: map[string]bucket{}} }

func (m *memBuckets) Names(context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []string
	for n := range m.all {
		out = append(out, n)
	}
	return out, nil
}

func (m *memBuckets) Bucket(_ context.Context, name string, create bool) (bucket, error) {
	if b, ok := m.all[name]; ok {
		return b, nil
	}
	if !create {
		return nil, nil
	}
	b := &memBucket{data: map[string][]byte{}}
	m.all[name] = b
	return b, nil
}

// MockBucket is a testify mock of a bucket.
type MockBucket struct {
	mock.Mock
}

func (m *MockBucket) Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(jetstream.KeyValueEntry), args.Error(1)
}

func (m *MockBucket) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	args := m.Called(ctx, key, value)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockBucket) Delete(ctx context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockBucket) Keys(ctx context.Context, _ ...jetstream.WatchOpt) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func doc(set, name string) datasource.DocKey {
	return datasource.DocKey{Docset: set, Doc: name}
}

func TestCRUD(t *testing.T) {
	mem := newMem()
	s := newStore("kv", DefaultPrefix, mem, datasource.Options{})
	ctx := context.Background()

	keys, err := s.CreateDoc(ctx, datasource.Many(doc("pep", "pep008"), doc("pep", "pep020")), datasource.Record{"title": "Style Guide"})
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Contains(t, mem.all, "bibnet_pep")

	_, err = s.UpdateDoc(ctx, datasource.Many(doc("pep", "pep008"), doc("pep", "pep999")), datasource.Record{"year": 2001})
	require.NoError(t, err)

	got, err := s.ReadDoc(ctx, datasource.One(doc("pep", datasource.Wildcard)))
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, datasource.Record{"title": "Style Guide", "year": 2001.0}, got[doc("pep", "pep008")])
	assert.Equal(t, datasource.Record{"year": 2001.0}, got[doc("pep", "pep999")])

	n, err := s.DeleteDoc(ctx, datasource.Many(doc("pep", "pep008"), doc("pep", "missing"), doc("none", "x")))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWildcard_IgnoresForeignBuckets(t *testing.T) {
	mem := newMem()
	mem.all["other_bucket"] = &memBucket{data: map[string][]byte{"x": []byte(`{}`)}}
	s := newStore("kv", DefaultPrefix, mem, datasource.Options{})
	ctx := context.Background()

	var keys []datasource.DocKey
	for _, set := range []string{"a", "b", "c"} {
		for _, d := range []string{"1", "2", "3", "4"} {
			keys = append(keys, doc(set, d))
		}
	}
	_, err := s.CreateDoc(ctx, datasource.Many(keys...), datasource.Record{})
	require.NoError(t, err)

	got, err := s.ReadDoc(ctx, datasource.One(doc(datasource.Wildcard, datasource.Wildcard)))
	require.NoError(t, err)
	assert.Len(t, got, 12)
}

func TestEmptyBucketHasNoKeys(t *testing.T) {
	mem := newMem()
	mem.all["bibnet_empty"] = &memBucket{data: map[string][]byte{}}
	s := newStore("kv", DefaultPrefix, mem, datasource.Options{})

	got, err := s.ReadDoc(context.Background(), datasource.One(doc("empty", datasource.Wildcard)))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListingErrorSurfaces(t *testing.T) {
	mem := newMem()
	mem.listErr = errors.New("no responders")
	s := newStore("kv", DefaultPrefix, mem, datasource.Options{})

	_, err := s.ReadDoc(context.Background(), datasource.One(doc(datasource.Wildcard, "x")))
	assert.ErrorContains(t, err, "no responders")
}

func TestPutFailureStopsWrite(t *testing.T) {
	mb := new(MockBucket)
	mb.On("Put", mock.Anything, "a", mock.Anything).Return(uint64(1), nil)
	mb.On("Put", mock.Anything, "b", mock.Anything).Return(uint64(0), errors.New("stream full"))

	mem := newMem()
	mem.all["bibnet_set"] = mb
	s := newStore("kv", DefaultPrefix, mem, datasource.Options{})

	keys, err := s.CreateDoc(context.Background(), datasource.Many(doc("set", "a"), doc("set", "b"), doc("set", "c")), datasource.Record{"v": 1})
	assert.ErrorContains(t, err, "stream full")
	assert.Equal(t, []datasource.DocKey{doc("set", "a")}, keys)
	mb.AssertNotCalled(t, "Put", mock.Anything, "c", mock.Anything)
}

func TestGet_DeletedKeyIsAbsent(t *testing.T) {
	mb := new(MockBucket)
	mb.On("Get", mock.Anything, "gone").Return(nil, jetstream.ErrKeyDeleted)
	mb.On("Get", mock.Anything, "here").Return(&entry{key: "here", value: []byte(`{"a":1}`)}, nil)

	mem := newMem()
	mem.all["bibnet_set"] = mb
	s := newStore("kv", DefaultPrefix, mem, datasource.Options{})

	got, err := s.ReadDoc(context.Background(), datasource.Many(doc("set", "gone"), doc("set", "here")))
	require.NoError(t, err)
	assert.Equal(t, map[datasource.DocKey]datasource.Record{doc("set", "here"): {"a": 1.0}}, got)
	mb.AssertExpectations(t)
}

func TestQueryUnsupported(t *testing.T) {
	s := newStore("kv", DefaultPrefix, newMem(), datasource.Options{})
	_, err := s.Query(context.Background(), "anything")
	assert.True(t, errors.Is(err, datasource.ErrUnsupportedOperation))
}

func TestOpen_Unreachable(t *testing.T) {
	_, err := Open("kv", config.Tree{"init": map[string]any{
		"url":             "nats://127.0.0.1:1",
		"timeout_seconds": 0.2,
	}}, datasource.Options{})
	assert.True(t, errors.Is(err, datasource.ErrBackendUnavailable))
}

func TestOpen_ValidatesConfig(t *testing.T) {
	_, err := Open("kv", config.Tree{"init": map[string]any{"url": 4222}}, datasource.Options{})
	assert.True(t, errors.Is(err, config.ErrConditionFailed))
}
