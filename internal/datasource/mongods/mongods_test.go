package mongods

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/mgo.v2/bson"

	"github.com/matsen/bibnet/internal/config"
	"github.com/matsen/bibnet/internal/datasource"
)

// fakeBackend keeps collections in memory.
type fakeBackend struct {
	colls   map[string]map[string]datasource.Record
	listErr error
	closed  bool
}

func newFake() *fakeBackend {
	return &fakeBackend{colls: map[string]map[string]datasource.Record{}}
}

func (f *fakeBackend) Collections() ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []string
	for c := range f.colls {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeBackend) Names(coll string) ([]string, error) {
	var out []string
	for n := range f.colls[coll] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeBackend) Get(coll, doc string) (datasource.Record, bool, error) {
	rec, ok := f.colls[coll][doc]
	return rec.Clone(), ok, nil
}

func (f *fakeBackend) Put(coll, doc string, rec datasource.Record) error {
	if f.colls[coll] == nil {
		f.colls[coll] = map[string]datasource.Record{}
	}
	f.colls[coll][doc] = rec.Clone()
	return nil
}

func (f *fakeBackend) Remove(coll, doc string) (bool, error) {
	_, ok := f.colls[coll][doc]
	delete(f.colls[coll], doc)
	if len(f.colls[coll]) == 0 {
		delete(f.colls, coll)
	}
	return ok, nil
}

func (f *fakeBackend) Find(coll string, query bson.M) ([]datasource.Record, error) {
	var out []datasource.Record
	for _, name := range sortedNames(f.colls[coll]) {
		rec := f.colls[coll][name]
		match := true
		for k, v := range query {
			if rec[k] != v {
				match = false
			}
		}
		if match {
			r := rec.Clone()
			r[NameField] = name
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeBackend) Close() { f.closed = true }

func sortedNames(m map[string]datasource.Record) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func doc(set, name string) datasource.DocKey {
	return datasource.DocKey{Docset: set, Doc: name}
}

func TestCRUD(t *testing.T) {
	fake := newFake()
	s := newStore("mongo", fake, datasource.Options{})
	ctx := context.Background()

	_, err := s.CreateDoc(ctx, datasource.Many(doc("pep", "pep008"), doc("pep", "pep020")), datasource.Record{"title": "Style Guide"})
	require.NoError(t, err)

	_, err = s.UpdateDoc(ctx, datasource.One(doc("pep", "pep008")), datasource.Record{"year": 2001})
	require.NoError(t, err)

	got, err := s.ReadDoc(ctx, datasource.One(doc("pep", datasource.Wildcard)))
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, datasource.Record{"title": "Style Guide", "year": 2001}, got[doc("pep", "pep008")])

	n, err := s.DeleteDoc(ctx, datasource.Many(doc("pep", "pep008"), doc("pep", "missing"), doc("none", "x")))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Close())
	assert.True(t, fake.closed)
}

func TestWildcardAcrossCollections(t *testing.T) {
	fake := newFake()
	s := newStore("mongo", fake, datasource.Options{})
	ctx := context.Background()

	var keys []datasource.DocKey
	for _, c := range []string{"a", "b"} {
		for _, d := range []string{"1", "2", "3"} {
			keys = append(keys, doc(c, d))
		}
	}
	_, err := s.CreateDoc(ctx, datasource.Many(keys...), datasource.Record{})
	require.NoError(t, err)

	got, err := s.ReadDoc(ctx, datasource.One(doc(datasource.Wildcard, datasource.Wildcard)))
	require.NoError(t, err)
	assert.Len(t, got, 6)
}

func TestListingErrorSurfaces(t *testing.T) {
	fake := newFake()
	fake.listErr = errors.New("connection reset")
	s := newStore("mongo", fake, datasource.Options{})

	_, err := s.ReadDoc(context.Background(), datasource.One(doc(datasource.Wildcard, "x")))
	assert.ErrorContains(t, err, "connection reset")

	keys, err := s.CreateDoc(context.Background(), datasource.One(doc(datasource.Wildcard, "x")), datasource.Record{})
	assert.Error(t, err)
	assert.Empty(t, keys)
}

func TestQueryFilter(t *testing.T) {
	fake := newFake()
	s := newStore("mongo", fake, datasource.Options{})
	ctx := context.Background()
	_, err := s.CreateDoc(ctx, datasource.One(doc("p", "a")), datasource.Record{"kind": "paper"})
	require.NoError(t, err)
	_, err = s.CreateDoc(ctx, datasource.One(doc("p", "b")), datasource.Record{"kind": "author"})
	require.NoError(t, err)

	recs, err := s.Query(ctx, "p", map[string]any{"kind": "paper"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0][NameField])

	_, err = s.Query(ctx, "p", "not a filter")
	assert.Error(t, err)
}

func TestToRecordStripsStorageFields(t *testing.T) {
	rec := toRecord(bson.M{
		"_id":     bson.NewObjectId(),
		NameField: "pep008",
		"meta":    bson.M{"year": 2001},
		"tags":    []any{bson.M{"k": "v"}},
	})
	assert.Equal(t, datasource.Record{
		"meta": map[string]any{"year": 2001},
		"tags": []any{map[string]any{"k": "v"}},
	}, rec)
}

func TestOpen_Unreachable(t *testing.T) {
	_, err := Open("mongo", config.Tree{"init": map[string]any{
		"uri":             "mongodb://127.0.0.1:1/bibnet",
		"timeout_seconds": 0.2,
	}}, datasource.Options{})
	assert.True(t, errors.Is(err, datasource.ErrBackendUnavailable))
}

func TestOpen_ValidatesConfig(t *testing.T) {
	_, err := Open("mongo", config.Tree{"init": map[string]any{}}, datasource.Options{})
	assert.True(t, errors.Is(err, config.ErrMissingRequiredKey))
}
