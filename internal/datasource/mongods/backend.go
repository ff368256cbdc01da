package mongods

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/matsen/bibnet/internal/datasource"
)

// NameField holds the document name inside each stored document.
const NameField = "doc_name_"

// backend is the subset of MongoDB the store needs. One collection per docset.
type backend interface {
	Collections() ([]string, error)
	Names(coll string) ([]string, error)
	Get(coll, doc string) (datasource.Record, bool, error)
	Put(coll, doc string, rec datasource.Record) error
	Remove(coll, doc string) (bool, error)
	Find(coll string, query bson.M) ([]datasource.Record, error)
	Close()
}

type mgoBackend struct {
	session *mgo.Session
	db      string
}

func dial(uri, db string, timeout time.Duration) (*mgoBackend, error) {
	session, err := mgo.DialWithTimeout(uri, timeout)
	if err != nil {
		return nil, datasource.Unavailable(Type, err)
	}
	session.SetMode(mgo.Monotonic, true)
	return &mgoBackend{session: session, db: db}, nil
}

func (b *mgoBackend) c(coll string) *mgo.Collection {
	return b.session.DB(b.db).C(coll)
}

func (b *mgoBackend) Collections() ([]string, error) {
	names, err := b.session.DB(b.db).CollectionNames()
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	var out []string
	for _, n := range names {
		if len(n) >= 7 && n[:7] == "system." {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (b *mgoBackend) Names(coll string) ([]string, error) {
	var names []string
	if err := b.c(coll).Find(nil).Distinct(NameField, &names); err != nil {
		return nil, fmt.Errorf("listing documents of %s: %w", coll, err)
	}
	sort.Strings(names)
	return names, nil
}

func (b *mgoBackend) Get(coll, doc string) (datasource.Record, bool, error) {
	var m bson.M
	err := b.c(coll).Find(bson.M{NameField: doc}).One(&m)
	if errors.Is(err, mgo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s/%s: %w", coll, doc, err)
	}
	return toRecord(m), true, nil
}

func (b *mgoBackend) Put(coll, doc string, rec datasource.Record) error {
	body := bson.M{}
	for k, v := range rec {
		body[k] = v
	}
	body[NameField] = doc
	if _, err := b.c(coll).Upsert(bson.M{NameField: doc}, body); err != nil {
		return fmt.Errorf("writing %s/%s: %w", coll, doc, err)
	}
	return nil
}

func (b *mgoBackend) Remove(coll, doc string) (bool, error) {
	err := b.c(coll).Remove(bson.M{NameField: doc})
	if errors.Is(err, mgo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("deleting %s/%s: %w", coll, doc, err)
	}
	return true, nil
}

func (b *mgoBackend) Find(coll string, query bson.M) ([]datasource.Record, error) {
	var docs []bson.M
	if err := b.c(coll).Find(query).All(&docs); err != nil {
		return nil, fmt.Errorf("querying %s: %w", coll, err)
	}
	out := make([]datasource.Record, len(docs))
	for i, d := range docs {
		out[i] = toRecord(d)
		out[i][NameField] = d[NameField]
	}
	return out, nil
}

func (b *mgoBackend) Close() {
	b.session.Close()
}

// toRecord drops storage fields and turns nested bson.M into plain maps.
func toRecord(m bson.M) datasource.Record {
	out := make(datasource.Record, len(m))
	for k, v := range m {
		if k == "_id" || k == NameField {
			continue
		}
		out[k] = plain(v)
	}
	return out
}

func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	}
	return v
}
