// Package mongods is a document store backed by MongoDB. Each docset is a
// collection; the document name is stored in the doc_name_ field.
package mongods

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/mgo.v2/bson"

	"github.com/matsen/bibnet/internal/config"
	"github.com/matsen/bibnet/internal/datasource"
)

// Type is the configuration type name.
const Type = "mongo"

// Schema is the backend configuration schema.
var Schema = config.Schema{
	"init": config.Subtree(config.Schema{
		"uri":             config.Required(config.IsType(config.KindString)),
		"database":        config.WithDefault("bibnet", config.IsType(config.KindString)),
		"timeout_seconds": config.WithDefault(5, config.IsType(config.KindNumber), config.InRange(config.AtLeast(0))),
	}),
}

// Store is a DocSource over one MongoDB database.
type Store struct {
	name string
	b    backend
	opts datasource.Options
}

var _ datasource.DocSource = (*Store)(nil)

// Open is the factory opener. A server that cannot be reached within the
// timeout fails with ErrBackendUnavailable.
func Open(name string, cfg config.Tree, opts datasource.Options) (datasource.Source, error) {
	if _, err := cfg.Validate(Schema, true); err != nil {
		return nil, err
	}
	section := cfg.Sub("init")
	timeout := 5 * time.Second
	if secs, ok := section["timeout_seconds"]; ok {
		switch v := secs.(type) {
		case int:
			timeout = time.Duration(v) * time.Second
		case float64:
			timeout = time.Duration(v * float64(time.Second))
		}
	}

	b, err := dial(section.String("", "uri"), section.String("bibnet", "database"), timeout)
	if err != nil {
		return nil, err
	}
	opts.Log().Debug("connected to mongo", "source", name, "database", section.String("bibnet", "database"))
	return newStore(name, b, opts), nil
}

func newStore(name string, b backend, opts datasource.Options) *Store {
	return &Store{name: name, b: b, opts: opts}
}

func (s *Store) Kind() string { return Type }

func (s *Store) Close() error {
	s.b.Close()
	return nil
}

func (s *Store) resolve(spec datasource.Spec[datasource.DocKey]) ([]datasource.DocKey, error) {
	ks := datasource.NewListing(s.b.Collections, s.b.Names)
	keys, err := datasource.ResolveDocs(spec, ks)
	if err != nil {
		return nil, err
	}
	if err := ks.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) CreateDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey], value datasource.Record) ([]datasource.DocKey, error) {
	keys, err := s.resolve(spec)
	var applied []datasource.DocKey
	for _, k := range keys {
		if err = s.b.Put(k.Docset, k.Doc, value); err != nil {
			break
		}
		applied = append(applied, k)
	}
	s.opts.Metrics.Observe(s.name, "doc", "create", len(applied), err)
	return applied, err
}

func (s *Store) ReadDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey]) (map[datasource.DocKey]datasource.Record, error) {
	keys, err := s.resolve(spec)
	if err != nil {
		s.opts.Metrics.Observe(s.name, "doc", "read", 0, err)
		return nil, err
	}
	out := make(map[datasource.DocKey]datasource.Record)
	for _, k := range keys {
		rec, ok, err := s.b.Get(k.Docset, k.Doc)
		if err != nil {
			s.opts.Metrics.Observe(s.name, "doc", "read", len(out), err)
			return nil, err
		}
		if ok {
			out[k] = rec
		}
	}
	s.opts.Metrics.Observe(s.name, "doc", "read", len(out), nil)
	return out, nil
}

func (s *Store) UpdateDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey], value datasource.Record) ([]datasource.DocKey, error) {
	keys, err := s.resolve(spec)
	var applied []datasource.DocKey
	for _, k := range keys {
		var rec datasource.Record
		var ok bool
		rec, ok, err = s.b.Get(k.Docset, k.Doc)
		if err != nil {
			break
		}
		if !ok {
			rec = datasource.Record{}
		}
		rec.Merge(value)
		if err = s.b.Put(k.Docset, k.Doc, rec); err != nil {
			break
		}
		applied = append(applied, k)
	}
	s.opts.Metrics.Observe(s.name, "doc", "update", len(applied), err)
	return applied, err
}

func (s *Store) DeleteDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey]) (int, error) {
	keys, err := s.resolve(spec)
	n := 0
	for _, k := range keys {
		var removed bool
		if removed, err = s.b.Remove(k.Docset, k.Doc); err != nil {
			break
		}
		if removed {
			n++
		}
	}
	s.opts.Metrics.Observe(s.name, "doc", "delete", n, err)
	return n, err
}

// Query returns the documents of the collection named by query that match
// an optional filter passed as the first argument.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]datasource.Record, error) {
	filter := bson.M{}
	if len(args) > 0 {
		switch f := args[0].(type) {
		case map[string]any:
			filter = bson.M(f)
		case datasource.Record:
			filter = bson.M(f)
		case bson.M:
			filter = f
		default:
			return nil, fmt.Errorf("mongo query filter must be a mapping, got %T", args[0])
		}
	}
	recs, err := s.b.Find(query, filter)
	s.opts.Metrics.Observe(s.name, "doc", "query", len(recs), err)
	return recs, err
}
