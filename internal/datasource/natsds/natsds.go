// Package natsds is a document store over NATS JetStream key-value buckets.
// Each docset is a bucket named <prefix><docset>; each document is a key
// holding the JSON encoding of its record.
package natsds

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/matsen/bibnet/internal/config"
	"github.com/matsen/bibnet/internal/datasource"
)

// Type is the configuration type name.
const Type = "nats"

// DefaultPrefix is prepended to docset names to form bucket names.
const DefaultPrefix = "bibnet_"

// Schema is the backend configuration schema.
var Schema = config.Schema{
	"init": config.Subtree(config.Schema{
		"url":             config.Required(config.IsType(config.KindString)),
		"prefix":          config.WithDefault(DefaultPrefix, config.IsType(config.KindString)),
		"timeout_seconds": config.WithDefault(5, config.IsType(config.KindNumber), config.InRange(config.AtLeast(0))),
	}),
}

// Store is a DocSource over JetStream KV.
type Store struct {
	name   string
	prefix string
	kv     buckets
	conn   *nats.Conn
	opts   datasource.Options
}

var _ datasource.DocSource = (*Store)(nil)

// Open is the factory opener.
func Open(name string, cfg config.Tree, opts datasource.Options) (datasource.Source, error) {
	if _, err := cfg.Validate(Schema, true); err != nil {
		return nil, err
	}
	section := cfg.Sub("init")
	timeout := 5 * time.Second
	switch v := section["timeout_seconds"].(type) {
	case int:
		timeout = time.Duration(v) * time.Second
	case float64:
		timeout = time.Duration(v * float64(time.Second))
	}

	url := section.String("", "url")
	nc, err := nats.Connect(url, nats.Timeout(timeout), nats.Name("bibnet-"+name))
	if err != nil {
		return nil, datasource.Unavailable(Type, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, datasource.Unavailable(Type, err)
	}
	opts.Log().Debug("connected to nats", "source", name, "url", url)
	s := newStore(name, section.String(DefaultPrefix, "prefix"), jsBuckets{js: js}, opts)
	s.conn = nc
	return s, nil
}

func newStore(name, prefix string, kv buckets, opts datasource.Options) *Store {
	return &Store{name: name, prefix: prefix, kv: kv, opts: opts}
}

func (s *Store) Kind() string { return Type }

func (s *Store) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}

func (s *Store) listing(ctx context.Context) *datasource.Listing {
	partitions := func() ([]string, error) {
		names, err := s.kv.Names(ctx)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, n := range names {
			if set, ok := docset(s.prefix, n); ok {
				out = append(out, set)
			}
		}
		return out, nil
	}
	names := func(set string) ([]string, error) {
		b, err := s.kv.Bucket(ctx, s.prefix+set, false)
		if err != nil || b == nil {
			return nil, err
		}
		return keys(ctx, b)
	}
	return datasource.NewListing(partitions, names)
}

func (s *Store) resolve(ctx context.Context, spec datasource.Spec[datasource.DocKey]) ([]datasource.DocKey, error) {
	ks := s.listing(ctx)
	keys, err := datasource.ResolveDocs(spec, ks)
	if err != nil {
		return nil, err
	}
	if err := ks.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) get(ctx context.Context, k datasource.DocKey) (datasource.Record, bool, error) {
	b, err := s.kv.Bucket(ctx, s.prefix+k.Docset, false)
	if err != nil || b == nil {
		return nil, false, err
	}
	entry, err := b.Get(ctx, k.Doc)
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", k, err)
	}
	var rec datasource.Record
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", k, err)
	}
	if rec == nil {
		rec = datasource.Record{}
	}
	return rec, true, nil
}

func (s *Store) put(ctx context.Context, k datasource.DocKey, rec datasource.Record) error {
	b, err := s.kv.Bucket(ctx, s.prefix+k.Docset, true)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", k, err)
	}
	if _, err := b.Put(ctx, k.Doc, data); err != nil {
		return fmt.Errorf("writing %s: %w", k, err)
	}
	return nil
}

func (s *Store) CreateDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey], value datasource.Record) ([]datasource.DocKey, error) {
	keys, err := s.resolve(ctx, spec)
	var applied []datasource.DocKey
	for _, k := range keys {
		if err = s.put(ctx, k, value); err != nil {
			break
		}
		applied = append(applied, k)
	}
	s.opts.Metrics.Observe(s.name, "doc", "create", len(applied), err)
	return applied, err
}

func (s *Store) ReadDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey]) (map[datasource.DocKey]datasource.Record, error) {
	keys, err := s.resolve(ctx, spec)
	if err != nil {
		s.opts.Metrics.Observe(s.name, "doc", "read", 0, err)
		return nil, err
	}
	out := make(map[datasource.DocKey]datasource.Record)
	for _, k := range keys {
		rec, ok, err := s.get(ctx, k)
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
	keys, err := s.resolve(ctx, spec)
	var applied []datasource.DocKey
	for _, k := range keys {
		var rec datasource.Record
		if rec, _, err = s.get(ctx, k); err != nil {
			break
		}
		if rec == nil {
			rec = datasource.Record{}
		}
		rec.Merge(value)
		if err = s.put(ctx, k, rec); err != nil {
			break
		}
		applied = append(applied, k)
	}
	s.opts.Metrics.Observe(s.name, "doc", "update", len(applied), err)
	return applied, err
}

func (s *Store) DeleteDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey]) (int, error) {
	keys, err := s.resolve(ctx, spec)
	n := 0
	for _, k := range keys {
		var ok bool
		if _, ok, err = s.get(ctx, k); err != nil {
			break
		}
		if !ok {
			continue
		}
		var b bucket
		if b, err = s.kv.Bucket(ctx, s.prefix+k.Docset, false); err != nil {
			break
		}
		if err = b.Delete(ctx, k.Doc); err != nil {
			err = fmt.Errorf("deleting %s: %w", k, err)
			break
		}
		n++
	}
	s.opts.Metrics.Observe(s.name, "doc", "delete", n, err)
	return n, err
}

// Query is not supported; key-value buckets have no query language.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]datasource.Record, error) {
	return nil, datasource.Unsupported(Type, "query")
}
