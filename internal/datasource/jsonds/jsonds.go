// Package jsonds is a document store that keeps each docset in one JSON file.
package jsonds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/matsen/bibnet/internal/config"
	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/datasource/filestore"
)

// Type is the configuration type name.
const Type = "json"

// Schema is the backend configuration schema.
var Schema = config.Schema{
	"init": config.Subtree(config.Schema{
		"location": config.Required(config.IsType(config.KindString)),
	}),
}

// docset maps document names to their records.
type docset map[string]datasource.Record

type codec struct{}

func (codec) Ext() string { return "json" }

func (codec) Decode(r io.Reader) (docset, error) {
	var ds docset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, err
	}
	if ds == nil {
		ds = docset{}
	}
	for name, rec := range ds {
		if rec == nil {
			ds[name] = datasource.Record{}
		}
	}
	return ds, nil
}

func (codec) Encode(w io.Writer, ds docset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ds)
}

func (codec) Empty(ds docset) bool { return len(ds) == 0 }

// Store is a file-backed DocSource.
type Store struct {
	name  string
	files *filestore.Store[docset]
	opts  datasource.Options
}

var (
	_ datasource.DocSource = (*Store)(nil)
	_ datasource.Lifecycle = (*Store)(nil)
)

// Open is the factory opener.
func Open(name string, cfg config.Tree, opts datasource.Options) (datasource.Source, error) {
	if _, err := cfg.Validate(Schema, true); err != nil {
		return nil, err
	}
	return New(name, cfg.String("", "init", "location"), opts)
}

// New opens the store rooted at location and loads every docset.
func New(name, location string, opts datasource.Options) (*Store, error) {
	files, err := filestore.Open[docset](location, codec{}, opts.Log().With("source", name))
	if err != nil {
		return nil, fmt.Errorf("opening json store: %w", err)
	}
	return &Store{name: name, files: files, opts: opts}, nil
}

func (s *Store) Kind() string { return Type }

// Dir returns the directory holding the docset files.
func (s *Store) Dir() string { return s.files.Dir() }

// Partitions lists the docsets.
func (s *Store) Partitions() []string { return s.files.Partitions() }

// Names lists the documents of a docset.
func (s *Store) Names(docset string) []string {
	ds, ok := s.files.Get(docset)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(ds))
	for name := range ds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) docset(name string) docset {
	ds, ok := s.files.Get(name)
	if !ok {
		ds = docset{}
		s.files.Put(name, ds)
	}
	return ds
}

func (s *Store) CreateDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey], value datasource.Record) ([]datasource.DocKey, error) {
	keys, err := datasource.ResolveDocs(spec, s)
	if err == nil {
		for _, k := range keys {
			rec := value.Clone()
			if rec == nil {
				rec = datasource.Record{}
			}
			s.docset(k.Docset)[k.Doc] = rec
			s.files.MarkDirty(k.Docset)
		}
	}
	s.opts.Metrics.Observe(s.name, "doc", "create", len(keys), err)
	return keys, err
}

func (s *Store) ReadDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey]) (map[datasource.DocKey]datasource.Record, error) {
	keys, err := datasource.ResolveDocs(spec, s)
	out := make(map[datasource.DocKey]datasource.Record)
	for _, k := range keys {
		if ds, ok := s.files.Get(k.Docset); ok {
			if rec, ok := ds[k.Doc]; ok {
				out[k] = rec.Clone()
			}
		}
	}
	s.opts.Metrics.Observe(s.name, "doc", "read", len(out), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey], value datasource.Record) ([]datasource.DocKey, error) {
	keys, err := datasource.ResolveDocs(spec, s)
	if err == nil {
		for _, k := range keys {
			ds := s.docset(k.Docset)
			rec, ok := ds[k.Doc]
			if !ok || rec == nil {
				rec = datasource.Record{}
				ds[k.Doc] = rec
			}
			rec.Merge(value)
			s.files.MarkDirty(k.Docset)
		}
	}
	s.opts.Metrics.Observe(s.name, "doc", "update", len(keys), err)
	return keys, err
}

func (s *Store) DeleteDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey]) (int, error) {
	keys, err := datasource.ResolveDocs(spec, s)
	n := 0
	for _, k := range keys {
		ds, ok := s.files.Get(k.Docset)
		if !ok {
			continue
		}
		if _, ok := ds[k.Doc]; ok {
			delete(ds, k.Doc)
			s.files.MarkDirty(k.Docset)
			n++
		}
	}
	s.opts.Metrics.Observe(s.name, "doc", "delete", n, err)
	return n, err
}

// Query is not supported by file stores.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]datasource.Record, error) {
	return nil, datasource.Unsupported(Type, "Query")
}

// State reports whether unflushed changes exist.
func (s *Store) State() filestore.State { return s.files.State() }

func (s *Store) Flush() error {
	s.opts.Metrics.ObserveFlush(s.name)
	return s.files.Flush()
}

func (s *Store) Reload() error {
	s.opts.Metrics.ObserveFlush(s.name)
	return s.files.Reload()
}

func (s *Store) Clear() error {
	s.opts.Metrics.ObserveFlush(s.name)
	return s.files.Clear()
}

// Close flushes pending changes.
func (s *Store) Close() error {
	return s.Flush()
}
