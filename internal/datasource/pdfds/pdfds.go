// Package pdfds is a read-only document store over a directory of PDFs.
// Each subdirectory is a docset and each file stem a document; PDFs at the
// top level belong to the "_default" docset. The directory listing is
// rescanned whenever a directory modification time changes.
package pdfds

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/matsen/bibnet/internal/config"
	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/pdf"
)

// Type is the configuration type name.
const Type = "pdf"

// DefaultDocset holds PDFs placed directly in the root directory.
const DefaultDocset = "_default"

// Schema is the backend configuration schema.
var Schema = config.Schema{
	"init": config.Subtree(config.Schema{
		"location":  config.Required(config.IsType(config.KindString)),
		"max_pages": config.WithDefault(0, config.IsType(config.KindNumber), config.InRange(config.AtLeast(0))),
	}),
}

type cached struct {
	mod time.Time
	rec datasource.Record
}

// Store is a read-only DocSource.
type Store struct {
	name     string
	root     string
	maxPages int
	opts     datasource.Options

	// extract is pdf.Read; replaced in tests.
	extract func(path string, maxPages int) (pdf.Document, error)

	dirMod map[string]time.Time
	index  map[string]map[string]string // docset -> stem -> path
	cache  map[string]cached
}

var _ datasource.DocSource = (*Store)(nil)

// Open is the factory opener.
func Open(name string, cfg config.Tree, opts datasource.Options) (datasource.Source, error) {
	if _, err := cfg.Validate(Schema, true); err != nil {
		return nil, err
	}
	section := cfg.Sub("init")
	maxPages := 0
	switch v := section["max_pages"].(type) {
	case int:
		maxPages = v
	case float64:
		maxPages = int(v)
	}
	return New(name, section.String("", "location"), maxPages, opts)
}

// New indexes the PDFs under root, which must be a directory.
func New(name, root string, maxPages int, opts datasource.Options) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening pdf store: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening pdf store: %s is not a directory", root)
	}
	s := &Store{
		name:     name,
		root:     root,
		maxPages: maxPages,
		opts:     opts,
		extract:  pdf.Read,
		cache:    map[string]cached{},
	}
	if err := s.scan(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Kind() string { return Type }

func (s *Store) Close() error { return nil }

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (s *Store) scan() error {
	dirMod := map[string]time.Time{}
	index := map[string]map[string]string{}

	add := func(set, dir string, entries []os.DirEntry) {
		for _, e := range entries {
			if e.IsDir() || !isPDF(e.Name()) {
				continue
			}
			if index[set] == nil {
				index[set] = map[string]string{}
			}
			index[set][stem(e.Name())] = filepath.Join(dir, e.Name())
		}
	}

	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", s.root, err)
	}
	dirMod[s.root] = info.ModTime()
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", s.root, err)
	}
	add(DefaultDocset, s.root, entries)

	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(s.root, e.Name())
		sub, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", dir, err)
		}
		if info, err := e.Info(); err == nil {
			dirMod[dir] = info.ModTime()
		}
		add(e.Name(), dir, sub)
	}

	s.dirMod = dirMod
	s.index = index
	s.opts.Log().Debug("indexed pdfs", "source", s.name, "docsets", len(index))
	return nil
}

// refresh rescans when any indexed directory changed or disappeared.
func (s *Store) refresh() error {
	for dir, mod := range s.dirMod {
		info, err := os.Stat(dir)
		if err != nil || !info.ModTime().Equal(mod) {
			return s.scan()
		}
	}
	return nil
}

// Reload rescans the directory and drops cached extractions.
func (s *Store) Reload() error {
	s.cache = map[string]cached{}
	return s.scan()
}

// Partitions lists the docsets.
func (s *Store) Partitions() []string {
	out := make([]string, 0, len(s.index))
	for set := range s.index {
		out = append(out, set)
	}
	sort.Strings(out)
	return out
}

// Names lists the document stems of a docset.
func (s *Store) Names(docset string) []string {
	files := s.index[docset]
	if files == nil {
		return nil
	}
	out := make([]string, 0, len(files))
	for n := range files {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (s *Store) load(path string) (datasource.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if c, ok := s.cache[path]; ok && c.mod.Equal(info.ModTime()) {
		return c.rec.Clone(), nil
	}
	doc, err := s.extract(path, s.maxPages)
	if err != nil {
		return nil, err
	}
	rec := datasource.Record{
		"text":  doc.Text,
		"doi":   doc.DOI,
		"title": doc.Title,
		"pages": doc.Pages,
		"path":  path,
	}
	s.cache[path] = cached{mod: info.ModTime(), rec: rec}
	return rec.Clone(), nil
}

func (s *Store) ReadDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey]) (map[datasource.DocKey]datasource.Record, error) {
	if err := s.refresh(); err != nil {
		return nil, err
	}
	keys, err := datasource.ResolveDocs(spec, s)
	if err != nil {
		s.opts.Metrics.Observe(s.name, "doc", "read", 0, err)
		return nil, err
	}
	out := make(map[datasource.DocKey]datasource.Record)
	for _, k := range keys {
		path, ok := s.index[k.Docset][k.Doc]
		if !ok {
			continue
		}
		rec, err := s.load(path)
		if err != nil {
			s.opts.Log().Warn("skipping unreadable pdf", "source", s.name, "path", path, "error", err)
			continue
		}
		out[k] = rec
	}
	s.opts.Metrics.Observe(s.name, "doc", "read", len(out), nil)
	return out, nil
}

func (s *Store) CreateDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey], value datasource.Record) ([]datasource.DocKey, error) {
	return nil, datasource.Unsupported(Type, "CreateDoc")
}

func (s *Store) UpdateDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey], value datasource.Record) ([]datasource.DocKey, error) {
	return nil, datasource.Unsupported(Type, "UpdateDoc")
}

func (s *Store) DeleteDoc(ctx context.Context, spec datasource.Spec[datasource.DocKey]) (int, error) {
	return 0, datasource.Unsupported(Type, "DeleteDoc")
}

func (s *Store) Query(ctx context.Context, query string, args ...any) ([]datasource.Record, error) {
	return nil, datasource.Unsupported(Type, "Query")
}
