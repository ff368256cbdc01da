package datasource

import "sort"

// Listing is a Keyspace over fallible listing calls, for remote stores.
// Partitions are listed once; the first error is kept and reported by Err,
// after which every call returns nothing.
type Listing struct {
	partitions func() ([]string, error)
	names      func(partition string) ([]string, error)
	parts      []string
	listed     bool
	err        error
}

// NewListing returns a Listing. partitions may be nil for stores that have
// no partition enumeration.
func NewListing(partitions func() ([]string, error), names func(string) ([]string, error)) *Listing {
	return &Listing{partitions: partitions, names: names}
}

func (l *Listing) Partitions() []string {
	if l.err != nil {
		return nil
	}
	if !l.listed {
		l.listed = true
		if l.partitions == nil {
			return nil
		}
		parts, err := l.partitions()
		if err != nil {
			l.err = err
			return nil
		}
		sort.Strings(parts)
		l.parts = parts
	}
	return l.parts
}

func (l *Listing) Names(partition string) []string {
	if l.err != nil {
		return nil
	}
	names, err := l.names(partition)
	if err != nil {
		l.err = err
		return nil
	}
	sort.Strings(names)
	return names
}

// Has reports whether partition was among the listed partitions.
func (l *Listing) Has(partition string) bool {
	for _, p := range l.Partitions() {
		if p == partition {
			return true
		}
	}
	return false
}

// Err returns the first listing error.
func (l *Listing) Err() error { return l.err }
