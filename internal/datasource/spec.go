package datasource

import (
	"fmt"
	"sort"
)

// Condition is a filter record attached to a key in a Where spec.
// Conditions are carried through resolution but not evaluated yet; only
// wildcard expansion narrows the target set.
type Condition map[string]any

type shape uint8

const (
	shapeInvalid shape = iota
	shapeSingle
	shapeMany
	shapeConditioned
)

func (s shape) String() string {
	switch s {
	case shapeSingle:
		return "single"
	case shapeMany:
		return "many"
	case shapeConditioned:
		return "conditioned"
	}
	return "invalid"
}

// Spec is a key specification: exactly one of a single key, an ordered list
// of keys, or a mapping of keys to conditions. Build it with One, Many or
// Where; the zero Spec is not a valid specification.
type Spec[K Key] struct {
	shape shape
	keys  []K
	conds []Condition
}

// Entry is one normalized element of a Spec.
type Entry[K Key] struct {
	Key       K
	Condition Condition
}

// One addresses a single key.
func One[K Key](k K) Spec[K] {
	return Spec[K]{shape: shapeSingle, keys: []K{k}}
}

// Many addresses an ordered list of keys.
func Many[K Key](keys ...K) Spec[K] {
	return Spec[K]{shape: shapeMany, keys: append([]K(nil), keys...)}
}

// Where addresses keys with attached conditions. Entries are ordered by
// the key's string form so resolution is deterministic.
func Where[K Key](m map[K]Condition) Spec[K] {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	conds := make([]Condition, len(keys))
	for i, k := range keys {
		conds[i] = m[k]
	}
	return Spec[K]{shape: shapeConditioned, keys: keys, conds: conds}
}

// Entries normalizes the spec into key/condition pairs.
func (s Spec[K]) Entries() ([]Entry[K], error) {
	if s.shape == shapeInvalid {
		return nil, fmt.Errorf("%w: empty spec (use One, Many or Where)", ErrInvalidKeySpecification)
	}
	out := make([]Entry[K], len(s.keys))
	for i, k := range s.keys {
		out[i] = Entry[K]{Key: k}
		if s.conds != nil {
			out[i].Condition = s.conds[i]
		}
	}
	return out, nil
}

// Keys returns the keys of the spec in order.
func (s Spec[K]) Keys() []K {
	return append([]K(nil), s.keys...)
}

func (s Spec[K]) String() string {
	return fmt.Sprintf("%s%v", s.shape, s.keys)
}
