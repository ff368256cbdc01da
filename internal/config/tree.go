package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tree is a nested configuration record, as decoded from YAML or JSON.
type Tree map[string]any

// Lookup walks path and returns the value found there.
func (t Tree) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(t)
	for _, name := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[name]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// CheckNode reports whether path exists and satisfies every condition.
// In strict mode a failure is returned as an error.
func (t Tree) CheckNode(strict bool, path []string, conds ...Condition) (bool, error) {
	val, ok := t.Lookup(path...)
	if !ok {
		if strict {
			return false, fmt.Errorf("%w: %s", ErrMissingRequiredKey, pathString(path))
		}
		return false, nil
	}
	for _, cond := range conds {
		pass, err := Evaluate(val, cond.Op, cond.Operand)
		if err != nil {
			return false, err
		}
		if !pass {
			if strict {
				return false, fmt.Errorf("%w: %s on %s", ErrConditionFailed, cond.Op, pathString(path))
			}
			return false, nil
		}
	}
	return true, nil
}

// CheckGet returns the value at path after checking conds against it.
func (t Tree) CheckGet(path []string, conds ...Condition) (any, error) {
	if _, err := t.CheckNode(true, path, conds...); err != nil {
		return nil, err
	}
	val, _ := t.Lookup(path...)
	return val, nil
}

// String returns the string at path, or def when absent or not a string.
func (t Tree) String(def string, path ...string) string {
	val, ok := t.Lookup(path...)
	if !ok {
		return def
	}
	s, ok := val.(string)
	if !ok {
		return def
	}
	return s
}

// Sub returns the subtree at path, or an empty tree.
func (t Tree) Sub(path ...string) Tree {
	val, ok := t.Lookup(path...)
	if !ok {
		return Tree{}
	}
	m, ok := asMap(val)
	if !ok {
		return Tree{}
	}
	return Tree(m)
}

// Validate checks the tree against schema. See the package-level Validate.
func (t Tree) Validate(schema Schema, strict bool) (bool, error) {
	return Validate(t, schema, strict)
}

// Merge deep-merges layers into a new tree. Later layers override earlier ones;
// nested mappings are merged key by key, any other value is replaced.
func Merge(layers ...Tree) Tree {
	out := Tree{}
	for _, layer := range layers {
		mergeInto(out, layer)
	}
	return out
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := asMap(v)
		if !srcIsMap {
			dst[k] = v
			continue
		}
		dstMap, dstIsMap := asMap(dst[k])
		if !dstIsMap {
			dstMap = map[string]any{}
		} else {
			dstMap = copyMap(dstMap)
		}
		mergeInto(dstMap, srcMap)
		dst[k] = dstMap
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Tree:
		return m, true
	}
	return nil, false
}

// LoadTree reads a YAML file into a Tree. A missing file yields an empty tree.
func LoadTree(path string) (Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Tree{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var t Tree
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if t == nil {
		t = Tree{}
	}
	return t, nil
}

func pathString(path []string) string {
	out := ""
	for _, p := range path {
		out = joinPath(out, p)
	}
	return out
}
