package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/mo"
)

// Wildcard is the schema key (or key prefix) that applies a node to every child.
const Wildcard = "@*"

var (
	// ErrMissingRequiredKey is returned when a required key is absent and has no default.
	ErrMissingRequiredKey = errors.New("missing required key")

	// ErrConditionFailed is returned when a value does not satisfy a schema condition.
	ErrConditionFailed = errors.New("condition failed")
)

// Node describes the rules for one key of a configuration tree.
type Node struct {
	Optional   bool
	Default    mo.Option[any]
	Conditions []Condition
	Children   Schema
}

// Schema maps keys to their rules. A key starting with "@*" matches every child.
type Schema map[string]*Node

// Required returns a node that must be present and satisfy conds.
func Required(conds ...Condition) *Node {
	return &Node{Conditions: conds}
}

// Optional returns a node that may be absent.
func Optional(conds ...Condition) *Node {
	return &Node{Optional: true, Conditions: conds}
}

// WithDefault returns a node that is filled with def when absent.
func WithDefault(def any, conds ...Condition) *Node {
	return &Node{Default: mo.Some(def), Conditions: conds}
}

// Subtree returns a required node whose value is a map checked against children.
func Subtree(children Schema) *Node {
	return &Node{Children: children}
}

// OptionalSubtree returns an optional node whose value, when present, is checked against children.
func OptionalSubtree(children Schema) *Node {
	return &Node{Optional: true, Children: children}
}

// IsWildcard reports whether a schema or key token is the wildcard marker.
func IsWildcard(token string) bool {
	return strings.HasPrefix(token, Wildcard)
}

// Validate checks data against schema, inserting defaults for absent keys.
//
// In strict mode the first failure is returned as an error wrapping
// ErrMissingRequiredKey or ErrConditionFailed, with the dotted path of the
// offending key. In non-strict mode failures make the result false but
// validation continues so every default still gets applied; the error is nil.
// ErrUnsupportedOperator is returned in both modes.
func Validate(data map[string]any, schema Schema, strict bool) (bool, error) {
	v := validator{strict: strict}
	ok, err := v.subtree(data, schema, "")
	return ok, err
}

type validator struct {
	strict bool
}

func (v *validator) subtree(layer map[string]any, schema Schema, prefix string) (bool, error) {
	ok := true
	for _, key := range sortedKeys(schema) {
		node := schema[key]
		if node == nil {
			node = &Node{}
		}
		path := joinPath(prefix, key)

		if IsWildcard(key) {
			for _, child := range sortedKeys(layer) {
				childOK, err := v.value(layer[child], node, joinPath(prefix, child))
				if err != nil {
					return false, err
				}
				ok = ok && childOK
			}
			continue
		}

		if _, present := layer[key]; !present {
			if node.Optional {
				continue
			}
			def, hasDefault := node.Default.Get()
			if !hasDefault {
				if err := v.fail(fmt.Errorf("%w: %s", ErrMissingRequiredKey, path)); err != nil {
					return false, err
				}
				ok = false
				continue
			}
			if layer == nil {
				return false, fmt.Errorf("%w: cannot set default for %s in a nil mapping", ErrConditionFailed, path)
			}
			layer[key] = def
		}

		valueOK, err := v.value(layer[key], node, path)
		if err != nil {
			return false, err
		}
		ok = ok && valueOK
	}
	return ok, nil
}

// value applies a node's conditions and children to one present value.
func (v *validator) value(val any, node *Node, path string) (bool, error) {
	for _, cond := range node.Conditions {
		pass, err := Evaluate(val, cond.Op, cond.Operand)
		if err != nil {
			return false, fmt.Errorf("%s: %w", path, err)
		}
		if !pass {
			if err := v.fail(fmt.Errorf("%w: %s on %s", ErrConditionFailed, cond.Op, path)); err != nil {
				return false, err
			}
			return false, nil
		}
	}

	if len(node.Children) == 0 {
		return true, nil
	}

	child, isMap := asMap(val)
	if !isMap {
		if err := v.fail(fmt.Errorf("%w: %s is %T, want a mapping", ErrConditionFailed, path, val)); err != nil {
			return false, err
		}
		return false, nil
	}
	return v.subtree(child, node.Children, path)
}

// fail returns err in strict mode and nil otherwise.
func (v *validator) fail(err error) error {
	if v.strict {
		return err
	}
	return nil
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
