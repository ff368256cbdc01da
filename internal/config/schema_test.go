package config

import (
	"errors"
	"strings"
	"testing"
)

// storeSchema mirrors what a networked store declares for its configuration.
func storeSchema() Schema {
	return Schema{
		"_pre_init": OptionalSubtree(Schema{
			"type":     Required(),
			"protocol": Optional(),
		}),
		"init": Subtree(Schema{
			"location": WithDefault("", IsType(KindString)),
			"port":     Optional(IsType(KindInt), InRange(Between(0, 65535))),
		}),
		"post_init": {
			Optional: true,
			Children: Schema{
				"@*": Required(Satisfies(func(v any) bool {
					s, ok := v.(string)
					return !ok || !strings.Contains(s, "banned")
				})),
			},
		},
	}
}

func TestValidate_DefaultInjection(t *testing.T) {
	data := map[string]any{}
	schema := Schema{"port": WithDefault(8080)}

	ok, err := Validate(data, schema, true)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !ok {
		t.Fatal("Validate() = false, want true")
	}
	if data["port"] != 8080 {
		t.Errorf("data[port] = %v, want 8080", data["port"])
	}
	if len(data) != 1 {
		t.Errorf("len(data) = %d, want 1", len(data))
	}
}

func TestValidate_Valid(t *testing.T) {
	data := map[string]any{
		"_pre_init": map[string]any{"type": "json"},
		"init":      map[string]any{"port": 27017},
		"post_init": map[string]any{"a": "fine", "b": "also fine"},
	}

	ok, err := Validate(data, storeSchema(), true)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !ok {
		t.Error("Validate() = false, want true")
	}

	section := data["init"].(map[string]any)
	if section["location"] != "" {
		t.Errorf("init.location = %v, want default empty string", section["location"])
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	data := map[string]any{"_pre_init": map[string]any{}}

	_, err := Validate(data, storeSchema(), true)
	if !errors.Is(err, ErrMissingRequiredKey) {
		t.Fatalf("Validate() error = %v, want ErrMissingRequiredKey", err)
	}
	if !strings.Contains(err.Error(), "_pre_init.type") {
		t.Errorf("error %q should name the path _pre_init.type", err)
	}
}

func TestValidate_ConditionFailed(t *testing.T) {
	tests := []struct {
		name string
		section map[string]any
	}{
		{"port out of range", map[string]any{"port": 70000}},
		{"port wrong type", map[string]any{"port": "80"}},
		{"location wrong type", map[string]any{"location": 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := map[string]any{"init": tt.section}
			_, err := Validate(data, storeSchema(), true)
			if !errors.Is(err, ErrConditionFailed) {
				t.Errorf("Validate() error = %v, want ErrConditionFailed", err)
			}
		})
	}
}

func TestValidate_Wildcard(t *testing.T) {
	data := map[string]any{
		"init":      map[string]any{},
		"post_init": map[string]any{"a": "ok", "b": "banned word"},
	}

	_, err := Validate(data, storeSchema(), true)
	if !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("Validate() error = %v, want ErrConditionFailed", err)
	}
	if !strings.Contains(err.Error(), "post_init.b") {
		t.Errorf("error %q should name post_init.b", err)
	}
}

func TestValidate_WildcardChildren(t *testing.T) {
	schema := Schema{
		"@*": Subtree(Schema{"weight": WithDefault(1.0, IsType(KindNumber))}),
	}
	data := map[string]any{
		"a": map[string]any{},
		"b": map[string]any{"weight": 3},
	}

	ok, err := Validate(data, schema, true)
	if err != nil || !ok {
		t.Fatalf("Validate() = %v, %v; want true, nil", ok, err)
	}
	if got := data["a"].(map[string]any)["weight"]; got != 1.0 {
		t.Errorf("a.weight = %v, want 1.0", got)
	}
	if got := data["b"].(map[string]any)["weight"]; got != 3 {
		t.Errorf("b.weight = %v, want 3", got)
	}
}

func TestValidate_NonStrict(t *testing.T) {
	data := map[string]any{
		"init": map[string]any{"port": -5},
	}
	schema := Schema{
		"init": Subtree(Schema{
			"port":     Optional(InRange(Between(0, 65535))),
			"location": WithDefault("/tmp"),
		}),
		"name": Required(),
	}

	ok, err := Validate(data, schema, false)
	if err != nil {
		t.Fatalf("Validate(non-strict) error = %v, want nil", err)
	}
	if ok {
		t.Error("Validate(non-strict) = true, want false")
	}
	// best effort: later defaults are still applied
	if got := data["init"].(map[string]any)["location"]; got != "/tmp" {
		t.Errorf("init.location = %v, want /tmp", got)
	}
}

func TestValidate_UnsupportedOperatorAlwaysErrors(t *testing.T) {
	schema := Schema{"x": Required(Condition{Op: "REGEX", Operand: ".*"})}

	for _, strict := range []bool{true, false} {
		_, err := Validate(map[string]any{"x": "y"}, schema, strict)
		if !errors.Is(err, ErrUnsupportedOperator) {
			t.Errorf("Validate(strict=%v) error = %v, want ErrUnsupportedOperator", strict, err)
		}
	}
}

func TestValidate_ChildrenRequireMapping(t *testing.T) {
	schema := Schema{"init": Subtree(Schema{"location": Required()})}

	_, err := Validate(map[string]any{"init": "oops"}, schema, true)
	if !errors.Is(err, ErrConditionFailed) {
		t.Errorf("Validate() error = %v, want ErrConditionFailed", err)
	}
}

func TestIsWildcard(t *testing.T) {
	tests := map[string]bool{
		"@*":     true,
		"@*foo":  true,
		"foo@*":  false,
		"@":      false,
		"":       false,
		"docset": false,
	}
	for token, want := range tests {
		if got := IsWildcard(token); got != want {
			t.Errorf("IsWildcard(%q) = %v, want %v", token, got, want)
		}
	}
}
