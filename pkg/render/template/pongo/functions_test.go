package pongo_test

import (
	"testing"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-htmlrender/pkg/render/template/pongo"
)

func TestPredicates_Direct(t *testing.T) {
	now := time.Now()
	var nilTime *time.Time

	cases := []struct {
		name  string
		value any
		want  bool
	}{
		{pongo.FuncIsInt, 5, true},
		{pongo.FuncIsInt, "5", false},
		{pongo.FuncIsInt, int64(7), true},
		{pongo.FuncIsFloat, 1.5, true},
		{pongo.FuncIsFloat, 1, false},
		{pongo.FuncIsString, "s", true},
		{pongo.FuncIsString, 1, false},
		{pongo.FuncIsBool, true, true},
		{pongo.FuncIsBool, "true", false},
		{pongo.FuncIsNull, nil, true},
		{pongo.FuncIsNull, "", false},
		{pongo.FuncIsNotNull, 0, true},
		{pongo.FuncIsNotNull, nil, false},
		{pongo.FuncIsArray, []int{1, 2}, true},
		{pongo.FuncIsArray, [2]string{"a", "b"}, true},
		{pongo.FuncIsArray, map[string]any{"a": 1}, false},
		{pongo.FuncIsObject, map[string]any{"a": 1}, true},
		{pongo.FuncIsObject, struct{ A int }{1}, true},
		{pongo.FuncIsObject, []int{1}, false},
		{pongo.FuncIsDatetime, now, true},
		{pongo.FuncIsDatetime, &now, true},
		{pongo.FuncIsDatetime, nilTime, false},
		{pongo.FuncIsDatetime, "2024-01-01", false},
		{pongo.FuncIsTrue, true, true},
		{pongo.FuncIsTrue, 1, false},
		{pongo.FuncIsFalse, false, true},
		{pongo.FuncIsFalse, 0, false},
		{pongo.FuncIsFalse, nil, false},
	}

	predicates := pongo.Predicates()
	for _, tc := range cases {
		fn, ok := predicates[tc.name]
		if !ok {
			t.Fatalf("predicate %s missing", tc.name)
		}
		if got := fn(pongo2.AsValue(tc.value)); got != tc.want {
			t.Errorf("%s(%#v) = %v, want %v", tc.name, tc.value, got, tc.want)
		}
	}
}

func TestPredicates_ArrayAndObjectDiffer(t *testing.T) {
	list := pongo2.AsValue([]string{"a"})
	if pongo.IsArray(list) == pongo.IsObject(list) {
		t.Fatalf("is_array and is_object must disagree on a list")
	}
	mapping := pongo2.AsValue(map[string]string{"a": "b"})
	if pongo.IsArray(mapping) == pongo.IsObject(mapping) {
		t.Fatalf("is_array and is_object must disagree on a mapping")
	}
}

func TestPredicates_InTemplates(t *testing.T) {
	engine := newEngine(t)

	cases := []struct {
		template string
		data     map[string]any
		want     string
	}{
		{`{% if is_int(5) %}yes{% else %}no{% endif %}`, nil, "yes"},
		{`{% if is_int("5") %}yes{% else %}no{% endif %}`, nil, "no"},
		{`{% if is_null(missing) %}yes{% else %}no{% endif %}`, nil, "yes"},
		{`{% if is_not_null(v) %}yes{% else %}no{% endif %}`, map[string]any{"v": "x"}, "yes"},
		{`{% if is_array(v) %}yes{% else %}no{% endif %}`, map[string]any{"v": []any{1}}, "yes"},
		{`{% if is_object(v) %}yes{% else %}no{% endif %}`, map[string]any{"v": []any{1}}, "no"},
		{`{% if is_object(v) %}yes{% else %}no{% endif %}`, map[string]any{"v": map[string]any{}}, "yes"},
		{`{% if is_datetime(v) %}yes{% else %}no{% endif %}`, map[string]any{"v": time.Unix(0, 0)}, "yes"},
		{`{% if is_true(v) %}yes{% else %}no{% endif %}`, map[string]any{"v": true}, "yes"},
		{`{% if is_false(v) %}yes{% else %}no{% endif %}`, map[string]any{"v": ""}, "no"},
	}

	for _, tc := range cases {
		out, err := engine.RenderString(tc.template, tc.data)
		if err != nil {
			t.Fatalf("render %s: %v", tc.template, err)
		}
		if out != tc.want {
			t.Errorf("%s with %v = %q, want %q", tc.template, tc.data, out, tc.want)
		}
	}
}

func TestPredefinedNames(t *testing.T) {
	names := pongo.PredefinedNames()
	if len(names) != 12 {
		t.Fatalf("expected 12 predefined functions, got %d: %v", len(names), names)
	}
	seen := map[string]bool{}
	for _, name := range names {
		seen[name] = true
	}
	if !seen[pongo.FuncThrowError] || !seen[pongo.FuncIsObject] {
		t.Fatalf("expected throw_error and is_object in %v", names)
	}
}
