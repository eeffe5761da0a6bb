package pongo

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"
)

// Names of the functions registered by RegisterPredefined.
const (
	FuncIsNull     = "is_null"
	FuncIsNotNull  = "is_not_null"
	FuncIsInt      = "is_int"
	FuncIsFloat    = "is_float"
	FuncIsString   = "is_string"
	FuncIsBool     = "is_bool"
	FuncIsArray    = "is_array"
	FuncIsObject   = "is_object"
	FuncIsDatetime = "is_datetime"
	FuncIsTrue     = "is_true"
	FuncIsFalse    = "is_false"
	FuncThrowError = "throw_error"

	FuncSanitizeHTML = "sanitize_html"
	FilterSanitize   = "sanitize"
)

// Predicate reports a property of a template value.
type Predicate func(v *pongo2.Value) bool

var predicates = map[string]Predicate{
	FuncIsNull:     IsNull,
	FuncIsNotNull:  IsNotNull,
	FuncIsInt:      IsInt,
	FuncIsFloat:    IsFloat,
	FuncIsString:   IsString,
	FuncIsBool:     IsBool,
	FuncIsArray:    IsArray,
	FuncIsObject:   IsObject,
	FuncIsDatetime: IsDatetime,
	FuncIsTrue:     IsTrue,
	FuncIsFalse:    IsFalse,
}

// Predicates returns a copy of the predefined predicate table.
func Predicates() map[string]Predicate {
	out := make(map[string]Predicate, len(predicates))
	for name, fn := range predicates {
		out[name] = fn
	}
	return out
}

// PredefinedNames lists every function RegisterPredefined installs, sorted.
func PredefinedNames() []string {
	names := make([]string, 0, len(predicates)+1)
	for name := range predicates {
		names = append(names, name)
	}
	names = append(names, FuncThrowError)
	sort.Strings(names)
	return names
}

// RegisterPredefined installs the predicate table and throw_error. It runs
// after user functions so the predefined names take precedence.
func (e *Engine) RegisterPredefined() error {
	for _, name := range PredefinedNames() {
		var fn any = ThrowError
		if p, ok := predicates[name]; ok {
			fn = p
		}
		if err := e.RegisterFunction(name, fn); err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.raising = true
	e.mu.Unlock()
	return nil
}

// RegisterSprig exposes the Masterminds/sprig generic function map.
func (e *Engine) RegisterSprig() error {
	return e.RegisterFunctions(sprig.GenericFuncMap())
}

func IsNull(v *pongo2.Value) bool {
	return v == nil || v.IsNil()
}

func IsNotNull(v *pongo2.Value) bool {
	return !IsNull(v)
}

func IsInt(v *pongo2.Value) bool {
	return !IsNull(v) && v.IsInteger()
}

func IsFloat(v *pongo2.Value) bool {
	return !IsNull(v) && v.IsFloat()
}

func IsString(v *pongo2.Value) bool {
	return !IsNull(v) && v.IsString()
}

func IsBool(v *pongo2.Value) bool {
	return !IsNull(v) && v.IsBool()
}

// IsArray is true for slices and arrays.
func IsArray(v *pongo2.Value) bool {
	switch kindOf(v) {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}

// IsObject is true for maps and structs.
func IsObject(v *pongo2.Value) bool {
	switch kindOf(v) {
	case reflect.Map, reflect.Struct:
		return true
	}
	return false
}

func IsDatetime(v *pongo2.Value) bool {
	if IsNull(v) {
		return false
	}
	switch t := v.Interface().(type) {
	case time.Time:
		return true
	case *time.Time:
		return t != nil
	}
	return false
}

func IsTrue(v *pongo2.Value) bool {
	return IsBool(v) && v.Bool()
}

func IsFalse(v *pongo2.Value) bool {
	return IsBool(v) && !v.Bool()
}

// RaisedError is returned by a render aborted through throw_error. Its
// message is exactly the one passed by the template.
type RaisedError struct {
	Message string
}

func (e *RaisedError) Error() string {
	return e.Message
}

// UndefinedFunctionError is returned when a template calls a function that is
// not registered, not present in the render data and not bound by the
// template itself.
type UndefinedFunctionError struct {
	Name string
}

func (e *UndefinedFunctionError) Error() string {
	return fmt.Sprintf("pongo: unknown function %q", e.Name)
}

// ThrowError aborts template execution with message.
func ThrowError(message *pongo2.Value) (*pongo2.Value, error) {
	return nil, &RaisedError{Message: messageOf(message)}
}

// raiseScope captures the first throw_error of a single render so it can be
// returned without pongo2's positional wrapping.
type raiseScope struct {
	err *RaisedError
}

func (s *raiseScope) throw(message *pongo2.Value) (*pongo2.Value, error) {
	raised := &RaisedError{Message: messageOf(message)}
	if s.err == nil {
		s.err = raised
	}
	return nil, raised
}

func messageOf(v *pongo2.Value) string {
	if IsNull(v) {
		return ""
	}
	return v.String()
}

func kindOf(v *pongo2.Value) reflect.Kind {
	if IsNull(v) {
		return reflect.Invalid
	}
	rv := reflect.ValueOf(v.Interface())
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Invalid
		}
		rv = rv.Elem()
	}
	return rv.Kind()
}

func sanitizeHTML(policy *bluemonday.Policy) func(*pongo2.Value) *pongo2.Value {
	return func(v *pongo2.Value) *pongo2.Value {
		if IsNull(v) {
			return pongo2.AsSafeValue("")
		}
		return pongo2.AsSafeValue(strings.TrimSpace(policy.Sanitize(v.String())))
	}
}

// The sanitize filter is registered once per process, so it cannot follow a
// per-engine policy.
var (
	defaultFiltersOnce sync.Once
	defaultSanitizer   = bluemonday.UGCPolicy()
)

func registerDefaultFilters() {
	defaultFiltersOnce.Do(func() {
		if !pongo2.FilterExists(FilterSanitize) {
			_ = pongo2.RegisterFilter(FilterSanitize, filterSanitize)
		}
	})
}

func filterSanitize(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsSafeValue(""), nil
	}
	return pongo2.AsSafeValue(strings.TrimSpace(defaultSanitizer.Sanitize(in.String()))), nil
}
