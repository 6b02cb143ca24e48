// Package convert implements the pluggable value conversion used by the
// object-directory mapper. Conversions are keyed by source type, syntax hint
// and target type; directory-side values are either string (text attributes)
// or []byte (binary attributes).
package convert

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrNoConverter is returned when no conversion is registered for a type pair.
var ErrNoConverter = errors.New("no converter available")

// ValueConverter converts between directory values and typed field values.
type ValueConverter interface {
	// CanConvert reports whether values of type from can be converted to type to
	// under the given syntax hint.
	CanConvert(from reflect.Type, syntax string, to reflect.Type) bool

	// Convert converts value to type to.
	Convert(value any, syntax string, to reflect.Type) (any, error)
}

// ConversionError describes a failed conversion of a concrete value.
type ConversionError struct {
	Value  any
	Syntax string
	From   reflect.Type
	To     reflect.Type
	Cause  error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("cannot convert %v to %v", e.From, e.To)
	if e.Syntax != "" {
		msg += fmt.Sprintf(" (syntax %s)", e.Syntax)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error {
	return e.Cause
}

// Func converts a single value. The input is guaranteed to be of the source
// type the function was registered for.
type Func func(value any) (any, error)

type conversionKey struct {
	from   reflect.Type
	syntax string
	to     reflect.Type
}

// Manager is a registry-backed ValueConverter. It is safe for concurrent use.
type Manager struct {
	mu    sync.RWMutex
	funcs map[conversionKey]Func
}

// NewManager returns a Manager preloaded with the built-in conversions.
func NewManager() *Manager {
	m := NewEmptyManager()
	registerDefaults(m)
	return m
}

// NewEmptyManager returns a Manager with no registered conversions. Identity
// conversions are still available.
func NewEmptyManager() *Manager {
	return &Manager{funcs: make(map[conversionKey]Func)}
}

// Register adds or replaces the conversion from -> to under syntax. An empty
// syntax registers the fallback used when no syntax-specific conversion exists.
func (m *Manager) Register(from reflect.Type, syntax string, to reflect.Type, fn Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs[conversionKey{from: from, syntax: syntax, to: to}] = fn
}

// CanConvert implements ValueConverter.
func (m *Manager) CanConvert(from reflect.Type, syntax string, to reflect.Type) bool {
	if from == nil || to == nil {
		return false
	}
	_, ok := m.resolve(from, syntax, to)
	return ok
}

// Convert implements ValueConverter.
func (m *Manager) Convert(value any, syntax string, to reflect.Type) (any, error) {
	if value == nil {
		return nil, &ConversionError{Syntax: syntax, To: to, Cause: errors.New("value is nil")}
	}

	from := reflect.TypeOf(value)
	fn, ok := m.resolve(from, syntax, to)
	if !ok {
		return nil, &ConversionError{Value: value, Syntax: syntax, From: from, To: to, Cause: ErrNoConverter}
	}

	result, err := fn(value)
	if err != nil {
		return nil, &ConversionError{Value: value, Syntax: syntax, From: from, To: to, Cause: err}
	}
	return result, nil
}

func (m *Manager) lookup(from reflect.Type, syntax string, to reflect.Type) (Func, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if fn, ok := m.funcs[conversionKey{from: from, syntax: syntax, to: to}]; ok {
		return fn, true
	}
	if syntax != "" {
		if fn, ok := m.funcs[conversionKey{from: from, to: to}]; ok {
			return fn, true
		}
	}
	return nil, false
}

// resolve finds a conversion: exact, then syntax-less fallback, then identity,
// then via the underlying basic type of named source or target types.
func (m *Manager) resolve(from reflect.Type, syntax string, to reflect.Type) (Func, bool) {
	if fn, ok := m.lookup(from, syntax, to); ok {
		return fn, true
	}
	if from == to {
		return identity, true
	}

	if base := basicType(to); base != nil && base != to {
		if fn, ok := m.resolve(from, syntax, base); ok {
			return func(value any) (any, error) {
				result, err := fn(value)
				if err != nil {
					return nil, err
				}
				return reflect.ValueOf(result).Convert(to).Interface(), nil
			}, true
		}
	}

	if base := basicType(from); base != nil && base != from {
		if fn, ok := m.resolve(base, syntax, to); ok {
			return func(value any) (any, error) {
				return fn(reflect.ValueOf(value).Convert(base).Interface())
			}, true
		}
	}

	return nil, false
}

func identity(value any) (any, error) {
	return value, nil
}

var basicTypes = map[reflect.Kind]reflect.Type{
	reflect.String:  reflect.TypeFor[string](),
	reflect.Bool:    reflect.TypeFor[bool](),
	reflect.Int:     reflect.TypeFor[int](),
	reflect.Int8:    reflect.TypeFor[int8](),
	reflect.Int16:   reflect.TypeFor[int16](),
	reflect.Int32:   reflect.TypeFor[int32](),
	reflect.Int64:   reflect.TypeFor[int64](),
	reflect.Uint:    reflect.TypeFor[uint](),
	reflect.Uint8:   reflect.TypeFor[uint8](),
	reflect.Uint16:  reflect.TypeFor[uint16](),
	reflect.Uint32:  reflect.TypeFor[uint32](),
	reflect.Uint64:  reflect.TypeFor[uint64](),
	reflect.Float32: reflect.TypeFor[float32](),
	reflect.Float64: reflect.TypeFor[float64](),
}

// basicType returns the predeclared type sharing t's kind, or nil if t is not
// of a basic kind.
func basicType(t reflect.Type) reflect.Type {
	return basicTypes[t.Kind()]
}
