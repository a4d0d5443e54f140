// Package object defines the runtime value representation produced and
// consumed by the virtual machine: the host engine interface the snapshot
// codec's loader ultimately hands control to.
package object

import (
	"fmt"
	"strconv"

	"github.com/vexra/snapjs/bytecode"
)

// Value is implemented by every runtime value the virtual machine can push
// onto its operand stack or store in a variable slot.
type Value interface {
	Type() string
	Inspect() string
}

// Nil is the single nil value.
type Nil struct{}

func (Nil) Type() string    { return "nil" }
func (Nil) Inspect() string { return "nil" }

// NilValue is the shared Nil instance.
var NilValue = Nil{}

// Bool wraps a boolean.
type Bool bool

func (b Bool) Type() string    { return "bool" }
func (b Bool) Inspect() string { return strconv.FormatBool(bool(b)) }

// Int wraps a 64-bit integer.
type Int int64

func (i Int) Type() string    { return "int" }
func (i Int) Inspect() string { return strconv.FormatInt(int64(i), 10) }

// Float wraps a 64-bit float.
type Float float64

func (f Float) Type() string    { return "float" }
func (f Float) Inspect() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

// String wraps a string.
type String string

func (s String) Type() string    { return "string" }
func (s String) Inspect() string { return string(s) }

// Function is a callable compiled function, with no captured environment:
// this module's language subset has no closures over enclosing locals, so
// a Function is just a reference to its static definition.
type Function struct {
	Def *bytecode.Function
}

func (f *Function) Type() string    { return "function" }
func (f *Function) Inspect() string { return f.Def.String() }

// Map is a string-keyed collection, used both as the language's map value
// and as the representation of a class instance (methods and fields share
// one namespace, looked up by BinarySubscr).
type Map struct {
	entries map[string]Value
}

// NewMap creates an empty Map.
func NewMap() *Map {
	return &Map{entries: make(map[string]Value)}
}

func (m *Map) Type() string { return "map" }

func (m *Map) Inspect() string {
	return fmt.Sprintf("map[%d entries]", len(m.entries))
}

// Get returns the value for key, and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Set stores value under key.
func (m *Map) Set(key string, value Value) {
	m.entries[key] = value
}

// Error is a runtime error value wrapping another value. The VM does not
// create one for `throw`: a `catch` clause binds the thrown value as is.
type Error struct {
	Value Value
}

func (e *Error) Type() string    { return "error" }
func (e *Error) Inspect() string { return "error: " + e.Value.Inspect() }

// Builtin is a callable implemented in Go, supplied to the virtual machine
// through its environment rather than compiled from source (e.g. "print").
type Builtin struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

func (b *Builtin) Type() string    { return "builtin" }
func (b *Builtin) Inspect() string { return "builtin " + b.Name }

// Truthy reports whether a value is considered true in a boolean context.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case Nil:
		return false
	case Bool:
		return bool(val)
	case Int:
		return val != 0
	case Float:
		return val != 0
	case String:
		return val != ""
	default:
		return true
	}
}
