package builtins

import (
	"unicode/utf8"

	"vellum/internal/value"
)

// Lookup implements the non-own-property half of GET_PROP's prototype
// fallback (spec §4.4.7): "length" on strings and arrays, then the
// registered method table for receiver.Kind. A resolved method is bound to
// receiver so a detached reference (`var f = "x".toUpperCase; f()`) still
// dispatches against the original receiver.
func Lookup(receiver value.Value, name string) (value.Value, bool) {
	switch receiver.Kind {
	case value.KindString:
		if name == "length" {
			return value.Number(float64(utf8.RuneCountInString(receiver.Str))), true
		}
	case value.KindArray:
		if name == "length" {
			return value.Number(float64(len(receiver.Array.Elements))), true
		}
	case value.KindHostObject:
		if fn, ok := receiver.HostObject.Methods[name]; ok {
			return bind(receiver, name, fn), true
		}
	}
	if fn, ok := Method(receiver.Kind, name); ok {
		return bind(receiver, name, fn), true
	}
	return value.Value{}, false
}

func bind(receiver value.Value, name string, fn value.HostFunc) value.Value {
	return value.FromHostFunction(&value.HostFunction{
		Name: name,
		Fn: func(_ value.Value, args []value.Value) (value.Value, error) {
			return fn(receiver, args)
		},
	})
}

// wellKnownConstructors names the built-in constructors NEW dispatches to
// directly rather than through a HostFunction's ordinary call protocol
// (spec §4.4.6).
var wellKnownConstructors = map[string]bool{
	"Array": true, "Object": true, "String": true, "Number": true, "Boolean": true,
}

// IsWellKnownConstructor reports whether name should be dispatched via
// ConstructBuiltin instead of an ordinary call.
func IsWellKnownConstructor(name string) bool { return wellKnownConstructors[name] }

// ConstructBuiltin implements `new Array(...)`, `new Object(...)`,
// `new String(x)`, `new Number(x)`, `new Boolean(x)`.
func ConstructBuiltin(name string, args []value.Value) (value.Value, bool) {
	switch name {
	case "Array":
		if len(args) == 1 && args[0].Kind == value.KindNumber {
			n := int(args[0].Number)
			if n < 0 {
				n = 0
			}
			elems := make([]value.Value, n)
			for i := range elems {
				elems[i] = value.Undefined
			}
			return value.FromArray(value.NewArray(elems)), true
		}
		return value.FromArray(value.NewArray(append([]value.Value(nil), args...))), true
	case "Object":
		o := value.NewObject()
		if len(args) == 1 && args[0].Kind == value.KindObject {
			for _, k := range args[0].Object.Keys() {
				v, _ := args[0].Object.Get(k)
				o.Set(k, v)
			}
		}
		return value.FromObject(o), true
	case "String":
		if len(args) == 0 {
			return value.String(""), true
		}
		return value.String(args[0].ToString()), true
	case "Number":
		if len(args) == 0 {
			return value.Number(0), true
		}
		return value.Number(args[0].ToNumber()), true
	case "Boolean":
		if len(args) == 0 {
			return value.Bool(false), true
		}
		return value.Bool(args[0].Truthy()), true
	}
	return value.Value{}, false
}
