// Package builtins holds the default global bindings and the
// prototype-fallback method tables internal/vm's GET_PROP consults when a
// receiver has no matching own property (spec §4.4.7). Registration mirrors
// the teacher's runtime/builtins registry (name/receiver-kind indexed lookup
// tables, populated by each method's own init()) but keyed on value.Kind
// instead of a static TypeKind, since this language carries no type checker.
package builtins

import "vellum/internal/value"

type methodKey struct {
	kind value.Kind
	name string
}

var (
	globals = map[string]value.Value{}
	methods = map[methodKey]value.HostFunc{}
)

// RegisterGlobal installs a top-level binding under name, visible to every
// VM instance from its first Reset. Re-registering the same name overwrites
// its value.
func RegisterGlobal(name string, v value.Value) {
	globals[name] = v
}

// RegisterFunc is shorthand for registering a global HostFunction.
func RegisterFunc(name string, fn value.HostFunc) {
	RegisterGlobal(name, value.FromHostFunction(&value.HostFunction{Name: name, Fn: fn}))
}

// RegisterMethod installs fn as the prototype-fallback method name for
// receivers of the given kind.
func RegisterMethod(kind value.Kind, name string, fn value.HostFunc) {
	methods[methodKey{kind: kind, name: name}] = fn
}

// Method looks up a prototype-fallback method for kind, if any.
func Method(kind value.Kind, name string) (value.HostFunc, bool) {
	fn, ok := methods[methodKey{kind: kind, name: name}]
	return fn, ok
}

// Globals returns a fresh copy of the default global bindings, suitable for
// seeding a VM's globals map on construction or Reset. Object-kind bindings
// (Math, console) are cloned rather than shared: value.Value.Object is a
// pointer, so handing out the same *Object to every VM would let a mutation
// in one instance (Math.flag = 1) leak into every other instance, and into
// the same instance after Reset.
func Globals() map[string]value.Value {
	out := make(map[string]value.Value, len(globals))
	for k, v := range globals {
		if v.Kind == value.KindObject {
			v = value.FromObject(v.Object.Clone())
		}
		out[k] = v
	}
	return out
}
