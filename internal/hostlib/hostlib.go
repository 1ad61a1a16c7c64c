// Package hostlib provides the optional host-injectable modules a CLI or
// embedder wires into a run's context map (spec §4.3's "registration
// point"): capabilities the sandboxed core itself never imports, since
// spec.md's compiler and VM are deliberately dependency-free. Each module is
// a plain value.Value object of bound HostFunctions, ready to be merged into
// the map passed to vm.Run/vm.Execute under a name like "hash" or "uuid".
package hostlib

import "vellum/internal/value"

// Module builds one namespaced host object, e.g. hostlib.Hash() for the
// "hash" global exposing hash.password/hash.verify.
type Module = value.Value

func namespace(methods map[string]value.HostFunc) Module {
	obj := value.NewObject()
	for name, fn := range methods {
		obj.Set(name, value.FromHostFunction(&value.HostFunction{Name: name, Fn: fn}))
	}
	return value.FromObject(obj)
}

// All returns every default host module keyed by the global name a script
// would reference it under. A CLI merges the ones it wants to expose into
// the context map; none of these are registered by internal/builtins, since
// spec.md's default built-in surface (§6.3) is meant to work with zero host
// wiring.
func All() map[string]value.Value {
	return map[string]value.Value{
		"hash":     Hash(),
		"uuid":     UUID(),
		"humanize": Humanize(),
	}
}
