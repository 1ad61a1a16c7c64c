package builtins

import (
	"strconv"

	"vellum/internal/value"
)

func init() {
	RegisterMethod(value.KindArray, "push", func(this value.Value, args []value.Value) (value.Value, error) {
		this.Array.Elements = append(this.Array.Elements, args...)
		return value.Number(float64(len(this.Array.Elements))), nil
	})
	RegisterMethod(value.KindArray, "pop", func(this value.Value, _ []value.Value) (value.Value, error) {
		n := len(this.Array.Elements)
		if n == 0 {
			return value.Undefined, nil
		}
		last := this.Array.Elements[n-1]
		this.Array.Elements = this.Array.Elements[:n-1]
		return last, nil
	})
	RegisterMethod(value.KindArray, "shift", func(this value.Value, _ []value.Value) (value.Value, error) {
		if len(this.Array.Elements) == 0 {
			return value.Undefined, nil
		}
		first := this.Array.Elements[0]
		this.Array.Elements = this.Array.Elements[1:]
		return first, nil
	})
	RegisterMethod(value.KindArray, "unshift", func(this value.Value, args []value.Value) (value.Value, error) {
		this.Array.Elements = append(append([]value.Value(nil), args...), this.Array.Elements...)
		return value.Number(float64(len(this.Array.Elements))), nil
	})
	RegisterMethod(value.KindArray, "slice", func(this value.Value, args []value.Value) (value.Value, error) {
		start, end := sliceBounds(len(this.Array.Elements), args)
		out := append([]value.Value(nil), this.Array.Elements[start:end]...)
		return value.FromArray(value.NewArray(out)), nil
	})
	RegisterMethod(value.KindArray, "concat", func(this value.Value, args []value.Value) (value.Value, error) {
		out := append([]value.Value(nil), this.Array.Elements...)
		for _, a := range args {
			if a.Kind == value.KindArray {
				out = append(out, a.Array.Elements...)
			} else {
				out = append(out, a)
			}
		}
		return value.FromArray(value.NewArray(out)), nil
	})
	RegisterMethod(value.KindArray, "join", func(this value.Value, args []value.Value) (value.Value, error) {
		sep := ","
		if len(args) > 0 {
			sep = args[0].ToString()
		}
		s := ""
		for i, e := range this.Array.Elements {
			if i > 0 {
				s += sep
			}
			if e.Kind != value.KindUndefined && e.Kind != value.KindNull {
				s += e.ToString()
			}
		}
		return value.String(s), nil
	})
	RegisterMethod(value.KindArray, "indexOf", func(this value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number(-1), nil
		}
		for i, e := range this.Array.Elements {
			if value.StrictEquals(e, args[0]) {
				return value.Number(float64(i)), nil
			}
		}
		return value.Number(-1), nil
	})
	RegisterMethod(value.KindArray, "includes", func(this value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool(false), nil
		}
		for _, e := range this.Array.Elements {
			if value.StrictEquals(e, args[0]) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	})
	RegisterMethod(value.KindArray, "reverse", func(this value.Value, _ []value.Value) (value.Value, error) {
		e := this.Array.Elements
		for i, j := 0, len(e)-1; i < j; i, j = i+1, j-1 {
			e[i], e[j] = e[j], e[i]
		}
		return this, nil
	})
	RegisterMethod(value.KindArray, "has", func(this value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool(false), nil
		}
		i := int(args[0].ToNumber())
		return value.Bool(i >= 0 && i < len(this.Array.Elements)), nil
	})
	RegisterMethod(value.KindArray, "keys", func(this value.Value, _ []value.Value) (value.Value, error) {
		keys := make([]value.Value, len(this.Array.Elements))
		for i := range keys {
			keys[i] = value.String(strconv.Itoa(i))
		}
		return value.FromArray(value.NewArray(keys)), nil
	})
	RegisterMethod(value.KindArray, "toString", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.String(this.ToString()), nil
	})

	// map/filter/forEach/reduce need to invoke a UserFunction/HostFunction
	// callback, which a HostFunc cannot do on its own (it has no VM access
	// per its own contract) — internal/vm supplies vm-aware implementations
	// of these four names whenever GET_PROP looks one up on an array, instead
	// of here; see internal/vm/callback.go.
}
