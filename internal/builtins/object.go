package builtins

import "vellum/internal/value"

func init() {
	RegisterMethod(value.KindObject, "keys", func(this value.Value, _ []value.Value) (value.Value, error) {
		ks := this.Object.Keys()
		elems := make([]value.Value, len(ks))
		for i, k := range ks {
			elems[i] = value.String(k)
		}
		return value.FromArray(value.NewArray(elems)), nil
	})
	RegisterMethod(value.KindObject, "values", func(this value.Value, _ []value.Value) (value.Value, error) {
		ks := this.Object.Keys()
		elems := make([]value.Value, len(ks))
		for i, k := range ks {
			v, _ := this.Object.Get(k)
			elems[i] = v
		}
		return value.FromArray(value.NewArray(elems)), nil
	})
	RegisterMethod(value.KindObject, "has", func(this value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool(false), nil
		}
		_, ok := this.Object.Get(args[0].ToString())
		return value.Bool(ok), nil
	})
	RegisterMethod(value.KindObject, "hasOwnProperty", func(this value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool(false), nil
		}
		_, ok := this.Object.Get(args[0].ToString())
		return value.Bool(ok), nil
	})
	RegisterMethod(value.KindObject, "toString", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.String(this.ToString()), nil
	})
}
