package builtins

import (
	"fmt"
	"math"

	"vellum/internal/value"
)

func init() {
	RegisterGlobal("undefined", value.Undefined)
	RegisterGlobal("NaN", value.Number(math.NaN()))
	RegisterGlobal("Infinity", value.Number(math.Inf(1)))

	registerConsole()
	registerMath()
	registerGlobalFunctions()
	registerCoercionFunctions()
}

func registerConsole() {
	logFn := value.HostFunc(func(_ value.Value, args []value.Value) (value.Value, error) {
		parts := make([]interface{}, len(args))
		for i, a := range args {
			parts[i] = a.ToString()
		}
		s := ""
		for i, p := range parts {
			if i > 0 {
				s += " "
			}
			s += p.(string)
		}
		fmt.Println(s)
		return value.Undefined, nil
	})
	console := value.NewObject()
	console.Set("log", value.FromHostFunction(&value.HostFunction{Name: "log", Fn: logFn}))
	RegisterGlobal("console", value.FromObject(console))
}

func registerMath() {
	m := value.NewObject()
	m.Set("PI", value.Number(math.Pi))
	m.Set("E", value.Number(math.E))

	unary := func(f func(float64) float64) value.HostFunc {
		return func(_ value.Value, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.Number(math.NaN()), nil
			}
			return value.Number(f(args[0].ToNumber())), nil
		}
	}
	fn := func(name string, hf value.HostFunc) {
		m.Set(name, value.FromHostFunction(&value.HostFunction{Name: name, Fn: hf}))
	}
	fn("abs", unary(math.Abs))
	fn("floor", unary(math.Floor))
	fn("ceil", unary(math.Ceil))
	fn("round", unary(math.Round))
	fn("sqrt", unary(math.Sqrt))
	fn("sin", unary(math.Sin))
	fn("cos", unary(math.Cos))
	fn("tan", unary(math.Tan))
	fn("max", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number(math.Inf(-1)), nil
		}
		best := args[0].ToNumber()
		for _, a := range args[1:] {
			if n := a.ToNumber(); n > best {
				best = n
			}
		}
		return value.Number(best), nil
	})
	fn("min", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number(math.Inf(1)), nil
		}
		best := args[0].ToNumber()
		for _, a := range args[1:] {
			if n := a.ToNumber(); n < best {
				best = n
			}
		}
		return value.Number(best), nil
	})
	fn("pow", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) < 2 {
			return value.Number(math.NaN()), nil
		}
		return value.Number(math.Pow(args[0].ToNumber(), args[1].ToNumber())), nil
	})
	fn("random", func(_ value.Value, args []value.Value) (value.Value, error) {
		return value.Number(pseudoRandom()), nil
	})
	RegisterGlobal("Math", value.FromObject(m))
}

// pseudoRandom is a tiny xorshift generator seeded once at process start.
// The language sandbox forbids reaching into crypto/rand or the wall clock
// from script code, so Math.random draws from an in-process generator
// instead of math/rand's global lock.
var randState uint64 = 0x2545F4914F6CDD1D

func pseudoRandom() float64 {
	randState ^= randState << 13
	randState ^= randState >> 7
	randState ^= randState << 17
	return float64(randState>>11) / float64(1<<53)
}

func registerGlobalFunctions() {
	RegisterFunc("parseInt", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number(math.NaN()), nil
		}
		n := args[0].ToNumber()
		if math.IsNaN(n) {
			return value.Number(math.NaN()), nil
		}
		return value.Number(math.Trunc(n)), nil
	})
	RegisterFunc("parseFloat", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number(math.NaN()), nil
		}
		return value.Number(args[0].ToNumber()), nil
	})
	RegisterFunc("isNaN", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool(true), nil
		}
		return value.Bool(math.IsNaN(args[0].ToNumber())), nil
	})
	RegisterFunc("isFinite", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool(false), nil
		}
		n := args[0].ToNumber()
		return value.Bool(!math.IsNaN(n) && !math.IsInf(n, 0)), nil
	})
}

// registerCoercionFunctions binds String/Number/Boolean/Object/Array as
// plain callables (`String(5)` -> "5") in addition to the `new`-dispatch
// path ConstructBuiltin covers.
func registerCoercionFunctions() {
	RegisterFunc("String", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.String(""), nil
		}
		return value.String(args[0].ToString()), nil
	})
	RegisterFunc("Number", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number(0), nil
		}
		return value.Number(args[0].ToNumber()), nil
	})
	RegisterFunc("Boolean", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool(false), nil
		}
		return value.Bool(args[0].Truthy()), nil
	})
	RegisterFunc("Object", func(_ value.Value, args []value.Value) (value.Value, error) {
		v, _ := ConstructBuiltin("Object", args)
		return v, nil
	})
	RegisterFunc("Array", func(_ value.Value, args []value.Value) (value.Value, error) {
		v, _ := ConstructBuiltin("Array", args)
		return v, nil
	})
}
