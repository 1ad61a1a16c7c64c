package vm

import "vellum/internal/value"

// CallValue invokes callee (a HostFunction or UserFunction) with args and
// this exactly as CALL would, and waits synchronously for its result. This
// is the hook host functions reach for when they need to invoke a
// script-supplied callback — value.HostFunc otherwise has no VM access (see
// its doc comment) — array.map/filter/forEach/reduce below are the only
// default built-ins that need it.
//
// It pushes a frame exactly like an ordinary call would, then re-enters the
// dispatch loop recursively with targetLen pinned to the frame depth just
// below the pushed frame: run returns the instant that frame's RET pops it,
// handing control back here without disturbing the pc or frame stack of
// whatever CALL/CALL_METHOD is already running further up the Go call
// stack — the same mechanism, run one level deeper.
func (vm *VM) CallValue(callee value.Value, args []value.Value, this value.Value) (value.Value, error) {
	if callee.Kind == value.KindHostFunction {
		return callee.HostFunction.Fn(this, args)
	}
	if callee.Kind != value.KindUserFunction {
		return value.Value{}, vmError("value is not callable")
	}
	savedPC := vm.pc
	targetLen := len(vm.frames)
	frame := &Frame{
		ReturnPC:        savedPC,
		Locals:          seedLocals(callee.UserFunction, args, this),
		CurrentFunction: callee.UserFunction,
		NewInstance:     value.Undefined,
	}
	vm.frames = append(vm.frames, frame)
	vm.pc = callee.UserFunction.EntryPC
	result, err := vm.run(targetLen)
	vm.pc = savedPC
	if err != nil {
		return value.Value{}, err
	}
	// RET also pushed result onto the operand stack; it is handed back to
	// the Go caller instead, so take it off again.
	vm.pop()
	return result, nil
}

// arrayCallback returns the vm-aware implementation of an Array.prototype
// method that needs to call back into script code, or false if name isn't
// one of the four. Checked by getProp ahead of the plain builtins.Lookup
// fallback (internal/builtins never gets a VM reference to wire these
// itself — see the comment at the end of internal/builtins/array.go).
func (vm *VM) arrayCallback(name string) (value.HostFunc, bool) {
	switch name {
	case "map":
		return func(this value.Value, args []value.Value) (value.Value, error) {
			fn, err := requireCallable("map", args)
			if err != nil {
				return value.Value{}, err
			}
			out := make([]value.Value, len(this.Array.Elements))
			for i, e := range this.Array.Elements {
				v, err := vm.CallValue(fn, []value.Value{e, value.Number(float64(i)), this}, vm.globalThis())
				if err != nil {
					return value.Value{}, err
				}
				out[i] = v
			}
			return value.FromArray(value.NewArray(out)), nil
		}, true

	case "filter":
		return func(this value.Value, args []value.Value) (value.Value, error) {
			fn, err := requireCallable("filter", args)
			if err != nil {
				return value.Value{}, err
			}
			var out []value.Value
			for i, e := range this.Array.Elements {
				v, err := vm.CallValue(fn, []value.Value{e, value.Number(float64(i)), this}, vm.globalThis())
				if err != nil {
					return value.Value{}, err
				}
				if v.Truthy() {
					out = append(out, e)
				}
			}
			return value.FromArray(value.NewArray(out)), nil
		}, true

	case "forEach":
		return func(this value.Value, args []value.Value) (value.Value, error) {
			fn, err := requireCallable("forEach", args)
			if err != nil {
				return value.Value{}, err
			}
			for i, e := range this.Array.Elements {
				if _, err := vm.CallValue(fn, []value.Value{e, value.Number(float64(i)), this}, vm.globalThis()); err != nil {
					return value.Value{}, err
				}
			}
			return value.Undefined, nil
		}, true

	case "reduce":
		return func(this value.Value, args []value.Value) (value.Value, error) {
			fn, err := requireCallable("reduce", args)
			if err != nil {
				return value.Value{}, err
			}
			elems := this.Array.Elements
			var acc value.Value
			start := 0
			if len(args) > 1 {
				acc = args[1]
			} else {
				if len(elems) == 0 {
					return value.Value{}, vmError("reduce of empty array with no initial value")
				}
				acc = elems[0]
				start = 1
			}
			for i := start; i < len(elems); i++ {
				v, err := vm.CallValue(fn, []value.Value{acc, elems[i], value.Number(float64(i)), this}, vm.globalThis())
				if err != nil {
					return value.Value{}, err
				}
				acc = v
			}
			return acc, nil
		}, true

	default:
		return nil, false
	}
}

func requireCallable(method string, args []value.Value) (value.Value, error) {
	if len(args) == 0 || !args[0].IsCallable() {
		return value.Value{}, vmError(method + " requires a function argument")
	}
	return args[0], nil
}
