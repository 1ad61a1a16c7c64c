package vm

import (
	"math"

	"vellum/internal/builtins"
	"vellum/internal/bytecode"
	"vellum/internal/value"
	"vellum/internal/vmerr"
)

// run is the single dispatch loop shared by top-level execution and every
// nested call. targetLen is -1 for a top-level run, which only stops on
// OpHalt; for a synthetic call made through CallValue it is the frame depth
// the pushed frame will pop back to, so a RET that reaches it hands control
// straight back to the Go caller instead of continuing the loop.
//
// Ordinary user-code calls (CALL/CALL_METHOD/NEW against a UserFunction) are
// handled inline, in the same iteration, by pushing a Frame and jumping
// pc — never by recursing into run() again. Recursion only happens when a
// host function needs to invoke a script callback (map/filter/forEach/
// reduce), via CallValue in callback.go.
func (vm *VM) run(targetLen int) (value.Value, error) {
	for {
		if vm.pc < 0 || vm.pc >= len(vm.prog.Instructions) {
			return value.Value{}, vm.runtimeErrf(bytecode.OpNop, "program counter %d out of range", vm.pc)
		}
		instr := vm.prog.Instructions[vm.pc]

		vm.instrCount++
		if vm.maxInstructions > 0 && vm.instrCount > vm.maxInstructions {
			return value.Value{}, &vmerr.BudgetError{Limit: vm.maxInstructions}
		}
		vm.traceStep(instr)

		advance := true

		switch instr.Op {
		case bytecode.OpNop:
			// no-op

		case bytecode.OpHalt:
			return vm.topOrUndefined(), nil

		case bytecode.OpPush:
			if instr.Operand < 0 || instr.Operand >= len(vm.prog.Constants) {
				return value.Value{}, vm.runtimeErrf(instr.Op, "constant index %d out of range", instr.Operand)
			}
			vm.push(vm.prog.Constants[instr.Operand])

		case bytecode.OpPop:
			if _, err := vm.pop(); err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}

		case bytecode.OpDup:
			v, err := vm.peek()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(v)

		case bytecode.OpAdd:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			if a.Kind == value.KindString || b.Kind == value.KindString {
				vm.push(value.String(a.ToString() + b.ToString()))
			} else {
				vm.push(value.Number(a.ToNumber() + b.ToNumber()))
			}

		case bytecode.OpSub:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Number(a.ToNumber() - b.ToNumber()))

		case bytecode.OpMul:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Number(a.ToNumber() * b.ToNumber()))

		case bytecode.OpDiv:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Number(a.ToNumber() / b.ToNumber()))

		case bytecode.OpMod:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Number(math.Mod(a.ToNumber(), b.ToNumber())))

		case bytecode.OpNeg:
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Number(-v.ToNumber()))

		case bytecode.OpShl:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Number(float64(a.ToInt32() << (uint32(b.ToInt32()) & 31))))

		case bytecode.OpShr:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Number(float64(a.ToInt32() >> (uint32(b.ToInt32()) & 31))))

		case bytecode.OpUshr:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Number(float64(a.ToUint32() >> (uint32(b.ToInt32()) & 31))))

		case bytecode.OpBitAnd:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Number(float64(a.ToInt32() & b.ToInt32())))

		case bytecode.OpBitOr:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Number(float64(a.ToInt32() | b.ToInt32())))

		case bytecode.OpBitXor:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Number(float64(a.ToInt32() ^ b.ToInt32())))

		case bytecode.OpBitNot:
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Number(float64(^v.ToInt32())))

		case bytecode.OpEq:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Bool(value.StrictEquals(a, b)))

		case bytecode.OpNe:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Bool(!value.StrictEquals(a, b)))

		case bytecode.OpLt:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Bool(compareValues(a, b) < 0))

		case bytecode.OpLe:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Bool(compareValues(a, b) <= 0))

		case bytecode.OpGt:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Bool(compareValues(a, b) == 1))

		case bytecode.OpGe:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			c := compareValues(a, b)
			vm.push(value.Bool(c == 0 || c == 1))

		case bytecode.OpAnd:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Bool(a.Truthy() && b.Truthy()))

		case bytecode.OpOr:
			b, a, err := vm.pop2()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Bool(a.Truthy() || b.Truthy()))

		case bytecode.OpNot:
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.Bool(!v.Truthy()))

		case bytecode.OpTypeof:
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.String(v.TypeOf()))

		case bytecode.OpLoad:
			name, err := vm.constName(instr.Operand)
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			v, ok := vm.load(name)
			if !ok {
				return value.Value{}, vm.runtimeErrf(instr.Op, "%s is not defined", name)
			}
			vm.push(v)

		case bytecode.OpStore:
			name, err := vm.constName(instr.Operand)
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.store(name, v)

		case bytecode.OpDeclare:
			name, err := vm.constName(instr.Operand)
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.declare(name, v)

		case bytecode.OpJmp:
			vm.pc = instr.Operand
			advance = false

		case bytecode.OpJif:
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			if !v.Truthy() {
				vm.pc = instr.Operand
				advance = false
			}

		case bytecode.OpJnf:
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			if v.Truthy() {
				vm.pc = instr.Operand
				advance = false
			}

		case bytecode.OpCall:
			callee, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			args, err := vm.popArgs(instr.Operand)
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			result, immediate, err := vm.enterCall(instr.Op, callee, args, vm.globalThis(), vm.pc+1)
			if err != nil {
				return value.Value{}, err
			}
			if immediate {
				vm.push(result)
			} else {
				advance = false
			}

		case bytecode.OpCallMethod:
			callee, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			receiver, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			args, err := vm.popArgs(instr.Operand)
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			result, immediate, err := vm.enterCall(instr.Op, callee, args, receiver, vm.pc+1)
			if err != nil {
				return value.Value{}, err
			}
			if immediate {
				vm.push(result)
			} else {
				advance = false
			}

		case bytecode.OpNew:
			callee, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			args, err := vm.popArgs(instr.Operand)
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			switch callee.Kind {
			case value.KindHostFunction:
				name := callee.HostFunction.Name
				var result value.Value
				if builtins.IsWellKnownConstructor(name) {
					v, ok := builtins.ConstructBuiltin(name, args)
					if !ok {
						return value.Value{}, vm.runtimeErrf(instr.Op, "%s is not a constructor", name)
					}
					result = v
				} else {
					r, cerr := callee.HostFunction.Fn(value.Undefined, args)
					if cerr != nil {
						return value.Value{}, vm.runtimeErrf(instr.Op, "%s", cerr.Error())
					}
					result = r
				}
				vm.push(result)
			case value.KindUserFunction:
				newInstance := value.FromObject(value.NewObject())
				frame := &Frame{
					ReturnPC:        vm.pc + 1,
					Locals:          seedLocals(callee.UserFunction, args, newInstance),
					IsConstructor:   true,
					NewInstance:     newInstance,
					CurrentFunction: callee.UserFunction,
				}
				vm.frames = append(vm.frames, frame)
				vm.pc = callee.UserFunction.EntryPC
				advance = false
			default:
				return value.Value{}, vm.runtimeErrf(instr.Op, "value of type %s is not a constructor", callee.Kind)
			}

		case bytecode.OpRet:
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			if len(vm.frames) == 0 {
				return value.Value{}, vm.runtimeErrf(instr.Op, "return with no active call")
			}
			frame := vm.frames[len(vm.frames)-1]
			vm.frames = vm.frames[:len(vm.frames)-1]

			result := v
			if frame.IsConstructor {
				if result.Kind != value.KindObject && result.Kind != value.KindArray && result.Kind != value.KindHostObject {
					result = frame.NewInstance
				}
			}
			result = vm.captureOnReturn(frame, result)

			vm.pc = frame.ReturnPC
			vm.push(result)
			advance = false

			if targetLen >= 0 && len(vm.frames) == targetLen {
				return result, nil
			}

		case bytecode.OpNewObj:
			n := instr.Operand
			pairs, err := vm.popN(2 * n)
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			obj := value.NewObject()
			for i := 0; i < n; i++ {
				key := pairs[2*i]
				val := pairs[2*i+1]
				obj.Set(key.ToString(), val)
			}
			vm.push(value.FromObject(obj))

		case bytecode.OpGetProp:
			key, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			obj, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			v, gerr := vm.getProp(obj, key)
			if gerr != nil {
				return value.Value{}, gerr
			}
			vm.push(v)

		case bytecode.OpSetProp:
			key, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			obj, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			val, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			result, serr := vm.setProp(obj, key, val)
			if serr != nil {
				return value.Value{}, serr
			}
			vm.push(result)

		case bytecode.OpNewArr:
			n := instr.Operand
			elems, err := vm.popN(n)
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			vm.push(value.FromArray(value.NewArray(elems)))

		case bytecode.OpGetElem:
			key, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			obj, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			v, gerr := vm.getProp(obj, key)
			if gerr != nil {
				return value.Value{}, gerr
			}
			vm.push(v)

		case bytecode.OpSetElem:
			key, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			obj, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			val, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			result, serr := vm.setProp(obj, key, val)
			if serr != nil {
				return value.Value{}, serr
			}
			vm.push(result)

		case bytecode.OpThrow:
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.wrapErr(instr.Op, err)
			}
			return value.Value{}, vm.runtimeErrf(instr.Op, "uncaught exception: %s", v.ToString())

		default:
			return value.Value{}, vm.runtimeErrf(instr.Op, "unimplemented opcode")
		}

		if advance {
			vm.pc++
		}
	}
}

// pop2 pops the right-hand operand first (it is on top), then the left, and
// returns them as (right, left) so callers can write `b, a, err := vm.pop2()`
// matching the usual a-op-b reading order.
func (vm *VM) pop2() (value.Value, value.Value, error) {
	b, err := vm.pop()
	if err != nil {
		return value.Value{}, value.Value{}, err
	}
	a, err := vm.pop()
	if err != nil {
		return value.Value{}, value.Value{}, err
	}
	return b, a, nil
}

func (vm *VM) constName(idx int) (string, error) {
	if idx < 0 || idx >= len(vm.prog.Constants) {
		return "", vmError("constant index out of range")
	}
	return vm.prog.Constants[idx].Str, nil
}

type vmError string

func (e vmError) Error() string { return string(e) }

func (vm *VM) wrapErr(op bytecode.Op, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*vmerr.RuntimeError); ok {
		return err
	}
	return vm.runtimeErrf(op, "%s", err.Error())
}

// compareValues implements the language's relational-operator ordering:
// lexicographic when both operands are strings, numeric otherwise (matching
// ToNumber coercion, so a NaN operand makes every comparison false via the
// caller's <,<=,>,>= check against the returned sentinel).
func compareValues(a, b value.Value) int {
	if a.Kind == value.KindString && b.Kind == value.KindString {
		switch {
		case a.Str < b.Str:
			return -1
		case a.Str > b.Str:
			return 1
		default:
			return 0
		}
	}
	an, bn := a.ToNumber(), b.ToNumber()
	if math.IsNaN(an) || math.IsNaN(bn) {
		return 2 // neither < nor <= nor > nor >= will match
	}
	switch {
	case an < bn:
		return -1
	case an > bn:
		return 1
	default:
		return 0
	}
}

func seedLocals(fn *value.UserFunction, args []value.Value, this value.Value) map[string]value.Value {
	locals := make(map[string]value.Value, len(fn.Params)+1)
	for i, p := range fn.Params {
		if i < len(args) {
			locals[p] = args[i]
		} else {
			locals[p] = value.Undefined
		}
	}
	locals["this"] = this
	return locals
}

// enterCall dispatches a resolved callee. A HostFunction call happens
// synchronously and returns immediate=true with its result. A UserFunction
// call instead pushes a Frame and repoints vm.pc at its entry, returning
// immediate=false so the dispatch loop skips the generic pc++ and lets the
// pushed frame's own instructions run in the next iteration.
func (vm *VM) enterCall(op bytecode.Op, callee value.Value, args []value.Value, this value.Value, returnPC int) (value.Value, bool, error) {
	switch callee.Kind {
	case value.KindHostFunction:
		v, err := callee.HostFunction.Fn(this, args)
		if err != nil {
			return value.Value{}, true, vm.runtimeErrf(op, "%s", err.Error())
		}
		return v, true, nil
	case value.KindUserFunction:
		frame := &Frame{
			ReturnPC:        returnPC,
			Locals:          seedLocals(callee.UserFunction, args, this),
			CurrentFunction: callee.UserFunction,
			NewInstance:     value.Undefined,
		}
		vm.frames = append(vm.frames, frame)
		vm.pc = callee.UserFunction.EntryPC
		return value.Value{}, false, nil
	default:
		return value.Value{}, true, vm.runtimeErrf(op, "value of type %s is not callable", callee.Kind)
	}
}

// getProp implements GET_PROP/GET_ELEM: own-property lookup on Object,
// numeric indexing on Array and String, then the shared builtin
// prototype-method fallback (spec §4.4.7). A miss on a non-null receiver
// yields undefined rather than an error; only indexing through null or
// undefined itself is a RuntimeError.
func (vm *VM) getProp(receiver, key value.Value) (value.Value, error) {
	switch receiver.Kind {
	case value.KindUndefined, value.KindNull:
		return value.Value{}, vm.runtimeErrf(bytecode.OpGetProp, "cannot read property %q of %s", key.ToString(), receiver.Kind)
	case value.KindObject:
		if v, ok := receiver.Object.Get(key.ToString()); ok {
			return v, nil
		}
	case value.KindArray:
		if key.Kind == value.KindNumber {
			i := int(key.Number)
			if i >= 0 && i < len(receiver.Array.Elements) {
				return receiver.Array.Elements[i], nil
			}
			return value.Undefined, nil
		}
		if fn, ok := vm.arrayCallback(key.ToString()); ok {
			return value.FromHostFunction(&value.HostFunction{Name: key.ToString(), Fn: fn}), nil
		}
	case value.KindString:
		if key.Kind == value.KindNumber {
			runes := []rune(receiver.Str)
			i := int(key.Number)
			if i >= 0 && i < len(runes) {
				return value.String(string(runes[i])), nil
			}
			return value.Undefined, nil
		}
	}
	if v, ok := builtins.Lookup(receiver, key.ToString()); ok {
		return v, nil
	}
	return value.Undefined, nil
}

// setProp implements SET_PROP/SET_ELEM. Assigning past an array's end
// extends it with undefined filler (spec §8 boundary behavior); assigning
// to anything else that isn't an object or array is a RuntimeError.
func (vm *VM) setProp(receiver, key, val value.Value) (value.Value, error) {
	switch receiver.Kind {
	case value.KindObject:
		receiver.Object.Set(key.ToString(), val)
		return val, nil
	case value.KindArray:
		i := int(key.ToNumber())
		if i < 0 {
			return value.Value{}, vm.runtimeErrf(bytecode.OpSetProp, "invalid array index %s", key.ToString())
		}
		if i >= len(receiver.Array.Elements) {
			grown := make([]value.Value, i+1)
			copy(grown, receiver.Array.Elements)
			for j := len(receiver.Array.Elements); j < i; j++ {
				grown[j] = value.Undefined
			}
			receiver.Array.Elements = grown
		}
		receiver.Array.Elements[i] = val
		return val, nil
	default:
		return value.Value{}, vm.runtimeErrf(bytecode.OpSetProp, "cannot set property %q on %s", key.ToString(), receiver.Kind)
	}
}
