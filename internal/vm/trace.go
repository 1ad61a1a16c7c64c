package vm

import (
	"fmt"

	"vellum/internal/bytecode"
)

// traceStep writes one line of dispatch trace when debugging is enabled
// (spec §4.5, §6.2 enable_debug/disable_debug). Verbosity increases with
// DebugLevel; DebugOff is the fast path and does no formatting at all.
func (vm *VM) traceStep(instr bytecode.Instruction) {
	switch vm.debugLevel {
	case DebugOff:
		return
	case DebugBasic:
		fmt.Fprintf(vm.trace, "pc=%-5d %s\n", vm.pc, instr.Op)
	case DebugDetail:
		fmt.Fprintf(vm.trace, "pc=%-5d %-12s operand=%-6d stack=%-3d frames=%d\n",
			vm.pc, instr.Op, instr.Operand, len(vm.stack), len(vm.frames))
	case DebugVerbose:
		fmt.Fprintf(vm.trace, "pc=%-5d %-12s operand=%-6d stack=%v frames=%d\n",
			vm.pc, instr.Op, instr.Operand, vm.stack, len(vm.frames))
	}
}
