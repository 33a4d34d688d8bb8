// Package inline implements the Inlining Director (component D): stamping
// the closed Inline Budget Set always-inline, driving the always-inliner
// to a fixed point for one target function, and stripping the inline-asm
// side-effect markers wasm2c leaves around atomic helper calls.
package inline

import (
	"github.com/pgarba/squanchy-go/internal/irutil"
	"github.com/pgarba/squanchy-go/internal/optimize"
	"github.com/pgarba/squanchy-go/internal/runtime"

	"tinygo.org/x/go-llvm"
)

// StampBudget marks every function named in runtime.Budget that exists as
// a definition in mod as always-inline, clearing any conflicting
// "noinline"/"optnone" attributes first.
//
// Grounded on Deobfuscator::setFunctionsAlwayInline, which iterates the
// same fixed name list.
func StampBudget(ctx llvm.Context, mod llvm.Module) {
	for _, name := range runtime.Budget {
		fn, ok := irutil.FindFunction(mod, name)
		if !ok {
			continue
		}
		irutil.SetAlwaysInline(ctx, fn)
	}
}

// ToFixedPoint repeatedly runs the always-inline pass over target's parent
// module until target contains no more call sites to a Budget-stamped
// function, or maxIterations is reached. It returns the number of passes
// actually run.
//
// The LLVM-C API this tool binds against (tinygo.org/x/go-llvm) has no
// equivalent of llvm::InlineFunction, so unlike Deobfuscator::inlineFunctions
// this does not walk and inline individual call sites directly; it drives
// the always-inliner pass in a loop and rechecks for remaining
// budget-flagged call sites after each run. See DESIGN.md's adaptation
// note.
func ToFixedPoint(target llvm.Value, tm llvm.TargetMachine, maxIterations int) (int, error) {
	mod := target.GlobalParent()

	for i := 0; i < maxIterations; i++ {
		if !hasBudgetCall(target) {
			return i, nil
		}
		if err := optimize.RunAlwaysInlinePass(mod, tm); err != nil {
			return i, err
		}
	}

	return maxIterations, nil
}

// hasBudgetCall reports whether target still directly calls a
// runtime.Budget function that is a definition carrying "alwaysinline"
// (not through an inline-asm wrapper, which StripInlineAsmCalls handles
// separately). Calls to Budget names that are only declarations do not
// count, since the always-inliner cannot remove them.
func hasBudgetCall(target llvm.Value) bool {
	found := false
	irutil.WalkCalls(target, func(call llvm.Value) {
		if found {
			return
		}
		name := irutil.CalledFunctionName(call)
		if name == "" || !runtime.InBudget(name) {
			return
		}
		callee := call.CalledValue()
		if !callee.IsDeclaration() && irutil.HasAlwaysInline(callee) {
			found = true
		}
	})
	return found
}

// StripInlineAsmCalls deletes every inline-asm call instruction in target.
// wasm2c emits these around atomic read-modify-write sequences as a
// memory-ordering fence for targets that care about threads; this tool's
// Non-goals exclude thread support entirely, so the fences are dead
// weight that would otherwise block later folding passes from treating
// the surrounding loads/stores as orderinary memory operations.
//
// Grounded on Deobfuscator::removeCallASMSideEffects.
func StripInlineAsmCalls(target llvm.Value) {
	var dead []llvm.Value
	irutil.WalkCalls(target, func(call llvm.Value) {
		if irutil.IsInlineAsmCall(call) {
			dead = append(dead, call)
		}
	})
	for _, call := range dead {
		call.InstructionEraseFromParent()
	}
}
