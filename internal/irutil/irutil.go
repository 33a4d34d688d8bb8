// Package irutil holds small LLVM IR helpers shared across the pipeline
// packages: instruction counting, always-inline attribute plumbing, and
// call-site walking. None of it is specific to one stage of the pipeline,
// so it lives apart from internal/inline, internal/rewrite, and
// internal/optimize rather than duplicated in each.
package irutil

import (
	"strings"

	"tinygo.org/x/go-llvm"
)

// CountInstructions returns the number of IR instructions in fn, counted
// across every basic block. Used before/after each optimiser iteration to
// detect convergence (spec testable property: convergence is monotonic and
// bounded).
func CountInstructions(fn llvm.Value) int {
	n := 0
	for bb := fn.FirstBasicBlock(); !bb.IsNil(); bb = llvm.NextBasicBlock(bb) {
		for instr := bb.FirstInstruction(); !instr.IsNil(); instr = llvm.NextInstruction(instr) {
			n++
		}
	}
	return n
}

// CountModuleInstructions sums CountInstructions over every function
// definition in m (declarations have no body and contribute 0).
func CountModuleInstructions(m llvm.Module) int {
	total := 0
	for fn := m.FirstFunction(); !fn.IsNil(); fn = llvm.NextFunction(fn) {
		if fn.IsDeclaration() {
			continue
		}
		total += CountInstructions(fn)
	}
	return total
}

// alwaysInlineKindID is resolved once; the LLVM-C enum-attribute table is
// process-global and stable across a run.
var alwaysInlineKindID = llvm.AttributeKindID("alwaysinline")

// noInlineKindID mirrors alwaysInlineKindID for the "noinline" attribute,
// which SetAlwaysInline must clear before it can add "alwaysinline" —
// LLVM rejects a function carrying both.
var noInlineKindID = llvm.AttributeKindID("noinline")

// optNoneKindID mirrors the above for "optnone", which must be cleared
// before a function can be optimised or force-inlined at all.
var optNoneKindID = llvm.AttributeKindID("optnone")

// SetAlwaysInline stamps fn with the "alwaysinline" function attribute and
// clears "noinline"/"optnone" if present, mirroring
// Deobfuscator::setFunctionAlwayInline's single-function form.
func SetAlwaysInline(ctx llvm.Context, fn llvm.Value) {
	fn.RemoveEnumFunctionAttribute(noInlineKindID)
	fn.RemoveEnumFunctionAttribute(optNoneKindID)
	attr := ctx.CreateEnumAttribute(alwaysInlineKindID, 0)
	fn.AddFunctionAttr(attr)
}

// ClearAlwaysInline removes the "alwaysinline" attribute from fn, used once
// the optimiser has run and the attribute would otherwise keep forcing
// redundant inlining work on every later pass invocation.
func ClearAlwaysInline(fn llvm.Value) {
	fn.RemoveEnumFunctionAttribute(alwaysInlineKindID)
}

// HasAlwaysInline reports whether fn currently carries "alwaysinline".
func HasAlwaysInline(fn llvm.Value) bool {
	return !fn.GetEnumFunctionAttribute(alwaysInlineKindID).IsNil()
}

// IsCallInstruction reports whether v is a "call" instruction (as opposed
// to "invoke", which the wasm2c lowering never emits).
func IsCallInstruction(v llvm.Value) bool {
	return v.InstructionOpcode() == llvm.Call
}

// IsInlineAsmCall reports whether call is a call instruction whose callee
// operand is an inline-asm blob rather than a function, i.e. the
// "__asm __volatile__" side-effect markers wasm2c emits around atomics and
// that Deobfuscator::removeCallASMSideEffects strips outright since this
// tool never lowers to a real target that would need them honoured.
func IsInlineAsmCall(call llvm.Value) bool {
	if !IsCallInstruction(call) {
		return false
	}
	return !call.CalledValue().IsAInlineAsm().IsNil()
}

// WalkCalls invokes visit for every call instruction in f, in program order.
// visit may delete or otherwise mutate the instruction; WalkCalls snapshots
// the next pointer before calling visit so deletion of the current
// instruction does not invalidate iteration.
func WalkCalls(f llvm.Value, visit func(call llvm.Value)) {
	for bb := f.FirstBasicBlock(); !bb.IsNil(); bb = llvm.NextBasicBlock(bb) {
		instr := bb.FirstInstruction()
		for !instr.IsNil() {
			next := llvm.NextInstruction(instr)
			if IsCallInstruction(instr) {
				visit(instr)
			}
			instr = next
		}
	}
}

// CalledFunctionName returns the name of the function a call instruction
// targets, or "" if the callee is not a plain function value (e.g. an
// inline-asm blob or an indirect call through a function pointer).
func CalledFunctionName(call llvm.Value) string {
	callee := call.CalledValue()
	if callee.IsNil() {
		return ""
	}
	if callee.IsAFunction().IsNil() {
		return ""
	}
	return callee.Name()
}

// DumpFunction renders fn as LLVM assembly text for -v diagnostics. The
// teacher's own debug paths reach for String() the same way rather than a
// dedicated pretty-printer.
func DumpFunction(fn llvm.Value) string {
	return strings.TrimSpace(fn.String())
}

// FindFunction looks up name in m, returning the zero Value and false if
// it is absent or is only a declaration without a body.
func FindFunction(m llvm.Module, name string) (llvm.Value, bool) {
	fn := m.NamedFunction(name)
	if fn.IsNil() || fn.IsDeclaration() {
		return llvm.Value{}, false
	}
	return fn, true
}
