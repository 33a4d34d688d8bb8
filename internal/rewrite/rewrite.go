// Package rewrite implements the Entry Rewriter (component E): allocating
// the instance and environment structs on the caller's stack in place of
// the opaque instance pointer wasm2c's generated entry points take as
// their first argument, calling wasm2c_<module>_instantiate to initialize
// them, and replacing every remaining use of that first parameter with
// the freshly-allocated instance.
package rewrite

import (
	"fmt"

	"github.com/pgarba/squanchy-go/internal/runtime"
	"github.com/pgarba/squanchy-go/internal/squerr"

	"tinygo.org/x/go-llvm"
)

// Config carries the module name and knobs the rewrite step needs.
type Config struct {
	// ModuleName is the wasm2c module identifier (the "-module-name"
	// flag), used to build struct.w2c_<ModuleName> and
	// wasm2c_<ModuleName>_instantiate.
	ModuleName string
	// ReplaceCallocs enables folding dynamic malloc-style allocation
	// calls wasm2c emits for its sbrk-style heap into a fixed-size
	// stack buffer. Off by default: see DESIGN.md Open Question 2.
	ReplaceCallocs bool
}

// structName returns the instance struct type name wasm2c publishes for
// the given module identifier.
func structName(moduleName string) string {
	return "struct.w2c_" + moduleName
}

// envStructName is the environment struct wasm2c's runtime publishes
// alongside the per-module instance struct; unlike structName it does not
// vary by module identifier (spec §4.E step 3).
const envStructName = "struct.w2c_env"

func instantiateName(moduleName string) string {
	return "wasm2c_" + moduleName + "_instantiate"
}

// Function rewrites a single entry function in place. fn's first
// parameter — the opaque instance pointer every wasm2c-lifted function
// takes — is replaced by a stack-allocated instance, initialized via a
// call to wasm2c_<module>_instantiate inserted at the top of the entry
// block. Per spec §3/§4.E, the instantiate call takes two allocations: the
// w2c_<module> instance and the w2c_env environment struct.
//
// Grounded on Deobfuscator::deobfuscateFunction steps 1–4: locate the
// instance struct type (fatal if missing — there is no safe fallback size
// for the per-module instance), locate the environment struct type
// (falling back to a byte-sized buffer sized by the w2c_env_size constant
// when the type is missing, matching the original's 80-byte literal
// fallback generalized to a named constant), build both allocas with an
// IRBuilder positioned before the function's first instruction, call the
// instantiate function with both, and replace all uses of the original
// parameter.
func Function(ctx llvm.Context, fn llvm.Value, cfg Config) error {
	mod := fn.GlobalParent()

	params := fn.Params()
	if len(params) == 0 {
		return squerr.New(squerr.MissingStructType, fn.Name()+" (no parameters)")
	}
	instanceParam := params[0]

	instTy, err := resolveInstanceType(ctx, mod, cfg.ModuleName)
	if err != nil {
		return err
	}

	envTy, err := resolveEnvType(ctx, mod)
	if err != nil {
		return err
	}

	instantiateFn := mod.NamedFunction(instantiateName(cfg.ModuleName))
	if instantiateFn.IsNil() {
		return squerr.New(squerr.MissingFunction, instantiateName(cfg.ModuleName))
	}

	entry := fn.FirstBasicBlock()
	if entry.IsNil() {
		return squerr.New(squerr.ParseError, fn.Name()+" (no entry block)")
	}

	b := ctx.NewBuilder()
	defer b.Dispose()
	b.SetInsertPointBefore(entry.FirstInstruction())

	instAlloca := b.CreateAlloca(instTy, "w2c_instance")
	envAlloca := b.CreateAlloca(envTy, "w2c_env")
	b.CreateCall(instantiateFn.GlobalValueType(), instantiateFn, []llvm.Value{instAlloca, envAlloca}, "")

	instanceParam.ReplaceAllUsesWith(instAlloca)

	if cfg.ReplaceCallocs {
		ReplaceCallocs(fn)
	}

	HandleFuncrefTableInit(mod, instAlloca)

	return nil
}

// resolveInstanceType finds struct.w2c_<module> in mod. Unlike the
// environment struct, the per-module instance struct has no safe
// size-only fallback (its layout, not just its size, varies per module),
// so its absence is always fatal.
func resolveInstanceType(ctx llvm.Context, mod llvm.Module, moduleName string) (llvm.Type, error) {
	name := structName(moduleName)
	ty := ctx.TypeByName(name)
	if ty.IsNil() {
		return llvm.Type{}, squerr.New(squerr.MissingStructType, name)
	}
	return ty, nil
}

// resolveEnvType finds struct.w2c_env in mod, or a fallback sized by the
// w2c_env_size constant when the named struct type is absent. A module that
// has neither is squerr.MissingEnvSize — there is no safe size to
// allocate.
func resolveEnvType(ctx llvm.Context, mod llvm.Module) (llvm.Type, error) {
	ty := ctx.TypeByName(envStructName)
	if !ty.IsNil() {
		return ty, nil
	}

	sizeGlobal := mod.NamedGlobal(runtime.EnvSizeConstant)
	if sizeGlobal.IsNil() {
		return llvm.Type{}, squerr.New(squerr.MissingEnvSize, fmt.Sprintf("%s (and no %s fallback)", envStructName, runtime.EnvSizeConstant))
	}

	init := sizeGlobal.Initializer()
	if init.IsNil() {
		return llvm.Type{}, squerr.New(squerr.MissingEnvSize, envStructName)
	}
	size := init.SExtValue()
	if size <= 0 {
		size = 80 // matches Deobfuscator.cpp's literal fallback when even the size constant is unusable.
	}

	return llvm.ArrayType(ctx.Int8Type(), int(size)), nil
}

// ReplaceCallocs rewrites calls to calloc inside fn into
// allocas sized by the constant-folded argument product, when the size is
// statically known. This is experimental and off by default (see
// DESIGN.md Open Question 2): wasm2c's heap growth path can legitimately
// need a runtime-sized allocation this cannot fold, in which case the
// call is left untouched rather than guessed at.
func ReplaceCallocs(fn llvm.Value) {
	var targets []llvm.Value
	for bb := fn.FirstBasicBlock(); !bb.IsNil(); bb = llvm.NextBasicBlock(bb) {
		for instr := bb.FirstInstruction(); !instr.IsNil(); instr = llvm.NextInstruction(instr) {
			if instr.InstructionOpcode() != llvm.Call {
				continue
			}
			callee := instr.CalledValue()
			if callee.IsNil() || callee.IsAFunction().IsNil() {
				continue
			}
			if callee.Name() != "calloc" {
				continue
			}
			targets = append(targets, instr)
		}
	}

	for _, call := range targets {
		replaceCallocCall(fn, call)
	}
}

func replaceCallocCall(fn llvm.Value, call llvm.Value) {
	if call.OperandsCount() < 2 {
		return
	}
	count := call.Operand(0)
	size := call.Operand(1)
	if count.IsAConstantInt().IsNil() || size.IsAConstantInt().IsNil() {
		return // dynamic size: leave the runtime calloc call in place.
	}

	total := count.SExtValue() * size.SExtValue()
	if total <= 0 {
		return
	}

	ctx := fn.GlobalParent().Context()
	b := ctx.NewBuilder()
	defer b.Dispose()

	entry := fn.FirstBasicBlock()
	b.SetInsertPointBefore(entry.FirstInstruction())
	arrTy := llvm.ArrayType(ctx.Int8Type(), int(total))
	alloca := b.CreateAlloca(arrTy, "replaced_calloc")

	call.ReplaceAllUsesWith(alloca)
	call.InstructionEraseFromParent()
}

// HandleFuncrefTableInit is a best-effort, experimental pass handling a
// funcref-table initializer pattern wasm2c emits for modules with a
// table-export section. It is unconditional (not gated by a flag) but
// never fatal: if the expected global isn't present — most modules don't
// have one — it is simply a no-op.
//
// Grounded on the handle_funcref_table_init/replaceFUNCREF_TABLE method
// names declared (but never bodied, across every kept Deobfuscator.cpp
// revision) in original_source/src/Deobfuscator.h; the FUNCREF_TABLE
// global name and its role are inferred from wasm2c's table
// initialization conventions in original_source/runtime/wasm_runtime.cpp
// rather than from a surviving implementation. See DESIGN.md Open
// Question 3.
func HandleFuncrefTableInit(mod llvm.Module, instAlloca llvm.Value) {
	tableGlobal := mod.NamedGlobal("FUNCREF_TABLE")
	if tableGlobal.IsNil() {
		return
	}
	// Best-effort: every use of the placeholder global is pointed at the
	// instance allocation itself, not at a table field inside it (the
	// field's index is not recoverable without struct debug info). No
	// create_table call is inserted.
	tableGlobal.ReplaceAllUsesWith(instAlloca)
}
