// Package loader implements the Module Loader (component B): parsing the
// input IR and the runtime blob into a shared context, and normalizing
// target triple and data layout so the Runtime Linker (internal/linker)
// never has to reconcile mismatched ones itself.
package loader

import (
	"os"

	"github.com/pgarba/squanchy-go/internal/squerr"

	"tinygo.org/x/go-llvm"
)

// Pair holds the target module (the wasm2c-lifted input) and the runtime
// module, both parsed into the same context so values can move between
// them without an import/remap step.
type Pair struct {
	Context llvm.Context
	Target  llvm.Module
	Runtime llvm.Module
}

// Dispose releases the shared context.
func (p *Pair) Dispose() {
	p.Context.Dispose()
}

// LoadPair parses targetPath and runtimePath into one context and
// normalizes the runtime module's target triple and data layout to match
// the target module's, since the runtime blob is compiled independently
// and LLVM's linker refuses to merge modules with conflicting layouts.
//
// Mirrors Deobfuscator's constructor, which parses both modules up front
// before any transformation begins.
func LoadPair(targetPath, runtimePath string) (*Pair, error) {
	ctx := llvm.NewContext()

	target, err := parseInto(ctx, targetPath)
	if err != nil {
		ctx.Dispose()
		return nil, squerr.Wrap(squerr.ParseError, targetPath, err)
	}

	runtime, err := parseInto(ctx, runtimePath)
	if err != nil {
		ctx.Dispose()
		kind := squerr.ParseError
		if _, statErr := os.Stat(runtimePath); runtimePath == "" || statErr != nil {
			kind = squerr.MissingRuntime
		}
		return nil, squerr.Wrap(kind, runtimePath, err)
	}

	normalize(target, runtime)

	return &Pair{Context: ctx, Target: target, Runtime: runtime}, nil
}

// Load parses a single module (used by the CLI's -list-functions path and
// by tests that only need the target module).
func Load(path string) (llvm.Context, llvm.Module, error) {
	ctx := llvm.NewContext()
	mod, err := parseInto(ctx, path)
	if err != nil {
		ctx.Dispose()
		return llvm.Context{}, llvm.Module{}, squerr.Wrap(squerr.ParseError, path, err)
	}
	return ctx, mod, nil
}

func parseInto(ctx llvm.Context, path string) (llvm.Module, error) {
	buf, err := llvm.NewMemoryBufferFromFile(path)
	if err != nil {
		return llvm.Module{}, err
	}
	return ctx.ParseIR(buf)
}

// normalize overwrites runtime's target triple and data layout with
// target's. The runtime blob's own layout is a build-time artifact of
// whatever host compiled it; once linked, only the target module's layout
// matters for codegen, and LLVM's Linker.LinkModules will error on a
// layout mismatch unless the two already agree.
func normalize(target, runtime llvm.Module) {
	runtime.SetTarget(target.Target())
	runtime.SetDataLayout(target.DataLayout())
}
