// Package llvmtest holds small, hand-written .ll fixtures shared by the
// pipeline packages' tests, plus the embed.FS/parsing glue that turns one
// into a fresh llvm.Context and llvm.Module.
package llvmtest

import (
	"embed"
	"os"
	"path"

	"tinygo.org/x/go-llvm"
)

//go:embed testdata/*.ll
var FS embed.FS

// Parse loads the named fixture (e.g. "entry.ll") out of testdata into a
// freshly created context. Use ParseInto instead when a test needs two
// fixtures sharing one context (e.g. linking or loader.LoadPair-style
// pairs, which require both modules to live in the same llvm.Context).
func Parse(name string) (llvm.Context, llvm.Module, error) {
	ctx := llvm.NewContext()
	mod, err := ParseInto(ctx, name)
	if err != nil {
		ctx.Dispose()
		return llvm.Context{}, llvm.Module{}, err
	}
	return ctx, mod, nil
}

// ParseInto loads the named fixture into the given (already-created)
// context. ctx.ParseIR needs a memory buffer backed by a real file, so the
// embedded bytes are spilled to a temp file first and removed once parsing
// completes.
func ParseInto(ctx llvm.Context, name string) (llvm.Module, error) {
	data, err := FS.ReadFile(path.Join("testdata", name))
	if err != nil {
		return llvm.Module{}, err
	}

	tmp, err := os.CreateTemp("", "llvmtest-*.ll")
	if err != nil {
		return llvm.Module{}, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return llvm.Module{}, err
	}
	if err := tmp.Close(); err != nil {
		return llvm.Module{}, err
	}

	buf, err := llvm.NewMemoryBufferFromFile(tmp.Name())
	if err != nil {
		return llvm.Module{}, err
	}

	return ctx.ParseIR(buf)
}
