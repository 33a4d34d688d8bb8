// Package oracle is a supplemental, non-core developer aid: it runs the
// original pre-lift .wasm module under a pure-Go WASM runtime and records
// golden output values for a call, so a developer can sanity-check that a
// deobfuscated function still "smells" equivalent to its source. It plays
// no part in the deobfuscation pipeline itself and is never required for
// a run to succeed — spec.md's Non-goals explicitly exclude any formal
// semantic-equivalence proof, and this is far short of one.
package oracle

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Result is one golden recording: the exported function name, the
// arguments it was called with, and the i64-widened return values wazero
// produced.
type Result struct {
	Function string
	Args     []uint64
	Returns  []uint64
}

// Record instantiates wasmPath under a fresh wazero runtime, calls
// function with args, and returns the observed return values. The runtime
// is closed before Record returns; callers wanting to call multiple
// functions cheaply should use a Session instead.
func Record(ctx context.Context, wasmPath string, function string, args []uint64) (Result, error) {
	sess, err := NewSession(ctx, wasmPath)
	if err != nil {
		return Result{}, err
	}
	defer sess.Close(ctx)
	return sess.Call(ctx, function, args)
}

// Session holds one instantiated wazero module, letting a caller record
// several golden values without re-parsing and re-instantiating the
// module per call.
type Session struct {
	runtime  wazero.Runtime
	module   api.Module
	wasmPath string
}

// NewSession compiles and instantiates wasmPath.
func NewSession(ctx context.Context, wasmPath string) (*Session, error) {
	rt := wazero.NewRuntime(ctx)

	wasmBytes, err := readFile(wasmPath)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("read %s: %w", wasmPath, err)
	}

	mod, err := rt.Instantiate(ctx, wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate %s: %w", wasmPath, err)
	}

	return &Session{runtime: rt, module: mod, wasmPath: wasmPath}, nil
}

// Call invokes an exported function and records its result.
func (s *Session) Call(ctx context.Context, function string, args []uint64) (Result, error) {
	fn := s.module.ExportedFunction(function)
	if fn == nil {
		return Result{}, fmt.Errorf("oracle: %s exports no function %q", s.wasmPath, function)
	}

	returns, err := fn.Call(ctx, args...)
	if err != nil {
		return Result{}, fmt.Errorf("call %s: %w", function, err)
	}

	return Result{Function: function, Args: args, Returns: returns}, nil
}

// Close releases the underlying wazero runtime.
func (s *Session) Close(ctx context.Context) error {
	return s.runtime.Close(ctx)
}
