// Package solver wraps an external SMT solver subprocess as an optional
// collaborator for future constant-folding work the optimisation engine
// cannot reach through LLVM passes alone (e.g. proving two deeply-nested
// bitwise expressions equal). It is out of scope for this tool's core
// pipeline per spec.md's explicit external-collaborator list, and no
// driver state currently invokes it; it exists so the interface and its
// caching layer are grounded and ready, the way the original project's
// own Solver/SolverCache pair were a separate concern from Deobfuscator.
package solver

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
)

// Solver answers satisfiability queries given in SMT-LIB2 text, returning
// the solver's raw stdout.
type Solver interface {
	Solve(ctx context.Context, smtlib string) (string, error)
}

// ExternalZ3 shells out to a z3 binary, feeding it SMT-LIB2 on stdin and
// reading the result from stdout, mirroring Solver.cpp's
// createZ3Solver(makeExternalSolverProgram(path)) and OPA's wasm-opt
// stdin/stdout pipe pattern in optimizeBinaryen.
type ExternalZ3 struct {
	// Path overrides the z3 binary location. Empty uses defaultZ3Path(),
	// matching GetUnderlyingSolver's -z3-path cl::opt default fallback.
	Path string
}

// Solve runs z3 -in over smtlib and returns its stdout.
func (z ExternalZ3) Solve(ctx context.Context, smtlib string) (string, error) {
	path := z.Path
	if path == "" {
		path = defaultZ3Path()
	}

	cmd := exec.CommandContext(ctx, path, "-in")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("get stdin: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return "", fmt.Errorf("start %s: %w", path, err)
	}
	if _, err := stdin.Write([]byte(smtlib)); err != nil {
		return "", fmt.Errorf("write query: %w", err)
	}
	if err := stdin.Close(); err != nil {
		return "", fmt.Errorf("close stdin: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("z3: %w: %s", err, stderr.String())
	}

	return stdout.String(), nil
}

// defaultZ3Path mirrors GetUnderlyingSolver's platform-specific fallback:
// a bare "z3" relies on PATH everywhere except it tries a couple of the
// usual package-manager install locations first on non-Windows hosts.
func defaultZ3Path() string {
	if runtime.GOOS == "windows" {
		return "z3.exe"
	}
	for _, candidate := range []string{"/usr/bin/z3", "/usr/local/bin/z3"} {
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate
		}
	}
	return "z3"
}

// Cache memoizes Solver.Solve results by query text, avoiding repeat
// subprocess spawns for a query seen before in the same run. Grounded on
// SolverCache's role alongside Solver in the original project; a plain
// map+mutex is the right tool here (a single-process, same-run cache with
// no eviction policy needed), so no third-party cache library is pulled
// in for it — see DESIGN.md's stdlib justification.
type Cache struct {
	mu    sync.Mutex
	inner Solver
	cache map[string]string
}

// NewCache wraps inner with a query-result cache.
func NewCache(inner Solver) *Cache {
	return &Cache{inner: inner, cache: make(map[string]string)}
}

// Solve returns the cached result for smtlib if present, otherwise
// delegates to the wrapped Solver and caches the result.
func (c *Cache) Solve(ctx context.Context, smtlib string) (string, error) {
	c.mu.Lock()
	if result, ok := c.cache[smtlib]; ok {
		c.mu.Unlock()
		return result, nil
	}
	c.mu.Unlock()

	result, err := c.inner.Solve(ctx, smtlib)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.cache[smtlib] = result
	c.mu.Unlock()

	return result, nil
}
