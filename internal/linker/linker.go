// Package linker implements the Runtime Linker (component C): merging a
// copy of the runtime module into the target module with LLVM's default
// linking rules. Runtime definitions resolve same-named declarations and
// replace weak definitions in the target; a symbol with a strong
// definition in both modules makes the link fail rather than keeping the
// target's version.
package linker

import (
	"github.com/pkg/errors"

	"tinygo.org/x/go-llvm"
)

// LinkRuntime merges a clone of runtime into target in place. LinkModules
// destroys its source module, so the clone is what gets consumed; runtime
// itself stays usable afterward. No linker flags are passed (the binding's
// LinkModules takes none), so the default rules in the package doc apply.
//
// Grounded on Deobfuscator::linkRuntime, which clones the runtime module
// before linking so repeated calls don't exhaust a single runtime copy.
func LinkRuntime(target, runtime llvm.Module) error {
	clone := llvm.CloneModule(runtime)
	if err := llvm.LinkModules(target, clone); err != nil {
		return errors.Wrap(err, "link runtime module")
	}
	return nil
}
