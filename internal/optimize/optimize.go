// Package optimize implements the Optimisation Engine (component F): a
// hand-ordered sequence of LLVM passes run through the new pass manager's
// textual pipeline syntax, looped to a fixed point, plus a set of pass
// scan-limit overrides that are correctness-critical here rather than
// perf-tuning knobs — folding the deeply-nested, heavily-aliased memory
// access patterns wasm2c emits needs far more headroom than the defaults
// tuned for ordinary C.
package optimize

import (
	"github.com/pkg/errors"

	"github.com/pgarba/squanchy-go/internal/irutil"

	"tinygo.org/x/go-llvm"
)

// FunctionPipeline is the per-function textual pass pipeline run inside
// the convergence loop. This is the exact hand-ordered sequence spec §4.F
// specifies, reproduced statement-for-statement: entry/exit
// instrumentation and expect-lowering first so later passes never see a
// stale llvm.expect; SROA/early-cse/callsite-splitting expose scalarized
// aggregates; float2int and the target-library mapping injection run
// before the second SROA/early-cse pair catches what the first missed;
// GVN-hoist/sink and the switch-to-lookup cfg simplification follow;
// speculative execution, jump threading, and correlated-value propagation
// round out the early folding group. instcombine is capped at one
// iteration everywhere in this pipeline — spec §4.F calls this "a hard
// requirement: uncapped instcombine interacts badly with later passes
// here" — with a separate aggressive-instcombine pass for the patterns
// plain instcombine doesn't reach. The tail runs a second SROA/GVN/
// vector-combine/mldst-motion group, then SCCP/BDCE/instcombine/jump-
// threading/correlated-propagation, then ADCE, memcpyopt, DSE,
// move-auto-init, and a no-op coro-elide (wasm2c never emits coroutines;
// kept because spec §4.F names it explicitly), finishing with a
// hoist/sink-enabled simplifycfg and one last capped instcombine.
const FunctionPipeline = "function(" +
	"entry-exit-instrumenter," +
	"lower-expect-intrinsic," +
	"simplifycfg," +
	"sroa<preserve-cfg>," +
	"early-cse," +
	"callsite-splitting," +
	"float2int," +
	"inject-tli-mappings," +
	"sroa<preserve-cfg>," +
	"early-cse<memssa>," +
	"gvn-hoist," +
	"gvn-sink," +
	"simplifycfg<switch-to-lookup>," +
	"speculative-execution," +
	"jump-threading," +
	"correlated-propagation," +
	"simplifycfg," +
	"instcombine<max-iterations=1>," +
	"aggressive-instcombine," +
	"libcalls-shrinkwrap," +
	"tailcallelim," +
	"simplifycfg," +
	"reassociate," +
	"constraint-elimination," +
	"simplifycfg," +
	"instcombine<max-iterations=1>," +
	"sroa<preserve-cfg>," +
	"vector-combine," +
	"mldst-motion," +
	"gvn," +
	"sccp," +
	"bdce," +
	"instcombine<max-iterations=1>," +
	"jump-threading," +
	"correlated-propagation," +
	"adce," +
	"memcpyopt," +
	"dse," +
	"move-auto-init," +
	"coro-elide," +
	"simplifycfg<hoist-common-insts,sink-common-insts>," +
	"instcombine<max-iterations=1>" +
	")"

// FunctionDefaultO3Pipeline is the default-constructed, high-optimisation
// function-simplification pipeline spec §4.F runs once more as a
// belt-and-braces pass after the hand-ordered FunctionPipeline has reached
// a fixed point — not inside the convergence loop itself.
const FunctionDefaultO3Pipeline = "function(default<O3>)"

// ModulePipeline runs once per convergence iteration after the per-function
// pipeline, and once more from the driver after extraction, catching
// cross-function constant propagation the function
// pipeline cannot see (global variable loads the runtime blob initializes,
// and calls between functions that were just folded). Grounded on
// Deobfuscator::optimizeFunction's module-level default<O3> invocation.
const ModulePipeline = "default<O3>"

// AlwaysInlinePipeline runs the always-inliner alone. internal/inline
// drives its fixed-point loop with this rather than FunctionPipeline
// because the LLVM-C API tinygo.org/x/go-llvm binds against has no direct
// equivalent of llvm::InlineFunction; the always-inline pass is the
// closest available mechanism for forcing a specific call site to inline
// (see DESIGN.md's adaptation note).
const AlwaysInlinePipeline = "always-inline"

// Tunables returns the LLVM internal-option overrides this tool requires
// before running any pipeline. They must be installed once per process via
// llvm.ParseCommandLineOptions before the first RunX call — they are not
// per-module settings. Every value here raises (or removes) a scan/search
// limit that LLVM's default tuning caps for compile-time reasons; wasm2c
// output regularly exceeds those caps long before optimisation has had a
// chance to shrink it; a default-tuned dse or gvn pass quietly gives up
// and leaves memory operations unfolded rather than erroring, so a bound
// reached here is silent correctness loss, not a slow compile.
//
// Values carried over from Squanchy.cpp's ParseLLVMOptions.
func Tunables() []string {
	return []string{
		"squanchy",
		"-memdep-block-scan-limit=1000000",
		"-dse-memoryssa-walklimit=1000000",
		"-available-load-scan-limit=1000000",
		"-dse-memoryssa-scanlimit=1000000",
		"-earlycse-mssa-optimization-cap=1000000",
		"-memssa-check-limit=1000000",
		"-dse-memoryssa-defs-per-block-limit=1000000",
		"-dse-memoryssa-partial-store-limit=1000000",
		"-dse-memoryssa-path-check-limit=1000000",
		"-dse-memoryssa-otherbb-cost=2",
		"-memdep-block-number-limit=1000000",
		"-gvn-max-block-speculations=1000000",
		"-gvn-max-num-deps=1000000",
		"-gvn-hoist-max-chain-length=-1",
		"-gvn-hoist-max-depth=-1",
		"-gvn-hoist-max-bbs=-1",
		"-unroll-threshold=1000000",
		"-unroll-count=64",
		"-dfa-cost-threshold=1000000",
		"-dfa-max-path-length=1000000",
		"-dfa-max-num-paths=1000000",
	}
}

// InstallTunables feeds Tunables() to LLVM's global command-line option
// parser. Safe to call more than once; later calls are no-ops for options
// already registered, matching llvm::cl's own idempotence.
func InstallTunables() {
	llvm.ParseCommandLineOptions(Tunables(), "squanchy LLVM option overrides")
}

// RunFunctionPipeline runs FunctionPipeline over fn's parent module. The
// "function(...)" wrapper applies the passes to every function definition
// in that module; fn is not singled out.
func RunFunctionPipeline(fn llvm.Value, tm llvm.TargetMachine) error {
	return runPipeline(fn.GlobalParent(), FunctionPipeline, tm)
}

// RunFunctionDefaultO3Pipeline runs FunctionDefaultO3Pipeline over every
// function definition in fn's parent module. Called once after ConvergeFunction's loop
// reaches a fixed point, never inside the loop itself.
func RunFunctionDefaultO3Pipeline(fn llvm.Value, tm llvm.TargetMachine) error {
	return runPipeline(fn.GlobalParent(), FunctionDefaultO3Pipeline, tm)
}

// RunModulePipeline runs ModulePipeline over the whole module.
func RunModulePipeline(mod llvm.Module, tm llvm.TargetMachine) error {
	return runPipeline(mod, ModulePipeline, tm)
}

// RunAlwaysInlinePass runs AlwaysInlinePipeline over the whole module. It
// is module-scoped (inlining is an interprocedural pass) even though
// internal/inline only cares about call sites within one function.
func RunAlwaysInlinePass(mod llvm.Module, tm llvm.TargetMachine) error {
	return runPipeline(mod, AlwaysInlinePipeline, tm)
}

func runPipeline(mod llvm.Module, passes string, tm llvm.TargetMachine) error {
	opts := llvm.NewPassBuilderOptions()
	defer opts.Dispose()
	if err := mod.RunPasses(passes, tm, opts); err != nil {
		return errors.Wrapf(err, "run pass pipeline %q", passes)
	}
	return nil
}

// ConvergeFunction runs FunctionPipeline then ModulePipeline repeatedly
// until fn's instruction count stops shrinking, capped at maxIterations
// (spec testable property: convergence bounded, ≤8 iterations in the
// reference scenarios). It returns the number of iterations actually run
// and the final instruction count.
//
// Grounded on Deobfuscator::optimizeFunction's repeat-the-pipeline-until-
// stable shape, generalized here into an explicit, observable loop rather
// than a fixed pass count.
func ConvergeFunction(fn llvm.Value, tm llvm.TargetMachine, maxIterations int) (iterations, finalCount int, err error) {
	prev := irutil.CountInstructions(fn)
	mod := fn.GlobalParent()

	finalCount = prev
	for i := 0; i < maxIterations; i++ {
		if err := RunFunctionPipeline(fn, tm); err != nil {
			return i, prev, err
		}
		if err := RunModulePipeline(mod, tm); err != nil {
			return i, prev, err
		}

		cur := irutil.CountInstructions(fn)
		iterations = i + 1
		finalCount = cur
		if cur >= prev {
			break
		}
		prev = cur
	}

	if err := RunFunctionDefaultO3Pipeline(fn, tm); err != nil {
		return iterations, finalCount, err
	}
	finalCount = irutil.CountInstructions(fn)

	return iterations, finalCount, nil
}
