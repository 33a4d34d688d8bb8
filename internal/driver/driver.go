// Package driver orchestrates the full pipeline (component H) through its
// named states: Init → Loaded → Linked → PerFunctionLoop → Extracted →
// Optimised → Written. Each state transition is logged at progress level
// so -v output traces the run stage by stage, matching
// Deobfuscator::deobfuscate's top-level control flow generalized from one
// hardcoded function to the full per-function loop the CLI exposes.
package driver

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/pgarba/squanchy-go/internal/extract"
	"github.com/pgarba/squanchy-go/internal/inline"
	"github.com/pgarba/squanchy-go/internal/irutil"
	"github.com/pgarba/squanchy-go/internal/linker"
	"github.com/pgarba/squanchy-go/internal/loader"
	"github.com/pgarba/squanchy-go/internal/logging"
	"github.com/pgarba/squanchy-go/internal/optimize"
	"github.com/pgarba/squanchy-go/internal/rewrite"
	"github.com/pgarba/squanchy-go/internal/squerr"

	"tinygo.org/x/go-llvm"
)

// State names one step of the pipeline, in the order Run walks them.
type State int

const (
	Init State = iota
	Loaded
	Linked
	PerFunctionLoop
	Extracted
	Optimised
	Written
)

func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case Loaded:
		return "Loaded"
	case Linked:
		return "Linked"
	case PerFunctionLoop:
		return "PerFunctionLoop"
	case Extracted:
		return "Extracted"
	case Optimised:
		return "Optimised"
	case Written:
		return "Written"
	default:
		return "Unknown"
	}
}

// Config carries every setting a run needs. It is a plain struct rather
// than a With*-chained builder: unlike the teacher's compile.Compiler,
// every field here is known in full at CLI-parse time, so there is no
// incremental construction to support (see DESIGN.md Open Question 5).
type Config struct {
	InputPath       string
	OutputPath      string // "" means stdout
	RuntimePath     string
	ModuleName      string
	Functions       []string
	GlobalPatterns  []string
	ExtractFn       bool
	ExtractRec      bool
	KeepWasmRuntime bool
	ReplaceCallocs  bool
	OptLevel        int
	MaxConverge     int
	Logger          *logging.Logger
}

// Run executes the full pipeline described by cfg. ctx is checked for
// cancellation between per-function iterations, the only points a run of
// non-trivial size takes appreciable wall-clock time between observable
// progress.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Logger
	if log == nil {
		log = logging.DiscardLogger()
	}

	state := Init
	log.Progress("state=%s", state)

	optimize.InstallTunables()

	pair, err := loader.LoadPair(cfg.InputPath, cfg.RuntimePath)
	if err != nil {
		return err
	}
	defer pair.Dispose()
	state = Loaded
	log.Progressf("loaded target=%s runtime=%s", cfg.InputPath, cfg.RuntimePath)
	log.Progress("state=%s", state)

	if err := linker.LinkRuntime(pair.Target, pair.Runtime); err != nil {
		return err
	}
	state = Linked
	log.Progressf("linked runtime into target module")
	log.Progress("state=%s", state)

	inline.StampBudget(pair.Context, pair.Target)

	target, ok := llvm.Value{}, false
	funcs := cfg.Functions
	if len(funcs) == 0 {
		// Spec §3/§6: an empty -f list targets every definition in the
		// module, not an error.
		funcs = extract.ListFunctions(pair.Target)
	}

	tm, err := targetMachine(pair.Target)
	if err != nil {
		return errors.Wrap(err, "create target machine")
	}
	defer tm.Dispose()

	state = PerFunctionLoop
	log.Progress("state=%s", state)
	for _, name := range funcs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		target, ok = irutil.FindFunction(pair.Target, name)
		if !ok {
			return squerr.New(squerr.MissingFunction, name)
		}

		before := irutil.CountInstructions(target)
		log.Progress("function=%s before=%d", name, before)

		rwCfg := rewrite.Config{ModuleName: cfg.ModuleName, ReplaceCallocs: cfg.ReplaceCallocs}
		if err := rewrite.Function(pair.Context, target, rwCfg); err != nil {
			return err
		}

		maxIter := cfg.MaxConverge
		if maxIter <= 0 {
			maxIter = 8
		}
		if _, err := inline.ToFixedPoint(target, tm, maxIter); err != nil {
			return err
		}
		inline.StripInlineAsmCalls(target)

		if cfg.OptLevel > 0 {
			iterations, after, err := optimize.ConvergeFunction(target, tm, maxIter)
			if err != nil {
				return err
			}
			log.Progress("function=%s converged iterations=%d after=%d", name, iterations, after)
		}

		irutil.ClearAlwaysInline(target)
	}

	if cfg.ExtractFn {
		ext := extract.Config{
			Functions:      funcs,
			GlobalPatterns: cfg.GlobalPatterns,
			Recursive:      cfg.ExtractRec,
		}
		if cfg.KeepWasmRuntime {
			ext.GlobalPatterns = append(ext.GlobalPatterns, "^w2c_.*", "^wasm_rt_.*")
		}
		if err := extract.Run(pair.Target, tm, ext); err != nil {
			return err
		}
		state = Extracted
		log.Progressf("extracted keep-set of %d function(s)", len(funcs))
		log.Progress("state=%s", state)
	}

	if cfg.OptLevel > 0 {
		if err := optimize.RunModulePipeline(pair.Target, tm); err != nil {
			return err
		}
	}
	state = Optimised
	log.Progress("state=%s", state)

	if err := write(pair.Target, cfg.OutputPath); err != nil {
		return err
	}
	state = Written
	log.Progressf("wrote output to %s", outputLabel(cfg.OutputPath))
	log.Progress("state=%s", state)

	return nil
}

func targetMachine(mod llvm.Module) (llvm.TargetMachine, error) {
	triple := mod.Target()
	target, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return llvm.TargetMachine{}, err
	}
	return target.CreateTargetMachine(triple, "generic", "", llvm.CodeGenLevelDefault, llvm.RelocDefault, llvm.CodeModelDefault), nil
}

func write(mod llvm.Module, path string) error {
	if path == "" {
		_, err := os.Stdout.WriteString(mod.String())
		return err
	}
	return os.WriteFile(path, []byte(mod.String()), 0o644)
}

func outputLabel(path string) string {
	if path == "" {
		return "(stdout)"
	}
	return path
}
