// Package squanchy wires the CLI surface to internal/driver. Flag naming
// and the repeatedStringFlag pattern for -f follow the teacher's cobra/
// pflag conventions (see the OPA cmd package this was scoped down from).
package squanchy

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pgarba/squanchy-go/internal/driver"
	"github.com/pgarba/squanchy-go/internal/extract"
	"github.com/pgarba/squanchy-go/internal/loader"
	"github.com/pgarba/squanchy-go/internal/logging"
)

type repeatedStringFlag struct {
	v []string
}

func (f *repeatedStringFlag) Type() string   { return "string" }
func (f *repeatedStringFlag) String() string { return strings.Join(f.v, ",") }
func (f *repeatedStringFlag) Set(s string) error {
	f.v = append(f.v, s)
	return nil
}

type params struct {
	outputPath       string
	functions        repeatedStringFlag
	globalPatterns   repeatedStringFlag // extra patterns; extract.DefaultGlobalPatterns is always applied too
	runtimePath      string
	moduleName       string
	optLevel         int
	verbose          bool
	listFunctions    bool
	extractFunction  bool
	extractRecursive bool
	keepWasmRuntime  bool
	replaceCallocs   bool
}

func newParams() *params {
	return &params{
		runtimePath:     "wasm_runtime.bc",
		moduleName:      "squanchy",
		optLevel:        3,
		extractFunction: true,
	}
}

// RootCommand builds the cobra root command for the squanchy CLI.
func RootCommand() *cobra.Command {
	p := newParams()

	root := &cobra.Command{
		Use:   "squanchy <input.ll>",
		Short: "Fold wasm2c-lifted LLVM IR back toward direct-compiled shape",
		Long: `squanchy reverses the lifting wasm2c-style translators perform when they
route every memory and table access through opaque runtime helper calls. It
links a small runtime blob into the target module, force-inlines that
runtime's helper surface, rewrites each requested function's entry point to
allocate its instance in place rather than taking it as an opaque pointer,
runs a convergence loop of LLVM optimisation passes, and optionally extracts
just the requested functions and their transitive closure.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], p)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addFlags(root.Flags(), p)
	root.AddCommand(oracleCommand())
	return root
}

func addFlags(fs *pflag.FlagSet, p *params) {
	fs.StringVarP(&p.outputPath, "output", "o", "", "output file path (default: stdout)")
	fs.VarP(&p.functions, "function", "f", "function to deobfuscate and extract. Repeatable.")
	fs.VarP(&p.globalPatterns, "global", "g", "extra global-name regexp to keep, in addition to the default data-segment pattern. Repeatable.")
	fs.StringVar(&p.runtimePath, "runtime-path", p.runtimePath, "path to the precompiled runtime blob")
	fs.StringVar(&p.moduleName, "module-name", p.moduleName, "wasm2c module identifier (struct.w2c_<name>, wasm2c_<name>_instantiate)")
	fs.IntVarP(&p.optLevel, "O", "O", p.optLevel, "optimisation level (0-3); 0 skips the convergence loop and the post-extraction module pipeline")
	fs.BoolVarP(&p.verbose, "v", "v", false, "print [*] progress diagnostics")
	fs.BoolVar(&p.listFunctions, "list-functions", false, "list function definitions in the input module and exit")
	fs.BoolVar(&p.extractFunction, "extract-function", p.extractFunction, "extract only the requested function(s) from the final output")
	fs.BoolVar(&p.extractRecursive, "extract-recursive", false, "close the extraction keep-set over the call graph")
	fs.BoolVar(&p.keepWasmRuntime, "keep-wasm-runtime", false, "keep runtime helper globals/functions in extracted output")
	fs.BoolVar(&p.replaceCallocs, "replace-callocs", false, "fold statically-sized calloc calls into stack allocas (experimental)")
}

func run(cmd *cobra.Command, inputPath string, p *params) error {
	if p.listFunctions {
		return listFunctions(inputPath)
	}

	log := logging.New(p.verbose)

	cfg := driver.Config{
		InputPath:       inputPath,
		OutputPath:      p.outputPath,
		RuntimePath:     p.runtimePath,
		ModuleName:      p.moduleName,
		Functions:       p.functions.v,
		GlobalPatterns:  p.globalPatterns.v,
		ExtractFn:       p.extractFunction,
		ExtractRec:      p.extractRecursive,
		KeepWasmRuntime: p.keepWasmRuntime,
		ReplaceCallocs:  p.replaceCallocs,
		OptLevel:        p.optLevel,
		Logger:          log,
	}

	return driver.Run(cmd.Context(), cfg)
}

func listFunctions(inputPath string) error {
	ctx, mod, err := loader.Load(inputPath)
	if err != nil {
		return err
	}
	defer ctx.Dispose()

	for _, name := range extract.ListFunctions(mod) {
		fmt.Println(name)
	}
	return nil
}

// Main is the process entry point invoked from the top-level main.go. It
// returns the process exit code (0 on success, 1 on any error), matching
// the CLI contract in spec §6.
func Main() int {
	root := RootCommand()
	root.SetContext(context.Background())
	if err := root.Execute(); err != nil {
		// Every failure (bad flags, a missing argument, -list-functions,
		// or a pipeline run) is reported here, once.
		fmt.Fprintf(os.Stderr, "[!] %v\n", err)
		return 1
	}
	return 0
}
