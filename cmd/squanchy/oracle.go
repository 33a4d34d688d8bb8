package squanchy

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pgarba/squanchy-go/internal/oracle"
)

// oracleCommand builds the "oracle" subcommand: a developer convenience
// that calls an exported function in the pre-lift .wasm module under
// wazero and prints its result, so it can be eyeballed against what the
// folded output produces. It is never invoked by the core pipeline and
// never gates its success (spec §1 Non-goals: proving equivalence).
func oracleCommand() *cobra.Command {
	var wasmPath, function string
	var rawArgs []string

	cmd := &cobra.Command{
		Use:   "oracle",
		Short: "Call an exported function in the pre-lift .wasm module and print its result",
		Long: `oracle instantiates the original .wasm module under a pure-Go WASM
runtime and calls one exported function, printing the values it returns. It
is a hand-verification aid only: it takes no part in deobfuscating or
extracting anything, and a failed or skipped oracle call never affects the
exit code of a squanchy run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOracle(cmd.Context(), wasmPath, function, rawArgs)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.StringVar(&wasmPath, "oracle-wasm", "", "path to the pre-lift .wasm module")
	flags.StringVar(&function, "oracle-func", "", "exported function name to call")
	flags.StringArrayVar(&rawArgs, "oracle-args", nil, "uint64 argument, in call order. Repeatable.")
	_ = cmd.MarkFlagRequired("oracle-wasm")
	_ = cmd.MarkFlagRequired("oracle-func")

	return cmd
}

func runOracle(ctx context.Context, wasmPath, function string, rawArgs []string) error {
	args := make([]uint64, len(rawArgs))
	for i, a := range rawArgs {
		v, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return fmt.Errorf("oracle: -oracle-args %q: %w", a, err)
		}
		args[i] = v
	}

	result, err := oracle.Record(ctx, wasmPath, function, args)
	if err != nil {
		return err
	}

	fmt.Printf("%s(%v) = %v\n", result.Function, result.Args, result.Returns)
	return nil
}
