package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pgarba/squanchy-go/internal/llvmtest"
	"github.com/pgarba/squanchy-go/internal/squerr"

	"tinygo.org/x/go-llvm"
)

func TestStructNameFollowsWasm2CConvention(t *testing.T) {
	if got, want := structName("squanchy"), "struct.w2c_squanchy"; got != want {
		t.Fatalf("structName(%q) = %q, want %q", "squanchy", got, want)
	}
}

func TestInstantiateNameFollowsWasm2CConvention(t *testing.T) {
	if got, want := instantiateName("squanchy"), "wasm2c_squanchy_instantiate"; got != want {
		t.Fatalf("instantiateName(%q) = %q, want %q", "squanchy", got, want)
	}
}

// firstTwoOpcodes returns the opcodes of the first two instructions in
// fn's entry block.
func firstTwoOpcodes(fn llvm.Value) (llvm.Opcode, llvm.Opcode) {
	entry := fn.FirstBasicBlock()
	first := entry.FirstInstruction()
	second := llvm.NextInstruction(first)
	return first.InstructionOpcode(), second.InstructionOpcode()
}

func TestFunctionAllocatesInstanceAndEnvAndCallsInstantiate(t *testing.T) {
	ctx, mod, err := llvmtest.Parse("entry.ll")
	require.NoError(t, err)
	defer ctx.Dispose()

	fn := mod.NamedFunction("w2c_squanchy_add")
	require.False(t, fn.IsNil())

	err = Function(ctx, fn, Config{ModuleName: "squanchy"})
	require.NoError(t, err)

	op1, op2 := firstTwoOpcodes(fn)
	require.Equal(t, llvm.Alloca, op1, "first instruction must allocate the instance struct")
	require.Equal(t, llvm.Alloca, op2, "second instruction must allocate the environment struct")

	third := llvm.NextInstruction(llvm.NextInstruction(fn.FirstBasicBlock().FirstInstruction()))
	require.Equal(t, llvm.Call, third.InstructionOpcode())
	require.Equal(t, "wasm2c_squanchy_instantiate", third.CalledValue().Name())
	require.Equal(t, 2, third.OperandsCount()-1, "instantiate call must be passed exactly the instance and env allocas")

	// The original instance parameter's one use (the icmp) must now point
	// at the freshly-allocated instance, not the old opaque parameter.
	icmp := llvm.NextInstruction(third)
	require.Equal(t, llvm.ICmp, icmp.InstructionOpcode())
	require.Equal(t, llvm.Alloca, icmp.Operand(0).InstructionOpcode())
}

func TestFunctionFallsBackToEnvSizeConstantWhenEnvStructMissing(t *testing.T) {
	ctx, mod, err := llvmtest.Parse("entry_envsize_fallback.ll")
	require.NoError(t, err)
	defer ctx.Dispose()

	fn := mod.NamedFunction("w2c_squanchy_add")
	require.False(t, fn.IsNil())

	err = Function(ctx, fn, Config{ModuleName: "squanchy"})
	require.NoError(t, err)

	op1, op2 := firstTwoOpcodes(fn)
	require.Equal(t, llvm.Alloca, op1)
	require.Equal(t, llvm.Alloca, op2)
}

func TestFunctionMissingInstanceStructIsFatal(t *testing.T) {
	ctx, mod, err := llvmtest.Parse("entry_missing_instance.ll")
	require.NoError(t, err)
	defer ctx.Dispose()

	fn := mod.NamedFunction("w2c_squanchy_add")
	require.False(t, fn.IsNil())

	err = Function(ctx, fn, Config{ModuleName: "squanchy"})
	require.Error(t, err)

	var sqErr *squerr.Error
	require.ErrorAs(t, err, &sqErr)
	require.Equal(t, squerr.MissingStructType, sqErr.Kind)
}
