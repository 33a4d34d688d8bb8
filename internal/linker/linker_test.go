package linker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pgarba/squanchy-go/internal/llvmtest"
)

func TestLinkRuntimeMergesRuntimeDefinitionsIntoTarget(t *testing.T) {
	ctx, target, err := llvmtest.Parse("linker_target.ll")
	require.NoError(t, err)
	defer ctx.Dispose()

	runtime, err := llvmtest.ParseInto(ctx, "linker_runtime.ll")
	require.NoError(t, err)

	require.NoError(t, LinkRuntime(target, runtime))

	require.False(t, target.NamedFunction("main").IsNil(), "target's own definitions must survive linking")
	require.False(t, target.NamedFunction("helper").IsNil(), "runtime's definitions must be merged into target")
}
