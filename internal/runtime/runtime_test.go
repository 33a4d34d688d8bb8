package runtime

import "testing"

func TestInBudgetMembership(t *testing.T) {
	if !InBudget("wasm_rt_allocate_memory") {
		t.Fatal("expected wasm_rt_allocate_memory to be in the budget")
	}
	if !InBudget("i32_load") {
		t.Fatal("expected i32_load to be in the budget")
	}
	if InBudget("printf") {
		t.Fatal("printf must not be in the closed budget")
	}
}

func TestInBudgetCoversBothNamingConventions(t *testing.T) {
	for _, name := range []string{
		"i32_load_default32", "i32_store_default32",
		"i32_load_unchecked", "i32_store_unchecked",
	} {
		if !InBudget(name) {
			t.Fatalf("expected %s to be in the budget (spec §3 naming conventions)", name)
		}
	}
}

func TestPageSizeMatchesWasmSpec(t *testing.T) {
	if PageSize != 65536 {
		t.Fatalf("PageSize = %d, want 65536", PageSize)
	}
}

func TestEnvSizeConstantName(t *testing.T) {
	if EnvSizeConstant != "w2c_env_size" {
		t.Fatalf("EnvSizeConstant = %q, want w2c_env_size", EnvSizeConstant)
	}
}
