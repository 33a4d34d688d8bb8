// Package runtime publishes the static facts the rest of the pipeline
// needs about the precompiled runtime blob ("Runtime Blob", component A):
// the closed Inline Budget Set, the WASM page size the runtime's
// memory-growth helpers assume, and the name of the environment-size
// constant. It does not parse the blob; internal/loader does that.
//
// The blob itself is never the original wasm2c-generated runtime source —
// it is a small, hand-written LLVM module (IR or bitcode) implementing the
// same helper surface, compiled so that once it is linked into a target
// module and every call site is marked always-inline, the whole thing
// constant-folds away. It is not part of this repository; its path is
// given with -runtime-path.
package runtime

// PageSize is the WASM linear-memory page size in bytes, matching the
// constant wasm_runtime.cpp uses for every memory-growth computation.
const PageSize = 65536

// Budget is the closed set of runtime helper function names this tool
// will force-inline and fold away. It is "closed" in the sense that the
// Inlining Director (component D) never grows it at runtime — a function
// outside this set that still shows up in the output after optimisation
// is left alone rather than chased down with heuristics.
//
// Named after every w2c_env accessor and load/store helper family wasm2c
// emits, per original_source/runtime/wasm_runtime.cpp.
var Budget = []string{
	"wasm_rt_allocate_memory",
	"wasm_rt_free_memory",
	"wasm_rt_grow_memory",
	"wasm_rt_is_initialized",
	"wasm_rt_allocate_funcref_table",
	"wasm_rt_allocate_externref_table",
	"wasm_rt_free_funcref_table",
	"wasm_rt_free_externref_table",
	"wasm_rt_elem_init_table",
	"wasm_rt_memcpy",
	"wasm_rt_memset",
	"w2c_env_DYNAMICTOP_PTR",
	"w2c_env_STACKTOP",
	"w2c_env_STACK_MAX",
	"w2c_env_memory",
	"w2c_env_memoryBase",
	"w2c_env_table",
	"w2c_env_tableBase",
	"init_globals",
	"init_memories",
	"init_data_instances",
	"init_func_types",
	"init_table",
	"load_data",
	"add_overflow",
	"func_types_eq",
	"i8_load", "i16_load", "i32_load", "i64_load",
	"i8_load8_s", "i8_load8_u",
	"i16_load16_s", "i16_load16_u",
	"i32_load8_s", "i32_load8_u", "i32_load16_s", "i32_load16_u",
	"i64_load8_s", "i64_load8_u", "i64_load16_s", "i64_load16_u", "i64_load32_s", "i64_load32_u",
	"i8_store", "i16_store", "i32_store", "i64_store",
	"i32_store8", "i32_store16",
	"i64_store8", "i64_store16", "i64_store32",

	// "Newer" wasm2c naming convention: default32-suffixed shims used
	// when the module's memory index type is known to fit 32 bits, and
	// unchecked variants emitted when the translator has already proven
	// the access in-bounds. Spec §3 calls these out by name alongside
	// the older family above; both conventions must be in the budget
	// since a single lifted module only ever emits one or the other
	// depending on the wasm2c version that produced it.
	"i32_load_default32", "i64_load_default32", "f32_load_default32", "f64_load_default32",
	"i32_load8_s_default32", "i32_load8_u_default32", "i32_load16_s_default32", "i32_load16_u_default32",
	"i64_load8_s_default32", "i64_load8_u_default32", "i64_load16_s_default32", "i64_load16_u_default32",
	"i64_load32_s_default32", "i64_load32_u_default32",
	"i32_store_default32", "i64_store_default32", "f32_store_default32", "f64_store_default32",
	"i32_store8_default32", "i32_store16_default32",
	"i64_store8_default32", "i64_store16_default32", "i64_store32_default32",

	"i32_load_unchecked", "i64_load_unchecked", "f32_load_unchecked", "f64_load_unchecked",
	"i32_load8_s_unchecked", "i32_load8_u_unchecked", "i32_load16_s_unchecked", "i32_load16_u_unchecked",
	"i64_load8_s_unchecked", "i64_load8_u_unchecked", "i64_load16_s_unchecked", "i64_load16_u_unchecked",
	"i64_load32_s_unchecked", "i64_load32_u_unchecked",
	"i32_store_unchecked", "i64_store_unchecked", "f32_store_unchecked", "f64_store_unchecked",
	"i32_store8_unchecked", "i32_store16_unchecked",
	"i64_store8_unchecked", "i64_store16_unchecked", "i64_store32_unchecked",
}

// InBudget reports whether name is a member of Budget.
func InBudget(name string) bool {
	for _, b := range Budget {
		if b == name {
			return true
		}
	}
	return false
}

// EnvSizeConstant is the name of the global wasm2c publishes recording
// sizeof(w2c_env) when the generator could determine it statically.
// internal/rewrite falls back to this when no struct.w2c_env type is
// present in the target module.
const EnvSizeConstant = "w2c_env_size"
