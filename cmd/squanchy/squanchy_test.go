package squanchy

import "testing"

func TestRepeatedStringFlagAccumulates(t *testing.T) {
	var f repeatedStringFlag
	if err := f.Set("add"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := f.Set("mul"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, want := f.String(), "add,mul"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if len(f.v) != 2 {
		t.Fatalf("len(v) = %d, want 2", len(f.v))
	}
}

func TestNewParamsDefaults(t *testing.T) {
	p := newParams()
	if p.runtimePath != "wasm_runtime.bc" {
		t.Errorf("runtimePath default = %q, want wasm_runtime.bc", p.runtimePath)
	}
	if p.moduleName != "squanchy" {
		t.Errorf("moduleName default = %q, want squanchy", p.moduleName)
	}
	if p.optLevel != 3 {
		t.Errorf("optLevel default = %d, want 3", p.optLevel)
	}
	if !p.extractFunction {
		t.Errorf("extractFunction default = false, want true")
	}
	if p.replaceCallocs {
		t.Errorf("replaceCallocs default = true, want false")
	}
}

func TestRootCommandRequiresExactlyOneArg(t *testing.T) {
	root := RootCommand()
	if err := root.Args(root, nil); err == nil {
		t.Fatal("expected an error with zero positional args")
	}
	if err := root.Args(root, []string{"a.ll", "b.ll"}); err == nil {
		t.Fatal("expected an error with two positional args")
	}
	if err := root.Args(root, []string{"a.ll"}); err != nil {
		t.Fatalf("expected no error with one positional arg, got %v", err)
	}
}

func TestRootCommandRegistersGlobalFlag(t *testing.T) {
	root := RootCommand()
	if f := root.Flags().Lookup("global"); f == nil {
		t.Fatal("expected a --global flag wired to extract.Config.GlobalPatterns")
	} else if f.Shorthand != "g" {
		t.Fatalf("--global shorthand = %q, want g", f.Shorthand)
	}
}

func TestRootCommandRegistersOracleSubcommand(t *testing.T) {
	root := RootCommand()
	for _, c := range root.Commands() {
		if c.Name() != "oracle" {
			continue
		}
		for _, name := range []string{"oracle-wasm", "oracle-func", "oracle-args"} {
			if c.Flags().Lookup(name) == nil {
				t.Errorf("oracle subcommand missing --%s flag", name)
			}
		}
		return
	}
	t.Fatal("expected an \"oracle\" subcommand")
}
