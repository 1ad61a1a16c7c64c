package vellum

import (
	"testing"

	"vellum/internal/value"
)

func TestRunArithmetic(t *testing.T) {
	m := New()
	v, err := m.Run("2 + 3 * 4;", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Kind != value.KindNumber || v.Number != 14 {
		t.Fatalf("got %#v, want 14", v)
	}
}

func TestRunContextIsMergedIntoGlobals(t *testing.T) {
	m := New()
	v, err := m.Run("greeting;", map[string]Value{"greeting": value.String("hello")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Kind != value.KindString || v.Str != "hello" {
		t.Fatalf("got %#v, want %q", v, "hello")
	}
}

func TestCompileAndExecuteRoundTrip(t *testing.T) {
	m := New()
	prog, err := m.Compile("var total = 0; for (var i = 0; i < 5; i = i + 1) { total = total + i; } total;")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	v, err := m.Execute(prog, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if v.Kind != value.KindNumber || v.Number != 10 {
		t.Fatalf("got %#v, want 10", v)
	}
}

// TestResetDoesNotLeakMutationsAcrossInstances guards against Math/console
// (or any other Object-kind default global) being shared by pointer across
// VM instances: a mutation in one VM must never be visible in a fresh one,
// and must not survive the mutating VM's own Reset either.
func TestResetDoesNotLeakMutationsAcrossInstances(t *testing.T) {
	a := New()
	if _, err := a.Run("Math.flag = 1;", nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	b := New()
	v, err := b.Run("typeof Math.flag;", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Kind != value.KindString || v.Str != "undefined" {
		t.Fatalf("Math.flag leaked into a fresh VM instance: typeof = %q", v.Str)
	}

	a.Reset()
	v, err = a.Run("typeof Math.flag;", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Kind != value.KindString || v.Str != "undefined" {
		t.Fatalf("Math.flag survived Reset: typeof = %q", v.Str)
	}
}

// TestCompileHonorsSetDebugSymbols guards against Compile silently
// hardcoding debugSymbols=false: a Program compiled after SetDebugSymbols
// must carry a populated DebugMap, and one compiled before it (or after it
// is turned back off) must not.
func TestCompileHonorsSetDebugSymbols(t *testing.T) {
	m := New()

	before, err := m.Compile(`1 + 2;`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(before.DebugMap) != 0 {
		t.Fatalf("expected no debug map before SetDebugSymbols(true), got %d entries", len(before.DebugMap))
	}

	m.SetDebugSymbols(true)
	after, err := m.Compile(`1 + 2;`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(after.DebugMap) == 0 {
		t.Fatal("expected a populated debug map after SetDebugSymbols(true)")
	}

	m.SetDebugSymbols(false)
	off, err := m.Compile(`1 + 2;`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(off.DebugMap) != 0 {
		t.Fatalf("expected no debug map after SetDebugSymbols(false), got %d entries", len(off.DebugMap))
	}
}

func TestStateReportsCallDepthAndGlobals(t *testing.T) {
	m := New()
	if _, err := m.Run("var x = 1;", nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	st := m.State()
	if !st.Initialized {
		t.Fatal("expected Initialized after Run")
	}
	if st.CallDepth != 0 {
		t.Fatalf("expected CallDepth 0 at top level, got %d", st.CallDepth)
	}
	found := false
	for _, name := range st.GlobalNames {
		if name == "x" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected \"x\" among GlobalNames")
	}
}
