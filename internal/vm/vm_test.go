package vm

import (
	"testing"

	"vellum/internal/value"
	"vellum/internal/vmerr"
)

func runSource(t *testing.T, src string) value.Value {
	t.Helper()
	m := New()
	v, err := m.Run(src, nil)
	if err != nil {
		t.Fatalf("run(%q): %v", src, err)
	}
	return v
}

func TestArithmetic(t *testing.T) {
	v := runSource(t, "1 + 2 * 3;")
	if v.Kind != value.KindNumber || v.Number != 7 {
		t.Fatalf("got %#v", v)
	}
}

func TestStringConcatViaAdd(t *testing.T) {
	v := runSource(t, `"a" + 1 + "b";`)
	if v.Kind != value.KindString || v.Str != "a1b" {
		t.Fatalf("got %#v", v)
	}
}

func TestFunctionCall(t *testing.T) {
	v := runSource(t, `
		function add(a, b) { return a + b; }
		add(2, 3);
	`)
	if v.Kind != value.KindNumber || v.Number != 5 {
		t.Fatalf("got %#v", v)
	}
}

func TestRecursion(t *testing.T) {
	v := runSource(t, `
		function fact(n) {
			if (n <= 1) { return 1; }
			return n * fact(n - 1);
		}
		fact(6);
	`)
	if v.Kind != value.KindNumber || v.Number != 720 {
		t.Fatalf("got %#v", v)
	}
}

func TestHostBinding(t *testing.T) {
	v := runSource(t, `Math.max(3, 7, 2);`)
	if v.Kind != value.KindNumber || v.Number != 7 {
		t.Fatalf("got %#v", v)
	}
}

func TestCompoundAssignmentToArrayElement(t *testing.T) {
	v := runSource(t, `
		var a = [1, 2, 3];
		a[1] += 10;
		a[1];
	`)
	if v.Kind != value.KindNumber || v.Number != 12 {
		t.Fatalf("got %#v", v)
	}
}

func TestArrayOutOfRangeAssignExtends(t *testing.T) {
	v := runSource(t, `
		var a = [1];
		a[3] = 9;
		a.length;
	`)
	if v.Kind != value.KindNumber || v.Number != 4 {
		t.Fatalf("got %#v", v)
	}
}

func TestObjectPropertyRoundTrip(t *testing.T) {
	v := runSource(t, `
		var o = {a: 1, b: 2};
		o.c = o.a + o.b;
		o.c;
	`)
	if v.Kind != value.KindNumber || v.Number != 3 {
		t.Fatalf("got %#v", v)
	}
}

func TestForInOverObjectKeys(t *testing.T) {
	v := runSource(t, `
		var o = {x: 1, y: 2, z: 3};
		var sum = 0;
		for (var k in o) {
			sum = sum + o[k];
		}
		sum;
	`)
	if v.Kind != value.KindNumber || v.Number != 6 {
		t.Fatalf("got %#v", v)
	}
}

func TestArrayMapFilterReduceCallback(t *testing.T) {
	v := runSource(t, `
		var doubled = [1, 2, 3].map(function(x) { return x * 2; });
		var evens = doubled.filter(function(x) { return x % 4 == 0; });
		evens.reduce(function(acc, x) { return acc + x; }, 0);
	`)
	if v.Kind != value.KindNumber || v.Number != 4 {
		t.Fatalf("got %#v", v)
	}
}

func TestConstructorReturnsNewInstance(t *testing.T) {
	v := runSource(t, `
		function Point(x, y) {
			this.x = x;
			this.y = y;
		}
		var p = new Point(3, 4);
		p.x + p.y;
	`)
	if v.Kind != value.KindNumber || v.Number != 7 {
		t.Fatalf("got %#v", v)
	}
}

func TestBudgetExceeded(t *testing.T) {
	m := New()
	m.SetMaxInstructions(50)
	_, err := m.Run(`
		var i = 0;
		while (true) {
			i = i + 1;
		}
	`, nil)
	if err == nil {
		t.Fatal("expected a budget error")
	}
	if _, ok := err.(*vmerr.BudgetError); !ok {
		t.Fatalf("expected *vmerr.BudgetError, got %T: %v", err, err)
	}
}

func TestUndefinedVariableIsRuntimeError(t *testing.T) {
	m := New()
	_, err := m.Run(`missing;`, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := err.(*vmerr.RuntimeError); !ok {
		t.Fatalf("expected *vmerr.RuntimeError, got %T: %v", err, err)
	}
}

func TestResetClearsUserGlobalsKeepsBuiltins(t *testing.T) {
	m := New()
	if _, err := m.Run(`var x = 5;`, nil); err != nil {
		t.Fatal(err)
	}
	m.Reset()
	_, err := m.Run(`x;`, nil)
	if err == nil {
		t.Fatal("expected x to be undefined after Reset")
	}
	if _, err := m.Run(`Math.PI > 3;`, nil); err != nil {
		t.Fatalf("built-ins should survive Reset: %v", err)
	}
}
