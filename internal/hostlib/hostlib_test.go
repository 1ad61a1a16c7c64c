package hostlib_test

import (
	"testing"

	"vellum/internal/hostlib"
	"vellum/internal/value"
)

func call(t *testing.T, mod value.Value, method string, args ...value.Value) value.Value {
	t.Helper()
	fn, ok := mod.Object.Get(method)
	if !ok {
		t.Fatalf("module has no method %q", method)
	}
	v, err := fn.HostFunction.Fn(value.Undefined, args)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", method, err)
	}
	return v
}

func TestHashPasswordRoundTrip(t *testing.T) {
	mod := hostlib.Hash()
	digest := call(t, mod, "password", value.String("s3cret"))
	if digest.Kind != value.KindString || digest.Str == "s3cret" {
		t.Fatalf("password() = %v, want a bcrypt digest", digest)
	}
	ok := call(t, mod, "verify", value.String("s3cret"), digest)
	if !ok.Truthy() {
		t.Fatal("verify() of the correct plaintext should be truthy")
	}
	bad := call(t, mod, "verify", value.String("wrong"), digest)
	if bad.Truthy() {
		t.Fatal("verify() of the wrong plaintext should be falsy")
	}
}

func TestUUIDV4LooksLikeAUUID(t *testing.T) {
	mod := hostlib.UUID()
	v := call(t, mod, "v4")
	if v.Kind != value.KindString || len(v.Str) != 36 {
		t.Fatalf("v4() = %q, want a 36-character UUID string", v.Str)
	}
}

func TestHumanizeBytesAndTime(t *testing.T) {
	mod := hostlib.Humanize()
	b := call(t, mod, "bytes", value.Number(1536))
	if b.Kind != value.KindString || b.Str == "" {
		t.Fatalf("bytes() = %v, want a non-empty humanized string", b)
	}
	tm := call(t, mod, "time", value.Number(0))
	if tm.Kind != value.KindString || tm.Str == "" {
		t.Fatalf("time() = %v, want a non-empty humanized string", tm)
	}
}

func TestDBRejectsUnsupportedDriver(t *testing.T) {
	if _, err := hostlib.DB("mysql", "irrelevant"); err == nil {
		t.Fatal("expected an error for an unsupported driver")
	}
}

func TestDBSqliteQueryAndExec(t *testing.T) {
	mod, err := hostlib.DB("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("DB(sqlite): unexpected error: %v", err)
	}
	defer func() {
		if _, err := mod.HostObject.Methods["close"](value.Undefined, nil); err != nil {
			t.Errorf("close: unexpected error: %v", err)
		}
	}()

	if _, err := mod.HostObject.Methods["exec"](value.Undefined, []value.Value{
		value.String("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)"),
	}); err != nil {
		t.Fatalf("exec(create table): unexpected error: %v", err)
	}

	execResult, err := mod.HostObject.Methods["exec"](value.Undefined, []value.Value{
		value.String("INSERT INTO items (name) VALUES (?)"),
		value.String("widget"),
	})
	if err != nil {
		t.Fatalf("exec(insert): unexpected error: %v", err)
	}
	if _, ok := execResult.Object.Get("rowsAffected"); !ok {
		t.Fatal("exec() result missing rowsAffected")
	}

	rows, err := mod.HostObject.Methods["query"](value.Undefined, []value.Value{
		value.String("SELECT id, name FROM items"),
	})
	if err != nil {
		t.Fatalf("query: unexpected error: %v", err)
	}
	if rows.Kind != value.KindArray || len(rows.Array.Elements) != 1 {
		t.Fatalf("query() = %v, want a single-row array", rows)
	}
	row := rows.Array.Elements[0]
	if name, ok := row.Object.Get("name"); !ok || name.Str != "widget" {
		t.Fatalf("query() row = %v, want name=widget", row)
	}
}

func TestAllExposesStatelessModulesOnly(t *testing.T) {
	all := hostlib.All()
	for _, name := range []string{"hash", "uuid", "humanize"} {
		if _, ok := all[name]; !ok {
			t.Errorf("All() missing module %q", name)
		}
	}
	if _, ok := all["db"]; ok {
		t.Error(`All() should not include "db": it needs a driver/dsn a generic register-everything call can't supply`)
	}
}
