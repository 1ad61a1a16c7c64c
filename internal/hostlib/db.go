package hostlib

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"vellum/internal/value"
)

// DB opens a database connection and wraps it as a HostObject exposing
// db.query(sql, ...args) and db.exec(sql, ...args) — a query/reporting
// sandbox a host can inject into a script's context (spec §4.3) without the
// script ever importing database/sql itself. driver is "postgres" (backed
// by lib/pq) or "sqlite" (backed by modernc.org/sqlite's pure-Go driver, no
// cgo required).
func DB(driver, dsn string) (Module, error) {
	if driver != "postgres" && driver != "sqlite" {
		return value.Value{}, fmt.Errorf("hostlib: unsupported db driver %q", driver)
	}
	handle, err := sql.Open(driver, dsn)
	if err != nil {
		return value.Value{}, err
	}
	if err := handle.Ping(); err != nil {
		return value.Value{}, err
	}
	ho := &value.HostObject{TypeName: "DB", Data: handle}
	ho.Methods = map[string]value.HostFunc{
		"query": func(_ value.Value, args []value.Value) (value.Value, error) {
			return dbQuery(handle, args)
		},
		"exec": func(_ value.Value, args []value.Value) (value.Value, error) {
			return dbExec(handle, args)
		},
		"close": func(_ value.Value, _ []value.Value) (value.Value, error) {
			return value.Undefined, handle.Close()
		},
	}
	return value.FromHostObject(ho), nil
}

func dbArgs(args []value.Value) (string, []interface{}) {
	if len(args) == 0 {
		return "", nil
	}
	query := args[0].ToString()
	params := make([]interface{}, len(args)-1)
	for i, a := range args[1:] {
		params[i] = scriptValueToSQL(a)
	}
	return query, params
}

func scriptValueToSQL(v value.Value) interface{} {
	switch v.Kind {
	case value.KindNumber:
		return v.Number
	case value.KindBool:
		return v.Bool
	case value.KindNull, value.KindUndefined:
		return nil
	default:
		return v.ToString()
	}
}

func dbQuery(handle *sql.DB, args []value.Value) (value.Value, error) {
	query, params := dbArgs(args)
	if query == "" {
		return value.Value{}, hostlibError("db.query requires a SQL string argument")
	}
	rows, err := handle.Query(query, params...)
	if err != nil {
		return value.Value{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return value.Value{}, err
	}
	var results []value.Value
	for rows.Next() {
		scanTargets := make([]interface{}, len(cols))
		scanValues := make([]interface{}, len(cols))
		for i := range scanTargets {
			scanTargets[i] = &scanValues[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return value.Value{}, err
		}
		row := value.NewObject()
		for i, col := range cols {
			row.Set(col, sqlValueToScript(scanValues[i]))
		}
		results = append(results, value.FromObject(row))
	}
	if err := rows.Err(); err != nil {
		return value.Value{}, err
	}
	return value.FromArray(value.NewArray(results)), nil
}

func dbExec(handle *sql.DB, args []value.Value) (value.Value, error) {
	query, params := dbArgs(args)
	if query == "" {
		return value.Value{}, hostlibError("db.exec requires a SQL string argument")
	}
	result, err := handle.Exec(query, params...)
	if err != nil {
		return value.Value{}, err
	}
	out := value.NewObject()
	if affected, err := result.RowsAffected(); err == nil {
		out.Set("rowsAffected", value.Number(float64(affected)))
	}
	if id, err := result.LastInsertId(); err == nil {
		out.Set("lastInsertId", value.Number(float64(id)))
	}
	return value.FromObject(out), nil
}

func sqlValueToScript(v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null
	case []byte:
		return value.String(string(t))
	case string:
		return value.String(t)
	case int64:
		return value.Number(float64(t))
	case float64:
		return value.Number(t)
	case bool:
		return value.Bool(t)
	default:
		return value.String(fmt.Sprintf("%v", t))
	}
}
