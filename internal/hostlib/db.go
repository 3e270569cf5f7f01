package hostlib

import (
	"database/sql"
	"fmt"
	"math/big"

	_ "modernc.org/sqlite"

	"github.com/funvibe/cascade/internal/eval"
)

// DB wraps a SQLite database and exposes it to formulas as host functions.
// One DB may back any number of compiled programs; database/sql handles
// the pooling.
type DB struct {
	conn *sql.DB
}

// OpenDB opens (or creates) a SQLite database at path. ":memory:" works.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("hostlib: open %s: %w", path, err)
	}
	return &DB{conn: conn}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// Functions returns the dbQuery and dbExec host functions bound to this
// database.
func (db *DB) Functions() map[string]eval.Object {
	return map[string]eval.Object{
		"dbQuery": fn("dbQuery", db.query),
		"dbExec":  fn("dbExec", db.exec),
	}
}

// query(sql, params...) evaluates to a List of Records, one per row, keyed
// by column name.
func (db *DB) query(args []eval.Object) eval.Object {
	if len(args) == 0 {
		return eval.NewError(eval.InvokeUnsupported, "dbQuery expects a query string")
	}
	stmt := eval.CastString(args[0])
	if eval.IsError(stmt) {
		return stmt
	}
	params, errObj := sqlParams(args[1:])
	if errObj != nil {
		return errObj
	}

	rows, err := db.conn.Query(stmt.(*eval.String).Value, params...)
	if err != nil {
		return eval.NewError(eval.InvokeUnsupported, "dbQuery: %v", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return eval.NewError(eval.InvokeUnsupported, "dbQuery: %v", err)
	}

	var out []eval.Object
	for rows.Next() {
		values := make([]interface{}, len(columns))
		scan := make([]interface{}, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return eval.NewError(eval.InvokeUnsupported, "dbQuery: %v", err)
		}
		record := eval.NewRecord()
		for i, col := range columns {
			record.Set(col, sqlValue(values[i]))
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return eval.NewError(eval.InvokeUnsupported, "dbQuery: %v", err)
	}
	return &eval.List{Elements: out}
}

// exec(sql, params...) evaluates to the number of affected rows.
func (db *DB) exec(args []eval.Object) eval.Object {
	if len(args) == 0 {
		return eval.NewError(eval.InvokeUnsupported, "dbExec expects a statement string")
	}
	stmt := eval.CastString(args[0])
	if eval.IsError(stmt) {
		return stmt
	}
	params, errObj := sqlParams(args[1:])
	if errObj != nil {
		return errObj
	}

	res, err := db.conn.Exec(stmt.(*eval.String).Value, params...)
	if err != nil {
		return eval.NewError(eval.InvokeUnsupported, "dbExec: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return eval.NewError(eval.InvokeUnsupported, "dbExec: %v", err)
	}
	return eval.NumberFromInt(affected)
}

// sqlParams converts formula values to driver parameters. Numbers bind as
// float64 unless integral; Pendings are rejected, they must be awaited
// before reaching the database.
func sqlParams(args []eval.Object) ([]interface{}, eval.Object) {
	var params []interface{}
	for _, arg := range args {
		switch v := arg.(type) {
		case *eval.Number:
			if v.Value.IsInt() {
				params = append(params, v.Value.Num().Int64())
			} else {
				f, _ := v.Value.Float64()
				params = append(params, f)
			}
		case *eval.String:
			params = append(params, v.Value)
		case *eval.Boolean:
			params = append(params, v.Value)
		case *eval.Error:
			return nil, v
		default:
			return nil, eval.NewError(eval.CoercionFailed, "cannot bind %s as a query parameter", arg.Type())
		}
	}
	return params, nil
}

func sqlValue(v interface{}) eval.Object {
	switch value := v.(type) {
	case nil:
		return &eval.String{Value: ""}
	case int64:
		return eval.NumberFromInt(value)
	case float64:
		r := new(big.Rat)
		r.SetFloat64(value)
		return &eval.Number{Value: r}
	case bool:
		return eval.NativeBoolToBooleanObject(value)
	case string:
		return &eval.String{Value: value}
	case []byte:
		return &eval.String{Value: string(value)}
	default:
		return &eval.String{Value: fmt.Sprintf("%v", value)}
	}
}
