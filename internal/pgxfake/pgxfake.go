// Package pgxfake contiene dobles de pgx para testear repositorios sin base de datos.
package pgxfake

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Call registra una sentencia ejecutada.
type Call struct {
	SQL  string
	Args []any
}

// DB implementa el subconjunto de pgxpool.Pool que usan los repositorios.
type DB struct {
	QueryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	QueryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	ExecFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	BeginErr  error
	CommitErr error

	Calls     []Call
	TxOptions *pgx.TxOptions
	Tx        *Tx
}

// QueryRow implementa pgx QueryRow.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db.record(sql, args)
	if db.QueryRowFn == nil {
		return &Row{Err: errors.New("unexpected QueryRow call")}
	}
	return db.QueryRowFn(ctx, sql, args...)
}

// Query implementa pgx Query.
func (db *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.record(sql, args)
	if db.QueryFn == nil {
		return nil, errors.New("unexpected Query call")
	}
	return db.QueryFn(ctx, sql, args...)
}

// Exec implementa pgx Exec.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.record(sql, args)
	if db.ExecFn == nil {
		return pgconn.CommandTag{}, errors.New("unexpected Exec call")
	}
	return db.ExecFn(ctx, sql, args...)
}

// BeginTx abre una transacción falsa que delega en las mismas funciones.
func (db *DB) BeginTx(ctx context.Context, options pgx.TxOptions) (pgx.Tx, error) {
	db.TxOptions = &options
	if db.BeginErr != nil {
		return nil, db.BeginErr
	}
	db.Tx = &Tx{db: db}
	return db.Tx, nil
}

// Ping siempre responde ok.
func (db *DB) Ping(ctx context.Context) error {
	return nil
}

// LastCall devuelve la última sentencia registrada.
func (db *DB) LastCall() Call {
	if len(db.Calls) == 0 {
		return Call{}
	}
	return db.Calls[len(db.Calls)-1]
}

func (db *DB) record(sql string, args []any) {
	db.Calls = append(db.Calls, Call{SQL: sql, Args: args})
}

// Tx es una transacción falsa. Los métodos no sobreescritos hacen panic (pgx.Tx nil).
type Tx struct {
	pgx.Tx
	db *DB

	Committed  bool
	RolledBack bool
}

// QueryRow delega en el DB.
func (tx *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return tx.db.QueryRow(ctx, sql, args...)
}

// Query delega en el DB.
func (tx *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return tx.db.Query(ctx, sql, args...)
}

// Exec delega en el DB.
func (tx *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return tx.db.Exec(ctx, sql, args...)
}

// Commit marca la transacción como confirmada.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.db.CommitErr != nil {
		return tx.db.CommitErr
	}
	tx.Committed = true
	return nil
}

// Rollback se comporta como pgx: después de Commit devuelve ErrTxClosed.
func (tx *Tx) Rollback(ctx context.Context) error {
	if tx.Committed {
		return pgx.ErrTxClosed
	}
	tx.RolledBack = true
	return nil
}

// Row es un pgx.Row con valores fijos.
type Row struct {
	Values []any
	Err    error
}

// Scan copia Values en dest.
func (row *Row) Scan(dest ...any) error {
	if row.Err != nil {
		return row.Err
	}
	return AssignValues(dest, row.Values)
}

// Rows es un pgx.Rows en memoria.
type Rows struct {
	Data    [][]any
	IterErr error
	ScanErr error

	idx    int
	closed bool
}

// Close implementa pgx.Rows.
func (rows *Rows) Close() {
	rows.closed = true
}

// Closed indica si el repositorio cerró las filas.
func (rows *Rows) Closed() bool {
	return rows.closed
}

// Err implementa pgx.Rows.
func (rows *Rows) Err() error {
	return rows.IterErr
}

// CommandTag implementa pgx.Rows.
func (rows *Rows) CommandTag() pgconn.CommandTag {
	return pgconn.CommandTag{}
}

// FieldDescriptions implementa pgx.Rows.
func (rows *Rows) FieldDescriptions() []pgconn.FieldDescription {
	return nil
}

// Next implementa pgx.Rows.
func (rows *Rows) Next() bool {
	if rows.closed {
		return false
	}
	if rows.idx >= len(rows.Data) {
		rows.closed = true
		return false
	}
	rows.idx++
	return true
}

// Scan implementa pgx.Rows.
func (rows *Rows) Scan(dest ...any) error {
	if rows.ScanErr != nil {
		return rows.ScanErr
	}
	if rows.idx == 0 || rows.idx > len(rows.Data) {
		return errors.New("scan called without next")
	}
	return AssignValues(dest, rows.Data[rows.idx-1])
}

// Values implementa pgx.Rows.
func (rows *Rows) Values() ([]any, error) {
	return nil, errors.New("not implemented")
}

// RawValues implementa pgx.Rows.
func (rows *Rows) RawValues() [][]byte {
	return nil
}

// Conn implementa pgx.Rows.
func (rows *Rows) Conn() *pgx.Conn {
	return nil
}

// AssignValues copia values en dest por reflexión, resolviendo punteros a punteros como pgx.
func AssignValues(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("dest len %d does not match values len %d", len(dest), len(values))
	}
	for i, d := range dest {
		if d == nil {
			continue
		}
		if err := assignValue(d, values[i]); err != nil {
			return err
		}
	}
	return nil
}

func assignValue(dest any, value any) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr {
		return fmt.Errorf("dest is not pointer")
	}
	if value == nil {
		destValue.Elem().Set(reflect.Zero(destValue.Elem().Type()))
		return nil
	}
	valueValue := reflect.ValueOf(value)
	destElem := destValue.Elem()
	if destElem.Kind() == reflect.Ptr {
		ptrValue := reflect.New(destElem.Type().Elem())
		ptrValue.Elem().Set(valueValue.Convert(destElem.Type().Elem()))
		destElem.Set(ptrValue)
		return nil
	}
	destElem.Set(valueValue.Convert(destElem.Type()))
	return nil
}

// NormalizeSQL colapsa espacios para comparar sentencias.
func NormalizeSQL(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
