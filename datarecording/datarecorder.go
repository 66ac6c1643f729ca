// Package datarecording stores what happens during a simulation run in a
// SQLite database.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/structs"

	// Registers the "sqlite3" driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// defaultBatchSize is how many buffered rows trigger an automatic flush.
const defaultBatchSize = 10000

// DataRecorder buffers rows of flat structs and writes them to tables.
// One table holds one struct type, with a column per field.
type DataRecorder interface {
	// CreateTable declares a table whose columns follow the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers a row for a declared table. The row must have the
	// same type as the table's sample entry.
	InsertData(tableName string, entry any)

	// ListTables returns the declared table names in sorted order.
	ListTables() []string

	// Flush writes every buffered row in a single transaction.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

// New creates a DataRecorder that writes to path.sqlite3. An empty path
// picks a unique name. Buffered entries are flushed when the program exits
// through atexit.
func New(path string) DataRecorder {
	if path == "" {
		path = "vmsim_recording_" + xid.New().String()
	}

	rec := newSQLiteRecorder(openRecording(path + ".sqlite3"))

	atexit.Register(func() { rec.Flush() })

	return rec
}

// NewWithDB creates a DataRecorder on an already opened database.
func NewWithDB(db *sql.DB) DataRecorder {
	return newSQLiteRecorder(db)
}

// openRecording refuses to append to an existing recording.
func openRecording(filename string) *sql.DB {
	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("recording %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "Recording to %s\n", filename)

	return db
}

type pendingTable struct {
	rowType reflect.Type
	rows    []any
}

type sqliteRecorder struct {
	db *sql.DB

	tables    map[string]*pendingTable
	batchSize int
	buffered  int
}

func newSQLiteRecorder(db *sql.DB) *sqliteRecorder {
	return &sqliteRecorder{
		db:        db,
		tables:    make(map[string]*pendingTable),
		batchSize: defaultBatchSize,
	}
}

func storableKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}

	return false
}

// validateRowType accepts structs whose fields are all exported scalars.
func validateRowType(rowType reflect.Type) error {
	if rowType.Kind() != reflect.Struct {
		return errors.New("entry must be a struct")
	}

	for i := range rowType.NumField() {
		field := rowType.Field(i)

		if !field.IsExported() {
			return fmt.Errorf("field %s is not exported", field.Name)
		}

		if !storableKind(field.Type.Kind()) {
			return fmt.Errorf("field %s of kind %s cannot be stored",
				field.Name, field.Type.Kind())
		}
	}

	return nil
}

func (r *sqliteRecorder) CreateTable(tableName string, sampleEntry any) {
	rowType := reflect.TypeOf(sampleEntry)
	if err := validateRowType(rowType); err != nil {
		panic(err)
	}

	columns := strings.Join(structs.Names(sampleEntry), ", ")
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", tableName, columns)

	if _, err := r.db.Exec(stmt); err != nil {
		panic(fmt.Errorf("creating table %s: %w", tableName, err))
	}

	r.tables[tableName] = &pendingTable{rowType: rowType}
}

func (r *sqliteRecorder) InsertData(tableName string, entry any) {
	t, ok := r.tables[tableName]
	if !ok {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.rowType {
		panic(fmt.Sprintf("entry of type %T does not match table %s",
			entry, tableName))
	}

	t.rows = append(t.rows, entry)

	r.buffered++
	if r.buffered >= r.batchSize {
		r.Flush()
	}
}

func (r *sqliteRecorder) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (r *sqliteRecorder) Flush() {
	if r.buffered == 0 {
		return
	}

	tx, err := r.db.Begin()
	if err != nil {
		panic(fmt.Errorf("starting flush: %w", err))
	}

	for name, t := range r.tables {
		if len(t.rows) == 0 {
			continue
		}

		if err := writeRows(tx, name, t.rows); err != nil {
			_ = tx.Rollback()
			panic(fmt.Errorf("flushing table %s: %w", name, err))
		}
	}

	if err := tx.Commit(); err != nil {
		panic(fmt.Errorf("committing flush: %w", err))
	}

	for _, t := range r.tables {
		t.rows = nil
	}

	r.buffered = 0
}

// writeRows inserts rows of the same type through one prepared statement
// bound to tx.
func writeRows(tx *sql.Tx, tableName string, rows []any) error {
	placeholders := strings.Repeat("?, ", len(structs.Names(rows[0])))
	placeholders = strings.TrimSuffix(placeholders, ", ")

	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s VALUES (%s)",
		tableName, placeholders))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(structs.Values(row)...); err != nil {
			return err
		}
	}

	return nil
}

func (r *sqliteRecorder) Close() error {
	r.Flush()
	return r.db.Close()
}
