package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
)

// QueryParams narrows and orders the rows returned by Query. Where and
// OrderBy are SQL fragments such as "Faulted = ?" and "Seq DESC". Args fill
// the placeholders in Where. A zero Limit returns every row, and Offset only
// applies together with a Limit.
type QueryParams struct {
	Where   string
	Args    []any
	Limit   int
	Offset  int
	OrderBy string
}

// DataReader reads back tables written by a DataRecorder.
type DataReader interface {
	// MapTable tells the reader which struct type the rows of tableName
	// decode into. Unmapped tables cannot be queried.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped table names in sorted order.
	ListTables() []string

	// Query executes a query on a table and returns pointers to the decoded
	// entries along with the number of rows matching params.Where.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type sqliteReader struct {
	db *sql.DB

	rowTypes map[string]reflect.Type
}

// NewReader opens a recording for reading.
func NewReader(dbFilename string) (DataReader, error) {
	db, err := sql.Open("sqlite3", "file:"+dbFilename+"?mode=ro")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %s: %w", dbFilename, err)
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB reads from an already opened database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		db:       db,
		rowTypes: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.rowTypes[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) ListTables() []string {
	names := make([]string, 0, len(r.rowTypes))
	for name := range r.rowTypes {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	rowType, ok := r.rowTypes[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	filter := ""
	if params.Where != "" {
		filter = " WHERE " + params.Where
	}

	var total int

	countQuery := "SELECT COUNT(*) FROM " + tableName + filter
	err := r.db.QueryRowContext(ctx, countQuery, params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting rows of %s: %w", tableName, err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT * FROM "+tableName+filter+pageClause(params), params.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying %s: %w", tableName, err)
	}
	defer rows.Close()

	results, err := decodeRows(rows, rowType)
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func pageClause(params QueryParams) string {
	clause := ""

	if params.OrderBy != "" {
		clause += " ORDER BY " + params.OrderBy
	}

	if params.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT %d", params.Limit)
		if params.Offset > 0 {
			clause += fmt.Sprintf(" OFFSET %d", params.Offset)
		}
	}

	return clause
}

// decodeRows returns a pointer to a new rowType value per row. Columns
// without a matching field are dropped.
func decodeRows(rows *sql.Rows, rowType reflect.Type) ([]any, error) {
	var results []any

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fieldMap := make(map[string]int)

	for i := range rowType.NumField() {
		fieldMap[rowType.Field(i).Name] = i
	}

	for rows.Next() {
		structPtr := reflect.New(rowType)
		structVal := structPtr.Elem()
		scanTargets := make([]any, len(columns))

		for i, colName := range columns {
			if fieldIdx, ok := fieldMap[colName]; ok {
				scanTargets[i] = structVal.Field(fieldIdx).Addr().Interface()
			} else {
				var placeholder any

				scanTargets[i] = &placeholder
			}
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, err
		}

		results = append(results, structPtr.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}
