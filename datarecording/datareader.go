package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// QueryParams selects and orders the rows a query returns.
type QueryParams struct {
	// Where is a condition without the WHERE keyword, such as
	// "SimulationTime > ?". Args fill its placeholders.
	Where string
	Args  []any

	// Limit caps the number of rows returned. 0 means no limit. Offset only
	// applies together with a limit.
	Limit  int
	Offset int

	// OrderBy is a sort expression without the ORDER BY keywords.
	OrderBy string
}

// DataReader reads back the tables written by a DataRecorder.
type DataReader interface {
	// MapTable tells the reader which struct type the rows of a table are
	// decoded into. Columns are matched to fields by name.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped tables, sorted by name.
	ListTables() []string

	// Query returns one pointer to the mapped struct per row, together with
	// the number of rows matching params.Where before Limit and Offset.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type tableMapping struct {
	entryType reflect.Type
	fields    map[string]int
}

type sqliteReader struct {
	db       *sql.DB
	mappings map[string]tableMapping
}

// NewReader opens a file written by New for reading.
func NewReader(dbFilename string) DataReader {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		panic(err)
	}

	return NewReaderWithDB(db)
}

// NewReaderWithDB reads from an already opened database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		db:       db,
		mappings: make(map[string]tableMapping),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	t := reflect.TypeOf(sampleEntry)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("table %s must map to a struct, not %s", tableName, t))
	}

	m := tableMapping{entryType: t, fields: make(map[string]int)}
	for i := 0; i < t.NumField(); i++ {
		m.fields[t.Field(i).Name] = i
	}

	r.mappings[tableName] = m
}

func (r *sqliteReader) ListTables() []string {
	tables := make([]string, 0, len(r.mappings))
	for table := range r.mappings {
		tables = append(tables, table)
	}

	sort.Strings(tables)

	return tables
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	m, ok := r.mappings[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("no mapping found for table: %s", tableName)
	}

	var filter strings.Builder
	if params.Where != "" {
		filter.WriteString(" WHERE " + params.Where)
	}

	var totalCount int

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+tableName+filter.String(),
		params.Args...,
	).Scan(&totalCount)
	if err != nil {
		return nil, 0, err
	}

	if params.OrderBy != "" {
		filter.WriteString(" ORDER BY " + params.OrderBy)
	}

	if params.Limit > 0 {
		fmt.Fprintf(&filter, " LIMIT %d OFFSET %d", params.Limit, params.Offset)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT * FROM "+tableName+filter.String(), params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := m.scan(rows)
	if err != nil {
		return nil, 0, err
	}

	return results, totalCount, nil
}

// scan decodes every row into a new struct. Columns without a matching field
// are read and dropped.
func (m tableMapping) scan(rows *sql.Rows) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []any

	for rows.Next() {
		entry := reflect.New(m.entryType)
		targets := make([]any, len(columns))

		for i, col := range columns {
			if idx, ok := m.fields[col]; ok {
				targets[i] = entry.Elem().Field(idx).Addr().Interface()
			} else {
				targets[i] = new(any)
			}
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, entry.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}

// QueryAs runs Query and converts the rows to the mapped type T. It fails if
// the table is mapped to another type.
func QueryAs[T any](
	ctx context.Context,
	reader DataReader,
	tableName string,
	params QueryParams,
) ([]*T, error) {
	rows, _, err := reader.Query(ctx, tableName, params)
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(rows))

	for _, row := range rows {
		entry, ok := row.(*T)
		if !ok {
			var want T
			return nil, fmt.Errorf("table %s holds %T, not %T", tableName, row, &want)
		}

		out = append(out, entry)
	}

	return out, nil
}
