package datarecording

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/tebeka/atexit"
)

// ClickHouseOptions tells where a ClickHouseRecorder connects to.
type ClickHouseOptions struct {
	Addr      string
	Database  string
	Username  string
	Password  string
	BatchSize int
}

// ClickHouseRecorder is a DataRecorder that writes into a ClickHouse server.
// Each table becomes a MergeTree table ordered by its first column.
type ClickHouseRecorder struct {
	conn      clickhouse.Conn
	mu        sync.Mutex
	batchSize int

	tables     map[string]*table
	tableOrder []string
	entryCount int
}

// NewClickHouseRecorder connects to a ClickHouse server. Buffered entries are
// flushed when the program exits through atexit.
func NewClickHouseRecorder(opts ClickHouseOptions) (*ClickHouseRecorder, error) {
	if opts.BatchSize == 0 {
		opts.BatchSize = defaultBatchSize
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	r := &ClickHouseRecorder{
		conn:      conn,
		batchSize: opts.BatchSize,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { r.Flush() })

	return r, nil
}

// clickHouseType maps a Go kind to the ClickHouse column type it is stored
// as.
func clickHouseType(kind reflect.Kind) (string, bool) {
	switch kind {
	case reflect.Bool:
		return "Bool", true
	case reflect.Int8:
		return "Int8", true
	case reflect.Int16:
		return "Int16", true
	case reflect.Int32:
		return "Int32", true
	case reflect.Int, reflect.Int64:
		return "Int64", true
	case reflect.Uint8:
		return "UInt8", true
	case reflect.Uint16:
		return "UInt16", true
	case reflect.Uint32:
		return "UInt32", true
	case reflect.Uint, reflect.Uint64:
		return "UInt64", true
	case reflect.Float32:
		return "Float32", true
	case reflect.Float64:
		return "Float64", true
	case reflect.String:
		return "String", true
	default:
		return "", false
	}
}

// clickHouseValue converts a field into the plain Go type its column
// accepts.
func clickHouseValue(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.Int8:
		return int8(v.Int())
	case reflect.Int16:
		return int16(v.Int())
	case reflect.Int32:
		return int32(v.Int())
	case reflect.Int, reflect.Int64:
		return v.Int()
	case reflect.Uint8:
		return uint8(v.Uint())
	case reflect.Uint16:
		return uint16(v.Uint())
	case reflect.Uint32:
		return uint32(v.Uint())
	case reflect.Uint, reflect.Uint64:
		return v.Uint()
	case reflect.Float32:
		return float32(v.Float())
	case reflect.Float64:
		return v.Float()
	default:
		return v.String()
	}
}

func createClickHouseTableSQL(tableName string, sampleEntry any) string {
	t := reflect.TypeOf(sampleEntry)
	columns := make([]string, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		colType, _ := clickHouseType(field.Type.Kind())
		columns = append(columns, field.Name+" "+colType)
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n) ENGINE = MergeTree()\nORDER BY %s",
		tableName, strings.Join(columns, ",\n\t"), t.Field(0).Name)
}

// CreateTable creates a table with a column per field of the sample entry.
func (r *ClickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	if err := checkStructFields(sampleEntry); err != nil {
		panic(err)
	}

	if reflect.TypeOf(sampleEntry).NumField() == 0 {
		panic(fmt.Errorf("entry %T has no fields", sampleEntry))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.conn.Exec(context.Background(),
		createClickHouseTableSQL(tableName, sampleEntry))
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	r.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}
	r.tableOrder = append(r.tableOrder, tableName)
}

// InsertData buffers an entry.
func (r *ClickHouseRecorder) InsertData(tableName string, entry any) {
	r.mu.Lock()

	t, exists := r.tables[tableName]
	if !exists {
		r.mu.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	t.entries = append(t.entries, entry)

	r.entryCount++
	full := r.entryCount >= r.batchSize
	r.mu.Unlock()

	if full {
		r.Flush()
	}
}

// ListTables returns all table names in creation order.
func (r *ClickHouseRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tables := make([]string, len(r.tableOrder))
	copy(tables, r.tableOrder)

	return tables
}

// Flush writes all buffered data with one batch per table.
func (r *ClickHouseRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entryCount == 0 {
		return
	}

	ctx := context.Background()

	for _, tableName := range r.tableOrder {
		t := r.tables[tableName]
		if len(t.entries) == 0 {
			continue
		}

		r.flushTable(ctx, tableName, t)
	}

	r.entryCount = 0
}

func (r *ClickHouseRecorder) flushTable(
	ctx context.Context,
	tableName string,
	t *table,
) {
	batch, err := r.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", tableName))
	if err != nil {
		panic(fmt.Errorf("failed to prepare batch for %s: %w", tableName, err))
	}

	for _, entry := range t.entries {
		v := reflect.ValueOf(entry)
		row := make([]any, 0, v.NumField())

		for i := 0; i < v.NumField(); i++ {
			row = append(row, clickHouseValue(v.Field(i)))
		}

		err = batch.Append(row...)
		if err != nil {
			panic(fmt.Errorf("failed to append to batch: %w", err))
		}
	}

	err = batch.Send()
	if err != nil {
		panic(fmt.Errorf("failed to send batch: %w", err))
	}

	t.entries = t.entries[:0]
}

// Close flushes remaining data and closes the connection.
func (r *ClickHouseRecorder) Close() error {
	r.Flush()

	err := r.conn.Close()
	if err != nil {
		return fmt.Errorf("failed to close ClickHouse connection: %w", err)
	}

	return nil
}
