package store

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// MockConn implements driver.Conn for testing
type MockConn struct {
	driver.Conn
	mu       sync.Mutex
	Execs    []string
	Batches  []*MockBatch
	Rows     [][]any
	Count    uint64
	SendErr  error
	QueryErr error
	// AppendErrAt fails the nth Append (1-based) of every batch. Zero never fails.
	AppendErrAt int
}

func (m *MockConn) Exec(ctx context.Context, query string, args ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Execs = append(m.Execs, strings.TrimSpace(query))
	return nil
}

func (m *MockConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := &MockBatch{sendErr: m.SendErr, appendErrAt: m.AppendErrAt}
	m.Batches = append(m.Batches, b)
	return b, nil
}

func (m *MockConn) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	return &MockRow{value: m.Count}
}

func (m *MockConn) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return &MockRows{rows: m.Rows}, nil
}

func (m *MockConn) Ping(ctx context.Context) error { return nil }

func (m *MockConn) Close() error { return nil }

type MockBatch struct {
	driver.Batch
	Appended    [][]any
	Sent        bool
	Aborted     bool
	sendErr     error
	appendErrAt int
	appends     int
}

func (m *MockBatch) Append(v ...any) error {
	m.appends++
	if m.appends == m.appendErrAt {
		return errors.New("clickhouse: converting column play_id")
	}
	m.Appended = append(m.Appended, v)
	return nil
}

func (m *MockBatch) Abort() error {
	m.Aborted = true
	return nil
}

func (m *MockBatch) Send() error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.Sent = true
	return nil
}

type MockRow struct {
	driver.Row
	value uint64
}

func (m *MockRow) Scan(dest ...any) error {
	assign(dest[0], m.value)
	return nil
}

func (m *MockRow) Err() error { return nil }

type MockRows struct {
	driver.Rows
	rows [][]any
	idx  int
}

func (m *MockRows) Next() bool {
	m.idx++
	return m.idx <= len(m.rows)
}

func (m *MockRows) Scan(dest ...any) error {
	row := m.rows[m.idx-1]
	for i := range dest {
		assign(dest[i], row[i])
	}
	return nil
}

func (m *MockRows) Close() error { return nil }

func (m *MockRows) Err() error { return nil }

func assign(dest any, val any) {
	// Simple reflection to assign value to pointer
	v := reflect.ValueOf(dest).Elem()
	if val == nil {
		v.Set(reflect.Zero(v.Type()))
		return
	}
	v.Set(reflect.ValueOf(val))
}

// MockPgPool keeps fit payloads in memory keyed by fit_key.
type MockPgPool struct {
	mu       sync.Mutex
	payloads map[string][]byte
	ExecSQL  []string
}

func NewMockPgPool() *MockPgPool {
	return &MockPgPool{payloads: make(map[string][]byte)}
}

func (m *MockPgPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecSQL = append(m.ExecSQL, sql)
	if strings.Contains(sql, "INSERT INTO model_fits") {
		m.payloads[args[1].(string)] = args[5].([]byte)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (m *MockPgPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.payloads[args[0].(string)]
	return &mockPgRow{payload: payload, found: ok}
}

func (m *MockPgPool) Ping(ctx context.Context) error { return nil }

type mockPgRow struct {
	payload []byte
	found   bool
}

func (r *mockPgRow) Scan(dest ...any) error {
	if !r.found {
		return pgx.ErrNoRows
	}
	*(dest[0].(*[]byte)) = r.payload
	return nil
}

// MockRedis is an in-memory RedisClient.
type MockRedis struct {
	mu   sync.Mutex
	data map[string]string
	TTLs map[string]time.Duration
	Fail bool
}

func NewMockRedis() *MockRedis {
	return &MockRedis{data: make(map[string]string), TTLs: make(map[string]time.Duration)}
}

func (m *MockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *MockRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return redis.NewStatusResult("", errors.New("connection refused"))
	}
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	m.TTLs[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *MockRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}
