package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/koustreak/pdo/internal/connections"
	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/drivers"
	"github.com/koustreak/pdo/internal/errs"
	"github.com/koustreak/pdo/internal/filestore"
	"github.com/koustreak/pdo/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	objects map[string][]byte
}

func (m *memStore) Ping(context.Context) error                 { return nil }
func (m *memStore) Close() error                               { return nil }
func (m *memStore) EnsureBucket(context.Context, string) error { return nil }
func (m *memStore) StatObject(context.Context, string, string) (*filestore.ObjectInfo, error) {
	return nil, nil
}

func (m *memStore) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.objects[bucket+"/"+key] = data
	return &filestore.ObjectInfo{Bucket: bucket, Key: key, Size: size, ContentType: opts.ContentType}, nil
}

func (m *memStore) PresignGetURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://files.example.com/" + bucket + "/" + key, nil
}

type fixture struct {
	handler http.Handler
	store   *memStore
	logs    *bytes.Buffer
}

func newFixture(t *testing.T, maxRows int) *fixture {
	t.Helper()
	ctx := context.Background()

	registry, err := drivers.Default()
	require.NoError(t, err)

	mgr := connections.NewManager(registry, map[string]*database.Config{
		"main":   database.DefaultConfig("sqlite::memory:"),
		"broken": database.DefaultConfig("odbc:dsn=legacy"),
	})
	t.Cleanup(mgr.Close)

	c, err := mgr.Get(ctx, "main")
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL UNIQUE)`,
		`INSERT INTO users (id, email) VALUES (1, 'a@example.com'), (2, 'b@example.com'), (3, 'c@example.com')`,
	} {
		_, err := c.DB.Exec(ctx, stmt)
		require.NoError(t, err)
	}

	logs := &bytes.Buffer{}
	store := &memStore{objects: map[string][]byte{}}
	s := New(Options{
		Registry:    registry,
		Connections: mgr,
		Logger:      logger.New(&logger.Config{Level: "debug", Format: "json", Output: logs}),
		Store:       store,
		Bucket:      "exports",
		MaxRows:     maxRows,
	})
	return &fixture{handler: s.Handler(), store: store, logs: logs}
}

func (f *fixture) do(t *testing.T, method, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec.Code, body
}

func TestDrivers(t *testing.T) {
	f := newFixture(t, 0)

	status, body := f.do(t, http.MethodGet, "/drivers")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"pgsql", "mysql", "sqlite"}, body["drivers"])
}

func TestDrivers_EmptyRegistry(t *testing.T) {
	empty, err := database.NewRegistry()
	require.NoError(t, err)
	h := New(Options{Registry: empty, Logger: logger.Nop()}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/drivers", nil))
	assert.JSONEq(t, `{"drivers":[]}`, rec.Body.String())
}

func TestHealthAndConnections(t *testing.T) {
	f := newFixture(t, 0)

	status, body := f.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = f.do(t, http.MethodGet, "/connections/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"broken", "main"}, body["connections"])

	status, body = f.do(t, http.MethodGet, "/connections/main/ping")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sqlite", body["driver"])
}

func TestTables(t *testing.T) {
	f := newFixture(t, 0)

	status, body := f.do(t, http.MethodGet, "/connections/main/tables")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"users"}, body["tables"])
}

func TestRows_Pagination(t *testing.T) {
	f := newFixture(t, 0)

	status, body := f.do(t, http.MethodGet, "/connections/main/tables/users?limit=2&offset=1")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["count"])

	rows := body["rows"].([]any)
	first := rows[0].(map[string]any)
	assert.Equal(t, "b@example.com", first["email"])
}

func TestRows_MaxRowsCap(t *testing.T) {
	f := newFixture(t, 2)

	status, body := f.do(t, http.MethodGet, "/connections/main/tables/users?limit=100")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["limit"])
	assert.Equal(t, float64(2), body["count"])

	_, body = f.do(t, http.MethodGet, "/connections/main/tables/users?offset=2")
	assert.Equal(t, float64(1), body["count"])
}

func TestRows_Errors(t *testing.T) {
	f := newFixture(t, 0)

	tests := []struct {
		name   string
		path   string
		status int
		kind   string
		code   any
	}{
		{"bad limit", "/connections/main/tables/users?limit=abc", http.StatusBadRequest, "invalid_input", float64(0)},
		{"negative offset", "/connections/main/tables/users?offset=-1", http.StatusBadRequest, "invalid_input", float64(0)},
		{"missing table", "/connections/main/tables/nope", http.StatusNotFound, "not_found", "42S02"},
		{"unknown connection", "/connections/zzz/tables", http.StatusNotFound, "not_found", float64(0)},
		{"unknown driver", "/connections/broken/tables", http.StatusBadRequest, "invalid_input", float64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, http.MethodGet, tt.path)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, body["kind"])
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
			assert.Contains(t, body, "error_info")
		})
	}
}

func TestRows_MissingTableErrorInfo(t *testing.T) {
	f := newFixture(t, 0)

	_, body := f.do(t, http.MethodGet, "/connections/main/tables/nope")
	info := body["error_info"].([]any)
	require.Len(t, info, 3)
	assert.Equal(t, "42S02", info[0])
	assert.Nil(t, info[1])
}

func TestSchema(t *testing.T) {
	f := newFixture(t, 0)

	status, body := f.do(t, http.MethodGet, "/connections/main/tables/users/schema")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "users", body["name"])

	cols := body["columns"].([]any)
	require.Len(t, cols, 2)
	assert.Equal(t, "email", cols[1].(map[string]any)["name"])
}

func TestExport(t *testing.T) {
	f := newFixture(t, 0)

	status, body := f.do(t, http.MethodPost, "/connections/main/tables/users/export?format=ndjson&limit=2&presign=15m")
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(2), body["rows"])
	assert.NotEmpty(t, body["url"])

	obj := body["object"].(map[string]any)
	assert.Equal(t, "exports", obj["bucket"])
	assert.Contains(t, f.store.objects, "exports/"+obj["key"].(string))
}

func TestExport_BadPresign(t *testing.T) {
	f := newFixture(t, 0)

	status, body := f.do(t, http.MethodPost, "/connections/main/tables/users/export?presign=soon")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", body["kind"])
}

func TestRequestsAreLogged(t *testing.T) {
	f := newFixture(t, 0)

	f.do(t, http.MethodGet, "/healthz")
	assert.Contains(t, f.logs.String(), `"path":"/healthz"`)
	assert.Contains(t, f.logs.String(), `"status":200`)
}

func TestNotFoundRoute(t *testing.T) {
	f := newFixture(t, 0)

	status, body := f.do(t, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "route not found", body["error"])
}

// stallingDB blocks in ListTables until its context is done.
type stallingDB struct {
	database.DB
}

func (stallingDB) DriverName() string { return "stall" }
func (stallingDB) Close()             {}

func (stallingDB) ListTables(ctx context.Context) ([]string, error) {
	<-ctx.Done()
	return nil, database.NewDriverError(errs.ErrKindTimeout, "list tables timed out", ctx.Err(),
		database.ErrorInfo{database.SQLStateTimeout, nil, ctx.Err().Error()})
}

func TestQueryTimeoutBoundsRequests(t *testing.T) {
	registry, err := database.NewRegistry(database.DriverInfo{
		Name:    "stall",
		Dialect: database.DialectSQLite,
		Open: func(context.Context, *database.Config) (database.DB, error) {
			return stallingDB{}, nil
		},
	})
	require.NoError(t, err)

	cfg := database.DefaultConfig("stall:x")
	cfg.QueryTimeout = 20 * time.Millisecond
	mgr := connections.NewManager(registry, map[string]*database.Config{"slow": cfg})
	t.Cleanup(mgr.Close)

	f := &fixture{handler: New(Options{Registry: registry, Connections: mgr, Logger: logger.Nop()}).Handler()}

	start := time.Now()
	status, body := f.do(t, http.MethodGet, "/connections/slow/tables")
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, http.StatusGatewayTimeout, status)
	assert.Equal(t, "timeout", body["kind"])
	assert.Equal(t, "HYT00", body["code"])
}
