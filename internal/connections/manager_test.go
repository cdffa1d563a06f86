package connections

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDB struct {
	database.DB
	closed atomic.Bool
}

func (c *countingDB) DriverName() string { return "fake" }
func (c *countingDB) Close()             { c.closed.Store(true) }

func newRegistry(t *testing.T, opens *atomic.Int32, fail *atomic.Bool) *database.Registry {
	t.Helper()
	r, err := database.NewRegistry(database.DriverInfo{
		Name:    "fake",
		Dialect: database.DialectSQLite,
		Open: func(ctx context.Context, cfg *database.Config) (database.DB, error) {
			opens.Add(1)
			if fail != nil && fail.Load() {
				return nil, database.NewError(errs.ErrKindConnectionFailed, database.Code{}, "down", nil)
			}
			return &countingDB{}, nil
		},
	})
	require.NoError(t, err)
	return r
}

func TestManager_GetCachesConnection(t *testing.T) {
	var opens atomic.Int32
	m := NewManager(newRegistry(t, &opens, nil), map[string]*database.Config{
		"main": database.DefaultConfig("fake:x"),
	})

	c1, err := m.Get(context.Background(), "main")
	require.NoError(t, err)
	c2, err := m.Get(context.Background(), "main")
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, int32(1), opens.Load())
	assert.Equal(t, "main", c1.Name)
	assert.Equal(t, "fake", c1.Driver.Name)
}

func TestManager_ConcurrentGetOpensOnce(t *testing.T) {
	var opens atomic.Int32
	m := NewManager(newRegistry(t, &opens, nil), map[string]*database.Config{
		"main": database.DefaultConfig("fake:x"),
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Get(context.Background(), "main")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), opens.Load())
}

func TestManager_FailedOpenRetries(t *testing.T) {
	var opens atomic.Int32
	var fail atomic.Bool
	fail.Store(true)
	m := NewManager(newRegistry(t, &opens, &fail), map[string]*database.Config{
		"main": database.DefaultConfig("fake:x"),
	})

	_, err := m.Get(context.Background(), "main")
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))

	fail.Store(false)
	_, err = m.Get(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, int32(2), opens.Load())
}

func TestManager_Errors(t *testing.T) {
	var opens atomic.Int32
	m := NewManager(newRegistry(t, &opens, nil), map[string]*database.Config{
		"other": database.DefaultConfig("odbc:x"),
	})

	_, err := m.Get(context.Background(), "missing")
	assert.True(t, errs.IsNotFound(err))

	_, err = m.Get(context.Background(), "other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not find driver")
	assert.Equal(t, int32(0), opens.Load())
}

func TestManager_Close(t *testing.T) {
	var opens atomic.Int32
	m := NewManager(newRegistry(t, &opens, nil), map[string]*database.Config{
		"a": database.DefaultConfig("fake:a"),
		"b": database.DefaultConfig("fake:b"),
	})
	assert.Equal(t, []string{"a", "b"}, m.Names())

	c, err := m.Get(context.Background(), "a")
	require.NoError(t, err)

	m.Close()
	assert.True(t, c.DB.(*countingDB).closed.Load())

	_, err = m.Get(context.Background(), "a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, errs.IsConnectionFailed(err))
	assert.Equal(t, int32(1), opens.Load())
}

// gatedRegistry returns a registry whose opener signals started and then
// blocks until gate is closed before handing out db.
func gatedRegistry(t *testing.T, opens *atomic.Int32, started, gate chan struct{}, db *countingDB) *database.Registry {
	t.Helper()
	r, err := database.NewRegistry(database.DriverInfo{
		Name:    "fake",
		Dialect: database.DialectSQLite,
		Open: func(ctx context.Context, cfg *database.Config) (database.DB, error) {
			if opens.Add(1) == 1 {
				close(started)
			}
			<-gate
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return db, nil
		},
	})
	require.NoError(t, err)
	return r
}

func TestManager_CloseDuringDial(t *testing.T) {
	var opens atomic.Int32
	started := make(chan struct{})
	gate := make(chan struct{})
	db := &countingDB{}
	m := NewManager(gatedRegistry(t, &opens, started, gate, db), map[string]*database.Config{
		"main": database.DefaultConfig("fake:x"),
	})

	errc := make(chan error, 1)
	go func() {
		_, err := m.Get(context.Background(), "main")
		errc <- err
	}()

	<-started
	m.Close()
	close(gate)

	assert.ErrorIs(t, <-errc, ErrClosed)
	assert.True(t, db.closed.Load(), "connection finished after Close must be closed")

	m.mu.Lock()
	assert.Empty(t, m.open)
	m.mu.Unlock()
}

func TestManager_CanceledCallerDoesNotAbortDial(t *testing.T) {
	var opens atomic.Int32
	started := make(chan struct{})
	gate := make(chan struct{})
	db := &countingDB{}
	m := NewManager(gatedRegistry(t, &opens, started, gate, db), map[string]*database.Config{
		"main": database.DefaultConfig("fake:x"),
	})
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := m.Get(ctx, "main")
		errc <- err
	}()

	<-started
	cancel()
	err := <-errc
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err))

	close(gate)
	c, err := m.Get(context.Background(), "main")
	require.NoError(t, err)
	assert.Same(t, db, c.DB)
	assert.Equal(t, int32(1), opens.Load())
}

func TestConn_WithQueryTimeout(t *testing.T) {
	c := &Conn{QueryTimeout: time.Minute}
	ctx, cancel := c.WithQueryTimeout(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)

	ctx, cancel = (&Conn{}).WithQueryTimeout(context.Background())
	defer cancel()
	_, ok = ctx.Deadline()
	assert.False(t, ok)
}

func TestManager_GetCarriesQueryTimeout(t *testing.T) {
	var opens atomic.Int32
	cfg := database.DefaultConfig("fake:x")
	cfg.QueryTimeout = 7 * time.Second
	m := NewManager(newRegistry(t, &opens, nil), map[string]*database.Config{"main": cfg})
	defer m.Close()

	c, err := m.Get(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, c.QueryTimeout)
}
