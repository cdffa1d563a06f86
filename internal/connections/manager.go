// Package connections opens named database connections on first use and
// keeps them for the life of the process.
package connections

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/errs"
)

// ErrClosed is returned by Get once the Manager has been closed.
var ErrClosed = errs.New(errs.ErrKindConnectionFailed, "connection manager is closed")

// Conn is an open connection together with the driver that opened it.
type Conn struct {
	Name   string
	DB     database.DB
	Driver database.DriverInfo

	// QueryTimeout is the configured per-query deadline, 0 for none.
	QueryTimeout time.Duration
}

// WithQueryTimeout bounds ctx by the connection's query timeout.
func (c *Conn) WithQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.QueryTimeout)
}

// Manager hands out shared connections by name.
// It is safe for concurrent use by multiple goroutines.
type Manager struct {
	registry *database.Registry
	configs  map[string]*database.Config

	mu     sync.Mutex
	closed bool
	open   map[string]*Conn
	dials  map[string]*dial
}

// dial lets concurrent callers wait on a single in-flight Open.
type dial struct {
	done chan struct{}
	conn *Conn
	err  error
}

// NewManager returns a Manager for the given named connection settings.
func NewManager(registry *database.Registry, configs map[string]*database.Config) *Manager {
	return &Manager{
		registry: registry,
		configs:  configs,
		open:     make(map[string]*Conn),
		dials:    make(map[string]*dial),
	}
}

// Names returns the configured connection names, sorted.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.configs))
	for name := range m.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named connection, opening it on first use.
// A failed open is not cached; the next Get tries again.
//
// The open itself is not tied to ctx: a caller that gives up stops waiting,
// but the dial carries on, bounded by the connection's ConnectTimeout, for
// the other callers.
func (m *Manager) Get(ctx context.Context, name string) (*Conn, error) {
	cfg, ok := m.configs[name]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("connection %q is not configured", name))
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if c, ok := m.open[name]; ok {
		m.mu.Unlock()
		return c, nil
	}
	d, ok := m.dials[name]
	if !ok {
		d = &dial{done: make(chan struct{})}
		m.dials[name] = d
		go m.dial(context.WithoutCancel(ctx), name, cfg, d)
	}
	m.mu.Unlock()

	select {
	case <-d.done:
		return d.conn, d.err
	case <-ctx.Done():
		return nil, errs.Wrap(errs.ErrKindTimeout, "waiting for connection "+name, ctx.Err())
	}
}

func (m *Manager) dial(ctx context.Context, name string, cfg *database.Config, d *dial) {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	conn, err := m.connect(ctx, name, cfg)

	m.mu.Lock()
	delete(m.dials, name)
	if err == nil {
		if m.closed {
			conn.DB.Close()
			conn, err = nil, ErrClosed
		} else {
			m.open[name] = conn
		}
	}
	d.conn, d.err = conn, err
	m.mu.Unlock()
	close(d.done)
}

func (m *Manager) connect(ctx context.Context, name string, cfg *database.Config) (*Conn, error) {
	db, info, err := m.registry.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Conn{Name: name, DB: db, Driver: info, QueryTimeout: cfg.QueryTimeout}, nil
}

// Close closes every open connection. Dials still in flight are closed as
// they complete, and later calls to Get return ErrClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for name, c := range m.open {
		c.DB.Close()
		delete(m.open, name)
	}
}
