package database

import (
	"context"
	"fmt"
	"slices"

	"github.com/koustreak/pdo/internal/errs"
	"github.com/koustreak/pdo/internal/logger"
)

// Opener connects to a database described by cfg. The DSN prefix of cfg has
// already been matched to the driver the Opener is registered under.
type Opener func(ctx context.Context, cfg *Config) (DB, error)

// DriverInfo describes one driver available to a Registry.
type DriverInfo struct {
	// Name is the DSN prefix the driver answers to (e.g. "pgsql").
	Name string

	// Dialect selects placeholder and quoting style for the query builder.
	Dialect Dialect

	// Open creates a connection pool for the driver.
	Open Opener
}

// Registry is the immutable set of drivers available to the process.
//
// It is built once at startup with NewRegistry and only read afterwards, so
// it is safe for concurrent use without locking.
type Registry struct {
	names   []string
	drivers map[string]DriverInfo
}

// NewRegistry builds a Registry from drivers, keeping their order.
// Every driver needs a non-empty, unique name and a non-nil Open func.
func NewRegistry(drivers ...DriverInfo) (*Registry, error) {
	r := &Registry{
		names:   make([]string, 0, len(drivers)),
		drivers: make(map[string]DriverInfo, len(drivers)),
	}
	for _, d := range drivers {
		if !validDriverName(d.Name) {
			return nil, errInvalidInput(fmt.Sprintf("invalid driver name %q", d.Name))
		}
		if d.Open == nil {
			return nil, errInvalidInput(fmt.Sprintf("driver %q has no opener", d.Name))
		}
		if _, dup := r.drivers[d.Name]; dup {
			return nil, errInvalidInput(fmt.Sprintf("driver %q registered twice", d.Name))
		}
		r.names = append(r.names, d.Name)
		r.drivers[d.Name] = d
	}
	return r, nil
}

// Drivers returns the names of all registered drivers in registration order.
// The result is a fresh slice, empty (never nil) when no drivers exist.
func (r *Registry) Drivers() []string {
	if r == nil {
		return []string{}
	}
	return slices.Clone(r.names)
}

// Len returns the number of registered drivers.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Lookup returns the driver registered under name.
func (r *Registry) Lookup(name string) (DriverInfo, bool) {
	if r == nil {
		return DriverInfo{}, false
	}
	d, ok := r.drivers[name]
	return d, ok
}

// Has reports whether a driver is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Open parses cfg.DSN, finds its driver and opens a connection pool.
func (r *Registry) Open(ctx context.Context, cfg *Config) (DB, error) {
	db, _, err := r.Connect(ctx, cfg)
	return db, err
}

// Connect is Open that also returns the driver the DSN resolved to.
func (r *Registry) Connect(ctx context.Context, cfg *Config) (DB, DriverInfo, error) {
	if cfg == nil {
		return nil, DriverInfo{}, errInvalidInput("nil config")
	}
	dsn, err := ParseDSN(cfg.DSN)
	if err != nil {
		return nil, DriverInfo{}, err
	}

	d, ok := r.Lookup(dsn.Driver)
	if !ok {
		return nil, DriverInfo{}, NewError(errs.ErrKindInvalidInput, Code{}, "could not find driver", nil)
	}

	log := logger.FromContext(ctx).WithDriver(d.Name)
	log.Debug("opening connection pool")

	db, err := d.Open(ctx, cfg)
	if err != nil {
		log.DBError("failed to open connection pool", err)
		return nil, DriverInfo{}, err
	}

	log.Info("connection pool ready")
	return db, d, nil
}
