package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/pdo/internal/connections"
	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/errs"
	"github.com/koustreak/pdo/internal/export"
	"github.com/koustreak/pdo/internal/schema"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleDrivers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"drivers": s.opts.Registry.Drivers()})
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	if s.opts.Connections != nil {
		names = s.opts.Connections.Names()
	}
	writeJSON(w, http.StatusOK, map[string]any{"connections": names})
}

func (s *Server) conn(r *http.Request) (*connections.Conn, error) {
	if s.opts.Connections == nil {
		return nil, errs.New(errs.ErrKindNotFound, "no connections are configured")
	}
	return s.opts.Connections.Get(r.Context(), chi.URLParam(r, "name"))
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	c, err := s.conn(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := c.WithQueryTimeout(r.Context())
	defer cancel()

	start := time.Now()
	if err := c.DB.Ping(ctx); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connection": c.Name,
		"driver":     c.Driver.Name,
		"latency_ms": time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	c, err := s.conn(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := c.WithQueryTimeout(r.Context())
	defer cancel()

	tables, err := c.DB.ListTables(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connection": c.Name, "tables": tables})
}

// existingTable resolves the {table} param, failing with not_found when the
// table does not exist so arbitrary names never reach the query builder.
func (s *Server) existingTable(ctx context.Context, r *http.Request, c *connections.Conn) (string, error) {
	table := chi.URLParam(r, "table")
	ok, err := c.DB.TableExists(ctx, table)
	if err != nil {
		return "", err
	}
	if !ok {
		msg := "table " + strconv.Quote(table) + " not found"
		return "", database.NewDriverError(errs.ErrKindNotFound, msg, nil,
			database.ErrorInfo{"42S02", nil, msg})
	}
	return table, nil
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	c, err := s.conn(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, offset, err := s.pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := c.WithQueryTimeout(r.Context())
	defer cancel()

	table, err := s.existingTable(ctx, r, c)
	if err != nil {
		writeError(w, r, err)
		return
	}

	b := database.Select(table, c.Driver.Dialect)
	if limit > 0 {
		b = b.Limit(limit)
	}
	if offset > 0 {
		b = b.Offset(offset)
	}
	sql, args, err := b.Build()
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows, err := c.DB.Query(ctx, sql, args...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := database.ScanRows(rows)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"table":  table,
		"limit":  limit,
		"offset": offset,
		"count":  len(records),
		"rows":   records,
	})
}

// pagination reads ?limit= and ?offset=. limit defaults to, and is capped
// at, MaxRows; limit=0 asks for the default.
func (s *Server) pagination(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	limit = s.opts.MaxRows
	if v := q.Get("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			return 0, 0, errs.New(errs.ErrKindInvalidInput, "limit must be a non-negative integer")
		}
		if n > 0 && (s.opts.MaxRows == 0 || n < s.opts.MaxRows) {
			limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			return 0, 0, errs.New(errs.ErrKindInvalidInput, "offset must be a non-negative integer")
		}
		offset = n
	}
	return limit, offset, nil
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	c, err := s.conn(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	inspector, err := schema.For(c.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := c.WithQueryTimeout(r.Context())
	defer cancel()

	info, err := inspector.InspectTable(ctx, chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, r, errs.New(errs.ErrKindConnectionFailed, "object storage is not configured"))
		return
	}
	c, err := s.conn(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := c.WithQueryTimeout(r.Context())
	defer cancel()

	table, err := s.existingTable(ctx, r, c)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	req := export.Request{
		Table:  table,
		Format: export.Format(q.Get("format")),
	}
	if v := q.Get("limit"); v != "" {
		if req.Limit, err = strconv.Atoi(v); err != nil {
			writeError(w, r, errs.New(errs.ErrKindInvalidInput, "limit must be an integer"))
			return
		}
	}
	if v := q.Get("presign"); v != "" {
		if req.PresignTTL, err = time.ParseDuration(v); err != nil {
			writeError(w, r, errs.New(errs.ErrKindInvalidInput, "presign must be a duration such as 15m"))
			return
		}
	}

	exp := export.New(c.DB, c.Driver.Dialect, s.opts.Store, s.opts.Bucket)
	res, err := exp.Export(ctx, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
