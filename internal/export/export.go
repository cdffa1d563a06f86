// Package export runs a query against a connection and uploads the result
// set to object storage as JSON.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/errs"
	"github.com/koustreak/pdo/internal/filestore"
	"github.com/koustreak/pdo/internal/logger"
)

// Format selects how rows are encoded.
type Format string

const (
	FormatJSON   Format = "json"   // a single JSON array
	FormatNDJSON Format = "ndjson" // one JSON object per line
)

func (f Format) contentType() string {
	if f == FormatNDJSON {
		return "application/x-ndjson"
	}
	return "application/json"
}

// Request describes one export. Exactly one of Table or Query is set.
type Request struct {
	Table  string
	Limit  int // table exports only; 0 means all rows
	Query  string
	Args   []any
	Format Format // defaults to FormatJSON

	// Key overrides the generated object key.
	Key string

	// PresignTTL, when positive, adds a download URL valid for that long.
	PresignTTL time.Duration
}

// Result reports what was written.
type Result struct {
	Object *filestore.ObjectInfo `json:"object"`
	Rows   int                   `json:"rows"`
	URL    string                `json:"url,omitempty"`
}

// Exporter writes query results from one connection into one bucket.
type Exporter struct {
	db      database.DB
	dialect database.Dialect
	store   filestore.Store
	bucket  string
	now     func() time.Time
}

// New returns an Exporter. dialect must match the driver that opened db.
func New(db database.DB, dialect database.Dialect, store filestore.Store, bucket string) *Exporter {
	return &Exporter{
		db:      db,
		dialect: dialect,
		store:   store,
		bucket:  bucket,
		now:     time.Now,
	}
}

// Export runs the request's query, encodes the rows and uploads them.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.Format == "" {
		req.Format = FormatJSON
	}

	log := logger.FromContext(ctx).WithDriver(e.db.DriverName())

	sql, args, err := e.statement(req)
	if err != nil {
		return nil, err
	}

	rows, err := e.db.Query(ctx, sql, args...)
	if err != nil {
		log.DBError("export query failed", err)
		return nil, err
	}
	records, err := database.ScanRows(rows)
	if err != nil {
		log.DBError("export scan failed", err)
		return nil, err
	}

	body, err := encode(records, req.Format)
	if err != nil {
		return nil, err
	}

	if err := e.store.EnsureBucket(ctx, e.bucket); err != nil {
		return nil, err
	}

	key := req.Key
	if key == "" {
		key = e.objectKey(req)
	}

	obj, err := e.store.PutObject(ctx, e.bucket, key, bytes.NewReader(body), int64(len(body)), filestore.PutOptions{
		ContentType: req.Format.contentType(),
		Metadata: map[string]string{
			"pdo-driver": e.db.DriverName(),
			"pdo-rows":   fmt.Sprint(len(records)),
		},
	})
	if err != nil {
		log.ErrorWith("export upload failed", err, map[string]any{"bucket": e.bucket, "key": key})
		return nil, err
	}

	res := &Result{Object: obj, Rows: len(records)}
	if req.PresignTTL > 0 {
		res.URL, err = e.store.PresignGetURL(ctx, e.bucket, key, req.PresignTTL)
		if err != nil {
			return nil, err
		}
	}

	log.InfoWith("export complete", map[string]any{
		"bucket": e.bucket,
		"key":    key,
		"rows":   len(records),
		"bytes":  len(body),
	})
	return res, nil
}

func (r Request) validate() error {
	switch {
	case r.Table == "" && r.Query == "":
		return errs.New(errs.ErrKindInvalidInput, "export needs a table or a query")
	case r.Table != "" && r.Query != "":
		return errs.New(errs.ErrKindInvalidInput, "export takes a table or a query, not both")
	case r.Limit < 0:
		return errs.New(errs.ErrKindInvalidInput, "limit must not be negative")
	case r.Format != "" && r.Format != FormatJSON && r.Format != FormatNDJSON:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported export format %q", r.Format))
	}
	return nil
}

func (e *Exporter) statement(req Request) (string, []any, error) {
	if req.Query != "" {
		return req.Query, req.Args, nil
	}
	b := database.Select(req.Table, e.dialect)
	if req.Limit > 0 {
		b = b.Limit(req.Limit)
	}
	return b.Build()
}

// objectKey returns "<driver>/<table|query>-<UTC timestamp>.<ext>".
func (e *Exporter) objectKey(req Request) string {
	name := "query"
	if req.Table != "" {
		name = strings.ReplaceAll(req.Table, "/", "_")
	}
	ts := e.now().UTC().Format("20060102T150405Z")
	return fmt.Sprintf("%s/%s-%s.%s", e.db.DriverName(), name, ts, req.Format)
}

func encode(records []map[string]any, f Format) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	if f == FormatNDJSON {
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to encode row", err)
			}
		}
		return buf.Bytes(), nil
	}

	if err := enc.Encode(records); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to encode rows", err)
	}
	return buf.Bytes(), nil
}
