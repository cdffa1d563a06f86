package filestore

import "time"

// ObjectInfo describes a single object stored in a bucket.
type ObjectInfo struct {
	Bucket string `json:"bucket"`

	// Key is the full object path within the bucket (e.g. "pgsql/users.json").
	Key string `json:"key"`

	// Size is the byte size of the object. -1 if unknown.
	Size int64 `json:"size"`

	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

// PutOptions controls how an object is written.
type PutOptions struct {
	// ContentType defaults to application/octet-stream.
	ContentType string

	// Metadata is stored as user metadata on the object.
	Metadata map[string]string
}
