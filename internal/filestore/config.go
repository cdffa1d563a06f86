package filestore

import "github.com/koustreak/pdo/internal/errs"

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string

	AccessKey string
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string

	// Bucket receives exports unless a request names another one.
	Bucket string
}

// DefaultConfig returns a local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Bucket:    "pdo-exports",
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Config) Enabled() bool {
	return c != nil && c.Endpoint != ""
}

// Validate checks the fields every provider needs.
func (c *Config) Validate() error {
	switch {
	case c.Provider != ProviderMinIO:
		return errs.New(errs.ErrKindInvalidInput, "unsupported filestore provider: "+string(c.Provider))
	case c.Endpoint == "":
		return errs.New(errs.ErrKindInvalidInput, "filestore endpoint is required")
	case c.AccessKey == "" || c.SecretKey == "":
		return errs.New(errs.ErrKindInvalidInput, "filestore access key and secret key are required")
	case c.Bucket == "":
		return errs.New(errs.ErrKindInvalidInput, "filestore bucket is required")
	}
	return nil
}
