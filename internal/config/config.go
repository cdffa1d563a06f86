// Package config loads pdo's YAML configuration.
//
// Load reads a .env file from the working directory (when present), expands
// ${VAR} references in the YAML, then applies PDO_* environment overrides:
//
//	PDO_LOG_LEVEL, PDO_LOG_FORMAT, PDO_SERVER_ADDR,
//	PDO_FILESTORE_ENDPOINT, PDO_FILESTORE_ACCESS_KEY, PDO_FILESTORE_SECRET_KEY,
//	PDO_FILESTORE_BUCKET, PDO_FILESTORE_USE_SSL,
//	PDO_DSN, PDO_USER, PDO_PASSWORD (the "default" connection)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/errs"
	"github.com/koustreak/pdo/internal/filestore"
	"github.com/koustreak/pdo/internal/logger"
	"go.yaml.in/yaml/v3"
)

// DefaultConnection is the connection name PDO_DSN populates.
const DefaultConnection = "default"

// Config is the root of the configuration file.
type Config struct {
	Log         LogConfig                   `yaml:"log"`
	Server      ServerConfig                `yaml:"server"`
	FileStore   FileStoreConfig             `yaml:"filestore"`
	Connections map[string]ConnectionConfig `yaml:"connections"`
}

type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json, console
	TimeFormat string `yaml:"time_format"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxRows      int           `yaml:"max_rows"` // cap on ?limit= for table reads
}

type FileStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
}

// ConnectionConfig is one named database connection. Zero pool values fall
// back to database.DefaultConfig.
type ConnectionConfig struct {
	DSN             string        `yaml:"dsn"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			TimeFormat: "rfc3339",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxRows:      1000,
		},
		FileStore: FileStoreConfig{
			Bucket: "pdo-exports",
		},
		Connections: map[string]ConnectionConfig{},
	}
}

// Load builds the configuration from path (optional), .env and the
// environment, then validates it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to load .env", err)
	}

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, errs.Wrap(errs.ErrKindNotFound, "config file not found: "+path, err)
			}
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read config file", err)
		}
		if err := cfg.parse(raw); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parse(raw []byte) error {
	expanded := os.ExpandEnv(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to parse config file", err)
	}
	if c.Connections == nil {
		c.Connections = map[string]ConnectionConfig{}
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString(&c.Log.Level, "PDO_LOG_LEVEL")
	setString(&c.Log.Format, "PDO_LOG_FORMAT")
	setString(&c.Server.Addr, "PDO_SERVER_ADDR")
	setString(&c.FileStore.Endpoint, "PDO_FILESTORE_ENDPOINT")
	setString(&c.FileStore.AccessKey, "PDO_FILESTORE_ACCESS_KEY")
	setString(&c.FileStore.SecretKey, "PDO_FILESTORE_SECRET_KEY")
	setString(&c.FileStore.Bucket, "PDO_FILESTORE_BUCKET")

	if v := os.Getenv("PDO_FILESTORE_USE_SSL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, "PDO_FILESTORE_USE_SSL must be a boolean", err)
		}
		c.FileStore.UseSSL = b
	}

	if dsn := os.Getenv("PDO_DSN"); dsn != "" {
		conn := c.Connections[DefaultConnection]
		conn.DSN = dsn
		setString(&conn.User, "PDO_USER")
		setString(&conn.Password, "PDO_PASSWORD")
		c.Connections[DefaultConnection] = conn
	}
	return nil
}

// Validate checks log settings and every connection's DSN.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("invalid log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("invalid log format %q", c.Log.Format))
	}
	if c.Server.MaxRows < 0 {
		return errs.New(errs.ErrKindInvalidInput, "server.max_rows must not be negative")
	}

	for _, name := range c.ConnectionNames() {
		conn := c.Connections[name]
		if conn.DSN == "" {
			return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("connection %q has no dsn", name))
		}
		if _, err := database.ParseDSN(conn.DSN); err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("connection %q", name), err)
		}
		if conn.MaxConns < 0 || conn.MinConns < 0 || (conn.MaxConns > 0 && conn.MinConns > conn.MaxConns) {
			return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("connection %q has invalid pool sizes", name))
		}
	}

	if c.FileStore.Endpoint != "" {
		if err := c.FileStoreConfig().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ConnectionNames returns the configured connection names, sorted.
func (c *Config) ConnectionNames() []string {
	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connection returns the database settings for the named connection.
func (c *Config) Connection(name string) (*database.Config, error) {
	conn, ok := c.Connections[name]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("connection %q is not configured", name))
	}
	return conn.Database(), nil
}

// Database converts the connection into database.Config, filling defaults.
func (cc ConnectionConfig) Database() *database.Config {
	cfg := database.DefaultConfig(cc.DSN)
	cfg.User = cc.User
	cfg.Password = cc.Password
	if cc.MaxConns > 0 {
		cfg.MaxConns = cc.MaxConns
	}
	if cc.MinConns > 0 {
		cfg.MinConns = cc.MinConns
	}
	if cc.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = cc.MaxConnLifetime
	}
	if cc.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = cc.MaxConnIdleTime
	}
	if cc.ConnectTimeout > 0 {
		cfg.ConnectTimeout = cc.ConnectTimeout
	}
	if cc.QueryTimeout > 0 {
		cfg.QueryTimeout = cc.QueryTimeout
	}
	return cfg
}

// LoggerConfig returns the logger settings; output goes to stderr.
func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		TimeFormat: c.Log.TimeFormat,
		Output:     os.Stderr,
	}
}

// FileStoreConfig returns the object storage settings.
func (c *Config) FileStoreConfig() *filestore.Config {
	fc := filestore.DefaultConfig(c.FileStore.Endpoint, c.FileStore.AccessKey, c.FileStore.SecretKey)
	fc.UseSSL = c.FileStore.UseSSL
	fc.Region = c.FileStore.Region
	if c.FileStore.Bucket != "" {
		fc.Bucket = c.FileStore.Bucket
	}
	return fc
}
