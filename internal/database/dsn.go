package database

import (
	"strings"
)

// DSN is a parsed PDO-style data source name.
type DSN struct {
	Driver string // driver name, e.g. "pgsql"
	Body   string // everything after the first colon
}

// ParseDSN splits "driver:body". The driver prefix must be non-empty and made
// of lowercase letters, digits or underscores.
func ParseDSN(s string) (DSN, error) {
	driver, body, ok := strings.Cut(s, ":")
	if !ok || !validDriverName(driver) {
		return DSN{}, errInvalidInput("invalid data source name")
	}
	return DSN{Driver: driver, Body: body}, nil
}

// Params parses a "key=value;key=value" body. Keys are lower-cased and
// trimmed; empty segments are skipped and later keys win.
func (d DSN) Params() map[string]string {
	params := make(map[string]string)
	for _, seg := range strings.Split(d.Body, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		k, v, _ := strings.Cut(seg, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		params[k] = strings.TrimSpace(v)
	}
	return params
}

func (d DSN) String() string {
	return d.Driver + ":" + d.Body
}

func validDriverName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
