// Package pgdsn reads and amends Postgres connection strings in either the
// postgres:// URL form or the libpq key=value form.
package pgdsn

import (
	"net/url"
	"strings"
)

// DSN is an immutable parsed connection string.
type DSN struct {
	raw    string
	u      *url.URL
	fields []string
}

func Parse(raw string) DSN {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && (u.Scheme == "postgres" || u.Scheme == "postgresql") {
		return DSN{raw: raw, u: u}
	}
	return DSN{raw: raw, fields: strings.Fields(raw)}
}

// IsURL reports whether the DSN uses the postgres:// form.
func (d DSN) IsURL() bool {
	return d.u != nil
}

// Get returns the value of a connection parameter, or "" when absent.
func (d DSN) Get(key string) string {
	if d.u != nil {
		return d.u.Query().Get(key)
	}
	for _, field := range d.fields {
		name, value, ok := strings.Cut(field, "=")
		if ok && name == key {
			return strings.Trim(value, `"'`)
		}
	}
	return ""
}

// WithDefault sets key to value unless the DSN already carries it.
func (d DSN) WithDefault(key, value string) DSN {
	if d.Get(key) != "" {
		return d
	}
	if d.u != nil {
		u := *d.u
		query := u.Query()
		query.Set(key, value)
		u.RawQuery = query.Encode()
		return DSN{raw: u.String(), u: &u}
	}
	fields := append(append([]string(nil), d.fields...), key+"="+value)
	return DSN{raw: strings.Join(fields, " "), fields: fields}
}

// Name is the database name, or "" when the DSN does not say.
func (d DSN) Name() string {
	if d.u != nil {
		return strings.TrimSpace(strings.TrimPrefix(d.u.Path, "/"))
	}
	return d.Get("dbname")
}

func (d DSN) String() string {
	return d.raw
}

// Redacted masks the password for logs.
func (d DSN) Redacted() string {
	if d.u != nil {
		return d.u.Redacted()
	}
	out := make([]string, len(d.fields))
	for i, field := range d.fields {
		if strings.HasPrefix(field, "password=") {
			field = "password=xxxxx"
		}
		out[i] = field
	}
	return strings.Join(out, " ")
}
