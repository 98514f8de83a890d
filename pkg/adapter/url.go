package adapter

import (
	"net/url"
	"sort"
	"strings"
)

// TrimJDBCPrefix removes a leading "jdbc:" from a connection URL.
func TrimJDBCPrefix(raw string) string {
	if len(raw) >= 5 && strings.EqualFold(raw[:5], "jdbc:") {
		return raw[5:]
	}
	return raw
}

// WithCredentials returns dsn carrying username and password.
// URL-style DSNs get the credentials as userinfo; key=value DSNs get
// user= and password= pairs appended. Empty values leave dsn untouched.
func WithCredentials(dsn, username, password string) string {
	if username == "" && password == "" {
		return dsn
	}

	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err == nil {
			switch {
			case password != "":
				u.User = url.UserPassword(username, password)
			default:
				u.User = url.User(username)
			}
			return u.String()
		}
	}

	var b strings.Builder
	b.WriteString(dsn)
	if username != "" {
		b.WriteString(" user=")
		b.WriteString(quoteKV(username))
	}
	if password != "" {
		b.WriteString(" password=")
		b.WriteString(quoteKV(password))
	}
	return strings.TrimSpace(b.String())
}

// quoteKV quotes a value for a libpq key=value connection string.
func quoteKV(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// StripScheme removes a "scheme:" or "scheme://" prefix when it matches one
// of schemes, case-insensitively. File-based drivers use it to accept
// URLs such as "sqlite:/tmp/app.db".
func StripScheme(raw string, schemes ...string) string {
	for _, s := range schemes {
		for _, prefix := range []string{s + "://", s + ":"} {
			if len(raw) >= len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix) {
				return raw[len(prefix):]
			}
		}
	}
	return raw
}

// WithOptions appends driver options to dsn in sorted key order.
// URL-style DSNs receive them as query parameters, key=value DSNs as pairs.
func WithOptions(dsn string, opts map[string]string) string {
	if len(opts) == 0 {
		return dsn
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(dsn); err == nil {
			q := u.Query()
			for _, k := range keys {
				q.Set(k, opts[k])
			}
			u.RawQuery = q.Encode()
			return u.String()
		}
	}

	var b strings.Builder
	b.WriteString(dsn)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(quoteKV(opts[k]))
	}
	return strings.TrimSpace(b.String())
}
