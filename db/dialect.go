package db

import (
	"strconv"
	"strings"
)

// Rebind rewrites ? placeholders into the style the backend's driver expects.
// PostgreSQL uses $1..$n; sqlite and MySQL accept ? as written.
// Queries must not contain literal question marks.
func Rebind(backend Backend, query string) string {
	if backend != BackendPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// migrationDir is the embedded directory holding the backend's schema.
func migrationDir(backend Backend) string {
	switch backend {
	case BackendPostgres:
		return "postgres/migrations"
	case BackendMySQL:
		return "mysql/migrations"
	default:
		return "sqlite/migrations"
	}
}
