package storage

import (
	"strconv"
	"strings"

	"storefront/internal/domain"
)

// Dialect papers over the SQL differences between SQLite, Postgres and
// MySQL. Queries are written with ? placeholders and rebound per driver.
type Dialect struct {
	Driver domain.DatabaseDriver
}

// Rebind rewrites ? placeholders to $1, $2, ... for Postgres.
func (d Dialect) Rebind(query string) string {
	if d.Driver != domain.DatabaseDriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Upsert returns the clause that turns an INSERT into an upsert on the
// conflict columns, overwriting the update columns.
func (d Dialect) Upsert(conflict []string, update []string) string {
	sets := make([]string, len(update))
	if d.Driver == domain.DatabaseDriverMySQL {
		for i, c := range update {
			sets[i] = c + " = VALUES(" + c + ")"
		}
		return " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	for i, c := range update {
		sets[i] = c + " = excluded." + c
	}
	return " ON CONFLICT(" + strings.Join(conflict, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

// InsertIgnore returns an INSERT statement prefix and suffix that skip
// rows whose key already exists.
func (d Dialect) InsertIgnore(conflict string) (prefix, suffix string) {
	if d.Driver == domain.DatabaseDriverMySQL {
		return "INSERT IGNORE INTO", ""
	}
	return "INSERT INTO", " ON CONFLICT(" + conflict + ") DO NOTHING"
}

func (d Dialect) timestampType() string {
	switch d.Driver {
	case domain.DatabaseDriverPostgres:
		return "TIMESTAMPTZ"
	case domain.DatabaseDriverMySQL:
		return "DATETIME(6)"
	default:
		return "DATETIME"
	}
}

func (d Dialect) longTextType() string {
	if d.Driver == domain.DatabaseDriverMySQL {
		return "LONGTEXT"
	}
	return "TEXT"
}

func (d Dialect) createIndex(name, table, cols string) string {
	if d.Driver == domain.DatabaseDriverMySQL {
		return "CREATE INDEX " + name + " ON " + table + "(" + cols + ")"
	}
	return "CREATE INDEX IF NOT EXISTS " + name + " ON " + table + "(" + cols + ")"
}
