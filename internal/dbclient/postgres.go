package dbclient

import (
	"fmt"
	"strings"

	"storefront/internal/domain"

	_ "github.com/lib/pq"
)

// buildPostgresDSN constructs a Postgres connection string from a DatabaseConnection.
func buildPostgresDSN(conn *domain.DatabaseConnection, password string) string {
	port := conn.Port
	if port == 0 {
		port = 5432
	}
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pqQuote(conn.Host), port, pqQuote(conn.Username), pqQuote(password), pqQuote(conn.Database), sslMode,
	)
	for _, k := range sortedKeys(conn.Extra) {
		dsn += " " + k + "=" + pqQuote(conn.Extra[k])
	}
	return dsn
}

// pqQuote quotes a keyword/value parameter when it is empty or holds
// spaces, quotes or backslashes.
func pqQuote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
