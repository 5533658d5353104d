package domain

// DatabaseDriver represents the type of database engine backing the store.
type DatabaseDriver string

const (
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverMongoDB  DatabaseDriver = "mongodb"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

// DatabaseConnection holds the metadata for connecting to the store.
// The password is kept separately in the SecretStore.
type DatabaseConnection struct {
	Driver   DatabaseDriver    `json:"driver"`
	Host     string            `json:"host"`     // hostname, mongodb URI, or file path (sqlite)
	Port     int               `json:"port"`     // 0 for sqlite
	Database string            `json:"database"` // db name or empty for sqlite
	Username string            `json:"username"`
	SSLMode  string            `json:"sslMode"`
	Extra    map[string]string `json:"extra,omitempty"` // driver-specific options
}
