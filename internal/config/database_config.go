package config

const databaseURLVar = "DATABASE_URL"

type DatabaseConfig interface {
	GetDatabaseURL() string
}

type Database struct{}

var _ DatabaseConfig = Database{}

// GetDatabaseURL is the Postgres DSN of the client directory. Empty means the in-memory
// directory seeded at startup.
func (Database) GetDatabaseURL() string {
	return GetEnv(databaseURLVar, "")
}
