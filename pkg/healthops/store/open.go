package store

import "fmt"

// Open returns the backend named by backend. dsn is a file path for
// sqlite and a connection string for postgres; memory ignores it.
func Open(backend, dsn string) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		if dsn == "" {
			dsn = "healthops.db"
		}
		return NewSQLiteStore(dsn)
	case BackendPostgres:
		return NewPostgresStore(dsn)
	}
	return nil, fmt.Errorf("unknown store backend %q", backend)
}
