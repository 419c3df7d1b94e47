package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:datasetd.db?_pragma=busy_timeout(5000)"
	//   "datasetd.db" (interpreted by the driver)
	//   ":memory:" (one private database; the pool is pinned to one conn)
	DSN string
}
