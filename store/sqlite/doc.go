// Package sqlite implements store.Store on SQLite through database/sql and
// the pure-Go modernc.org/sqlite driver. Suitable for embedded deployments,
// CLI tools and standalone applications.
//
// The caller may own the *sql.DB lifecycle:
//
//	db, _ := sql.Open("sqlite", "file:berth.db?_pragma=busy_timeout(5000)")
//	store := sqlite.New(db)
//	store.Migrate(ctx)
//
// or let Open create and close it.
package sqlite
