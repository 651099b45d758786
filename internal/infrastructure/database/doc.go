// Package database provides the SQLite connection used by the config store.
//
// This package manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - Versioned schema migrations registered from an embedded filesystem
//   - Transaction helpers and health checks
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is created with 0600 permissions; it holds the
//     Home Assistant access token inside the device config entry
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_<name>.up.sql with an optional
// matching .down.sql, and are applied oldest first.
package database
