// Package database provides SQLite connectivity for the MHUB bridge.
//
// The database holds the configured hub entries. This package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Versioned, transactional schema migrations read from an fs.FS
//   - Health checks
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql.
package database
