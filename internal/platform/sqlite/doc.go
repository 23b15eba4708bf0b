// Package sqlite provides gorm-backed SQLite implementations of the
// interfaces in internal/store. It serves local development and the
// end-to-end HTTP tests, where a file or in-memory database replaces
// PostgreSQL. The schema is created with gorm AutoMigrate.
package sqlite
