// Package postgres provides PostgreSQL implementations of the interfaces
// defined in internal/store. Queries go through database/sql with the pgx
// stdlib driver; schema changes are goose migrations embedded in the binary.
//
// Every task query filters on owner_id in the same statement that touches the
// row, so ownership is enforced by the database rather than by a prior read.
package postgres
