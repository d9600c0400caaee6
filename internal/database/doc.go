// Package database manages the PostgreSQL connection pool used by the
// message archiver.
package database
