// Package database provides connection pool management for the PostgreSQL
// notebook backend.
//
// The pool is only opened when storage.backend is "postgres"; the default file
// backend never touches it.
package database
