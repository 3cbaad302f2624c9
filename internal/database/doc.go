// Package database manages the Postgres connection pool for the
// optional event archive.
package database
