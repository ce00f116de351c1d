// Package repository implements the MySQL-backed stores for users and
// sessions. Sentinel errors let higher layers distinguish "row absent"
// from real I/O failures without importing database/sql.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no usable row. For
// sessions this includes rows that exist but are expired or revoked; the
// auth core must treat those as absent.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by user creation when the email is already
// registered. Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")
