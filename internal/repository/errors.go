// Package repository defines sentinel errors reused across the
// reservation/seat/session repositories. Higher layers (the
// engine actions) translate these into the NotFound/Conflict/
// BadRequest/Internal kinds of internal/engine.
package repository

import "errors"

// ErrNotFound is returned when a lookup by id yields no row.
var ErrNotFound = errors.New("repository: not found")
