package repository

import "github.com/google/uuid"

// newID generates a fresh primary-key value for rows this package
// inserts. Every entity id in the schema is a UUID, generated
// application-side rather than by the database.
func newID() string { return uuid.New().String() }
