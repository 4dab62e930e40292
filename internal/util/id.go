package util

import "github.com/google/uuid"

// NewID returns a random identifier for runs and records.
func NewID() string { return uuid.NewString() }
