package domain

import "time"

type APIKey struct {
	TokenHash  string
	Name       string
	Active     bool
	CreatedAt  time.Time
	// LastUsedAt is nil until the key first authenticates a request.
	LastUsedAt *time.Time
}
