// Package token generates opaque identifiers for owner tokens and session
// ids (spec §3, §4.5).
package token

import (
	"fmt"

	"github.com/google/uuid"
)

// UUIDGenerator produces random v4 UUIDs, used for both `owner.ownerToken`
// and `session.sessionId`.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a token generator backed by google/uuid.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate returns a fresh random UUID string.
func (g *UUIDGenerator) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return id.String(), nil
}
