package app

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// newGameID returns a random UUIDv4 rendered as 32 hex digits.
func newGameID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
