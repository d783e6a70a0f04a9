package identity

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// StableIDLength is the width of a stable id in characters.
const StableIDLength = 32

// NewStableID returns a random 128-bit token rendered as 32 uppercase hex characters.
// It does not depend on row creation order, so parallel requests cannot collide
// in practice.
func NewStableID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(u[:])), nil
}

// IsStableID reports whether s has the shape of a stable id.
func IsStableID(s string) bool {
	if len(s) != StableIDLength {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
