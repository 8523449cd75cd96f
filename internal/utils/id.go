package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// tempPrefix marks identifiers that were minted locally and never touch
// the database. A server-assigned UUID can never start with it.
const tempPrefix = "tmp_"

// NewTempID returns a session-unique identifier for an optimistic message
// entry. Collisions are not a correctness concern: the value is only a
// local merge key, discarded once the server assigns the real ID.
func NewTempID() string {
	const size = 12

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err == nil {
		return tempPrefix + hex.EncodeToString(buf)
	}

	// Fallback to timestamp if crypto/rand is unavailable.
	return tempPrefix + strconv.FormatInt(time.Now().UnixNano(), 10)
}

// IsTempID reports whether id was minted by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempPrefix)
}
