// Package randaddr generates throwaway recipient addresses used to detect
// catch-all mail servers.
package randaddr

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// LocalPartBytes is the number of random bytes behind each local part.
// The local part is their hex encoding, twice as many characters.
const LocalPartBytes = 20

// Reader is the source of randomness. Tests may replace it.
var Reader io.Reader = rand.Reader

// New returns "<40 hex chars>@domain".
func New(domain string) (string, error) {
	b := make([]byte, LocalPartBytes)
	if _, err := io.ReadFull(Reader, b); err != nil {
		return "", fmt.Errorf("randaddr: read random bytes: %w", err)
	}
	return hex.EncodeToString(b) + "@" + domain, nil
}
