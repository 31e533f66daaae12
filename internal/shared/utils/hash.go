package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
)

// Fingerprint returns the hex SHA-256 of v's JSON encoding. Map keys are
// sorted by the encoder, so equal values always produce the same digest.
func Fingerprint(v any) (string, error) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal for fingerprint: %w", err)
	}
	return HashBytes(data), nil
}

// HashBytes returns the hex SHA-256 of data
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFields hashes fields independent of their order
func HashFields(fields ...string) string {
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)
	return HashBytes([]byte(strings.Join(sorted, "|")))
}

// Short truncates a digest for display
func Short(digest string) string {
	if len(digest) < 12 {
		return digest
	}
	return digest[:12]
}
