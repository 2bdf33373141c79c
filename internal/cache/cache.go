// Package cache holds computed values that are expensive to rebuild and
// requested repeatedly within one run.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	Clear()
	Len() int
}

// Key builds a cache key from its parts. Parts are length-prefixed before
// hashing so ("ab", "c") and ("a", "bc") never collide.
func Key(namespace string, parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(p)
	}
	hash := sha256.Sum256([]byte(b.String()))
	return "kindred:" + namespace + ":" + hex.EncodeToString(hash[:])
}
