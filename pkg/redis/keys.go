package redis

import "fmt"

// CacheKey returns the Redis key holding a cache entry
// Pattern: {prefix}{cache_key}, e.g. worldcss:cache:sun:40.7128:-74.006:5678901
func CacheKey(prefix, key string) string {
	return fmt.Sprintf("%s%s", prefix, key)
}

// CachePattern returns the SCAN pattern matching every cache entry under prefix
// Pattern: {prefix}*
func CachePattern(prefix string) string {
	return fmt.Sprintf("%s*", prefix)
}
