package ttlcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Key kinds, the first segment of every cache key
const (
	KindSolar   = "sun"
	KindWeather = "weather"
	KindLocate  = "locate"
)

// SolarKey quantizes t into bucket-sized windows so every request for the
// same coordinate inside one window shares an entry.
// Pattern: sun:{lat}:{lon}:{unix / bucket}
func SolarKey(lat, lon float64, t time.Time, bucket time.Duration) string {
	seconds := int64(bucket / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	window := t.Unix() / seconds
	if t.Unix() < 0 && t.Unix()%seconds != 0 {
		window-- // floor, not truncate, before 1970
	}
	return fmt.Sprintf("%s:%s:%s:%d", KindSolar, formatCoord(lat), formatCoord(lon), window)
}

// WeatherKey is not time-quantized; freshness comes from the entry TTL.
// Pattern: weather:{lat}:{lon}
func WeatherKey(lat, lon float64) string {
	return fmt.Sprintf("%s:%s:%s", KindWeather, formatCoord(lat), formatCoord(lon))
}

// LocateKey hashes the client address so addresses are not stored in clear.
// Pattern: locate:{sha256(addr)[:16]}
func LocateKey(addr string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(addr)))
	return fmt.Sprintf("%s:%s", KindLocate, hex.EncodeToString(sum[:8]))
}

// KindOf returns the kind segment of a key
func KindOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
