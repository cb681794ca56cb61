package ttlcache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSolarKeyQuantization(t *testing.T) {
	bucket := 5 * time.Minute
	// 1718985600 is a multiple of 300
	start := time.Unix(1718985600, 0).UTC()

	a := SolarKey(40.7128, -74.006, start.Add(30*time.Second), bucket)
	b := SolarKey(40.7128, -74.006, start.Add(120*time.Second), bucket)
	assert.Equal(t, a, b, "90 seconds apart inside one bucket")

	assert.Equal(t, SolarKey(40.7128, -74.006, start, bucket), SolarKey(40.7128, -74.006, start.Add(299*time.Second), bucket))
	assert.NotEqual(t, SolarKey(40.7128, -74.006, start, bucket), SolarKey(40.7128, -74.006, start.Add(300*time.Second), bucket))
	assert.NotEqual(t, a, SolarKey(40.7129, -74.006, start.Add(30*time.Second), bucket))

	assert.Equal(t, "sun:40.7128:-74.006:5729952", SolarKey(40.7128, -74.006, start, bucket))
}

func TestSolarKeyBeforeEpoch(t *testing.T) {
	bucket := 5 * time.Minute
	assert.Equal(t, "sun:0:0:-1", SolarKey(0, 0, time.Unix(-1, 0), bucket))
	assert.Equal(t, "sun:0:0:-1", SolarKey(0, 0, time.Unix(-300, 0), bucket))
	assert.Equal(t, "sun:0:0:0", SolarKey(0, 0, time.Unix(0, 0), bucket))
}

func TestWeatherKeyIsNotTimeQuantized(t *testing.T) {
	assert.Equal(t, "weather:51.5074:-0.1278", WeatherKey(51.5074, -0.1278))
	assert.Equal(t, WeatherKey(1, 2), WeatherKey(1, 2))
}

func TestLocateKey(t *testing.T) {
	key := LocateKey("203.0.113.7")

	assert.True(t, strings.HasPrefix(key, "locate:"))
	assert.NotContains(t, key, "203.0.113.7")
	assert.Equal(t, key, LocateKey(" 203.0.113.7 "))
	assert.NotEqual(t, key, LocateKey("203.0.113.8"))
	assert.Len(t, key, len("locate:")+16)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindSolar, KindOf("sun:1:2:3"))
	assert.Equal(t, KindWeather, KindOf(WeatherKey(1, 2)))
	assert.Equal(t, "bare", KindOf("bare"))
}
