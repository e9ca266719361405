package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedFile(t *testing.T) {
	Env = map[string]string{"APP_PORT": "4100"}
	t.Cleanup(func() { Env = nil })
	t.Setenv("APP_PORT", "9999")

	assert.Equal(t, "4100", GetEnv("APP_PORT", "4000"))
	assert.Equal(t, "fallback", GetEnv("UNSET_FOR_TEST", "fallback"))
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_DURATION", "90s")
	t.Setenv("TEST_GARBAGE", "nope")

	assert.True(t, GetBool("TEST_BOOL", false))
	assert.True(t, GetBool("TEST_GARBAGE", true))
	assert.Equal(t, 42, GetInt("TEST_INT", 1))
	assert.Equal(t, 7, GetInt("TEST_GARBAGE", 7))
	assert.Equal(t, 90*time.Second, GetDuration("TEST_DURATION", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("TEST_GARBAGE", time.Minute))
}
