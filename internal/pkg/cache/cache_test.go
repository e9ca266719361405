package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })

	require.NoError(t, Set("k", "v", time.Minute))
	got, err := Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, Set("n", 3, time.Minute))
	n, err := GetInt("n")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, Delete("k", "n"))
	_, err = Get("k")
	assert.True(t, IsMiss(err))
	assert.True(t, Available())
}
