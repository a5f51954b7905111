package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDint64IsIncreasing(t *testing.T) {
	prev := UUIDint64()
	for i := 0; i < 100; i++ {
		next := UUIDint64()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hashed)
	assert.True(t, CheckPassword(hashed, "correct horse"))
	assert.False(t, CheckPassword(hashed, "wrong horse"))
	assert.False(t, CheckPassword("", "correct horse"))
}

func TestIsEmptyOrNA(t *testing.T) {
	assert.True(t, IsEmptyOrNA("  "))
	assert.True(t, IsEmptyOrNA("n/a"))
	assert.False(t, IsEmptyOrNA("value"))
}
