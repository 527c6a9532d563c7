package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashKey(t *testing.T) {
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		HashKey("hello"))

	assert.Equal(t, HashKey("mixer grinder"), HashKey("mixer grinder"))
	assert.NotEqual(t, HashKey("mixer grinder"), HashKey("Mixer Grinder"))
	assert.Len(t, HashKey(""), 64)
}
