package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetMaxBodyBytes(t *testing.T) {
	defer SetMaxBodyBytes(0)

	SetMaxBodyBytes(1234)
	assert.EqualValues(t, 1234, maxBodyBytes)
	SetMaxBodyBytes(-1)
	assert.Equal(t, defaultMaxBodyBytes, maxBodyBytes)
}

func TestSetCORSOrigins(t *testing.T) {
	defer SetCORSOrigins(nil)

	origins := []string{"http://a.test"}
	SetCORSOrigins(origins)
	origins[0] = "mutated"
	assert.True(t, corsEnabled())
	assert.True(t, originAllowed("http://a.test"), "configured slice is copied")
	assert.False(t, originAllowed("http://b.test"))

	SetCORSOrigins([]string{"*"})
	assert.True(t, originAllowed("http://b.test"))

	SetCORSOrigins(nil)
	assert.False(t, corsEnabled())
}
