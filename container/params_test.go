package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_TypedGetters(t *testing.T) {
	p := NewParams().
		Set("m", 16).
		Set("ef", float64(200)). // common YAML/JSON decode shape
		Set("name", "cosine").
		Set("enabled", true)

	assert.Equal(t, 16, p.GetInt("m", 0))
	assert.Equal(t, 200, p.GetInt("ef", 0))
	assert.Equal(t, "cosine", p.GetString("name", ""))
	assert.True(t, p.GetBool("enabled", false))
}

func TestParams_DefaultsOnMissingOrWrongType(t *testing.T) {
	p := NewParams().Set("m", "not-a-number")
	assert.Equal(t, 42, p.GetInt("missing", 42))
	assert.Equal(t, 42, p.GetInt("m", 42))
	assert.False(t, p.Has("missing"))
	assert.True(t, p.Has("m"))
}
