package envutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultsWhenUnsetOrInvalid(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "nope")
	t.Setenv("ENVUTIL_FLOAT", "")
	t.Setenv("ENVUTIL_BOOL", "maybe")

	assert.Equal(t, 7, Int("ENVUTIL_INT", 7))
	assert.Equal(t, 0.75, Float("ENVUTIL_FLOAT", 0.75))
	assert.True(t, Bool("ENVUTIL_BOOL", true))
	assert.Equal(t, "x", String("ENVUTIL_UNSET", "x"))
}

func TestParsesValues(t *testing.T) {
	t.Setenv("ENVUTIL_INT", " 12 ")
	t.Setenv("ENVUTIL_FLOAT", "0.5")
	t.Setenv("ENVUTIL_BOOL", "off")

	assert.Equal(t, 12, Int("ENVUTIL_INT", 0))
	assert.Equal(t, 0.5, Float("ENVUTIL_FLOAT", 0))
	assert.False(t, Bool("ENVUTIL_BOOL", true))
}

func TestList(t *testing.T) {
	t.Setenv("ENVUTIL_LIST", " https://a.example, ,https://b.example ")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, List("ENVUTIL_LIST", nil))

	t.Setenv("ENVUTIL_LIST", " , ")
	assert.Equal(t, []string{"x"}, List("ENVUTIL_LIST", []string{"x"}))
}
