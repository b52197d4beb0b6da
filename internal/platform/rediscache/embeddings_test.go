package rediscache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorCodecRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeVectorRejectsBadLength(t *testing.T) {
	_, err := decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
	_, err = decodeVector(nil)
	assert.Error(t, err)
}

func TestKeyIncludesModel(t *testing.T) {
	c := &EmbeddingCache{prefix: "p"}
	assert.Equal(t, "p:text-embedding-3-small:abc", c.key("text-embedding-3-small", "abc"))
}
