package ollama

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://localhost:11435/api/chat")
	require.NoError(t, err)
	assert.NotNil(t, c.client)

	_, err = NewClient("localhost")
	assert.Error(t, err)

	_, err = NewClient("http://[::1")
	assert.Error(t, err)
}

func TestModelOptions(t *testing.T) {
	opts := modelOptions("openbmb/MiniCPM-V4.5")
	assert.Equal(t, 4096, opts["num_ctx"])
	assert.Empty(t, modelOptions("llava:13b"))
}
