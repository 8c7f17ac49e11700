package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/frame-annotator/pkg/client"
)

func TestQuery(t *testing.T) {
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, chatEndpoint, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ChatCompletionResponse{
			Choices: []Choice{{Message: Message{Role: "assistant", Content: `{"objects":[]}`}}},
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/")
	require.NoError(t, err)

	text, err := c.Query(context.Background(), client.Request{Model: "m", Prompt: "find", ImageB64: "aGk=", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"objects":[]}`, text)

	assert.Equal(t, "m", got.Model)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	parts, ok := got.Messages[0].Content.([]any)
	require.True(t, ok)
	assert.Len(t, parts, 2)
}

func TestQueryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.Query(context.Background(), client.Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestMessageText(t *testing.T) {
	assert.Equal(t, "hello", messageText("hello"))
	assert.Equal(t, "b", messageText([]any{map[string]any{"type": "image"}, map[string]any{"text": "b"}}))
	assert.Equal(t, "", messageText(42))
}
