package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"

	"github.com/menta2k/frame-annotator/pkg/client"
)

// DefaultTimeout applies when the caller's context has no deadline.
const DefaultTimeout = 300 * time.Second

// Client wraps the Ollama API client
type Client struct {
	client *api.Client
}

// NewClient creates a new Ollama client. Only the scheme and host of
// ollamaURL are used, so ".../api/chat" style URLs are accepted.
func NewClient(ollamaURL string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, errors.Errorf("invalid URL %q: scheme and host required", ollamaURL)
	}

	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	// OLLAMA_HOST is not consulted.
	return &Client{client: api.NewClient(baseURL, http.DefaultClient)}, nil
}

// Query sends one non-streaming chat request with the image attached.
func (c *Client) Query(ctx context.Context, req client.Request) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	msg := api.Message{Role: "user", Content: req.Prompt}
	if req.ImageB64 != "" {
		imgBytes, err := base64.StdEncoding.DecodeString(req.ImageB64)
		if err != nil {
			return "", errors.Wrap(err, "failed to decode base64 image")
		}
		msg.Images = []api.ImageData{api.ImageData(imgBytes)}
	}

	streamFalse := false
	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: []api.Message{msg},
		Stream:   &streamFalse,
		Options:  modelOptions(req.Model),
	}
	if req.JSON {
		chatReq.Format = json.RawMessage(`"json"`)
	}

	var reply strings.Builder
	err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "ollama chat")
	}
	if reply.Len() == 0 {
		return "", errors.New("empty response from ollama")
	}
	return reply.String(), nil
}

// modelOptions tunes sampling for models known to ramble at defaults.
func modelOptions(model string) map[string]any {
	options := map[string]any{}
	m := strings.ToLower(model)
	if strings.Contains(m, "minicpm-v4") ||
		strings.Contains(m, "minicpm-v-4") ||
		strings.Contains(m, "minicpmv4") {
		options["temperature"] = 0.7
		options["top_p"] = 0.8
		options["num_ctx"] = 4096
	}
	return options
}
