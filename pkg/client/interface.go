// Package client defines the interface shared by vision model backends.
package client

import "context"

// Request is a single prompt + image round trip to a vision model.
type Request struct {
	Model    string
	Prompt   string
	ImageB64 string
	// JSON asks the backend to constrain its output to a JSON document
	// when it supports doing so.
	JSON bool
}

// VisionClient sends a prompt and an image to a vision model and returns
// the raw text reply.
type VisionClient interface {
	Query(ctx context.Context, req Request) (string, error)
}
