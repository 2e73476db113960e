package kie

import (
	"context"

	"github.com/tarikstafford/reve-app-sub000/internal/generation"
)

// ImageProvider renders still images through the jobs API.
type ImageProvider struct {
	client *Client
	model  string
}

var _ generation.Provider = (*ImageProvider)(nil)

type imageInput struct {
	Prompt       string `json:"prompt"`
	OutputFormat string `json:"output_format"`
	ImageSize    string `json:"image_size,omitempty"`
}

// NewImageProvider creates an image provider for model.
func NewImageProvider(client *Client, model string) (*ImageProvider, error) {
	if model == "" {
		return nil, ErrMissingModel
	}
	return &ImageProvider{client: client, model: model}, nil
}

// Name implements generation.Provider.
func (p *ImageProvider) Name() string { return "kie_image" }

// Submit implements generation.Provider.
func (p *ImageProvider) Submit(ctx context.Context, req generation.Request) (string, error) {
	return p.client.createJob(ctx, p.model, imageInput{
		Prompt:       req.Prompt,
		OutputFormat: "png",
		ImageSize:    req.AspectRatio,
	})
}

// Status implements generation.Provider.
func (p *ImageProvider) Status(ctx context.Context, taskID string) (generation.Status, error) {
	return p.client.jobStatus(ctx, taskID)
}
