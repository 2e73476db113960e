package kie

import (
	"context"
	"fmt"

	"github.com/tarikstafford/reve-app-sub000/internal/generation"
)

// Storyboard clip length. Each shot gets an equal share.
const (
	storyboardFrames   = "15"
	storyboardDuration = 5
)

// StoryboardProvider renders multi-shot videos seeded by an image.
type StoryboardProvider struct {
	client *Client
	model  string
}

var _ generation.Provider = (*StoryboardProvider)(nil)

type storyboardShot struct {
	Scene    string `json:"Scene"`
	Duration int    `json:"duration"`
}

type storyboardInput struct {
	Shots       []storyboardShot `json:"shots"`
	NFrames     string           `json:"n_frames"`
	ImageURLs   []string         `json:"image_urls"`
	AspectRatio string           `json:"aspect_ratio"`
}

// NewStoryboardProvider creates a storyboard provider for model.
func NewStoryboardProvider(client *Client, model string) (*StoryboardProvider, error) {
	if model == "" {
		return nil, ErrMissingModel
	}
	return &StoryboardProvider{client: client, model: model}, nil
}

// Name implements generation.Provider.
func (p *StoryboardProvider) Name() string { return "kie_storyboard" }

// Submit implements generation.Provider.
func (p *StoryboardProvider) Submit(ctx context.Context, req generation.Request) (string, error) {
	if len(req.Shots) == 0 {
		return "", fmt.Errorf("%w: storyboard has no shots", generation.ErrEmptyPrompt)
	}
	shots := make([]storyboardShot, 0, len(req.Shots))
	for _, s := range req.Shots {
		shots = append(shots, storyboardShot{Scene: s, Duration: storyboardDuration})
	}
	input := storyboardInput{
		Shots:       shots,
		NFrames:     storyboardFrames,
		AspectRatio: orientation(req.AspectRatio),
	}
	if req.ImageURL != "" {
		input.ImageURLs = []string{req.ImageURL}
	}
	return p.client.createJob(ctx, p.model, input)
}

// Status implements generation.Provider.
func (p *StoryboardProvider) Status(ctx context.Context, taskID string) (generation.Status, error) {
	return p.client.jobStatus(ctx, taskID)
}

// orientation maps a ratio onto the storyboard model's portrait/landscape switch.
func orientation(aspectRatio string) string {
	switch aspectRatio {
	case "16:9", "4:3", "3:2", "21:9", "landscape":
		return "landscape"
	default:
		return "portrait"
	}
}
