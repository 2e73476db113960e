package kie

import (
	"context"
	"fmt"

	"github.com/tarikstafford/reve-app-sub000/internal/generation"
)

const (
	veoGeneratePath   = "/api/v1/veo/generate"
	veoRecordInfoPath = "/api/v1/veo/record-info"
)

// Veo success flags.
const (
	veoGenerating     = 0
	veoSucceeded      = 1
	veoFailed         = 2
	veoGenerateFailed = 3
)

// Veo3Provider renders single-prompt videos through kie.ai's Veo3 endpoints.
type Veo3Provider struct {
	client *Client
	model  string
}

var _ generation.Provider = (*Veo3Provider)(nil)

type veoGenerateRequest struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type veoRecordData struct {
	TaskID       string `json:"taskId"`
	SuccessFlag  int    `json:"successFlag"`
	ErrorMessage string `json:"errorMessage"`
	Response     *struct {
		ResultURLs []string `json:"resultUrls"`
	} `json:"response"`
}

// NewVeo3Provider creates a Veo3 provider for model (for example "veo3_fast").
func NewVeo3Provider(client *Client, model string) (*Veo3Provider, error) {
	if model == "" {
		return nil, ErrMissingModel
	}
	return &Veo3Provider{client: client, model: model}, nil
}

// Name implements generation.Provider.
func (p *Veo3Provider) Name() string { return "kie_veo3" }

// Submit implements generation.Provider.
func (p *Veo3Provider) Submit(ctx context.Context, req generation.Request) (string, error) {
	var data createTaskData
	err := p.client.post(ctx, veoGeneratePath, veoGenerateRequest{
		Prompt:      req.Prompt,
		Model:       p.model,
		AspectRatio: req.AspectRatio,
	}, &data)
	if err != nil {
		return "", err
	}
	if data.TaskID == "" {
		return "", fmt.Errorf("%w: veo generate returned no taskId", generation.ErrInvalidResponse)
	}
	return data.TaskID, nil
}

// Status implements generation.Provider.
func (p *Veo3Provider) Status(ctx context.Context, taskID string) (generation.Status, error) {
	var data veoRecordData
	if err := p.client.get(ctx, veoRecordInfoPath, map[string]string{"taskId": taskID}, &data); err != nil {
		return generation.Status{}, err
	}

	switch data.SuccessFlag {
	case veoSucceeded:
		st := generation.Status{State: generation.StateSucceeded}
		if data.Response != nil && len(data.Response.ResultURLs) > 0 {
			st.URL = data.Response.ResultURLs[0]
		}
		return st, nil
	case veoFailed, veoGenerateFailed:
		return generation.Status{State: generation.StateFailed, Message: data.ErrorMessage}, nil
	case veoGenerating:
		return generation.Status{State: generation.StateRunning}, nil
	default:
		return generation.Status{}, fmt.Errorf("%w: unknown veo success flag %d",
			generation.ErrInvalidResponse, data.SuccessFlag)
	}
}
