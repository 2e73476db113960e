package kie

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tarikstafford/reve-app-sub000/internal/generation"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/logger"
)

const (
	createTaskPath = "/api/v1/jobs/createTask"
	recordInfoPath = "/api/v1/jobs/recordInfo"
)

// Job states reported by recordInfo.
const (
	jobWaiting    = "waiting"
	jobQueuing    = "queuing"
	jobGenerating = "generating"
	jobSuccess    = "success"
	jobFail       = "fail"
)

type createTaskRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type createTaskData struct {
	TaskID string `json:"taskId"`
}

type recordInfoData struct {
	TaskID     string `json:"taskId"`
	State      string `json:"state"`
	ResultJSON string `json:"resultJson"`
	FailCode   string `json:"failCode"`
	FailMsg    string `json:"failMsg"`
}

type jobResult struct {
	ResultURLs []string `json:"resultUrls"`
}

// createJob submits a jobs API task and returns its ID.
func (c *Client) createJob(ctx context.Context, model string, input any) (string, error) {
	var data createTaskData
	if err := c.post(ctx, createTaskPath, createTaskRequest{Model: model, Input: input}, &data); err != nil {
		return "", err
	}
	if data.TaskID == "" {
		return "", fmt.Errorf("%w: createTask returned no taskId", generation.ErrInvalidResponse)
	}
	return data.TaskID, nil
}

// jobStatus fetches a jobs API task and maps it onto a generation.Status.
func (c *Client) jobStatus(ctx context.Context, taskID string) (generation.Status, error) {
	var data recordInfoData
	if err := c.get(ctx, recordInfoPath, map[string]string{"taskId": taskID}, &data); err != nil {
		return generation.Status{}, err
	}

	switch data.State {
	case jobSuccess:
		var result jobResult
		if data.ResultJSON != "" {
			if err := json.Unmarshal([]byte(data.ResultJSON), &result); err != nil {
				return generation.Status{}, fmt.Errorf("%w: bad resultJson: %v", generation.ErrInvalidResponse, err)
			}
		}
		st := generation.Status{State: generation.StateSucceeded}
		if len(result.ResultURLs) > 0 {
			st.URL = result.ResultURLs[0]
		}
		return st, nil
	case jobFail:
		msg := data.FailMsg
		if msg == "" && data.FailCode != "" {
			msg = "fail code " + data.FailCode
		}
		return generation.Status{State: generation.StateFailed, Message: msg}, nil
	case jobWaiting, jobQueuing, jobGenerating, "":
		return generation.Status{State: generation.StateRunning}, nil
	default:
		logger.FromContextOrDefault(ctx, c.logger).Warn("unknown kie job state, treating as running",
			slog.String("state", data.State),
			slog.String("provider_task_id", taskID))
		return generation.Status{State: generation.StateRunning}, nil
	}
}
