package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/logger"
	"github.com/tarikstafford/reve-app-sub000/internal/telemetry"
)

// PollConfig bounds a blocking poll: at most MaxAttempts waits of Interval.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// Budget is the longest time a poll may block.
func (p PollConfig) Budget() time.Duration {
	return time.Duration(p.MaxAttempts) * p.Interval
}

// ClientConfig holds the poll bounds per media kind.
type ClientConfig struct {
	// ImagePoll defaults to 12 x 5s.
	ImagePoll PollConfig
	// VideoPoll defaults to 30 x 10s and applies to both video paths.
	VideoPoll PollConfig
}

// DefaultClientConfig returns the production poll bounds.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ImagePoll: PollConfig{Interval: 5 * time.Second, MaxAttempts: 12},
		VideoPoll: PollConfig{Interval: 10 * time.Second, MaxAttempts: 30},
	}
}

// Client drives image, storyboard video and legacy Veo3 video generation.
type Client struct {
	image      Provider
	storyboard Provider
	legacy     Provider
	cfg        ClientConfig
	logger     *slog.Logger
}

// NewClient creates a Client. All three providers are required.
func NewClient(image, storyboard, legacy Provider, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if image == nil || storyboard == nil || legacy == nil {
		return nil, fmt.Errorf("%w: image, storyboard and legacy providers are required", ErrInvalidConfig)
	}
	for _, p := range []PollConfig{cfg.ImagePoll, cfg.VideoPoll} {
		if p.Interval <= 0 || p.MaxAttempts <= 0 {
			return nil, fmt.Errorf("%w: poll interval and attempts must be positive", ErrInvalidConfig)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		image:      image,
		storyboard: storyboard,
		legacy:     legacy,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "generation_client")),
	}, nil
}

// CreateImageTask submits an image job and returns the provider task ID.
func (c *Client) CreateImageTask(ctx context.Context, prompt, aspectRatio string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	return c.create(ctx, c.image, Request{Prompt: prompt, AspectRatio: aspectRatio})
}

// CheckImageTaskStatus returns the image URL if the task has finished, or ""
// if it is still running. It never blocks and never creates work.
func (c *Client) CheckImageTaskStatus(ctx context.Context, taskID string) (string, error) {
	return c.check(ctx, c.image, taskID)
}

// PollImageTask blocks until the image task finishes or the image poll budget is spent.
func (c *Client) PollImageTask(ctx context.Context, taskID string) (string, error) {
	return c.poll(ctx, c.image, taskID, c.cfg.ImagePoll)
}

// CreateStoryboardVideoTask submits a three-shot video seeded by imageURL.
func (c *Client) CreateStoryboardVideoTask(
	ctx context.Context,
	imageURL string,
	shots [3]string,
	aspectRatio string,
) (string, error) {
	for _, s := range shots {
		if strings.TrimSpace(s) == "" {
			return "", fmt.Errorf("%w: storyboard needs three shots", ErrEmptyPrompt)
		}
	}
	if imageURL == "" {
		return "", fmt.Errorf("%w: storyboard needs a seed image", ErrInvalidConfig)
	}
	return c.create(ctx, c.storyboard, Request{
		ImageURL:    imageURL,
		Shots:       shots[:],
		AspectRatio: aspectRatio,
	})
}

// CheckStoryboardTaskStatus is the non-blocking status query for storyboard videos.
func (c *Client) CheckStoryboardTaskStatus(ctx context.Context, taskID string) (string, error) {
	return c.check(ctx, c.storyboard, taskID)
}

// PollStoryboardTask blocks until the storyboard video finishes or the video poll budget is spent.
func (c *Client) PollStoryboardTask(ctx context.Context, taskID string) (string, error) {
	return c.poll(ctx, c.storyboard, taskID, c.cfg.VideoPoll)
}

// CreateVeo3VideoTask submits a single-prompt video job.
func (c *Client) CreateVeo3VideoTask(ctx context.Context, prompt, aspectRatio string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	return c.create(ctx, c.legacy, Request{Prompt: prompt, AspectRatio: aspectRatio})
}

// CheckVeo3TaskStatus is the non-blocking status query for single-prompt videos.
func (c *Client) CheckVeo3TaskStatus(ctx context.Context, taskID string) (string, error) {
	return c.check(ctx, c.legacy, taskID)
}

// PollVeo3Task blocks until the single-prompt video finishes or the video poll budget is spent.
func (c *Client) PollVeo3Task(ctx context.Context, taskID string) (string, error) {
	return c.poll(ctx, c.legacy, taskID, c.cfg.VideoPoll)
}

func (c *Client) create(ctx context.Context, p Provider, req Request) (string, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	taskID, err := p.Submit(ctx, req)
	telemetry.ProviderCalls.WithLabelValues(p.Name(), "submit", telemetry.Result(err)).Inc()
	if err != nil {
		log.Error("provider task creation failed",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()))
		if errors.Is(err, ErrProviderCreate) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %w", ErrProviderCreate, p.Name(), err)
	}
	if taskID == "" {
		return "", fmt.Errorf("%w: %s returned an empty task ID", ErrProviderCreate, p.Name())
	}

	log.Info("provider task created",
		slog.String("provider", p.Name()),
		slog.String("provider_task_id", taskID))
	return taskID, nil
}

func (c *Client) check(ctx context.Context, p Provider, taskID string) (string, error) {
	if taskID == "" {
		return "", ErrEmptyTaskID
	}

	st, err := p.Status(ctx, taskID)
	telemetry.ProviderCalls.WithLabelValues(p.Name(), "status", telemetry.Result(err)).Inc()
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s task %s status: %w", p.Name(), taskID, err)
	}

	switch st.State {
	case StateSucceeded:
		if st.URL == "" {
			return "", fmt.Errorf("%w: %s task %s succeeded without a result URL", ErrInvalidResponse, p.Name(), taskID)
		}
		return st.URL, nil
	case StateFailed:
		msg := st.Message
		if msg == "" {
			msg = "no reason given"
		}
		return "", fmt.Errorf("%w: %s task %s: %s", ErrTaskFailed, p.Name(), taskID, msg)
	default:
		return "", nil
	}
}

func (c *Client) poll(ctx context.Context, p Provider, taskID string, cfg PollConfig) (string, error) {
	log := logger.FromContextOrDefault(ctx, c.logger).With(
		slog.String("provider", p.Name()),
		slog.String("provider_task_id", taskID))

	backoff := retry.WithMaxRetries(uint64(cfg.MaxAttempts), retry.NewConstant(cfg.Interval))

	attempt := 0
	url, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (string, error) {
		attempt++
		url, err := c.check(ctx, p, taskID)
		switch {
		case err == nil && url != "":
			return url, nil
		case err == nil:
			return "", retry.RetryableError(errNotReady)
		case errors.Is(err, ErrTaskFailed), errors.Is(err, ErrInvalidResponse), errors.Is(err, ErrEmptyTaskID):
			return "", err
		default:
			log.Warn("status check failed, will retry",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return "", retry.RetryableError(err)
		}
	})
	if err == nil {
		log.Info("provider task finished", slog.Int("checks", attempt))
		return url, nil
	}

	if errors.Is(err, ErrTaskFailed) || errors.Is(err, ErrInvalidResponse) ||
		errors.Is(err, ErrEmptyTaskID) || ctx.Err() != nil {
		return "", err
	}
	log.Warn("provider task poll timed out",
		slog.Int("checks", attempt),
		slog.Duration("budget", cfg.Budget()))
	if errors.Is(err, errNotReady) {
		return "", fmt.Errorf("%w: %s task %s after %s", ErrPollTimeout, p.Name(), taskID, cfg.Budget())
	}
	return "", fmt.Errorf("%w: %s task %s: %w", ErrPollTimeout, p.Name(), taskID, err)
}
