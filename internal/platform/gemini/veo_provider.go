package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/tarikstafford/reve-app-sub000/internal/generation"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/logger"
	"google.golang.org/genai"
)

// videoOperations is the slice of the genai client the provider uses.
type videoOperations interface {
	GenerateVideos(
		ctx context.Context,
		model, prompt string,
		config *genai.GenerateVideosConfig,
	) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, name string) (*genai.GenerateVideosOperation, error)
}

// genaiOperations adapts *genai.Client to videoOperations.
type genaiOperations struct {
	client *genai.Client
}

func (g genaiOperations) GenerateVideos(
	ctx context.Context,
	model, prompt string,
	config *genai.GenerateVideosConfig,
) (*genai.GenerateVideosOperation, error) {
	return g.client.Models.GenerateVideos(ctx, model, prompt, nil, config)
}

func (g genaiOperations) GetVideosOperation(ctx context.Context, name string) (*genai.GenerateVideosOperation, error) {
	return g.client.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: name}, nil)
}

// Config configures a VeoProvider.
type Config struct {
	APIKey string
	Model  string
}

// VeoProvider implements generation.Provider with Veo on the Gemini API.
type VeoProvider struct {
	ops    videoOperations
	model  string
	apiKey string
	logger *slog.Logger
}

var _ generation.Provider = (*VeoProvider)(nil)

// NewVeoProvider creates a VeoProvider backed by the Gemini API.
func NewVeoProvider(ctx context.Context, cfg Config, logger *slog.Logger) (*VeoProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: veo model cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}
	return newVeoProvider(genaiOperations{client: client}, cfg, logger), nil
}

func newVeoProvider(ops videoOperations, cfg Config, logger *slog.Logger) *VeoProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &VeoProvider{
		ops:    ops,
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		logger: logger.With(slog.String("component", "gemini_veo")),
	}
}

// Name implements generation.Provider.
func (p *VeoProvider) Name() string { return "gemini_veo" }

// Submit implements generation.Provider. The returned ID is the operation name.
func (p *VeoProvider) Submit(ctx context.Context, req generation.Request) (string, error) {
	cfg := &genai.GenerateVideosConfig{NumberOfVideos: 1}
	if ratio := veoAspectRatio(req.AspectRatio); ratio != "" {
		cfg.AspectRatio = ratio
	}

	op, err := p.ops.GenerateVideos(ctx, p.model, req.Prompt, cfg)
	if err != nil {
		return "", fmt.Errorf("veo generate videos: %w", err)
	}
	if op == nil || op.Name == "" {
		return "", fmt.Errorf("%w: veo returned no operation name", generation.ErrInvalidResponse)
	}

	logger.FromContextOrDefault(ctx, p.logger).Debug("veo operation started",
		slog.String("operation", op.Name),
		slog.String("model", p.model))
	return op.Name, nil
}

// Status implements generation.Provider.
func (p *VeoProvider) Status(ctx context.Context, taskID string) (generation.Status, error) {
	op, err := p.ops.GetVideosOperation(ctx, taskID)
	if err != nil {
		return generation.Status{}, fmt.Errorf("veo get operation: %w", err)
	}
	if op == nil {
		return generation.Status{}, fmt.Errorf("%w: nil operation", generation.ErrInvalidResponse)
	}
	if !op.Done {
		return generation.Status{State: generation.StateRunning}, nil
	}
	if len(op.Error) > 0 {
		return generation.Status{State: generation.StateFailed, Message: operationError(op.Error)}, nil
	}

	uri, err := videoURI(op.Response)
	if err != nil {
		if errors.Is(err, ErrNoVideo) && op.Response != nil && len(op.Response.RAIMediaFilteredReasons) > 0 {
			return generation.Status{
				State:   generation.StateFailed,
				Message: "filtered: " + strings.Join(op.Response.RAIMediaFilteredReasons, "; "),
			}, nil
		}
		return generation.Status{}, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}
	return generation.Status{State: generation.StateSucceeded, URL: p.downloadURL(uri)}, nil
}

// downloadURL makes a Gemini file URI fetchable without extra headers.
func (p *VeoProvider) downloadURL(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || p.apiKey == "" || !strings.HasSuffix(u.Host, "googleapis.com") {
		return uri
	}
	q := u.Query()
	q.Set("key", p.apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

func videoURI(resp *genai.GenerateVideosResponse) (string, error) {
	if resp == nil || len(resp.GeneratedVideos) == 0 {
		return "", ErrNoVideo
	}
	v := resp.GeneratedVideos[0]
	if v == nil || v.Video == nil || v.Video.URI == "" {
		return "", ErrNoVideo
	}
	return v.Video.URI, nil
}

func operationError(e map[string]any) string {
	if msg, ok := e["message"].(string); ok && msg != "" {
		return msg
	}
	return fmt.Sprint(e)
}

// veoAspectRatio returns the ratio if Veo supports it, "" otherwise.
func veoAspectRatio(ratio string) string {
	switch ratio {
	case "16:9", "9:16":
		return ratio
	default:
		return ""
	}
}
