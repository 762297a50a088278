package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/replicate/replicate-go"
)

// replicateImageVersion is the Stable Diffusion version used for image
// generation.
const replicateImageVersion = "da77bc59ee60423279fd632efb4795ab731d9e3ca9705ef3341091fb989b7eaf"

// ReplicateClient generates images through Replicate's prediction API. It is
// an image backend only; completions stay with the configured chat provider.
type ReplicateClient struct {
	client *replicate.Client
}

// NewReplicateClient creates a Replicate image client.
func NewReplicateClient(apiKey string) (*ReplicateClient, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	client, err := replicate.NewClient(replicate.WithToken(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating replicate client: %w", err)
	}
	return &ReplicateClient{client: client}, nil
}

// Name returns the provider name.
func (c *ReplicateClient) Name() string {
	return "replicate"
}

// GenerateImage creates a prediction and blocks until it reaches a terminal
// state.
func (c *ReplicateClient) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error) {
	width, height := parseImageSize(req.Size)
	input := replicate.PredictionInput{
		"prompt":              req.Prompt,
		"width":               width,
		"height":              height,
		"num_outputs":         1,
		"scheduler":           "DDIM",
		"num_inference_steps": 30,
		"guidance_scale":      7.5,
	}

	prediction, err := c.client.CreatePrediction(ctx, replicateImageVersion, input, nil, false)
	if err != nil {
		return nil, Classify(err)
	}
	if err := c.client.Wait(ctx, prediction); err != nil {
		return nil, Classify(err)
	}
	if prediction.Status != replicate.Succeeded {
		return nil, UpstreamError(http.StatusBadGateway, "image generation failed")
	}

	outputs, ok := prediction.Output.([]any)
	if !ok || len(outputs) == 0 {
		return nil, UpstreamError(http.StatusBadGateway, "provider returned no image")
	}
	url, ok := outputs[0].(string)
	if !ok {
		return nil, UpstreamError(http.StatusBadGateway, "provider returned no image")
	}

	// Replicate does not rewrite prompts; echo the original.
	return &ImageResponse{URL: url, RevisedPrompt: req.Prompt}, nil
}

// parseImageSize maps a "WxH" header value onto prediction dimensions,
// defaulting to 1024x1024.
func parseImageSize(size string) (int, int) {
	var w, h int
	if _, err := fmt.Sscanf(size, "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 1024, 1024
	}
	return w, h
}
