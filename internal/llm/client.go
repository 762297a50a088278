// Package llm provides provider gateway interfaces and implementations. It
// translates application-level requests into the JSON/multipart shapes each
// upstream provider expects and classifies failures into a small taxonomy.
package llm

import (
	"context"
)

// ChatMessage represents a chat message for a provider call.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest represents a completion request. Context holds the
// bounded slice of prior turns; System is prepended as the system message.
type CompletionRequest struct {
	Model       string
	System      string
	Context     []ChatMessage
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// ImageRequest represents an image generation request. Size and Quality
// arrive out-of-band (headers) and are passed through to the provider.
type ImageRequest struct {
	Prompt  string
	Size    string
	Quality string
}

// ImageResponse represents an image generation response. RevisedPrompt is set
// by providers that rewrite the prompt.
type ImageResponse struct {
	URL           string
	RevisedPrompt string
}

// AnalysisRequest represents a document or image analysis request. Data holds
// the raw upload; Instruction is the optional user query about it.
type AnalysisRequest struct {
	Data        []byte
	Instruction string
}

// Client is the interface for completion providers.
type Client interface {
	// Complete sends a one-shot completion request. No retries.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// ImageGenerator is implemented by providers that can generate images.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error)
}

// Analyzer is implemented by providers that can analyze uploaded documents
// and images.
type Analyzer interface {
	AnalyzeDocument(ctx context.Context, req *AnalysisRequest) (string, error)
	AnalyzeImage(ctx context.Context, req *AnalysisRequest) (string, error)
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new completion client for the provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewOpenAIClient(apiKey)
	}
}
