package llm

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultChatModel     = "gpt-4o"
	defaultAnalysisModel = "gpt-4-turbo-preview"
	defaultVisionModel   = "gpt-4o"
	defaultImageModel    = openai.CreateImageModelDallE3
)

// OpenAIClient is the OpenAI gateway client. It implements Client,
// ImageGenerator and Analyzer.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}

	return &OpenAIClient{
		client: openai.NewClient(apiKey),
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Models returns available models.
func (c *OpenAIClient) Models() []string {
	return []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"gpt-4",
		"gpt-3.5-turbo",
	}
}

// Complete sends a completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = defaultChatModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Context)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.Context {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	if req.Prompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: req.Prompt,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, Classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, UpstreamError(http.StatusBadGateway, "provider returned no choices")
	}

	return &CompletionResponse{
		Content:    resp.Choices[0].Message.Content,
		Model:      resp.Model,
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		StopReason: string(resp.Choices[0].FinishReason),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// GenerateImage sends a DALL-E image generation request.
func (c *OpenAIClient) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error) {
	size := req.Size
	if size == "" {
		size = openai.CreateImageSize1024x1024
	}
	quality := req.Quality
	if quality == "" {
		quality = openai.CreateImageQualityStandard
	}

	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Model:          defaultImageModel,
		Prompt:         req.Prompt,
		N:              1,
		Size:           size,
		Quality:        quality,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, Classify(err)
	}

	if len(resp.Data) == 0 {
		return nil, UpstreamError(http.StatusBadGateway, "provider returned no image")
	}

	return &ImageResponse{
		URL:           resp.Data[0].URL,
		RevisedPrompt: resp.Data[0].RevisedPrompt,
	}, nil
}

// documentSystemPrompt frames document analysis. The instruction branch is
// chosen the same way the upstream UI did: analysis-style queries fall
// through to the generic summary prompt.
func documentSystemPrompt(instruction string) string {
	if instruction != "" && !isGenericAnalysisQuery(instruction) {
		return "You are an AI assistant specialized in analyzing files.\n" +
			"Current user request: \"" + instruction + "\"\n" +
			"Please focus on addressing this specific query.\n" +
			"If you cannot process the request, explain why, suggest alternative approaches, " +
			"and recommend better ways to get the needed information."
	}
	return "You are an AI assistant specialized in analyzing files.\n" +
		"Please process the document and provide:\n" +
		"1. A brief overview of what this document is about (2-3 sentences).\n" +
		"2. Key points or the main purpose.\n" +
		"3. Any notable patterns, structures, or trends.\n" +
		"4. Potential issues or recommendations (if any).\n" +
		"If the content is not readable, explain why it couldn't be processed, " +
		"suggest alternative approaches, and recommend better file formats."
}

var analysisVerbs = []string{"analyze", "analyse", "explain", "summarize", "review", "interpret", "evaluate", "break down"}

func isGenericAnalysisQuery(q string) bool {
	q = strings.ToLower(q)
	for _, verb := range analysisVerbs {
		if strings.Contains(q, verb) {
			return true
		}
	}
	return false
}

// AnalyzeDocument analyzes an uploaded text document. Unreadable or empty
// content is rejected as unprocessable before any provider call.
func (c *OpenAIClient) AnalyzeDocument(ctx context.Context, req *AnalysisRequest) (string, error) {
	text := string(req.Data)
	if strings.TrimSpace(text) == "" || !utf8.ValidString(text) {
		return "", NewUnprocessable("unable to read file content; the file may be corrupted or in an unsupported format")
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: documentSystemPrompt(req.Instruction)},
		{Role: openai.ChatMessageRoleUser, Content: text},
	}
	if req.Instruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: "Specific request about this document: " + req.Instruction,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       defaultAnalysisModel,
		Messages:    messages,
		MaxTokens:   4000,
		Temperature: 0.7,
	})
	if err != nil {
		return "", Classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", UpstreamError(http.StatusBadGateway, "provider returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// AnalyzeImage analyzes an uploaded image using a vision-capable model.
func (c *OpenAIClient) AnalyzeImage(ctx context.Context, req *AnalysisRequest) (string, error) {
	if len(req.Data) == 0 {
		return "", NewUnprocessable("no image content provided")
	}

	instruction := req.Instruction
	if instruction == "" {
		instruction = "Analyze this image"
	}

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(req.Data)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     defaultVisionModel,
		MaxTokens: 1000,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: instruction,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", Classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", UpstreamError(http.StatusBadGateway, "provider returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
