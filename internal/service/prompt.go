package service

import (
	"fmt"

	"github.com/clearway-ai/chat-gateway/internal/llm"
	"github.com/clearway-ai/chat-gateway/internal/model"
)

// formatInstructions maps an output-format setting to the instruction
// appended to the system prompt.
var formatInstructions = map[string]string{
	"step-by-step":            "Break down your response into clear, numbered steps.",
	"eli5":                    "Explain this as if explaining to a 5-year-old.",
	"technical-documentation": "Provide detailed technical documentation with sections for Overview, Requirements, Implementation, and Examples.",
	"concise":                 "Provide a brief, direct response focusing only on key points.",
	"extreme-detail":          "Provide an extremely detailed response covering all aspects thoroughly.",
}

// systemPrompt builds the system message applied to every completion request
// from the settings record.
func systemPrompt(settings model.Settings) string {
	return fmt.Sprintf(`You are an AI assistant with the following characteristics:
Tone: %s
Writing Style: %s
Language: %s
Output Format: %s
%s
Please respond accordingly while maintaining these characteristics.

Important: Use the conversation history to maintain context and provide more relevant responses.`,
		orDefault(settings.Tone),
		orDefault(settings.WritingStyle),
		orDefault(settings.Language),
		orDefault(settings.OutputFormat),
		formatInstructions[settings.OutputFormat],
	)
}

func orDefault(v string) string {
	if v == "" {
		return "default"
	}
	return v
}

// temperatureFor mirrors the upstream behavior: the default tone gets a
// conservative temperature, any custom tone a creative one.
func temperatureFor(settings model.Settings) float64 {
	if settings.Tone == "" || settings.Tone == "default" {
		return 0.7
	}
	return 0.9
}

// toChatContext converts session history into provider chat messages. File
// turns are re-framed so the model treats their content as reference
// material; error and system turns never reach the provider.
func toChatContext(messages []model.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Type {
		case model.MessageTypeError, model.MessageTypeSystem:
			continue
		case model.MessageTypeFile:
			out = append(out, llm.ChatMessage{
				Role:    string(msg.Role),
				Content: "Previous file content:\n" + msg.Content + "\n\nPlease refer to this content when needed.",
			})
		default:
			out = append(out, llm.ChatMessage{
				Role:    string(msg.Role),
				Content: msg.Content,
			})
		}
	}
	return out
}
