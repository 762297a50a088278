package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/clearway-ai/chat-gateway/internal/llm"
	"github.com/clearway-ai/chat-gateway/internal/model"
	"github.com/clearway-ai/chat-gateway/internal/state"
	"github.com/clearway-ai/chat-gateway/pkg/logger"
	"github.com/clearway-ai/chat-gateway/pkg/metrics"
)

// ClientFactory builds a provider client for a credential. Swapped for a fake
// in tests.
type ClientFactory func(provider llm.Provider, apiKey string) (llm.Client, error)

// ImageFactory builds the dedicated image backend for a credential.
type ImageFactory func(apiKey string) (llm.ImageGenerator, error)

// ChatService orchestrates completion requests: it builds the bounded
// context window, issues the upstream call, and delivers the result back
// into the session in turn order.
type ChatService struct {
	sessions *SessionService
	factory  ClientFactory
	images   ImageFactory
	provider llm.Provider
	fallback string // server-side credential for title/analysis calls
	logger   *logger.Logger

	mu   sync.Mutex
	logs map[string]*turnLog
}

// NewChatService creates a new chat service.
func NewChatService(sessions *SessionService, factory ClientFactory, provider llm.Provider, fallbackKey string, log *logger.Logger) *ChatService {
	if factory == nil {
		factory = llm.NewClient
	}
	return &ChatService{
		sessions: sessions,
		factory:  factory,
		images: func(apiKey string) (llm.ImageGenerator, error) {
			return llm.NewReplicateClient(apiKey)
		},
		provider: provider,
		fallback: fallbackKey,
		logger:   log,
		logs:     make(map[string]*turnLog),
	}
}

func (s *ChatService) turnLogFor(sessionID string) *turnLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[sessionID]
	if !ok {
		l = newTurnLog()
		s.logs[sessionID] = l
	}
	return l
}

// CancelSession aborts in-flight completions for a session and drops their
// results. Called when the session is deleted.
func (s *ChatService) CancelSession(sessionID string) {
	s.mu.Lock()
	l, ok := s.logs[sessionID]
	if ok {
		delete(s.logs, sessionID)
	}
	s.mu.Unlock()
	if ok {
		l.close()
	}
}

// CancelAll aborts in-flight completions for every session.
func (s *ChatService) CancelAll() {
	s.mu.Lock()
	logs := s.logs
	s.logs = make(map[string]*turnLog)
	s.mu.Unlock()
	for _, l := range logs {
		l.close()
	}
}

// resolveKey picks the provider credential: the per-request header wins, then
// the stored credential, then the server-side fallback.
func (s *ChatService) resolveKey(apiKey string) string {
	if apiKey != "" {
		return apiKey
	}
	if stored := s.sessions.APIKey(); stored != "" {
		return stored
	}
	return s.fallback
}

func (s *ChatService) client(apiKey string) (llm.Client, error) {
	key := s.resolveKey(apiKey)
	if key == "" {
		return nil, llm.ErrMissingCredential
	}
	return s.factory(s.provider, key)
}

// effectiveSettings merges a per-request patch over the stored settings
// without persisting it.
func (s *ChatService) effectiveSettings(patch *model.SettingsPatch) model.Settings {
	settings := s.sessions.Settings()
	if patch != nil {
		settings = patch.Apply(settings)
	}
	return settings
}

// SendMessage appends the prompt as a user turn, calls the provider with the
// bounded context window, and appends the assistant reply. A provider
// failure still produces a visible error-type turn in the session.
func (s *ChatService) SendMessage(ctx context.Context, apiKey, prompt string, patch *model.SettingsPatch) (model.Message, error) {
	client, err := s.client(apiKey)
	if err != nil {
		return model.Message{}, err
	}

	sess, ok := s.sessions.Active()
	if !ok {
		sess = s.sessions.Create(ctx, "")
	}

	settings := s.effectiveSettings(patch)
	log := s.turnLogFor(sess.ID)

	turn, callCtx, ok := log.issue(ctx)
	if !ok {
		return model.Message{}, ErrSessionNotFound
	}

	userMsg, appended := s.sessions.AppendMessage(ctx, model.Message{
		Role:    model.RoleUser,
		Content: prompt,
		Type:    model.MessageTypeText,
		Turn:    turn,
	})
	if !appended {
		log.skip(turn)
		return model.Message{}, ErrSessionNotFound
	}

	s.maybeGenerateTitle(sess, userMsg, apiKey)

	// Window over the history as it stood before this turn.
	window := state.Window(sess.Messages, settings.ContextWindow)

	resp, err := s.completeWithMetrics(callCtx, client, &llm.CompletionRequest{
		System:      systemPrompt(settings),
		Context:     toChatContext(window),
		Prompt:      prompt,
		MaxTokens:   2000,
		Temperature: temperatureFor(settings),
	})

	var result model.Message
	var delivery func()
	if err != nil {
		gwErr := llm.Classify(err)
		delivery = func() {
			result, _ = s.sessions.AppendMessage(ctx, model.Message{
				Role:            model.RoleAssistant,
				Content:         gwErr.Message,
				Type:            model.MessageTypeError,
				ParentMessageID: userMsg.ID,
				Turn:            turn,
			})
		}
	} else {
		delivery = func() {
			result, _ = s.sessions.AppendMessage(ctx, model.Message{
				Role:            model.RoleAssistant,
				Content:         resp.Content,
				Type:            model.MessageTypeText,
				ParentMessageID: userMsg.ID,
				Turn:            turn,
			})
		}
	}

	if !log.complete(turn, delivery).wait() {
		// Session went away while the call was in flight.
		return model.Message{}, ErrSessionNotFound
	}
	if err != nil {
		return result, llm.Classify(err)
	}
	return result, nil
}

// EditMessage rewrites history from the edited message onward and regenerates
// the assistant reply against the truncated context.
func (s *ChatService) EditMessage(ctx context.Context, apiKey, messageID, prompt string, patch *model.SettingsPatch) (model.Message, error) {
	client, err := s.client(apiKey)
	if err != nil {
		return model.Message{}, err
	}

	sess, ok := s.sessions.Active()
	if !ok {
		return model.Message{}, ErrSessionNotFound
	}

	settings := s.effectiveSettings(patch)

	// The regenerated request sees the messages strictly before the edited
	// one, with the new content as the final user turn.
	window := state.WindowForEdit(sess.Messages, messageID, settings.ContextWindow)

	log := s.turnLogFor(sess.ID)
	turn, callCtx, ok := log.issue(ctx)
	if !ok {
		return model.Message{}, ErrSessionNotFound
	}

	replacement, err := s.sessions.ReplaceFrom(ctx, messageID, model.Message{
		Role:    model.RoleUser,
		Content: prompt,
		Type:    model.MessageTypeText,
		Turn:    turn,
	})
	if err != nil {
		log.skip(turn)
		return model.Message{}, err
	}

	resp, callErr := s.completeWithMetrics(callCtx, client, &llm.CompletionRequest{
		System:      systemPrompt(settings),
		Context:     toChatContext(window),
		Prompt:      prompt,
		MaxTokens:   2000,
		Temperature: temperatureFor(settings),
	})

	var result model.Message
	delivered := log.complete(turn, func() {
		msg := model.Message{
			Role:            model.RoleAssistant,
			ParentMessageID: replacement.ID,
			Turn:            turn,
		}
		if callErr != nil {
			msg.Content = llm.Classify(callErr).Message
			msg.Type = model.MessageTypeError
		} else {
			msg.Content = resp.Content
			msg.Type = model.MessageTypeText
		}
		result, _ = s.sessions.AppendMessage(ctx, msg)
	})
	if !delivered.wait() {
		return model.Message{}, ErrSessionNotFound
	}
	if callErr != nil {
		return result, llm.Classify(callErr)
	}
	return result, nil
}

// GenerateImage proxies an image generation request and records the result
// as an image turn in the active session.
func (s *ChatService) GenerateImage(ctx context.Context, apiKey string, req *llm.ImageRequest) (*llm.ImageResponse, error) {
	client, err := s.client(apiKey)
	if err != nil {
		return nil, err
	}
	generator, ok := client.(llm.ImageGenerator)
	if !ok {
		return nil, llm.UpstreamError(400, "provider %s cannot generate images", client.Name())
	}

	start := time.Now()
	resp, err := generator.GenerateImage(ctx, req)
	status := "success"
	if err != nil {
		status = "error"
		s.recordError(err)
	}
	metrics.RecordProviderCall(client.Name(), "image", status, time.Since(start).Seconds(), 0, 0, "")
	if err != nil {
		return nil, llm.Classify(err)
	}

	s.recordImageTurns(ctx, req.Prompt, resp)
	return resp, nil
}

// GenerateReplicateImage proxies an image generation request through the
// dedicated Replicate backend. The credential is its own per-request token,
// separate from the chat provider key.
func (s *ChatService) GenerateReplicateImage(ctx context.Context, token string, req *llm.ImageRequest) (*llm.ImageResponse, error) {
	if token == "" {
		return nil, llm.ErrMissingCredential
	}
	generator, err := s.images(token)
	if err != nil {
		return nil, llm.Classify(err)
	}

	start := time.Now()
	resp, err := generator.GenerateImage(ctx, req)
	status := "success"
	if err != nil {
		status = "error"
		s.recordError(err)
	}
	metrics.RecordProviderCall("replicate", "image", status, time.Since(start).Seconds(), 0, 0, "")
	if err != nil {
		return nil, llm.Classify(err)
	}

	s.recordImageTurns(ctx, req.Prompt, resp)
	return resp, nil
}

// recordImageTurns mirrors a generated image into the active session as a
// prompt/image turn pair. No-op when no session is active.
func (s *ChatService) recordImageTurns(ctx context.Context, prompt string, resp *llm.ImageResponse) {
	if _, active := s.sessions.Active(); !active {
		return
	}
	s.sessions.AppendMessage(ctx, model.Message{
		Role:        model.RoleUser,
		Content:     prompt,
		Type:        model.MessageTypeText,
		ContextType: "image",
	})
	s.sessions.AppendMessage(ctx, model.Message{
		Role:          model.RoleAssistant,
		Content:       resp.URL,
		Type:          model.MessageTypeImage,
		ContextType:   "image",
		RevisedPrompt: resp.RevisedPrompt,
	})
}

// AnalyzeDocument proxies a document analysis request.
func (s *ChatService) AnalyzeDocument(ctx context.Context, apiKey string, req *llm.AnalysisRequest) (string, error) {
	return s.analyze(ctx, apiKey, req, "document", func(a llm.Analyzer) (string, error) {
		return a.AnalyzeDocument(ctx, req)
	})
}

// AnalyzePDF extracts the text layer from an uploaded PDF and runs document
// analysis over it. Unreadable PDFs come back as unprocessable rather than
// being forwarded to the provider as binary garbage.
func (s *ChatService) AnalyzePDF(ctx context.Context, apiKey string, req *llm.AnalysisRequest) (string, error) {
	text, err := llm.ExtractPDFText(req.Data)
	if err != nil {
		return "", err
	}
	extracted := &llm.AnalysisRequest{Data: []byte(text), Instruction: req.Instruction}
	return s.analyze(ctx, apiKey, extracted, "pdf", func(a llm.Analyzer) (string, error) {
		return a.AnalyzeDocument(ctx, extracted)
	})
}

// AnalyzeImage proxies an image analysis request.
func (s *ChatService) AnalyzeImage(ctx context.Context, apiKey string, req *llm.AnalysisRequest) (string, error) {
	return s.analyze(ctx, apiKey, req, "vision", func(a llm.Analyzer) (string, error) {
		return a.AnalyzeImage(ctx, req)
	})
}

func (s *ChatService) analyze(ctx context.Context, apiKey string, req *llm.AnalysisRequest, operation string, call func(llm.Analyzer) (string, error)) (string, error) {
	client, err := s.client(apiKey)
	if err != nil {
		return "", err
	}
	analyzer, ok := client.(llm.Analyzer)
	if !ok {
		return "", llm.UpstreamError(400, "provider %s cannot analyze uploads", client.Name())
	}

	start := time.Now()
	analysis, err := call(analyzer)
	status := "success"
	if err != nil {
		status = "error"
		s.recordError(err)
	}
	metrics.RecordProviderCall(client.Name(), operation, status, time.Since(start).Seconds(), 0, 0, "")
	if err != nil {
		return "", llm.Classify(err)
	}

	if _, active := s.sessions.Active(); active {
		instruction := req.Instruction
		if instruction == "" {
			instruction = "Please analyze this file and provide a detailed summary."
		}
		userMsg, _ := s.sessions.AppendMessage(ctx, model.Message{
			Role:        model.RoleUser,
			Content:     instruction,
			Type:        model.MessageTypeFile,
			ContextType: operation,
		})
		s.sessions.AppendMessage(ctx, model.Message{
			Role:            model.RoleAssistant,
			Content:         analysis,
			Type:            model.MessageTypeText,
			ContextType:     operation,
			ParentMessageID: userMsg.ID,
		})
	}
	return analysis, nil
}

const titleSystemPrompt = "Generate a very short, concise title (max 4-5 words) for this chat based on the user's first message."

// GenerateTitle produces a short session title for the given content.
func (s *ChatService) GenerateTitle(ctx context.Context, apiKey, content string) (string, error) {
	client, err := s.client(apiKey)
	if err != nil {
		return "", err
	}

	resp, err := client.Complete(ctx, &llm.CompletionRequest{
		System:      titleSystemPrompt,
		Prompt:      content,
		MaxTokens:   30,
		Temperature: 0.7,
	})
	if err != nil {
		s.recordError(err)
		return "", llm.Classify(err)
	}
	return strings.Trim(strings.TrimSpace(resp.Content), `"`), nil
}

// maybeGenerateTitle labels a session from its first message, best-effort in
// the background.
func (s *ChatService) maybeGenerateTitle(sess model.Session, first model.Message, apiKey string) {
	if len(sess.Messages) > 0 || (sess.Title != "" && sess.Title != model.DefaultTitle) {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		title, err := s.GenerateTitle(ctx, apiKey, first.Content)
		if err != nil || title == "" {
			s.logger.Warnw("title generation failed", "session_id", sess.ID, "error", err)
			return
		}
		if _, err := s.sessions.UpdateTitle(ctx, sess.ID, title); err != nil {
			s.logger.Warnw("title update failed", "session_id", sess.ID, "error", err)
		}
	}()
}

func (s *ChatService) completeWithMetrics(ctx context.Context, client llm.Client, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := client.Complete(ctx, req)
	if err != nil {
		s.recordError(err)
		metrics.RecordProviderCall(client.Name(), "completion", "error", time.Since(start).Seconds(), 0, 0, "")
		return nil, err
	}
	metrics.RecordProviderCall(client.Name(), "completion", "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut, resp.Model)
	return resp, nil
}

func (s *ChatService) recordError(err error) {
	gwErr := llm.Classify(err)
	metrics.ProviderErrorsTotal.WithLabelValues(string(s.provider), string(gwErr.Kind)).Inc()
	s.logger.Warnw("provider call failed", "kind", gwErr.Kind, "error", err)
	s.sessions.NotifyProviderError(context.Background(), string(gwErr.Kind), gwErr.Message)
}
