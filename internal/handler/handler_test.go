package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearway-ai/chat-gateway/internal/llm"
	"github.com/clearway-ai/chat-gateway/internal/middleware"
	"github.com/clearway-ai/chat-gateway/internal/model"
	"github.com/clearway-ai/chat-gateway/internal/service"
	"github.com/clearway-ai/chat-gateway/internal/store"
	"github.com/clearway-ai/chat-gateway/pkg/logger"
)

type stubClient struct{}

func (stubClient) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: "stub: " + req.Prompt, Model: "stub-model"}, nil
}

func (stubClient) Name() string     { return "stub" }
func (stubClient) Models() []string { return []string{"stub-model"} }

type testEnv struct {
	server   *httptest.Server
	sessions *service.SessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := logger.NewNop()
	sessions := service.NewSessionService(st, nil, log)
	require.NoError(t, sessions.Init(context.Background()))

	factory := func(llm.Provider, string) (llm.Client, error) { return stubClient{}, nil }
	chat := service.NewChatService(sessions, factory, llm.ProviderOpenAI, "", log)

	sessionHandler := NewSessionHandler(sessions, chat, log)
	chatHandler := NewChatHandler(chat, log)
	analyzeHandler := NewAnalyzeHandler(chat, log)
	settingsHandler := NewSettingsHandler(sessions, log)
	credentialHandler := NewCredentialHandler(sessions, log)
	titleHandler := NewTitleHandler(chat, log)
	healthHandler := NewHealthHandler(st, nil)

	r := chi.NewRouter()
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ProviderKey)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionHandler.List)
			r.Post("/", sessionHandler.Create)
			r.Delete("/", sessionHandler.DeleteAll)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Put("/", sessionHandler.Update)
				r.Delete("/", sessionHandler.Delete)
				r.Post("/activate", sessionHandler.Activate)
				r.Get("/messages", sessionHandler.Messages)
			})
		})

		r.Post("/chat", chatHandler.Send)
		r.Put("/chat/{messageID}", chatHandler.Edit)
		r.Post("/files", analyzeHandler.Document)
		r.Post("/files/pdf", analyzeHandler.PDF)
		r.Post("/titles", titleHandler.Generate)
		r.Get("/settings", settingsHandler.Get)
		r.Patch("/settings", settingsHandler.Patch)
		r.Get("/credentials", credentialHandler.Status)
		r.Put("/credentials", credentialHandler.Put)
		r.Delete("/credentials", credentialHandler.Delete)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) doUpload(t *testing.T, path string, filename string, data []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Api-Key", "sk-test")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

var withKey = map[string]string{"X-Api-Key": "sk-test"}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// Create.
	resp := env.do(t, http.MethodPost, "/api/v1/sessions", model.CreateSessionRequest{Title: "Research"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.Session](t, resp)
	assert.Equal(t, "Research", created.Title)

	// List shows it as active.
	resp = env.do(t, http.MethodGet, "/api/v1/sessions", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[model.ListSessionsResponse](t, resp)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, created.ID, list.ActiveID)

	// Rename.
	resp = env.do(t, http.MethodPut, "/api/v1/sessions/"+created.ID, model.UpdateSessionRequest{Title: "Renamed"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	renamed := decode[model.Session](t, resp)
	assert.Equal(t, "Renamed", renamed.Title)

	// Delete, twice; both return 204.
	resp = env.do(t, http.MethodDelete, "/api/v1/sessions/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodDelete, "/api/v1/sessions/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSessionGet_Validation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/sessions/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/sessions/01900000-0000-7000-8000-000000000000", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionActivate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.sessions.Create(ctx, "A")
	env.sessions.Create(ctx, "B")

	resp := env.do(t, http.MethodPost, "/api/v1/sessions/"+a.ID+"/activate", nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	active, ok := env.sessions.Active()
	require.True(t, ok)
	assert.Equal(t, a.ID, active.ID)

	resp = env.do(t, http.MethodPost, "/api/v1/sessions/01900000-0000-7000-8000-000000000000/activate", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChatSend(t *testing.T) {
	env := newTestEnv(t)

	env.sessions.Create(context.Background(), "prefab")

	resp := env.do(t, http.MethodPost, "/api/v1/chat", model.ChatRequest{Prompt: "hello"}, withKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	chatResp := decode[model.ChatResponse](t, resp)
	assert.Equal(t, "stub: hello", chatResp.Content)
	require.NotNil(t, chatResp.Message)
	assert.Equal(t, model.RoleAssistant, chatResp.Message.Role)
}

func TestChatSend_MissingKey(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/chat", model.ChatRequest{Prompt: "hello"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatSend_EmptyPrompt(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/chat", model.ChatRequest{Prompt: ""}, withKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatEdit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.sessions.Create(ctx, "prefab")

	resp := env.do(t, http.MethodPost, "/api/v1/chat", model.ChatRequest{Prompt: "original"}, withKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode[model.ChatResponse](t, resp)

	sess, _ := env.sessions.Active()
	require.Len(t, sess.Messages, 2)
	editedID := sess.Messages[0].ID

	resp = env.do(t, http.MethodPut, "/api/v1/chat/"+editedID, model.EditMessageRequest{Prompt: "revised"}, withKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	edited := decode[model.ChatResponse](t, resp)
	assert.Equal(t, "stub: revised", edited.Content)

	sess, _ = env.sessions.Active()
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "revised", sess.Messages[0].Content)
}

func TestChatEdit_UnknownMessage(t *testing.T) {
	env := newTestEnv(t)

	env.sessions.Create(context.Background(), "prefab")

	resp := env.do(t, http.MethodPut, "/api/v1/chat/01900000-0000-7000-8000-000000000000",
		model.EditMessageRequest{Prompt: "revised"}, withKey)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTitleGenerate(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/titles", model.TitleRequest{Content: "plan a trip to Japan"}, withKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	title := decode[model.TitleResponse](t, resp)
	assert.Equal(t, "stub: plan a trip to Japan", title.Title)
}

func TestAnalyzePDF_Validation(t *testing.T) {
	env := newTestEnv(t)

	// Not a PDF at all.
	resp := env.doUpload(t, "/api/v1/files/pdf", "notes.txt", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Looks like a PDF but has no readable text layer.
	resp = env.doUpload(t, "/api/v1/files/pdf", "broken.pdf", []byte("%PDF-1.7\ngarbage"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCredentials(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/credentials", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[model.CredentialStatusResponse](t, resp)
	assert.False(t, status.Configured)

	resp = env.do(t, http.MethodPut, "/api/v1/credentials", model.CredentialRequest{APIKey: "sk-stored"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/credentials", nil, nil)
	status = decode[model.CredentialStatusResponse](t, resp)
	assert.True(t, status.Configured)

	// A stored credential lets chat requests through without the header.
	env.sessions.Create(context.Background(), "prefab")
	resp = env.do(t, http.MethodPost, "/api/v1/chat", model.ChatRequest{Prompt: "hello"}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/v1/credentials", nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/chat", model.ChatRequest{Prompt: "hello"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCredentials_EmptyKey(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPut, "/api/v1/credentials", model.CredentialRequest{APIKey: "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/settings", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	settings := decode[model.Settings](t, resp)
	assert.Equal(t, model.DefaultSettings(), settings)

	tone := "formal"
	resp = env.do(t, http.MethodPatch, "/api/v1/settings", model.SettingsPatch{Tone: &tone}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	patched := decode[model.Settings](t, resp)
	assert.Equal(t, "formal", patched.Tone)
	assert.Equal(t, model.DefaultContextWindow, patched.ContextWindow)
}
