package llm

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantKind    Kind
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "openai 401 becomes credential",
			err:         &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "Incorrect API key provided"},
			wantKind:    KindCredential,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "invalid API key",
		},
		{
			name:        "openai 403 becomes credential",
			err:         &openai.APIError{HTTPStatusCode: http.StatusForbidden, Message: "forbidden"},
			wantKind:    KindCredential,
			wantStatus:  http.StatusForbidden,
			wantMessage: "invalid API key",
		},
		{
			name:        "openai 429 surfaces the provider message",
			err:         &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "Rate limit reached"},
			wantKind:    KindUpstream,
			wantStatus:  http.StatusTooManyRequests,
			wantMessage: "Rate limit reached",
		},
		{
			name:        "openai 500 with empty message falls back",
			err:         &openai.APIError{HTTPStatusCode: http.StatusInternalServerError},
			wantKind:    KindUpstream,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: genericFailure,
		},
		{
			name:        "request error without status is transport",
			err:         &openai.RequestError{Err: errors.New("connection refused")},
			wantKind:    KindTransport,
			wantMessage: genericFailure,
		},
		{
			name:        "plain error is transport",
			err:         fmt.Errorf("dial tcp: no route to host"),
			wantKind:    KindTransport,
			wantMessage: genericFailure,
		},
		{
			name:        "wrapped gateway error passes through",
			err:         fmt.Errorf("complete: %w", NewUnprocessable("file is empty")),
			wantKind:    KindUnprocessable,
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "file is empty",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			require.NotNil(t, got)
			assert.Equal(t, tc.wantKind, got.Kind)
			assert.Equal(t, tc.wantStatus, got.Status)
			assert.Equal(t, tc.wantMessage, got.Message)
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestClassify_PreservesCause(t *testing.T) {
	cause := &openai.APIError{HTTPStatusCode: http.StatusBadRequest, Message: "bad request"}
	got := Classify(cause)
	assert.ErrorIs(t, got, cause)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{name: "credential", err: ErrMissingCredential, want: http.StatusUnauthorized},
		{name: "unprocessable", err: NewUnprocessable("bad upload"), want: http.StatusUnprocessableEntity},
		{name: "upstream passes provider status", err: &Error{Kind: KindUpstream, Status: http.StatusTooManyRequests}, want: http.StatusTooManyRequests},
		{name: "upstream without status is bad gateway", err: &Error{Kind: KindUpstream}, want: http.StatusBadGateway},
		{name: "transport", err: &Error{Kind: KindTransport}, want: http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.HTTPStatus())
		})
	}
}

func TestNewClient_DefaultsToOpenAI(t *testing.T) {
	client, err := NewClient("unknown", "key")
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Name())
}
