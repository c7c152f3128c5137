package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockModel struct {
	mock.Mock
}

func (m *mockModel) Complete(ctx context.Context, c Completion) (string, error) {
	args := m.Called(ctx, c)
	return args.String(0), args.Error(1)
}

func isPrimary(c Completion) bool  { return c.JSONMode && c.Temperature == 0.2 }
func isFallback(c Completion) bool { return !c.JSONMode && c.Temperature == 0.1 }

const goodReply = `{"summary":"Acme makes anvils.","whatTheyDo":["Make anvils"],"keywords":["anvils"],"signals":["Hiring"]}`

func TestPipeline_Primary(t *testing.T) {
	model := new(mockModel)
	model.On("Complete", mock.Anything, mock.MatchedBy(isPrimary)).Return(goodReply, nil).Once()

	result, err := NewPipeline(model, nil).Extract(context.Background(), "page text", "https://acme.com")
	require.NoError(t, err)

	assert.Equal(t, MethodPrimary, result.Method)
	assert.Equal(t, "Acme makes anvils.", result.Summary)
	model.AssertExpectations(t)
}

func TestPipeline_FallsBackOnParseFailure(t *testing.T) {
	model := new(mockModel)
	model.On("Complete", mock.Anything, mock.MatchedBy(isPrimary)).Return("not json at all", nil).Once()
	model.On("Complete", mock.Anything, mock.MatchedBy(isFallback)).Return(goodReply, nil).Once()

	result, err := NewPipeline(model, nil).Extract(context.Background(), "page text", "https://acme.com")
	require.NoError(t, err)

	assert.Equal(t, MethodFallback, result.Method)
	assert.Equal(t, []string{"Make anvils"}, result.WhatTheyDo)
	model.AssertExpectations(t)
}

func TestPipeline_MockWhenBothFail(t *testing.T) {
	model := new(mockModel)
	model.On("Complete", mock.Anything, mock.MatchedBy(isPrimary)).Return("", errors.FetchError("model API error (500)", nil)).Once()
	model.On("Complete", mock.Anything, mock.MatchedBy(isFallback)).Return("", errors.FetchError("model API error (500)", nil)).Once()

	result, err := NewPipeline(model, nil).Extract(context.Background(), "page text", "https://www.acme.com")
	require.NoError(t, err)

	assert.Equal(t, MethodMock, result.Method)
	assert.GreaterOrEqual(t, len(result.WhatTheyDo), 1)
	model.AssertExpectations(t)
}

func TestPipeline_NoModelGoesStraightToMock(t *testing.T) {
	result, err := NewPipeline(nil, nil).Extract(context.Background(), "page text", "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, MethodMock, result.Method)
}

func TestPipeline_DoneContextSkipsMock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	model := new(mockModel)
	model.On("Complete", mock.Anything, mock.MatchedBy(isPrimary)).
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled).Once()

	_, err := NewPipeline(model, nil).Extract(ctx, "page text", "https://acme.com")

	assert.ErrorIs(t, err, context.Canceled)
	model.AssertNotCalled(t, "Complete", mock.Anything, mock.MatchedBy(isFallback))
}

func TestPipeline_DoneContextBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(nil, nil).Extract(ctx, "page text", "https://acme.com")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_PromptsCarryContent(t *testing.T) {
	assert.Contains(t, PrimaryCompletion("PAGE-BODY").Prompt, "PAGE-BODY")
	assert.Contains(t, FallbackCompletion("PAGE-BODY").Prompt, "PAGE-BODY")
	assert.Equal(t, 800, PrimaryCompletion("").MaxTokens)
	assert.Equal(t, 500, FallbackCompletion("").MaxTokens)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "primary", StatePrimary.String())
	assert.Equal(t, "fallback", StateFallback.String())
	assert.Equal(t, "mock", StateMock.String())
	assert.Equal(t, "unknown", State(9).String())
}

// fakeOpenAI serves the chat completions endpoint, replying with the given
// content for JSON-mode requests and failing the rest with status.
func fakeOpenAI(t *testing.T, content string, fallbackStatus int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if _, jsonMode := body["response_format"]; !jsonMode && fallbackStatus != 0 {
			w.WriteHeader(fallbackStatus)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  body["model"],
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			}},
		})
	}))
}

func TestOpenAIModel_Complete(t *testing.T) {
	var calls atomic.Int32
	server := fakeOpenAI(t, goodReply, 0, &calls)
	defer server.Close()

	model, err := NewOpenAIModel(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/"}, nil)
	require.NoError(t, err)

	text, err := model.Complete(context.Background(), PrimaryCompletion("page"))
	require.NoError(t, err)
	assert.Equal(t, goodReply, text)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "closed", model.Breaker().Stats().State)
}

func TestOpenAIModel_ServerErrorIsTransient(t *testing.T) {
	var calls atomic.Int32
	server := fakeOpenAI(t, goodReply, http.StatusBadGateway, &calls)
	defer server.Close()

	model, err := NewOpenAIModel(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	_, err = model.Complete(context.Background(), FallbackCompletion("page"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeFetch))
}

func TestOpenAIModel_EmptyReplyIsExtractionError(t *testing.T) {
	var calls atomic.Int32
	server := fakeOpenAI(t, "", 0, &calls)
	defer server.Close()

	model, err := NewOpenAIModel(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	_, err = model.Complete(context.Background(), PrimaryCompletion("page"))
	assert.True(t, errors.IsType(err, errors.ErrTypeExtraction))
}

func TestOpenAIModel_RequiresKey(t *testing.T) {
	_, err := NewOpenAIModel(OpenAIConfig{}, nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestPipeline_WithOpenAIFallingBack(t *testing.T) {
	var calls atomic.Int32
	// JSON-mode (primary) succeeds with prose-wrapped JSON; nothing else is called
	server := fakeOpenAI(t, "Here you go: "+goodReply, http.StatusInternalServerError, &calls)
	defer server.Close()

	model, err := NewOpenAIModel(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	result, err := NewPipeline(model, nil).Extract(context.Background(), "page", "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, MethodPrimary, result.Method)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPipeline_WithOpenAIDown(t *testing.T) {
	var calls atomic.Int32
	server := fakeOpenAI(t, "", http.StatusServiceUnavailable, &calls)
	defer server.Close()

	model, err := NewOpenAIModel(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	result, err := NewPipeline(model, nil).Extract(context.Background(), "page", "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, MethodMock, result.Method)
	assert.Equal(t, int32(2), calls.Load())
}
