// Copyright 2025 Joseph Cumines
//
// Handler unit tests against a mocked action library

package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/thea-agent/internal/automation"
	"github.com/joeycumines/thea-agent/internal/transport"
)

type mockActions struct {
	mock.Mock
}

func (m *mockActions) TypeText(ctx context.Context, text string) automation.Result {
	return m.Called(text).Get(0).(automation.Result)
}

func (m *mockActions) ClickButton(ctx context.Context, label string) automation.Result {
	return m.Called(label).Get(0).(automation.Result)
}

func (m *mockActions) SendKeystroke(ctx context.Context, key string) (automation.Result, error) {
	args := m.Called(key)
	return args.Get(0).(automation.Result), args.Error(1)
}

func (m *mockActions) ClickMessageInput(ctx context.Context) automation.Result {
	return m.Called().Get(0).(automation.Result)
}

func (m *mockActions) SendChatMessage(ctx context.Context, text string) automation.Result {
	return m.Called(text).Get(0).(automation.Result)
}

func (m *mockActions) Activate(ctx context.Context) bool {
	return m.Called().Bool(0)
}

func (m *mockActions) Navigate(ctx context.Context, url string) (automation.Result, error) {
	args := m.Called(url)
	return args.Get(0).(automation.Result), args.Error(1)
}

// newTestHandler wires a Server into a transport and returns the full
// middleware-wrapped handler.
func newTestHandler(actions Actions) http.Handler {
	tr := transport.NewHTTPTransport(nil)
	New(actions).Register(tr)
	return tr.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	resp := w.Result()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestPing(t *testing.T) {
	h := newTestHandler(new(mockActions))

	for _, body := range []string{"", "{not json", `{"text":"x"}`} {
		resp, got := do(t, h, http.MethodGet, "/ping", body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "OK", got)
	}
}

func TestInvalidJSON_Returns400(t *testing.T) {
	actions := new(mockActions)
	h := newTestHandler(actions)

	paths := []string{"/type", "/click", "/keystroke", "/send-chat", "/activate", "/navigate", "/nonexistent"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			resp, body := do(t, h, http.MethodPost, path, `{"text": `)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "Invalid JSON", body)
			assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
		})
	}

	// Wrong field types and non-object bodies are malformed too.
	resp, _ := do(t, h, http.MethodPost, "/type", `{"text": 5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, h, http.MethodPost, "/type", `["hello"]`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	actions.AssertNotCalled(t, "TypeText", mock.Anything)
	actions.AssertNotCalled(t, "Activate")
}

func TestUnknownRoutes_Return404(t *testing.T) {
	h := newTestHandler(new(mockActions))

	tests := []struct {
		method string
		path   string
		body   string
		want   string
	}{
		{http.MethodGet, "/", "", "Not found"},
		{http.MethodGet, "/type", "", "Not found"},
		{http.MethodPost, "/ping", "", "Unknown endpoint"},
		{http.MethodPost, "/nope", `{"text":"x"}`, "Unknown endpoint"},
		{http.MethodPut, "/type", `{"text":"x"}`, "Not found"},
		{http.MethodDelete, "/navigate", "", "Not found"},
	}

	for _, tt := range tests {
		t.Run(tt.method+tt.path, func(t *testing.T) {
			resp, body := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Equal(t, tt.want, body)
		})
	}
}

func TestType(t *testing.T) {
	actions := new(mockActions)
	actions.On("TypeText", "hello").Return(automation.Result{OK: true, Message: ""}).Once()
	h := newTestHandler(actions)

	resp, body := do(t, h, http.MethodPost, "/type", `{"text":"hello"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true,"result":""}`, body)
	actions.AssertExpectations(t)
}

func TestType_EmptyBody(t *testing.T) {
	actions := new(mockActions)
	actions.On("TypeText", "").Return(automation.Result{OK: true}).Once()
	h := newTestHandler(actions)

	resp, _ := do(t, h, http.MethodPost, "/type", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	actions.AssertExpectations(t)
}

func TestClick_Failure(t *testing.T) {
	actions := new(mockActions)
	actions.On("ClickButton", "Send").
		Return(automation.Result{OK: false, Message: "not found: Can't get button"}).Once()
	h := newTestHandler(actions)

	resp, body := do(t, h, http.MethodPost, "/click", `{"label":"Send"}`)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"ok":false,"result":"not found: Can't get button"}`, body)
}

func TestKeystroke_DefaultsToReturn(t *testing.T) {
	actions := new(mockActions)
	actions.On("SendKeystroke", "return").Return(automation.Result{OK: true}, nil).Twice()
	h := newTestHandler(actions)

	resp, _ := do(t, h, http.MethodPost, "/keystroke", `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, h, http.MethodPost, "/keystroke", `{"key":""}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	actions.AssertExpectations(t)
}

func TestKeystroke_ValidationError(t *testing.T) {
	actions := new(mockActions)
	verr := &automation.ValidationError{Kind: automation.ErrUnknownKey, Message: `Unknown key: "f13"`}
	actions.On("SendKeystroke", "f13").Return(automation.Result{}, verr).Once()
	h := newTestHandler(actions)

	resp, body := do(t, h, http.MethodPost, "/keystroke", `{"key":"f13"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `Unknown key: "f13"`, body)
}

func TestSendChat(t *testing.T) {
	actions := new(mockActions)
	actions.On("SendChatMessage", "hi").
		Return(automation.Result{OK: false, Message: "Click failed: text field not found"}).Once()
	h := newTestHandler(actions)

	resp, body := do(t, h, http.MethodPost, "/send-chat", `{"text":"hi"}`)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"ok":false,"result":"Click failed: text field not found"}`, body)
}

func TestActivate_OnlyOK(t *testing.T) {
	actions := new(mockActions)
	actions.On("Activate").Return(true).Once()
	actions.On("Activate").Return(false).Once()
	h := newTestHandler(actions)

	resp, body := do(t, h, http.MethodPost, "/activate", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, body)

	resp, body = do(t, h, http.MethodPost, "/activate", "{}")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"ok":false}`, body)
}

func TestNavigate(t *testing.T) {
	actions := new(mockActions)
	verr := &automation.ValidationError{Kind: automation.ErrInvalidURL, Message: "URL must start with thea://"}
	actions.On("Navigate", "https://example.com").Return(automation.Result{}, verr).Once()
	actions.On("Navigate", "thea://settings").Return(automation.Result{OK: true}, nil).Once()
	h := newTestHandler(actions)

	resp, body := do(t, h, http.MethodPost, "/navigate", `{"url":"https://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "URL must start with thea://", body)

	resp, body = do(t, h, http.MethodPost, "/navigate", `{"url":"thea://settings"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true,"result":""}`, body)

	actions.AssertExpectations(t)
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestHandler(new(mockActions))

	resp, _ := do(t, h, http.MethodGet, "/ping", "")
	assert.NotEmpty(t, resp.Header.Get(transport.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(transport.RequestIDHeader, "harness-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "harness-42", w.Header().Get(transport.RequestIDHeader))
}

func TestEndpoints(t *testing.T) {
	s := New(new(mockActions))
	assert.Equal(t, []string{
		"GET /ping",
		"POST /type",
		"POST /click",
		"POST /keystroke",
		"POST /send-chat",
		"POST /activate",
		"POST /navigate",
	}, s.Endpoints())
}
