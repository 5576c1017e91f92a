package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirrorpond/internal/manager"
	"mirrorpond/internal/modes"
	"mirrorpond/pkg/types"
)

type mockService struct {
	mu      sync.Mutex
	got     []manager.ReflectionRequest
	scrolls []int

	tokens []string
	result manager.ReflectionResult
	err    error
	// errAfter fails the stream after that many tokens when > 0.
	errAfter int
	status   types.StatusResponse
	ready    bool
	// rejectEmpty fails requests without user text.
	rejectEmpty bool
}

func (m *mockService) record(req manager.ReflectionRequest) {
	m.mu.Lock()
	m.got = append(m.got, req)
	m.mu.Unlock()
}

func (m *mockService) Reflect(ctx context.Context, req manager.ReflectionRequest) (manager.ReflectionResult, error) {
	m.record(req)
	if m.err != nil {
		return manager.ReflectionResult{}, m.err
	}
	return m.result, nil
}

func (m *mockService) Stream(ctx context.Context, req manager.ReflectionRequest, onChunk func(manager.Chunk) error) (manager.ReflectionResult, error) {
	m.record(req)
	if m.rejectEmpty && req.UserText == "" {
		return manager.ReflectionResult{}, &manager.ValidationError{Msg: "user_text is required"}
	}
	for i, tok := range m.tokens {
		if m.errAfter > 0 && i == m.errAfter {
			return manager.ReflectionResult{}, m.err
		}
		if err := onChunk(manager.Chunk{Token: tok}); err != nil {
			return manager.ReflectionResult{}, err
		}
	}
	if m.err != nil && m.errAfter == 0 {
		return manager.ReflectionResult{}, m.err
	}
	return m.result, nil
}

func (m *mockService) Scroll(ctx context.Context, n int) (manager.ReflectionResult, error) {
	m.mu.Lock()
	m.scrolls = append(m.scrolls, n)
	m.mu.Unlock()
	if m.err != nil {
		return manager.ReflectionResult{}, m.err
	}
	return m.result, nil
}

func (m *mockService) FormatPreview(req manager.ReflectionRequest) (types.FormatPreviewResponse, error) {
	m.record(req)
	if m.err != nil {
		return types.FormatPreviewResponse{}, m.err
	}
	return types.FormatPreviewResponse{Mode: req.Mode, UserText: req.UserText, RawReply: "raw", FormattedReply: "clean", FormattingApplied: true}, nil
}

func (m *mockService) Modes() []types.ModeInfo {
	return []types.ModeInfo{{Name: "reflect", Title: "Reflect", EmitsGuidingQuestion: true}, {Name: "scroll", Title: "Scroll"}}
}
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }

func (m *mockService) requests() []manager.ReflectionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]manager.ReflectionRequest(nil), m.got...)
}

func sampleResult() manager.ReflectionResult {
	q := "What is your loneliness telling you?"
	return manager.ReflectionResult{
		ID:              "id-1",
		ReplyText:       "Loneliness is the space before the narrow gate.",
		GuidingQuestion: &q,
		ModeUsed:        modes.Reflect,
		Usage:           manager.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		Duration:        1500 * time.Millisecond,
	}
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var e types.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), "body=%s", w.Body.String())
	return e
}

func TestReflectHandler(t *testing.T) {
	svc := &mockService{result: sampleResult()}
	h := NewMux(svc)

	w := postJSON(t, h, "/reflect", `{"mode":"Reflect","user_text":"Why am I lonely?","temperature":0.2,"max_tokens":64,"stop":[]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var body types.ReflectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "id-1", body.ID)
	assert.Equal(t, "Loneliness is the space before the narrow gate.", body.ReplyText)
	require.NotNil(t, body.GuidingQuestion)
	assert.Equal(t, "reflect", body.ModeUsed)
	assert.Equal(t, 15, body.Usage.TotalTokens)
	assert.EqualValues(t, 1500, body.DurationMS)
	assert.Nil(t, body.ScrollNumber)

	got := svc.requests()
	require.Len(t, got, 1)
	assert.Equal(t, "Reflect", got[0].Mode)
	assert.Equal(t, "Why am I lonely?", got[0].UserText)
	require.NotNil(t, got[0].Overrides.Temperature)
	assert.InDelta(t, 0.2, *got[0].Overrides.Temperature, 1e-6)
	require.NotNil(t, got[0].Overrides.MaxTokens)
	assert.Equal(t, 64, *got[0].Overrides.MaxTokens)
	assert.NotNil(t, got[0].Overrides.Stop, "explicit empty stop list is kept")
	assert.Empty(t, got[0].Overrides.Stop)
	assert.Nil(t, got[0].Overrides.TopP)
}

func TestReflectHandlerOmitsMissingQuestion(t *testing.T) {
	res := sampleResult()
	res.GuidingQuestion = nil
	h := NewMux(&mockService{result: res})

	w := postJSON(t, h, "/reflect", `{"mode":"toad","user_text":"x"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "guiding_question")
}

func TestReflectHandlerRequestErrors(t *testing.T) {
	h := NewMux(&mockService{result: sampleResult()})

	req := httptest.NewRequest(http.MethodPost, "/reflect", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = postJSON(t, h, "/reflect", `{"mode":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid JSON body", decodeError(t, w).Error)

	SetMaxBodyBytes(16)
	defer SetMaxBodyBytes(0)
	w = postJSON(t, h, "/reflect", `{"mode":"reflect","user_text":"`+strings.Repeat("a", 64)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestReflectHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &manager.ValidationError{Msg: "user_text is required"}, http.StatusBadRequest},
		{"generation", &manager.GenerationError{Pass: "reply", Err: manager.ErrEmptyOutput}, http.StatusInternalServerError},
		{"timeout", &manager.TimeoutError{Pass: "reply", Budget: time.Second}, http.StatusGatewayTimeout},
		{"unavailable", manager.ErrDependencyUnavailable("model session is closed"), http.StatusServiceUnavailable},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewMux(&mockService{err: tc.err})
			w := postJSON(t, h, "/reflect", `{"mode":"reflect","user_text":"hi"}`)
			assert.Equal(t, tc.code, w.Code)
			e := decodeError(t, w)
			assert.Equal(t, tc.code, e.Code)
			assert.Equal(t, tc.err.Error(), e.Error)
		})
	}
}

func readLines(t *testing.T, body *bytes.Buffer) []types.StreamLine {
	t.Helper()
	var out []types.StreamLine
	dec := json.NewDecoder(body)
	for dec.More() {
		var l types.StreamLine
		require.NoError(t, dec.Decode(&l))
		out = append(out, l)
	}
	return out
}

func TestReflectStreamHandler(t *testing.T) {
	svc := &mockService{tokens: []string{"Loneliness ", "is ", "space."}, result: sampleResult()}
	h := NewMux(svc)

	w := postJSON(t, h, "/reflect/stream", `{"mode":"reflect","user_text":"Why?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))

	lines := readLines(t, w.Body)
	require.Len(t, lines, 4)
	for i, tok := range svc.tokens {
		assert.Equal(t, tok, lines[i].Token)
		assert.False(t, lines[i].Done)
	}
	last := lines[3]
	assert.True(t, last.Done)
	require.NotNil(t, last.Result)
	assert.Equal(t, "id-1", last.Result.ID)
	assert.Nil(t, last.Error)
}

func TestReflectStreamErrorBeforeFirstToken(t *testing.T) {
	h := NewMux(&mockService{err: &manager.ValidationError{Msg: "invalid mode"}})
	w := postJSON(t, h, "/reflect/stream", `{"mode":"oracle","user_text":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid mode", decodeError(t, w).Error)
}

func TestReflectStreamErrorMidStream(t *testing.T) {
	svc := &mockService{
		tokens:   []string{"a ", "b ", "c "},
		errAfter: 2,
		err:      &manager.TimeoutError{Pass: "reply", Budget: time.Second},
	}
	h := NewMux(svc)
	w := postJSON(t, h, "/reflect/stream", `{"mode":"reflect","user_text":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code, "status was already sent")

	lines := readLines(t, w.Body)
	require.Len(t, lines, 3)
	last := lines[2]
	assert.True(t, last.Done)
	assert.Nil(t, last.Result)
	require.NotNil(t, last.Error)
	assert.Equal(t, http.StatusGatewayTimeout, last.Error.Code)
}

func TestScrollHandler(t *testing.T) {
	res := sampleResult()
	n := 3
	res.ScrollNumber = &n
	res.ReplyText = "Scroll 3: Patience is the narrow gate."
	res.GuidingQuestion = nil
	svc := &mockService{result: res}
	h := NewMux(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scroll/3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body types.ReflectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.ScrollNumber)
	assert.Equal(t, 3, *body.ScrollNumber)
	assert.Equal(t, []int{3}, svc.scrolls)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scroll/three", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModesHandler(t *testing.T) {
	h := NewMux(&mockService{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/modes", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body types.ModesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Modes, 2)
	assert.Equal(t, "reflect", body.Modes[0].Name)
	assert.True(t, body.Modes[0].EmitsGuidingQuestion)
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{State: "ready", QueueLen: 2, LlamaBuilt: true}}
	h := NewMux(svc)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body types.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, svc.status, body)
}

func TestHealthAndReadiness(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "loading")

	svc.ready = true
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUIServed(t *testing.T) {
	h := NewMux(&mockService{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/reflect/stream")
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	SetCORSOrigins([]string{"http://pond.test"})
	defer SetCORSOrigins(nil)
	h := NewMux(&mockService{result: sampleResult()})

	req := httptest.NewRequest(http.MethodOptions, "/reflect", nil)
	req.Header.Set("Origin", "http://pond.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "http://pond.test", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestShutdownCancelsHandlerContext(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(nil)

	svc := &blockingService{mockService: mockService{}, started: make(chan struct{})}
	h := NewMux(svc)
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- postJSON(t, h, "/reflect", `{"mode":"reflect","user_text":"hi"}`) }()

	<-svc.started
	cancel()
	select {
	case w := <-done:
		assert.Equal(t, 499, w.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after shutdown")
	}
}

// blockingService blocks Reflect until its context is done.
type blockingService struct {
	mockService
	started chan struct{}
}

func (b *blockingService) Reflect(ctx context.Context, req manager.ReflectionRequest) (manager.ReflectionResult, error) {
	close(b.started)
	<-ctx.Done()
	return manager.ReflectionResult{}, ctx.Err()
}
