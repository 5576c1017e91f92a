package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mirrorpond/internal/httpapi"
	"mirrorpond/internal/manager"
)

const (
	pondReply    = "The pond is still. Your words ripple across it and settle."
	pondQuestion = "What would the stillness say if you let it speak?"
)

// pondSession answers every reply pass with pondReply and every guiding pass
// with pondQuestion. A non-nil gate blocks each generation until it is
// closed or the context ends.
type pondSession struct {
	gate chan struct{}
	// hang ignores cancellation for this long before answering.
	hang time.Duration

	mu      sync.Mutex
	prompts []string
}

func (s *pondSession) Generate(ctx context.Context, prompt string, p manager.InferParams, onToken func(string) error) (manager.FinalResult, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if s.hang > 0 {
		time.Sleep(s.hang)
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return manager.FinalResult{}, ctx.Err()
		}
	}
	text := pondReply
	if strings.Contains(prompt, "Guiding question mode.") {
		text = pondQuestion
	} else if strings.Contains(prompt, "quote exactly from Scroll") {
		text = "Patience is the narrow gate."
	}
	var out strings.Builder
	for _, w := range strings.SplitAfter(text, " ") {
		if err := onToken(w); err != nil {
			return manager.FinalResult{}, err
		}
		out.WriteString(w)
	}
	n := len(strings.Fields(text))
	return manager.FinalResult{
		Content:      out.String(),
		Usage:        manager.Usage{PromptTokens: 12, CompletionTokens: n, TotalTokens: 12 + n},
		FinishReason: "stop",
	}, nil
}

func (s *pondSession) Reset() error { return nil }
func (s *pondSession) Close() error { return nil }

func (s *pondSession) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type pondAdapter struct{ sess *pondSession }

func (a pondAdapter) Load(string) (manager.InferSession, error) { return a.sess, nil }

// newPondServer wires a loaded Manager over sess into the HTTP API.
func newPondServer(t *testing.T, sess *pondSession, cfg manager.ManagerConfig) (*httptest.Server, *manager.Manager) {
	t.Helper()
	cfg.ModelPath = "/models/mirror-Q4_K_M.gguf"
	cfg.Adapter = pondAdapter{sess: sess}
	mgr := manager.NewWithConfig(cfg)
	if err := mgr.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(func() {
		srv.Close()
		_ = mgr.Close()
	})
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
