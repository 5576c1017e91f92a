package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"mirrorpond/internal/manager"
	"mirrorpond/pkg/types"
)

func TestE2E_ReflectFlow(t *testing.T) {
	sess := &pondSession{}
	srv, _ := newPondServer(t, sess, manager.ManagerConfig{})

	resp, body := httpGet(t, srv.URL+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz %d %s", resp.StatusCode, body)
	}

	resp, body = httpGet(t, srv.URL+"/modes")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/modes %d %s", resp.StatusCode, body)
	}
	var modesResp types.ModesResponse
	if err := json.Unmarshal(body, &modesResp); err != nil {
		t.Fatalf("/modes json: %v", err)
	}
	if len(modesResp.Modes) != 4 {
		t.Fatalf("expected 4 modes, got %d", len(modesResp.Modes))
	}

	resp, body = httpPostJSON(t, srv.URL+"/reflect", `{"mode":"reflect","user_text":"Why am I lonely?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/reflect %d %s", resp.StatusCode, body)
	}
	var out types.ReflectResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("/reflect json: %v body=%s", err, body)
	}
	if out.ReplyText != pondReply {
		t.Fatalf("reply = %q", out.ReplyText)
	}
	if out.GuidingQuestion == nil || *out.GuidingQuestion != pondQuestion {
		t.Fatalf("guiding question = %v", out.GuidingQuestion)
	}
	if out.ModeUsed != "reflect" || out.ID == "" {
		t.Fatalf("unexpected response %+v", out)
	}
	if out.Usage.PromptTokens != 24 {
		t.Fatalf("usage should cover both passes, got %+v", out.Usage)
	}
	if sess.calls() != 2 {
		t.Fatalf("expected reply and guiding passes, got %d calls", sess.calls())
	}

	resp, body = httpGet(t, srv.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status %d %s", resp.StatusCode, body)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("/status json: %v", err)
	}
	if st.State != "ready" || st.RequestsTotal != 1 || st.GuidingQuestionsTotal != 1 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestE2E_OtherModesAskNoQuestion(t *testing.T) {
	for _, mode := range []string{"toad", "rune", "scroll"} {
		t.Run(mode, func(t *testing.T) {
			sess := &pondSession{}
			srv, _ := newPondServer(t, sess, manager.ManagerConfig{})
			resp, body := httpPostJSON(t, srv.URL+"/reflect", `{"mode":"`+mode+`","user_text":"Speak."}`)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("/reflect %d %s", resp.StatusCode, body)
			}
			if bytes.Contains(body, []byte("guiding_question")) {
				t.Fatalf("%s should not ask a question: %s", mode, body)
			}
			if sess.calls() != 1 {
				t.Fatalf("expected one pass, got %d", sess.calls())
			}
		})
	}
}

func TestE2E_Stream(t *testing.T) {
	srv, _ := newPondServer(t, &pondSession{}, manager.ManagerConfig{})

	resp, body := httpPostJSON(t, srv.URL+"/reflect/stream", `{"mode":"reflect","user_text":"Why am I lonely?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/reflect/stream %d %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("content-type=%s", ct)
	}
	var (
		tokens []string
		final  *types.StreamLine
	)
	dec := json.NewDecoder(bytes.NewReader(body))
	for dec.More() {
		var l types.StreamLine
		if err := dec.Decode(&l); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		if l.Done {
			final = &l
			break
		}
		tokens = append(tokens, l.Token)
	}
	if got := strings.Join(tokens, ""); got != pondReply {
		t.Fatalf("streamed %q", got)
	}
	if final == nil || final.Result == nil || final.Result.GuidingQuestion == nil {
		t.Fatalf("missing final result line: %s", body)
	}
}

func TestE2E_Scroll(t *testing.T) {
	srv, _ := newPondServer(t, &pondSession{}, manager.ManagerConfig{})

	resp, body := httpGet(t, srv.URL+"/scroll/3")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/scroll/3 %d %s", resp.StatusCode, body)
	}
	var out types.ReflectResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.HasPrefix(out.ReplyText, "Scroll 3: ") || out.ScrollNumber == nil || *out.ScrollNumber != 3 {
		t.Fatalf("unexpected scroll response %+v", out)
	}

	resp, _ = httpGet(t, srv.URL+"/scroll/14")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("/scroll/14 expected 400, got %d", resp.StatusCode)
	}
}

func TestE2E_ValidationErrors(t *testing.T) {
	sess := &pondSession{}
	srv, _ := newPondServer(t, sess, manager.ManagerConfig{})

	cases := map[string]string{
		"unknown mode":  `{"mode":"oracle","user_text":"hi"}`,
		"empty text":    `{"mode":"reflect","user_text":"   "}`,
		"bad top_p":     `{"mode":"reflect","user_text":"hi","top_p":1.5}`,
		"bad max_token": `{"mode":"reflect","user_text":"hi","max_tokens":0}`,
	}
	for name, payload := range cases {
		resp, body := httpPostJSON(t, srv.URL+"/reflect", payload)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d %s", name, resp.StatusCode, body)
		}
	}
	if sess.calls() != 0 {
		t.Fatalf("invalid requests reached the model: %d calls", sess.calls())
	}
}

// TestE2E_Backpressure429 verifies 429 Too Many Requests when the queue is
// full and the wait timeout elapses.
func TestE2E_Backpressure429(t *testing.T) {
	sess := &pondSession{gate: make(chan struct{})}
	srv, _ := newPondServer(t, sess, manager.ManagerConfig{
		MaxQueueDepth: 1,
		MaxWait:       20 * time.Millisecond,
	})

	first := make(chan int, 1)
	go func() {
		resp, _ := httpPostJSON(t, srv.URL+"/reflect", `{"mode":"toad","user_text":"first"}`)
		first <- resp.StatusCode
	}()
	deadline := time.Now().Add(2 * time.Second)
	for sess.calls() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first request never reached the model")
		}
		time.Sleep(time.Millisecond)
	}

	resp, body := httpPostJSON(t, srv.URL+"/reflect", `{"mode":"toad","user_text":"second"}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d %s", resp.StatusCode, body)
	}
	close(sess.gate)
	if code := <-first; code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
}

func TestE2E_Timeout504(t *testing.T) {
	sess := &pondSession{hang: 200 * time.Millisecond}
	srv, _ := newPondServer(t, sess, manager.ManagerConfig{GenerationTimeout: 30 * time.Millisecond})

	resp, body := httpPostJSON(t, srv.URL+"/reflect", `{"mode":"rune","user_text":"Read the rune."}`)
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d %s", resp.StatusCode, body)
	}
	var e types.ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil || e.Code != http.StatusGatewayTimeout {
		t.Fatalf("error body %s (%v)", body, err)
	}
}
