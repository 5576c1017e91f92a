package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"mirrorpond/internal/manager"
	"mirrorpond/pkg/types"
)

func TestE2E_EncryptedReflection(t *testing.T) {
	sess := &pondSession{}
	srv, _ := newPondServer(t, sess, manager.ManagerConfig{})

	resp, body := httpPostJSON(t, srv.URL+"/reflect", `{"mode":"toad","user_text":"Open the chest.","encryption":"1635 8653 4562 1231 9876"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/reflect %d %s", resp.StatusCode, body)
	}
	var out types.ReflectResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.EncryptionHash) != 8 {
		t.Fatalf("encryption_hash = %q", out.EncryptionHash)
	}
	sess.mu.Lock()
	p := sess.prompts[0]
	sess.mu.Unlock()
	if !strings.Contains(p, "Encryption: 1635 8653 4562 1231 9876 -> FULL_LORE_ACTIVATED") {
		t.Fatalf("prompt lacks the lore block:\n%s", p)
	}

	resp, body = httpPostJSON(t, srv.URL+"/reflect", `{"mode":"toad","user_text":"Open the chest.","encryption":"7777"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown code: expected 400, got %d %s", resp.StatusCode, body)
	}
	if sess.calls() != 1 {
		t.Fatalf("rejected request reached the model")
	}
}

func TestE2E_EncryptionLookup(t *testing.T) {
	srv, _ := newPondServer(t, &pondSession{}, manager.ManagerConfig{})

	resp, body := httpGet(t, srv.URL+"/encryption/1231")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/encryption %d %s", resp.StatusCode, body)
	}
	var out types.EncryptionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !out.Valid || out.Mode != "CRYPT_MODE" {
		t.Fatalf("unexpected lookup %+v", out)
	}
}

func TestE2E_FormatPreviewSkipsModel(t *testing.T) {
	sess := &pondSession{}
	srv, _ := newPondServer(t, sess, manager.ManagerConfig{})

	resp, body := httpPostJSON(t, srv.URL+"/debug/format", `{"mode":"scroll","user_text":"Scroll 7?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/debug/format %d %s", resp.StatusCode, body)
	}
	var out types.FormatPreviewResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.HasPrefix(out.FormattedReply, "Scroll 7: ") || !out.FormattingApplied {
		t.Fatalf("unexpected preview %+v", out)
	}
	if sess.calls() != 0 {
		t.Fatalf("preview called the model %d times", sess.calls())
	}
}

// A queued request outlasts MaxWait while a long generation runs ahead of it.
func TestE2E_QueuedRequestWaitsForLongGeneration(t *testing.T) {
	sess := &pondSession{gate: make(chan struct{})}
	srv, mgr := newPondServer(t, sess, manager.ManagerConfig{MaxWait: 20 * time.Millisecond})

	codes := make(chan int, 2)
	for _, text := range []string{"first", "second"} {
		go func(text string) {
			resp, _ := httpPostJSON(t, srv.URL+"/reflect", `{"mode":"toad","user_text":"`+text+`"}`)
			codes <- resp.StatusCode
		}(text)
		deadline := time.Now().Add(2 * time.Second)
		for sess.calls() == 0 || (text == "second" && mgr.Status().QueueLen == 0) {
			if time.Now().After(deadline) {
				t.Fatalf("%s request never arrived", text)
			}
			time.Sleep(time.Millisecond)
		}
	}

	time.Sleep(60 * time.Millisecond)
	close(sess.gate)
	for i := 0; i < 2; i++ {
		if code := <-codes; code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
	}
}
