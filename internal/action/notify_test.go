package action

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookNotifierPostsPayload(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("payload not json: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	err := n.Notify(context.Background(), Invocation{
		Kind:    KindNotify,
		Message: "health is low",
		ROI:     "low-health",
		EventID: "ev1",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if got.ROI != "low-health" || got.EventID != "ev1" || got.Message != "health is low" {
		t.Errorf("payload = %+v", got)
	}
	if got.SentAt.IsZero() {
		t.Error("sent_at not set")
	}
}

func TestWebhookNotifierRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Notify(context.Background(), Invocation{Kind: KindNotify, Message: "m"}); err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}
