package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finsight/internal/testutil"
)

func TestClientComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}

		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Model       string    `json:"model"`
			Messages    []Message `json:"messages"`
			Temperature float64   `json:"temperature"`
			MaxTokens   int       `json:"max_tokens"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("invalid request body: %v", err)
		}
		if payload.Model != "deepseek-chat" {
			t.Errorf("expected model deepseek-chat, got %s", payload.Model)
		}
		if payload.Temperature != 0.7 || payload.MaxTokens != 1000 {
			t.Errorf("unexpected generation params %v / %d", payload.Temperature, payload.MaxTokens)
		}
		if len(payload.Messages) != 2 || payload.Messages[0].Role != RoleSystem || payload.Messages[1].Content != "hi" {
			t.Errorf("unexpected messages %+v", payload.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"hello there"}}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/v1/chat/completions", "test-key", "deepseek-chat", server.Client())
	got, err := c.Complete(context.Background(), NewRequest(
		Message{Role: RoleSystem, Content: "be brief"},
		Message{Role: RoleUser, Content: "hi"},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello there" {
		t.Errorf("expected 'hello there', got %q", got)
	}
}

func TestClientComplete_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":{"message":"boom"}}`, wantErr: "unexpected status 500: boom"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, wantErr: "unexpected status 401"},
		{name: "missing content", status: http.StatusOK, body: `{"choices":[]}`, wantErr: "no choices[0].message.content"},
		{name: "error field on 200", status: http.StatusOK, body: `{"error":{"message":"quota exceeded"}}`, wantErr: "quota exceeded"},
		{name: "error without message", status: http.StatusOK, body: `{"error":{"code":1}}`, wantErr: "completion endpoint error: Unknown error"},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantErr: "not JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(server.URL, "k", "m", server.Client())
			_, err := c.Complete(context.Background(), NewRequest(Message{Role: RoleUser, Content: "x"}))
			testutil.AssertAppError(t, err, "API_ERROR")
			if !strings.Contains(errorDetail(err), tt.wantErr) {
				t.Errorf("error %q should contain %q", errorDetail(err), tt.wantErr)
			}
		})
	}
}

func TestClientComplete_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(url, "k", "m", nil)
	_, err := c.Complete(context.Background(), NewRequest(Message{Role: RoleUser, Content: "x"}))
	testutil.AssertAppError(t, err, "API_ERROR")
}

func TestClientComplete_Cancelled(t *testing.T) {
	t.Run("before building", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := NewClient(server.URL, "k", "m", server.Client())
		_, err := c.Complete(ctx, NewRequest(Message{Role: RoleUser, Content: "x"}))
		testutil.AssertAppError(t, err, "REQUEST_CANCELLED")
		if !IsCancelled(err) {
			t.Error("expected IsCancelled to be true")
		}
		if called {
			t.Error("server must not be called after cancellation")
		}
	})

	t.Run("while waiting for the response", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cancel()
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer server.Close()
		defer close(release)

		c := NewClient(server.URL, "k", "m", server.Client())
		_, err := c.Complete(ctx, NewRequest(Message{Role: RoleUser, Content: "x"}))
		testutil.AssertAppError(t, err, "REQUEST_CANCELLED")
	})
}

func TestExtractContent(t *testing.T) {
	got, err := extractContent([]byte(`{"choices":[{"message":{"content":"{\"a\":1}"}},{"message":{"content":"second"}}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"a":1}` {
		t.Errorf("expected first choice content, got %q", got)
	}
}

func errorDetail(err error) string {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok && u.Unwrap() != nil {
		return u.Unwrap().Error()
	}
	return err.Error()
}
