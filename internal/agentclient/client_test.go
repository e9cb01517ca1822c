package agentclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestBuildURLCollapsesDuplicateOpenAISegment(t *testing.T) {
	got, err := buildURL("https://x.services.ai.azure.com/openai/", "openai/responses", "2025-11-15-preview")
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	want := "https://x.services.ai.azure.com/openai/responses?api-version=2025-11-15-preview"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildURLAppendsWhenNoOverlap(t *testing.T) {
	got, err := buildURL("https://x.services.ai.azure.com", "openai/responses", "2025-11-15-preview")
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	want := "https://x.services.ai.azure.com/openai/responses?api-version=2025-11-15-preview"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildURLPreservesExistingAPIVersion(t *testing.T) {
	got, err := buildURL("https://x", "openai/responses?api-version=pinned", "ignored")
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	want := "https://x/openai/responses?api-version=pinned"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCachedCredentialReusesTokenUntilNearExpiry(t *testing.T) {
	var calls int32
	provider := credFunc(func(context.Context) (string, time.Time, error) {
		atomic.AddInt32(&calls, 1)
		return "tok", time.Now().Add(10 * time.Minute), nil
	})
	c := newCachedCredential(provider)
	for i := 0; i < 5; i++ {
		if _, err := c.Token(context.Background()); err != nil {
			t.Fatalf("Token: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected provider called once, got %d", got)
	}
}

func TestCachedCredentialRefreshesNearExpiry(t *testing.T) {
	var calls int32
	provider := credFunc(func(context.Context) (string, time.Time, error) {
		atomic.AddInt32(&calls, 1)
		return "tok", time.Now().Add(30 * time.Second), nil
	})
	c := newCachedCredential(provider)
	if _, err := c.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if _, err := c.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected provider called twice, got %d", got)
	}
}

type credFunc func(context.Context) (string, time.Time, error)

func (f credFunc) Token(ctx context.Context) (string, time.Time, error) { return f(ctx) }

func TestDoWithRetryRetriesOn503ThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := &http.Client{}
	_, body, err := doWithRetry(context.Background(), client, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	})
	if err != nil {
		t.Fatalf("doWithRetry: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("got %q", body)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestDoWithRetryReturnsNonRetryableStatusImmediately(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad"}`))
	}))
	defer srv.Close()

	client := &http.Client{}
	_, _, err := doWithRetry(context.Background(), client, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if ue, ok := err.(*UpstreamError); !ok || ue.StatusCode != 400 {
		t.Fatalf("expected UpstreamError 400, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", got)
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := New(Config{
		ProjectEndpoint:     srv.URL,
		APIVersion:          "2025-11-15-preview",
		ModelDeploymentName: "gpt-test",
		Timeout:             5 * time.Second,
		Credential:          StaticCredentialProvider{Token_: "secret"},
	})
	return c, srv
}

func TestCreateResponseRoundTrip(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", got)
		}
		w.Write([]byte(`{"output_text":"hello"}`))
	})
	defer srv.Close()

	env, err := c.CreateResponse(context.Background(), ResponseRequest{Model: "gpt-test"})
	if err != nil {
		t.Fatalf("CreateResponse: %v", err)
	}
	if env.OutputText != "hello" {
		t.Fatalf("got %+v", env)
	}
}

func TestListAgentsByNameEnvelopeShape(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "a1", "name": "Planner"},
				{"id": "a2", "definition": map[string]any{"name": "Validator"}},
				{"id": "a3"},
			},
		})
	})
	defer srv.Close()

	names, err := c.ListAgentsByName(context.Background())
	if err != nil {
		t.Fatalf("ListAgentsByName: %v", err)
	}
	if names["planner"] != "a1" {
		t.Fatalf("got %+v", names)
	}
	if names["validator"] != "a2" {
		t.Fatalf("got %+v", names)
	}
	if len(names) != 2 {
		t.Fatalf("expected nameless item skipped, got %+v", names)
	}
}

func TestListAgentsByNameBareArrayShape(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "a1", "name": "Web-Research"},
		})
	})
	defer srv.Close()

	names, err := c.ListAgentsByName(context.Background())
	if err != nil {
		t.Fatalf("ListAgentsByName: %v", err)
	}
	if names["web-research"] != "a1" {
		t.Fatalf("got %+v", names)
	}
}

func TestCreateAndUpdateAgent(t *testing.T) {
	var lastMethod string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		lastMethod = r.Method
		json.NewEncoder(w).Encode(map[string]string{"id": "new-id"})
	})
	defer srv.Close()

	id, err := c.CreateAgent(context.Background(), AgentDefinition{Name: "planner"})
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if id != "new-id" {
		t.Fatalf("got %q", id)
	}
	if lastMethod != http.MethodPost {
		t.Fatalf("got method %q", lastMethod)
	}

	if err := c.UpdateAgent(context.Background(), "new-id", AgentDefinition{Name: "planner"}); err != nil {
		t.Fatalf("UpdateAgent: %v", err)
	}
}

func TestWaitVectorStoreReadyPollsUntilCompleted(t *testing.T) {
	var calls int32
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		status := "in_progress"
		if n >= 2 {
			status = "completed"
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "vs1", "status": status})
	})
	defer srv.Close()

	err := c.WaitVectorStoreReady(context.Background(), "vs1", 10*time.Second)
	if err != nil {
		t.Fatalf("WaitVectorStoreReady: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got < 2 {
		t.Fatalf("expected at least 2 polls, got %d", got)
	}
}

func TestWaitVectorStoreReadyTimesOut(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "vs1", "status": "in_progress"})
	})
	defer srv.Close()

	err := c.WaitVectorStoreReady(context.Background(), "vs1", 1*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
