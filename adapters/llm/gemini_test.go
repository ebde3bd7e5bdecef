package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const okResponse = `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"executiveSummary\":\"ok\",\"findings\":[]}"}]},"finishReason":"STOP"}]}`

func newTestClient(url string, retries int) *Client {
	return NewClient(Config{
		APIKey:         "test-key",
		Model:          "gemini-test",
		BaseURL:        url,
		MaxRetries:     retries,
		InitialBackoff: time.Millisecond,
	})
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{APIKey: "k"})
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want default", c.baseURL)
	}
	if c.model != DefaultModel {
		t.Errorf("model = %q, want %q", c.model, DefaultModel)
	}
	if c.initialBackoff != DefaultInitialBackoff {
		t.Errorf("initialBackoff = %v, want 1s", c.initialBackoff)
	}
	if c.client.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.client.Timeout, DefaultTimeout)
	}
}

func TestNewClient_StripsModelsPrefix(t *testing.T) {
	c := NewClient(Config{Model: "models/gemini-pro"})
	if c.Model() != "gemini-pro" {
		t.Errorf("Model() = %q, want gemini-pro", c.Model())
	}
}

func TestGenerate_Success(t *testing.T) {
	var gotPath, gotKey, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if r.URL.RawQuery != "" {
			t.Errorf("query = %q, want none", r.URL.RawQuery)
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(okResponse))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	resp, err := c.Generate(context.Background(), []byte(`{"contents":[]}`))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(resp) != okResponse {
		t.Errorf("response not relayed verbatim: %s", resp)
	}
	if gotPath != "/models/gemini-test:generateContent" {
		t.Errorf("path = %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("key = %s", gotKey)
	}
	if gotBody != `{"contents":[]}` {
		t.Errorf("body = %s", gotBody)
	}
}

func TestGenerate_NoAPIKey(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.Generate(context.Background(), []byte("{}")); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestGenerate_RetriesTransient(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch n {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":429,"message":"quota"}}`))
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.Write([]byte(okResponse))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	if _, err := c.Generate(context.Background(), []byte("{}")); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestGenerate_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"internal"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2)
	_, err := c.Generate(context.Background(), []byte("{}"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "after 2 retries") || !strings.Contains(err.Error(), "internal") {
		t.Errorf("err = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", calls)
	}
}

func TestGenerate_NonRetryable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"bad schema"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	_, err := c.Generate(context.Background(), []byte("{}"))
	if err == nil || !strings.Contains(err.Error(), "API error (400): bad schema") {
		t.Errorf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestGenerate_KeyNeverInErrorsOrLogs(t *testing.T) {
	// A closed listener yields connection refused on every attempt.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	var logs bytes.Buffer
	c := NewClient(Config{
		APIKey:         "SUPERSECRET",
		BaseURL:        url,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		Logger:         zerolog.New(&logs),
	})

	_, err := c.Generate(context.Background(), []byte("{}"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(logs.String(), "retrying generate request") {
		t.Fatalf("no retry logged: %s", logs.String())
	}
	if strings.Contains(err.Error(), "SUPERSECRET") {
		t.Errorf("error leaks API key: %v", err)
	}
	if strings.Contains(logs.String(), "SUPERSECRET") {
		t.Errorf("logs leak API key: %s", logs.String())
	}
}

func TestGenerate_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, MaxRetries: 3, InitialBackoff: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.Generate(ctx, []byte("{}")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestComplete(t *testing.T) {
	var req generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&req)
		w.Write([]byte(okResponse))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	text, err := c.Complete(context.Background(), "audit this")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"executiveSummary":"ok","findings":[]}` {
		t.Errorf("text = %s", text)
	}
	if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "audit this" {
		t.Errorf("request contents = %+v", req.Contents)
	}
	if req.GenerationConfig == nil || req.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Errorf("generation config = %+v", req.GenerationConfig)
	}
}

func TestGenerateText(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		if gotBody == `{"blocked":true}` {
			w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
			return
		}
		w.Write([]byte(okResponse))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	prepared := `{"contents":[{"parts":[{"text":"prepared"}]}]}`
	text, err := c.GenerateText(context.Background(), []byte(prepared))
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if text != `{"executiveSummary":"ok","findings":[]}` {
		t.Errorf("text = %s", text)
	}
	if gotBody != prepared {
		t.Errorf("relayed body = %s, want %s", gotBody, prepared)
	}

	if _, err := c.GenerateText(context.Background(), []byte(`{"blocked":true}`)); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("blocked err = %v, want ErrEmptyResponse", err)
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		want    string
		wantErr bool
	}{
		{"single part", okResponse, `{"executiveSummary":"ok","findings":[]}`, false},
		{"multiple parts", `{"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"}]}}]}`, "ab", false},
		{"no candidates", `{"candidates":[]}`, "", true},
		{"blocked", `{"promptFeedback":{"blockReason":"SAFETY"}}`, "", true},
		{"empty text", `{"candidates":[{"content":{"parts":[]}}]}`, "", true},
		{"not json", `nope`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractText([]byte(tt.resp))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractText = %q, want %q", got, tt.want)
			}
		})
	}
}
