package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaChatSendsSystemAndOptions(t *testing.T) {
	var captured ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Message: ollamaMessage{Role: "assistant", Content: "hello there"},
			Done:    true,
		})
	}))
	defer server.Close()

	client := NewOllamaClient("llama3.1:8b", Config{BaseURL: server.URL})
	text, err := client.Chat(context.Background(), []Message{
		{Role: "user", Content: "hi"},
	}, "you are terse", Options{NumPredict: 150, Temperature: 0.8})
	if err != nil {
		t.Fatalf("chat returned error: %v", err)
	}
	if text != "hello there" {
		t.Fatalf("unexpected content: %q", text)
	}

	if captured.Model != "llama3.1:8b" {
		t.Fatalf("unexpected model: %s", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("expected system message first, got %+v", captured.Messages)
	}
	if captured.Options["num_predict"] != float64(150) {
		t.Fatalf("num_predict not forwarded: %v", captured.Options)
	}
	if captured.Stream {
		t.Fatalf("expected non-streaming request")
	}
}

func TestOllamaChatFormatJSON(t *testing.T) {
	var captured ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(ollamaResponse{Message: ollamaMessage{Content: `{"ok":true}`}, Done: true})
	}))
	defer server.Close()

	client := NewOllamaClient("m", Config{BaseURL: server.URL})
	if _, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "x"}}, "", Options{FormatJSON: true}); err != nil {
		t.Fatalf("chat returned error: %v", err)
	}
	if captured.Format != "json" {
		t.Fatalf("expected json format, got %q", captured.Format)
	}
}

func TestOllamaGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req ollamaGenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Prompt != "speak" || req.System != "god voice" {
			t.Errorf("prompt/system not forwarded: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "let there be light", Done: true})
	}))
	defer server.Close()

	client := NewOllamaClient("m", Config{BaseURL: server.URL})
	text, err := client.Generate(context.Background(), "speak", "god voice", Options{})
	if err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	if text != "let there be light" {
		t.Fatalf("unexpected content: %q", text)
	}
}

func TestOllamaSurfacesProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{Error: "model not found"})
	}))
	defer server.Close()

	client := NewOllamaClient("missing", Config{BaseURL: server.URL})
	if _, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "x"}}, "", Options{}); err == nil {
		t.Fatalf("expected provider error")
	}
}

func TestOllamaSurfacesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOllamaClient("m", Config{BaseURL: server.URL})
	if _, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "x"}}, "", Options{}); err == nil {
		t.Fatalf("expected http error")
	}
}
