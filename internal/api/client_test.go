package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestNewClient_WithAPIKey(t *testing.T) {
	cfg := ClientConfig{
		APIKey: "test-key-123",
		Model:  anthropic.ModelClaudeSonnet4_20250514,
	}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if client.Model() != anthropic.ModelClaudeSonnet4_20250514 {
		t.Errorf("Model = %q, want %q", client.Model(), anthropic.ModelClaudeSonnet4_20250514)
	}
	if client.Tracker() == nil {
		t.Error("Tracker should not be nil")
	}
}

func TestNewClient_NoAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewClient(ClientConfig{})
	if err == nil {
		t.Fatal("NewClient should fail without API key")
	}

	expected := "ANTHROPIC_API_KEY environment variable is not set"
	if err.Error() != expected {
		t.Errorf("Error = %q, want %q", err.Error(), expected)
	}
}

func TestNewClient_DefaultModel(t *testing.T) {
	client, err := NewClient(ClientConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if client.Model() != anthropic.ModelClaudeSonnet4_20250514 {
		t.Errorf("Default model = %q, want %q", client.Model(), anthropic.ModelClaudeSonnet4_20250514)
	}
}

func TestNewClient_Bedrock(t *testing.T) {
	if os.Getenv("AWS_REGION") == "" && os.Getenv("AWS_DEFAULT_REGION") == "" {
		t.Skip("AWS_REGION not set, skipping Bedrock test")
	}

	client, err := NewClient(ClientConfig{
		UseAWSBedrock: true,
		AWSRegion:     "us-west-2",
		Model:         anthropic.ModelClaudeSonnet4_20250514,
	})
	if err != nil {
		t.Fatalf("NewClient with Bedrock failed: %v", err)
	}

	want := anthropic.Model("us.anthropic.claude-sonnet-4-20250514-v1:0")
	if client.Model() != want {
		t.Errorf("Model = %q, want %q", client.Model(), want)
	}
}

func TestTranslateModelForBedrock(t *testing.T) {
	got := translateModelForBedrock(anthropic.ModelClaudeHaiku4_5_20251001)
	if got != "us.anthropic.claude-haiku-4-5-20251001-v1:0" {
		t.Errorf("translateModelForBedrock(haiku) = %q", got)
	}

	custom := anthropic.Model("us.anthropic.custom-v1:0")
	if got := translateModelForBedrock(custom); got != custom {
		t.Errorf("unknown model should pass through, got %q", got)
	}
}

func TestBuildParams(t *testing.T) {
	client, err := NewClient(ClientConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	req := client.buildParams("hello", Params{System: "be brief", Temperature: Float(0.2)})
	if req.MaxTokens != DefaultMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", req.MaxTokens, DefaultMaxTokens)
	}
	if len(req.System) != 1 || req.System[0].Text != "be brief" {
		t.Errorf("System = %+v", req.System)
	}
	if req.Model != client.Model() {
		t.Errorf("Model = %q, want client default", req.Model)
	}

	req = client.buildParams("hello", Params{Model: "claude-3-5-haiku-20241022", MaxTokens: 100})
	if req.Model != "claude-3-5-haiku-20241022" || req.MaxTokens != 100 {
		t.Errorf("override not applied: model=%q max=%d", req.Model, req.MaxTokens)
	}
	if len(req.System) != 0 {
		t.Error("empty system prompt should not be sent")
	}
}

func TestInvoke_ReturnsText(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "hello "}, {"type": "text", "text": "team"}],
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 12, "output_tokens": 3}
		}`)
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	out, err := client.Invoke(context.Background(), "say hi", Params{System: "sys"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if out != "hello team" {
		t.Errorf("Invoke() = %q, want %q", out, "hello team")
	}

	in, outTok := client.Tracker().Total()
	if in != 12 || outTok != 3 || client.Tracker().Calls() != 1 {
		t.Errorf("tracker = (%d, %d, %d calls)", in, outTok, client.Tracker().Calls())
	}
	if gotBody["system"] == nil {
		t.Error("request should carry the system prompt")
	}
}

func TestInvoke_RateLimitErrorCarriesRetryAfter(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("retry-after", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Invoke(context.Background(), "hi", Params{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should mention the status code: %v", err)
	}
	if !strings.Contains(err.Error(), "retry-after: 7") {
		t.Errorf("error should carry retry-after: %v", err)
	}
	if requests != 1 {
		t.Errorf("SDK retries should be disabled, requests = %d", requests)
	}
}

func TestTokenTracker_AddMultiple(t *testing.T) {
	tracker := NewTokenTracker()

	tracker.Add(100, 50)
	tracker.Add(200, 100)
	tracker.Add(50, 25)

	input, output := tracker.Total()
	if input != 350 {
		t.Errorf("Input tokens = %d, want 350", input)
	}
	if output != 175 {
		t.Errorf("Output tokens = %d, want 175", output)
	}
	if tracker.Calls() != 3 {
		t.Errorf("Calls = %d, want 3", tracker.Calls())
	}
}

func TestModelFunc(t *testing.T) {
	var m Model = ModelFunc(func(ctx context.Context, prompt string, params Params) (string, error) {
		return params.System + ":" + prompt, nil
	})
	out, err := m.Invoke(context.Background(), "p", Params{System: "s"})
	if err != nil || out != "s:p" {
		t.Errorf("Invoke() = (%q, %v)", out, err)
	}
}
