package llm

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tidwall/gjson"
)

type capturedRequest struct {
	mu   sync.Mutex
	body []byte
}

func (c *capturedRequest) get() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.body
}

// captureServer records the last request and answers with status and body.
func captureServer(t *testing.T, status int, contentType, reply string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured.mu.Lock()
		captured.body = body
		captured.mu.Unlock()
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

// drain runs a request to completion. Errors from the fake servers are
// expected and ignored.
func drain(t *testing.T, p Provider, req Request) {
	t.Helper()
	stream, err := p.Stream(context.Background(), req)
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer stream.Close()
	Collect(stream)
}

func TestProvidersSendTemperature(t *testing.T) {
	type backend struct {
		name     string
		path     string
		provider func(baseURL string) Provider
		status   int
		ctype    string
		reply    string
	}
	backends := []backend{
		{
			name: "openai",
			path: "temperature",
			provider: func(baseURL string) Provider {
				return NewOpenAIProvider("local", OpenAIOptions{BaseURL: baseURL})
			},
			status: http.StatusOK,
			ctype:  "text/event-stream",
			reply:  "data: [DONE]\n\n",
		},
		{
			name: "anthropic",
			path: "temperature",
			provider: func(baseURL string) Provider {
				return NewAnthropicProvider("sk-ant", baseURL, "claude-3-5-haiku-20241022")
			},
			status: http.StatusBadRequest,
			ctype:  "application/json",
			reply:  `{"type":"error","error":{"type":"invalid_request_error","message":"test"}}`,
		},
		{
			name: "gemini",
			path: "generationConfig.temperature",
			provider: func(baseURL string) Provider {
				return NewGeminiProvider("g-key", baseURL, "gemini-2.0-flash")
			},
			status: http.StatusBadRequest,
			ctype:  "application/json",
			reply:  `{"error":{"code":400,"message":"test","status":"INVALID_ARGUMENT"}}`,
		},
	}
	temperatures := []struct {
		name string
		temp *float64
	}{
		{"unset", nil},
		{"zero", Float(0)},
		{"set", Float(0.7)},
	}

	for _, b := range backends {
		for _, tc := range temperatures {
			t.Run(b.name+"/"+tc.name, func(t *testing.T) {
				srv, captured := captureServer(t, b.status, b.ctype, b.reply)
				drain(t, b.provider(srv.URL), Request{
					Messages:    []Message{SystemText("be brief"), UserText("hi")},
					Temperature: tc.temp,
				})

				body := captured.get()
				if len(body) == 0 {
					t.Fatal("no request reached the server")
				}
				got := gjson.GetBytes(body, b.path)
				if tc.temp == nil {
					if got.Exists() {
						t.Fatalf("%s should be omitted, body: %s", b.path, body)
					}
					return
				}
				if !got.Exists() {
					t.Fatalf("%s missing, body: %s", b.path, body)
				}
				if math.Abs(got.Float()-*tc.temp) > 1e-6 {
					t.Fatalf("%s = %v, want %v", b.path, got.Float(), *tc.temp)
				}
			})
		}
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestBedrockStripsPrefixFromRequestModel(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_BEARER_TOKEN_BEDROCK", "")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))

	var mu sync.Mutex
	var sent []string
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		mu.Lock()
		sent = append(sent, r.URL.Host+r.URL.EscapedPath())
		mu.Unlock()
		return &http.Response{
			StatusCode: http.StatusBadRequest,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"message":"test"}`)),
			Request:    r,
		}, nil
	})}

	const name = "bedrock/anthropic.claude-3-haiku"
	p, err := NewBedrockProvider(context.Background(), "AKIA:secret", name, option.WithHTTPClient(client))
	if err != nil {
		t.Fatalf("NewBedrockProvider: %v", err)
	}
	drain(t, p, Request{Model: name, Messages: []Message{UserText("hi")}})

	mu.Lock()
	defer mu.Unlock()
	if len(sent) == 0 {
		t.Fatal("no request was sent")
	}
	want := "bedrock-runtime.us-east-1.amazonaws.com/model/anthropic.claude-3-haiku/invoke-with-response-stream"
	if sent[0] != want {
		t.Fatalf("request URL = %q, want %q", sent[0], want)
	}
}
