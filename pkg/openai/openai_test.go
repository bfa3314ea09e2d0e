package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerate(t *testing.T) {
	var req map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("couldn't decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []any{
				map[string]any{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": `{"title":"夏夜","versionA":{"lyrics":"la"}}`,
					},
				},
			},
		})
	}))
	defer srv.Close()

	c, err := New(&Config{APIKey: "key", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	p, err := c.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("Generate() err = %v", err)
	}
	if p.Title == nil || *p.Title != "夏夜" {
		t.Fatalf("Title = %v; want 夏夜", p.Title)
	}
	if p.VersionB != nil {
		t.Fatalf("VersionB = %v; want nil", p.VersionB)
	}
	format, _ := req["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("response_format = %v; want json_object", req["response_format"])
	}
}

type countingTransport struct {
	calls int
	next  http.RoundTripper
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls++
	return c.next.RoundTrip(r)
}

func TestGenerateUsesClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer srv.Close()

	rt := &countingTransport{next: http.DefaultTransport}
	c, err := New(&Config{
		APIKey:  "key",
		BaseURL: srv.URL + "/v1",
		Client:  &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	if _, err := c.GenerateJSON(context.Background(), "hi"); err != nil {
		t.Fatalf("GenerateJSON() err = %v", err)
	}
	if rt.calls != 1 {
		t.Fatalf("round trips = %d; want 1", rt.calls)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(&Config{}); err == nil {
		t.Fatal("New() err = nil; want error")
	}
}
