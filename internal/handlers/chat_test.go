package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zaptest"

	"infergate/internal/cache"
	"infergate/internal/handlers"
	"infergate/internal/httpserver"
	"infergate/internal/preset"
	"infergate/internal/upstream"
)

// newGateway wires a gateway (memory cache, real preset tables) against a
// fake Inference Service, and serves it through the real router.
func newGateway(t *testing.T, upstreamHandler http.HandlerFunc) (*handlers.Gateway, *httptest.Server) {
	t.Helper()

	upSrv := httptest.NewServer(upstreamHandler)
	t.Cleanup(upSrv.Close)

	upClient, err := upstream.NewClient(upstream.Config{BaseURL: upSrv.URL, MaxRetries: 1, BaseBackoff: time.Millisecond}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = upClient.Close() })

	tables, err := preset.Load()
	if err != nil {
		t.Fatalf("preset.Load: %v", err)
	}

	mem := cache.NewMemory(time.Minute)
	t.Cleanup(func() { _ = mem.Close() })

	gw := handlers.NewGateway(upClient, tables, mem, "test")

	r := chi.NewRouter()
	httpserver.SetupRouter(r, zaptest.NewLogger(t), gw, "")
	gwSrv := httptest.NewServer(r)
	t.Cleanup(gwSrv.Close)

	return gw, gwSrv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestChatStreamingEndToEnd(t *testing.T) {
	t.Parallel()

	_, srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"model\":\"m1\",\"message\":{\"content\":\"Hi\"},\"done\":false}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	resp := postJSON(t, srv.URL+"/api/chat", `{"model":"m1","messages":[{"role":"user","content":"hello"}]}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	want := "event: message\ndata: {\"content\":\"Hi\",\"done\":false,\"model\":\"m1\"}\n\n" +
		"event: done\ndata: [DONE]\n\n"
	if string(body) != want {
		t.Fatalf("body:\n got: %q\nwant: %q", body, want)
	}
}

func TestChatNonStreamingUsesCache(t *testing.T) {
	t.Parallel()

	upstreamCalls := 0
	_, srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
		_ = json.NewEncoder(w).Encode(upstream.ChatChunk{
			Model:   "m1",
			Message: upstream.ChunkMessage{Role: upstream.RoleAssistant, Content: "cached answer"},
			Done:    true,
		})
	})

	req := `{"model":"m1","stream":false,"messages":[{"role":"user","content":"hello"}]}`
	for i := 0; i < 2; i++ {
		resp := postJSON(t, srv.URL+"/api/chat", req)
		var out upstream.ChatChunk
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode response %d: %v", i, err)
		}
		resp.Body.Close()
		if out.Message.Content != "cached answer" {
			t.Fatalf("response %d: %+v", i, out)
		}
	}
	if upstreamCalls != 1 {
		t.Fatalf("upstream called %d times, want 1 (second hit from cache)", upstreamCalls)
	}
}

func TestChatValidation(t *testing.T) {
	t.Parallel()

	_, srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called for invalid requests")
	})

	cases := []string{
		`{"messages":[{"role":"user","content":"x"}]}`,        // no model
		`{"model":"m1","messages":[]}`,                        // no messages
		`{"model":"m1","messages":[{"role":"robot","content":"x"}]}`, // bad role
		`not json`,
	}
	for _, body := range cases {
		resp := postJSON(t, srv.URL+"/api/chat", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestCompareValidationOverHTTP(t *testing.T) {
	t.Parallel()

	_, srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called for invalid requests")
	})

	resp := postJSON(t, srv.URL+"/api/compare",
		`{"models":["a","b","c","d","e","f"],"messages":[{"role":"user","content":"x"}]}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCompareStreamingEndToEnd(t *testing.T) {
	t.Parallel()

	upstreamBody := "event: chunk\ndata: {\"model\":\"a\",\"content\":\"1\"}\n\n" +
		"event: all_done\ndata: {}\n\n" +
		"data: [DONE]\n\n"

	_, srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/compare" {
			t.Errorf("unexpected upstream path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, upstreamBody)
	})

	resp := postJSON(t, srv.URL+"/api/compare",
		`{"models":["a","b"],"messages":[{"role":"user","content":"x"}]}`)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	want := "event: chunk\ndata: {\"model\":\"a\",\"content\":\"1\"}\n\n" +
		"event: all_done\ndata: {}\n\n" +
		"event: done\ndata: [DONE]\n\n"
	if string(body) != want {
		t.Fatalf("body:\n got: %q\nwant: %q", body, want)
	}
}

func TestModelsDirectory(t *testing.T) {
	t.Parallel()

	_, srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"models":[{"name":"Qwen2-VL-7B-Instruct","size":1}]}`)
	})

	resp, err := http.Get(srv.URL + "/api/models")
	if err != nil {
		t.Fatalf("GET /api/models: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Models []struct {
			Name   string         `json:"name"`
			Loaded bool           `json:"loaded"`
			Preset *preset.Preset `json:"preset"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Models) == 0 {
		t.Fatal("empty directory")
	}
	if !out.Models[0].Loaded || out.Models[0].Name != "Qwen2-VL-7B-Instruct" {
		t.Fatalf("first entry: %+v", out.Models[0])
	}
	if out.Models[0].Preset == nil || out.Models[0].Preset.ModelID != "Qwen/Qwen2-VL-7B-Instruct" {
		t.Fatalf("preset not attached: %+v", out.Models[0].Preset)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	_, srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

// Guard against the response cache accidentally capturing streaming
// responses: two streamed requests must both hit the upstream.
func TestChatStreamingNeverCached(t *testing.T) {
	t.Parallel()

	upstreamCalls := 0
	_, srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	req := `{"model":"m1","messages":[{"role":"user","content":"hello"}]}`
	for i := 0; i < 2; i++ {
		resp := postJSON(t, srv.URL+"/api/chat", req)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	if upstreamCalls != 2 {
		t.Fatalf("upstream called %d times, want 2", upstreamCalls)
	}
}
