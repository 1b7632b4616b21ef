package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

type cannedResponse struct {
	status int
	body   string
}

func newTestServer(t *testing.T, responses map[string]cannedResponse) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		if resp, ok := responses[r.Method+" "+r.URL.Path]; ok {
			w.Header().Set("Content-Type", "application/json")
			if resp.status != 0 {
				w.WriteHeader(resp.status)
			}
			w.Write([]byte(resp.body))
			return
		}

		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

// useClient points the CLI commands at ts for the duration of the test.
func (ts *testServer) useClient(t *testing.T) {
	t.Helper()
	old := newAPIClient
	newAPIClient = func() (*apiClient, error) { return ts.client(), nil }
	t.Cleanup(func() { newAPIClient = old })
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

var ctx = context.Background()

func TestRunChat(t *testing.T) {
	noColor = true
	ts := newTestServer(t, map[string]cannedResponse{
		"POST /api/start_session": {body: `{"thread_id":"t1","message":"Welcome! What's your cooking skill level?"}`},
		"POST /api/chat":          {body: `{"response":"Noted, you're a beginner."}`},
	})

	var out bytes.Buffer
	in := strings.NewReader("beginner\nexit\n")
	if err := runChat(ctx, ts.client(), "u1", in, &out); err != nil {
		t.Fatalf("runChat: %v", err)
	}

	if len(ts.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(ts.requests))
	}
	if ts.requests[0].Path != "/api/start_session" {
		t.Errorf("first path = %q, want /api/start_session", ts.requests[0].Path)
	}
	if ts.requests[1].Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", ts.requests[1].Auth)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(ts.requests[1].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["user_id"] != "u1" || body["message"] != "beginner" {
		t.Errorf("chat body = %v", body)
	}

	got := out.String()
	if !strings.Contains(got, "chefmate> Welcome! What's your cooking skill level?") {
		t.Errorf("output missing greeting: %q", got)
	}
	if !strings.Contains(got, "chefmate> Noted, you're a beginner.") {
		t.Errorf("output missing reply: %q", got)
	}
}

func TestRunChat_SendsBlankLines(t *testing.T) {
	noColor = true
	ts := newTestServer(t, map[string]cannedResponse{
		"POST /api/start_session": {body: `{"thread_id":"t1","message":"hi"}`},
		"POST /api/chat":          {body: `{"response":"Do you have any allergies?"}`},
	})

	var out bytes.Buffer
	if err := runChat(ctx, ts.client(), "u1", strings.NewReader("\n"), &out); err != nil {
		t.Fatalf("runChat: %v", err)
	}
	if len(ts.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(ts.requests))
	}
	if ts.requests[1].Body != `{"message":"","user_id":"u1"}` {
		t.Errorf("body = %q", ts.requests[1].Body)
	}
}

func TestRunChat_ServerErrorKeepsSession(t *testing.T) {
	noColor = true
	ts := newTestServer(t, map[string]cannedResponse{
		"POST /api/start_session": {body: `{"thread_id":"t1","message":"hi"}`},
		"POST /api/chat":          {status: http.StatusInternalServerError, body: `{"error":{"message":"Agent returned no response","type":"api_error"}}`},
	})

	var out bytes.Buffer
	if err := runChat(ctx, ts.client(), "u1", strings.NewReader("one\ntwo\n"), &out); err != nil {
		t.Fatalf("runChat: %v", err)
	}
	if len(ts.requests) != 3 {
		t.Errorf("expected 3 requests, got %d", len(ts.requests))
	}
}

func TestChatCommand_MissingUser(t *testing.T) {
	_, err := runRoot(t, "chat")
	if err == nil {
		t.Fatal("expected error for missing --user")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
}

func TestMemoriesList(t *testing.T) {
	noColor = true
	ts := newTestServer(t, map[string]cannedResponse{
		"GET /api/memories": {body: `{"count":1,"items":[{"id":"m1","kind":"fact","memory":"PROFILE.allergies: peanuts","created_at":"2026-01-02T10:00:00Z"}]}`},
	})
	ts.useClient(t)

	out, err := runRoot(t, "memories", "list", "--user", "alice smith")
	if err != nil {
		t.Fatalf("memories list: %v", err)
	}
	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Path != "/api/memories?user_id=alice+smith" {
		t.Errorf("path = %q", ts.requests[0].Path)
	}
	if !strings.Contains(out, "PROFILE.allergies: peanuts") || !strings.Contains(out, "[fact]") {
		t.Errorf("output = %q", out)
	}
}

func TestMemoriesImport_File(t *testing.T) {
	ts := newTestServer(t, map[string]cannedResponse{
		"POST /api/memories": {body: `{"ids":["m1","m2"],"status":"queued"}`},
	})
	ts.useClient(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("I love Thai food.\n\nNo cilantro please."), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runRoot(t, "memories", "import", "--user", "u1", "--file", path); err != nil {
		t.Fatalf("memories import: %v", err)
	}
	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["user_id"] != "u1" {
		t.Errorf("user_id = %q, want u1", body["user_id"])
	}
	if !strings.Contains(body["text"], "No cilantro please.") {
		t.Errorf("text = %q", body["text"])
	}
}

func TestProfileShow(t *testing.T) {
	ts := newTestServer(t, map[string]cannedResponse{
		"GET /api/profile": {body: `{"user_id":"u1","structured":{"skill_level":"beginner"},"inferred":{"allergies":"peanuts"},"confidence":{"allergies":0.7},"merged":{"allergies":"peanuts","skill_level":"beginner"},"summary":"","next_field":"dietary_preferences","complete":false,"minimal_ready":false}`},
	})

	resp, err := ts.client().get(ctx, "/api/profile?user_id=u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var p profileView
	if err := decodeJSON(resp, &p); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	noColor = true
	var out bytes.Buffer
	printProfile(&out, p)

	want := "  allergies = peanuts (inferred 0.7)\n" +
		"  skill_level = beginner (stated)\n" +
		"Onboarding, next: dietary_preferences\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestDecodeJSON_ErrorEnvelope(t *testing.T) {
	ts := newTestServer(t, map[string]cannedResponse{
		"GET /api/profile": {status: http.StatusBadRequest, body: `{"error":{"message":"user_id is required","type":"invalid_request_error"}}`},
	})

	resp, err := ts.client().get(ctx, "/api/profile")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v map[string]any
	err = decodeJSON(resp, &v)
	if err == nil {
		t.Fatal("expected error for 400")
	}
	if err.Error() != "server returned 400: user_id is required" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestServerNotReachable(t *testing.T) {
	c := &apiClient{baseURL: "http://127.0.0.1:1", httpClient: http.DefaultClient}
	_, err := c.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "is chefmate serve running?") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if got := colorize(colorRed, "x"); got != "x" {
		t.Errorf("colorize with noColor=true = %q, want %q", got, "x")
	}

	noColor = false
	if got := colorize(colorRed, "x"); !strings.Contains(got, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", got)
	}
}
