package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/autoosone/auto-state/agent/bridge"
	"github.com/autoosone/auto-state/agent/catalog"
	"github.com/autoosone/auto-state/agent/flow"
	"github.com/autoosone/auto-state/agent/modules"
	"github.com/autoosone/auto-state/agent/persist"
	statex "github.com/autoosone/auto-state/agent/state"
)

type echoChatter struct {
	called bool
}

func (e *echoChatter) Converse(ctx context.Context, target bridge.Target, text string) (bridge.Reply, error) {
	e.called = true
	return bridge.Reply{Message: "you said " + text}, nil
}

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	gw := persist.NewMemoryGateway()
	w, err := persist.NewWriter(gw)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	f, err := flow.New(gw, w, catalog.NewStatic(catalog.DemoInventory()), flow.Config{AnnualRate: "6.9"})
	if err != nil {
		t.Fatalf("flow.New() error = %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	s, err := NewServer(f, opts...)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func startSession(t *testing.T, ts *httptest.Server) sessionView {
	t.Helper()
	resp := postJSON(t, ts.URL+"/sessions", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /sessions status = %d", resp.StatusCode)
	}
	var view sessionView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return view
}

func TestStartAndGetSession(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	view := startSession(t, ts)
	if !strings.HasPrefix(view.SessionID, "session-") || view.Stage != statex.StageContactInfo {
		t.Fatalf("view = %+v", view)
	}
	if len(view.Capabilities.Actions) != 1 || view.Capabilities.Actions[0].Name != modules.ActionGetContactInformation {
		t.Fatalf("capabilities = %+v", view.Capabilities.Actions)
	}

	resp, err := http.Get(ts.URL + "/sessions/" + view.SessionID)
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET session status = %d", resp.StatusCode)
	}

	missing, err := http.Get(ts.URL + "/sessions/session-missing")
	if err != nil {
		t.Fatalf("GET missing: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("GET missing status = %d, want 404", missing.StatusCode)
	}
}

func TestActionStatusCodes(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	view := startSession(t, ts)
	base := ts.URL + "/sessions/" + view.SessionID + "/actions/"

	resp := postJSON(t, base+modules.ActionGetContactInformation, actionRequest{Args: map[string]any{"name": "Ada"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid contact status = %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, base+modules.ActionShowCar, actionRequest{Args: map[string]any{"car": map[string]any{"id": 7, "price": 62000}}})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("inactive action status = %d, want 409", resp.StatusCode)
	}

	resp = postJSON(t, base+"teleport", actionRequest{})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown action status = %d, want 404", resp.StatusCode)
	}

	resp = postJSON(t, base+modules.ActionGetContactInformation, actionRequest{Args: map[string]any{
		"name": "Ada", "email": "ada@example.com", "phone": "555-0100",
	}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("contact status = %d, want 200", resp.StatusCode)
	}
	var out actionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode action response: %v", err)
	}
	if !out.Result.Accepted || out.Session.Stage != statex.StageSelection {
		t.Fatalf("action response = %+v", out)
	}
}

func TestMessagesRequireChatAgent(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	view := startSession(t, ts)
	resp := postJSON(t, ts.URL+"/sessions/"+view.SessionID+"/messages", messageRequest{Text: "hi"})
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}
}

func TestMessagesUseChatAgent(t *testing.T) {
	t.Parallel()

	chat := &echoChatter{}
	ts := newTestServer(t, WithChatAgent(chat))
	view := startSession(t, ts)

	resp := postJSON(t, ts.URL+"/sessions/"+view.SessionID+"/messages", messageRequest{Text: "hi"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode message response: %v", err)
	}
	if !chat.called || out.Reply.Message != "you said hi" {
		t.Fatalf("reply = %+v", out.Reply)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status = %d", resp.StatusCode)
	}
}
