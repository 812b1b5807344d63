package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhcloud/agentframework-workshop-sub001/agent"
	"github.com/nhcloud/agentframework-workshop-sub001/chat"
	"github.com/nhcloud/agentframework-workshop-sub001/internal/orchestration"
	"github.com/nhcloud/agentframework-workshop-sub001/pkg/session"
)

type fixedAgent struct {
	name  string
	reply string
}

func (a *fixedAgent) Name() string { return a.name }
func (a *fixedAgent) Type() string { return "test" }
func (a *fixedAgent) Respond(ctx context.Context, message, priorContext string) (string, error) {
	return a.reply, nil
}

func newTestServer(t *testing.T, agents ...agent.Agent) (*Server, *session.Manager) {
	t.Helper()

	registry := agent.NewLocalRegistry()
	for _, a := range agents {
		require.NoError(t, registry.Register(a))
	}

	sessions := session.NewManager(session.NewMemoryBackend())
	t.Cleanup(func() {
		_ = sessions.Close()
	})

	engine := orchestration.NewEngine(registry, sessions, nil, nil, orchestration.Config{})
	return New(engine, registry, sessions, 0), sessions
}

func postChat(t *testing.T, handler http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatDetailedResponse(t *testing.T) {
	srv, _ := newTestServer(t, &fixedAgent{name: "solo", reply: "the answer"})
	handler := srv.Handler()

	rec := postChat(t, handler, chat.Request{Message: "hello", Agents: []string{"solo"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var result chat.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, chat.ModeSingle, result.Mode)
	assert.Equal(t, 1, result.TotalTurns)
	require.Len(t, result.Turns, 2)
	assert.Equal(t, "the answer", result.Turns[1].Content)
	assert.NotEmpty(t, result.SessionID)
}

func TestChatSynthesizedResponse(t *testing.T) {
	srv, _ := newTestServer(t, &fixedAgent{name: "solo", reply: "synthesizable"})
	handler := srv.Handler()

	rec := postChat(t, handler, chat.Request{
		Message: "hello",
		Agents:  []string{"solo"},
		Format:  FormatSynthesized,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp synthesizedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// A single contributing agent's latest content is returned directly.
	assert.Equal(t, "synthesizable", resp.Content)
	assert.Equal(t, chat.ModeSingle, resp.Mode)
}

func TestChatSynthesizedNoResponses(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	rec := postChat(t, handler, chat.Request{
		Message: "hello",
		Agents:  []string{"ghost"},
		Format:  FormatSynthesized,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp synthesizedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, orchestration.NoResponsesMessage, resp.Content)
	assert.Equal(t, 0, resp.TotalTurns)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	rec := postChat(t, handler, chat.Request{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRejectsInvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAgents(t *testing.T) {
	srv, _ := newTestServer(t,
		&fixedAgent{name: "a", reply: "x"},
		&fixedAgent{name: "b", reply: "y"},
	)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/agents", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Agents []agent.Info `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Agents, 2)
	assert.Equal(t, "a", resp.Agents[0].Name)
	assert.Equal(t, "b", resp.Agents[1].Name)
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, &fixedAgent{name: "solo", reply: "hi"})
	handler := srv.Handler()

	// Create a session through a chat request.
	rec := postChat(t, handler, chat.Request{Message: "hello", Agents: []string{"solo"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var result chat.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	id := result.SessionID

	// List includes it.
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, req)
	require.Equal(t, http.StatusOK, listRec.Code)

	var listResp struct {
		Sessions []*session.Metadata `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Sessions, 1)
	assert.Equal(t, id, listResp.Sessions[0].ID)
	assert.Equal(t, 2, listResp.Sessions[0].TurnCount)

	// Fetch its history.
	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id, nil)
	getRec := httptest.NewRecorder()
	handler.ServeHTTP(getRec, req)
	require.Equal(t, http.StatusOK, getRec.Code)

	var getResp struct {
		SessionID string       `json:"session_id"`
		Messages  []*chat.Turn `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &getResp))
	assert.Equal(t, id, getResp.SessionID)
	require.Len(t, getResp.Messages, 2)
	assert.Equal(t, chat.UserAgent, getResp.Messages[0].Agent)

	// Delete it.
	req = httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+id, nil)
	delRec := httptest.NewRecorder()
	handler.ServeHTTP(delRec, req)
	require.Equal(t, http.StatusNoContent, delRec.Code)

	// Fetching again is a 404.
	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id, nil)
	get2 := httptest.NewRecorder()
	handler.ServeHTTP(get2, req)
	assert.Equal(t, http.StatusNotFound, get2.Code)
}

func TestGetUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/nope", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
