package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/internal/agent"
	"github.com/lensfolio/agent-gateway/internal/llm"
	"github.com/lensfolio/agent-gateway/internal/shadow"
	"github.com/lensfolio/agent-gateway/internal/toolbus"
	"github.com/lensfolio/agent-gateway/internal/tools"
	transport "github.com/lensfolio/agent-gateway/internal/transport/http"
	"github.com/lensfolio/agent-gateway/policy"
	"github.com/lensfolio/agent-gateway/store"
	"github.com/lensfolio/agent-gateway/tests/helpers"
)

type serverFixture struct {
	handler *transport.Handler
	echo    *echo.Echo
	store   *store.SQLiteStore
	mock    *llm.Mock
	sender  *captureSender
}

type captureSender struct {
	sent []tools.Email
}

func (c *captureSender) Send(ctx context.Context, msg tools.Email) error {
	c.sent = append(c.sent, msg)
	return nil
}

func newServerFixture(t *testing.T, responses ...llm.Response) *serverFixture {
	t.Helper()
	ctx := context.Background()

	s := helpers.NewTestSQLiteStore(t)
	engine, err := policy.NewEngine(ctx)
	require.NoError(t, err)

	sender := &captureSender{}
	reg := toolbus.NewRegistry()
	require.NoError(t, tools.RegisterAll(reg, tools.Deps{Store: s, Email: sender}))
	bus := toolbus.New(reg, s, engine, zap.NewNop(), time.Second)

	mock := llm.NewMock(responses...)
	legacy := agent.NewLegacy(s, mock, zap.NewNop())
	orchestrator := agent.NewOrchestrator(s, bus, mock, zap.NewNop())
	comparator := shadow.New(legacy, orchestrator, s, nil, zap.NewNop())

	h := transport.NewHandler(s, bus, orchestrator, comparator, zap.NewNop())
	e := echo.New()
	h.RegisterRoutes(e)

	return &serverFixture{handler: h, echo: e, store: s, mock: mock, sender: sender}
}

func (f *serverFixture) request(method, path string, body any, identified bool) (*httptest.ResponseRecorder, echo.Context) {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if identified {
		req.Header.Set("X-User-ID", "u1")
		req.Header.Set("X-Studio-ID", "studio1")
		req.Header.Set("X-Role", string(domain.RoleOwner))
	}
	rec := httptest.NewRecorder()
	return rec, f.echo.NewContext(req, rec)
}

func TestHealth(t *testing.T) {
	f := newServerFixture(t)
	rec, c := f.request(nethttp.MethodGet, "/health", nil, false)

	require.NoError(t, f.handler.Health(c))
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestChatRequiresIdentity(t *testing.T) {
	f := newServerFixture(t)
	_, c := f.request(nethttp.MethodPost, "/agent/v2/chat", domain.ChatRequest{Message: "hi"}, false)

	err := f.handler.Chat(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, nethttp.StatusUnauthorized, he.Code)
}

func TestChatRejectsEmptyMessageAndBadMode(t *testing.T) {
	f := newServerFixture(t)

	_, c := f.request(nethttp.MethodPost, "/agent/v2/chat", domain.ChatRequest{}, true)
	err := f.handler.Chat(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, nethttp.StatusBadRequest, he.Code)

	_, c = f.request(nethttp.MethodPost, "/agent/v2/chat", domain.ChatRequest{Message: "hi", Mode: "yolo"}, true)
	err = f.handler.Chat(c)
	require.ErrorAs(t, err, &he)
	assert.Equal(t, nethttp.StatusBadRequest, he.Code)
}

func TestChatHappyPath(t *testing.T) {
	f := newServerFixture(t, llm.Response{Content: "Hello!"})
	rec, c := f.request(nethttp.MethodPost, "/agent/v2/chat", domain.ChatRequest{Message: "hi"}, true)

	require.NoError(t, f.handler.Chat(c))
	assert.Equal(t, nethttp.StatusOK, rec.Code)

	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Hello!", resp.Message)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, domain.ModeAutoSafe, resp.Mode)
}

func TestChatScopeRejectionReturns403(t *testing.T) {
	f := newServerFixture(t, llm.Response{
		ToolCalls: []llm.ToolCall{{ID: "c1", Name: "create_client", Arguments: json.RawMessage(`{"name":"Ana"}`)}},
	})
	rec, c := f.request(nethttp.MethodPost, "/agent/v2/chat", domain.ChatRequest{Message: "add ana"}, true)
	c.Request().Header.Set("X-Role", string(domain.RoleViewer))

	require.NoError(t, f.handler.Chat(c))
	assert.Equal(t, nethttp.StatusForbidden, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "authorization_error", body["error"])
	assert.Contains(t, body, "requiredScopes")
	assert.Contains(t, body, "userScopes")
}

func TestChatModeRejectionReturns403(t *testing.T) {
	// Assistants hold CRM_WRITE but default to read_only, so the denial
	// comes from the mode gate rather than a missing scope.
	f := newServerFixture(t, llm.Response{
		ToolCalls: []llm.ToolCall{{ID: "c1", Name: "create_client", Arguments: json.RawMessage(`{"name":"Ana"}`)}},
	})
	rec, c := f.request(nethttp.MethodPost, "/agent/v2/chat", domain.ChatRequest{Message: "add ana"}, true)
	c.Request().Header.Set("X-Role", string(domain.RoleAssistant))

	require.NoError(t, f.handler.Chat(c))
	assert.Equal(t, nethttp.StatusForbidden, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "authorization_error", body["error"])
	assert.Equal(t, string(domain.ModeReadOnly), body["mode"])
	assert.Equal(t, string(domain.RiskMedium), body["risk"])
	assert.NotContains(t, body, "requiredScopes")
	assert.Contains(t, body, "userScopes")
}

func TestChatConfirmationRoundTrip(t *testing.T) {
	f := newServerFixture(t, llm.Response{
		ToolCalls: []llm.ToolCall{{ID: "c1", Name: "send_email",
			Arguments: json.RawMessage(`{"to":"ana@example.com","subject":"Hi","body":"Hello"}`)}},
	})

	rec, c := f.request(nethttp.MethodPost, "/agent/v2/chat", domain.ChatRequest{Message: "email ana"}, true)
	require.NoError(t, f.handler.Chat(c))
	assert.Equal(t, nethttp.StatusOK, rec.Code)

	var held domain.ConfirmationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &held))
	assert.True(t, held.ConfirmRequired)
	assert.Equal(t, "send_email", held.Tool)
	require.NotEmpty(t, held.ConfirmationID)
	assert.Empty(t, f.sender.sent)

	// Approve: the held call runs exactly once.
	rec, c = f.request(nethttp.MethodPost, "/agent/v2/confirm/"+held.ConfirmationID,
		domain.ConfirmRequest{Approve: true}, true)
	c.SetPath("/agent/v2/confirm/:confirmation_id")
	c.SetParamNames("confirmation_id")
	c.SetParamValues(held.ConfirmationID)

	require.NoError(t, f.handler.Confirm(c))
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "ana@example.com", f.sender.sent[0].To)

	// A second decision conflicts and runs nothing.
	_, c = f.request(nethttp.MethodPost, "/agent/v2/confirm/"+held.ConfirmationID,
		domain.ConfirmRequest{Approve: true}, true)
	c.SetPath("/agent/v2/confirm/:confirmation_id")
	c.SetParamNames("confirmation_id")
	c.SetParamValues(held.ConfirmationID)

	err := f.handler.Confirm(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, nethttp.StatusConflict, he.Code)
	assert.Len(t, f.sender.sent, 1)
}

func TestConfirmReject(t *testing.T) {
	f := newServerFixture(t, llm.Response{
		ToolCalls: []llm.ToolCall{{ID: "c1", Name: "send_email",
			Arguments: json.RawMessage(`{"to":"a@b.c","subject":"s","body":"b"}`)}},
	})

	rec, c := f.request(nethttp.MethodPost, "/agent/v2/chat", domain.ChatRequest{Message: "email"}, true)
	require.NoError(t, f.handler.Chat(c))
	var held domain.ConfirmationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &held))

	rec, c = f.request(nethttp.MethodPost, "/agent/v2/confirm/"+held.ConfirmationID,
		domain.ConfirmRequest{Approve: false, Reason: "wrong recipient"}, true)
	c.SetPath("/agent/v2/confirm/:confirmation_id")
	c.SetParamNames("confirmation_id")
	c.SetParamValues(held.ConfirmationID)

	require.NoError(t, f.handler.Confirm(c))
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(domain.ConfirmationRejected))
	assert.Empty(t, f.sender.sent)

	conf, err := f.store.GetConfirmation(context.Background(), held.ConfirmationID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConfirmationRejected, conf.Status)
}

func TestConfirmUnknownID(t *testing.T) {
	f := newServerFixture(t)
	_, c := f.request(nethttp.MethodPost, "/agent/v2/confirm/cf_missing", domain.ConfirmRequest{Approve: true}, true)
	c.SetPath("/agent/v2/confirm/:confirmation_id")
	c.SetParamNames("confirmation_id")
	c.SetParamValues("cf_missing")

	err := f.handler.Confirm(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, nethttp.StatusNotFound, he.Code)
}

func TestGetSessionScopedToStudio(t *testing.T) {
	f := newServerFixture(t, llm.Response{Content: "Hi."})

	rec, c := f.request(nethttp.MethodPost, "/agent/v2/chat", domain.ChatRequest{Message: "hi"}, true)
	require.NoError(t, f.handler.Chat(c))
	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// Owner of the session sees transcript and audit log.
	rec, c = f.request(nethttp.MethodGet, "/agent/v2/session/"+resp.SessionID, nil, true)
	c.SetPath("/agent/v2/session/:session_id")
	c.SetParamNames("session_id")
	c.SetParamValues(resp.SessionID)
	require.NoError(t, f.handler.GetSession(c))
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages"`)
	assert.Contains(t, rec.Body.String(), `"auditLog"`)

	// Another studio gets a 404, not a 403 leak.
	_, c = f.request(nethttp.MethodGet, "/agent/v2/session/"+resp.SessionID, nil, true)
	c.Request().Header.Set("X-Studio-ID", "studio2")
	c.SetPath("/agent/v2/session/:session_id")
	c.SetParamNames("session_id")
	c.SetParamValues(resp.SessionID)
	err := f.handler.GetSession(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, nethttp.StatusNotFound, he.Code)
}

func TestListToolsFollowsRole(t *testing.T) {
	f := newServerFixture(t)

	rec, c := f.request(nethttp.MethodGet, "/agent/v2/tools", nil, true)
	require.NoError(t, f.handler.ListTools(c))
	var ownerView struct {
		Tools []struct{ Name string } `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ownerView))

	rec, c = f.request(nethttp.MethodGet, "/agent/v2/tools", nil, true)
	c.Request().Header.Set("X-Role", string(domain.RoleViewer))
	require.NoError(t, f.handler.ListTools(c))
	var viewerView struct {
		Tools []struct{ Name string } `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &viewerView))

	assert.Greater(t, len(ownerView.Tools), len(viewerView.Tools))
	for _, tool := range viewerView.Tools {
		assert.NotContains(t, tool.Name, "create")
		assert.NotContains(t, tool.Name, "send")
	}
}

func TestShadowChatExposesOnlyLegacyAnswer(t *testing.T) {
	// Legacy handles the invoice keyword itself; the orchestrator's dry run
	// consumes the scripted tool-call plan.
	f := newServerFixture(t,
		llm.Response{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "list_invoices", Arguments: json.RawMessage(`{}`)}}},
		llm.Response{Content: "No invoices found (simulated)."},
	)

	rec, c := f.request(nethttp.MethodPost, "/agent/shadow/chat", domain.ChatRequest{Message: "show invoices"}, true)
	require.NoError(t, f.handler.ShadowChat(c))
	assert.Equal(t, nethttp.StatusOK, rec.Code)

	var resp domain.ShadowChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.ShadowMode)
	assert.Equal(t, "No matching invoices found.", resp.Message)

	// Exactly one diff was recorded for the turn.
	rec, c = f.request(nethttp.MethodGet, "/agent/shadow/stats", nil, true)
	require.NoError(t, f.handler.ShadowStats(c))
	var stats domain.ShadowStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total)

	rec, c = f.request(nethttp.MethodGet, "/agent/shadow/diffs?limit=10", nil, true)
	require.NoError(t, f.handler.ShadowDiffs(c))
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestStatsCountsDispatches(t *testing.T) {
	f := newServerFixture(t,
		llm.Response{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "list_clients", Arguments: json.RawMessage(`{}`)}}},
		llm.Response{Content: "No clients."},
	)

	_, c := f.request(nethttp.MethodPost, "/agent/v2/chat", domain.ChatRequest{Message: "clients?"}, true)
	require.NoError(t, f.handler.Chat(c))

	rec, c := f.request(nethttp.MethodGet, "/agent/v2/stats", nil, true)
	require.NoError(t, f.handler.Stats(c))
	var stats struct {
		TotalDispatches int64            `json:"totalDispatches"`
		ToolUsage       map[string]int64 `json:"toolUsage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalDispatches)
	assert.Equal(t, int64(1), stats.ToolUsage["list_clients"])
}
