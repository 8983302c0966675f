package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack/slackevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mention-relay/project/domain"
	"mention-relay/project/dto"
	"mention-relay/project/service"
)

// ワークスペースごとの署名シークレット（workspace_d は未設定）
var testSecrets = map[string]string{
	"workspace_b": "secret-b",
	"workspace_c": "secret-c",
}

type stubResolver struct{}

func (stubResolver) ResolveUser(_ context.Context, id string) (string, error)    { return id, nil }
func (stubResolver) ResolveChannel(_ context.Context, id string) (string, error) { return id, nil }

type routedEvent struct {
	workspaceID string
	event       *domain.InboundEvent
}

type fakeRouter struct {
	mu     sync.Mutex
	routed []routedEvent
	panics bool
}

func (f *fakeRouter) Route(_ context.Context, workspaceID string, ev *domain.InboundEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routed = append(f.routed, routedEvent{workspaceID: workspaceID, event: ev})
	if f.panics {
		panic("resolver exploded")
	}
	return nil
}

func (f *fakeRouter) calls() []routedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]routedEvent(nil), f.routed...)
}

func newTestRegistry(t *testing.T) *service.Registry {
	t.Helper()

	registry, err := service.NewRegistry([]service.Workspace{
		{
			Config: domain.WorkspaceConfig{
				Key: "workspace_b", TeamID: "TB", SourceToken: "xoxb-b",
				SigningSecret: testSecrets["workspace_b"], AppToken: "xapp-b", TargetUserID: "U123",
			},
			Resolver: stubResolver{},
		},
		{
			Config: domain.WorkspaceConfig{
				Key: "workspace_c", TeamID: "TC", SourceToken: "xoxb-c",
				SigningSecret: testSecrets["workspace_c"], AppToken: "xapp-c", TargetUserID: "U999",
			},
			Resolver: stubResolver{},
		},
		{
			// Socket Mode 専用のワークスペース（署名シークレットなし）
			Config: domain.WorkspaceConfig{
				Key: "workspace_d", TeamID: "TD", SourceToken: "xoxb-d", AppToken: "xapp-d", TargetUserID: "U444",
			},
			Resolver: stubResolver{},
		},
	})
	require.NoError(t, err)
	return registry
}

func newTestServerWithRouter(t *testing.T, router *fakeRouter) http.Handler {
	t.Helper()

	events := NewEventsHandler(newTestRegistry(t), router, zerolog.Nop())
	events.spawn = func(f func()) { f() }

	return Recover(NewServeMux(events, NewHealthHandler()), zerolog.Nop())
}

func newTestServer(t *testing.T) (http.Handler, *fakeRouter) {
	t.Helper()
	router := &fakeRouter{}
	return newTestServerWithRouter(t, router), router
}

func messageBody(teamID, text string) string {
	return `{"type":"event_callback","team_id":"` + teamID + `","event_id":"Ev1",` +
		`"event":{"type":"message","user":"U777","text":"` + text + `","channel":"C1","ts":"1700000000.000100"}}`
}

func doRequest(h http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// signed は Slack と同じ方式で body に署名したヘッダを返します
func signed(secret, body string) http.Header {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + ts + ":" + body))

	h := http.Header{}
	h.Set("X-Slack-Request-Timestamp", ts)
	h.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return h
}

func decodeAck(t *testing.T, rec *httptest.ResponseRecorder) dto.AckResponse {
	t.Helper()
	var ack dto.AckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	return ack
}

func TestEventsHandler_URLVerification(t *testing.T) {
	h, router := newTestServer(t)

	rec := doRequest(h, http.MethodPost, "/slack/events", `{"type":"url_verification","challenge":"abc123"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"challenge":"abc123"}`, rec.Body.String())
	assert.Empty(t, router.calls())
}

func TestEventsHandler_UnknownWorkspace(t *testing.T) {
	h, router := newTestServer(t)

	rec := doRequest(h, http.MethodPost, "/slack/events/nope", messageBody("TX", "hi <@U123>"), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown_workspace", decodeAck(t, rec).Error)
	assert.Empty(t, router.calls())
}

func TestEventsHandler_InvalidSignature(t *testing.T) {
	h, router := newTestServer(t)
	body := messageBody("TB", "hi <@U123>")

	header := signed(testSecrets["workspace_b"], body)
	header.Set("X-Slack-Signature", "v0=deadbeef")
	rec := doRequest(h, http.MethodPost, "/slack/events/workspace_b", body, header)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_signature", decodeAck(t, rec).Error)
	assert.Empty(t, router.calls())
}

func TestEventsHandler_SignedMessageIsRouted(t *testing.T) {
	h, router := newTestServer(t)
	body := messageBody("TB", "hi <@U123>")

	rec := doRequest(h, http.MethodPost, "/slack/events/workspace_b", body, signed(testSecrets["workspace_b"], body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeAck(t, rec).OK)

	calls := router.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "workspace_b", calls[0].workspaceID)
	assert.Equal(t, &domain.InboundEvent{
		WorkspaceID:  "workspace_b",
		EventID:      "Ev1",
		Type:         "message",
		SenderUserID: "U777",
		ChannelID:    "C1",
		Text:         "hi <@U123>",
		Timestamp:    "1700000000.000100",
	}, calls[0].event)
}

func TestEventsHandler_TeamIDFromBody(t *testing.T) {
	h, router := newTestServer(t)

	body := messageBody("TC", "hello <@U999>")
	rec := doRequest(h, http.MethodPost, "/events", body, signed(testSecrets["workspace_c"], body))

	assert.Equal(t, http.StatusOK, rec.Code)
	calls := router.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "workspace_c", calls[0].workspaceID)
}

func TestEventsHandler_PathTakesPrecedenceOverTeamID(t *testing.T) {
	h, router := newTestServer(t)

	body := messageBody("TB", "hello")
	rec := doRequest(h, http.MethodPost, "/events/workspace_c", body, signed(testSecrets["workspace_c"], body))

	assert.Equal(t, http.StatusOK, rec.Code)
	calls := router.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "workspace_c", calls[0].workspaceID)
}

func TestEventsHandler_Malformed(t *testing.T) {
	h, router := newTestServer(t)

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "broken json with workspace path", path: "/slack/events/workspace_c", body: `{"type":`},
		{name: "no workspace anywhere", path: "/slack/events", body: `{"type":"event_callback","event":{"type":"message"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodPost, tt.path, tt.body, signed(testSecrets["workspace_c"], tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "malformed_event", decodeAck(t, rec).Error)
		})
	}
	assert.Empty(t, router.calls())
}

func TestEventsHandler_NonMessageEventsAreAcknowledged(t *testing.T) {
	h, router := newTestServer(t)

	bodies := []string{
		`{"type":"app_rate_limited","team_id":"TC"}`,
		`{"type":"event_callback","team_id":"TC","event":{"type":"reaction_added","user":"U1"}}`,
	}
	for _, body := range bodies {
		rec := doRequest(h, http.MethodPost, "/slack/events", body, signed(testSecrets["workspace_c"], body))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeAck(t, rec).OK)
	}
	assert.Empty(t, router.calls())
}

func TestHealthHandler(t *testing.T) {
	h, _ := newTestServer(t)

	for _, path := range []string{"/", "/health"} {
		rec := doRequest(h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "ok", rec.Body.String(), path)
	}

	rec := doRequest(h, http.MethodHead, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), zerolog.Nop())

	rec := doRequest(h, http.MethodPost, "/slack/events", "{}", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"internal_error"}`, rec.Body.String())
}

func TestConvertEventsAPIEvent(t *testing.T) {
	apiEvent := slackevents.EventsAPIEvent{
		Type: slackevents.CallbackEvent,
		Data: &slackevents.EventsAPICallbackEvent{EventID: "Ev9"},
		InnerEvent: slackevents.EventsAPIInnerEvent{
			Type: "message",
			Data: &slackevents.MessageEvent{
				Type:      "message",
				User:      "U777",
				Text:      "hi <@U123>",
				Channel:   "C1",
				TimeStamp: "1700000000.000100",
			},
		},
	}

	ev, ok := ConvertEventsAPIEvent("workspace_b", apiEvent)
	require.True(t, ok)
	assert.Equal(t, &domain.InboundEvent{
		WorkspaceID:  "workspace_b",
		EventID:      "Ev9",
		Type:         "message",
		SenderUserID: "U777",
		ChannelID:    "C1",
		Text:         "hi <@U123>",
		Timestamp:    "1700000000.000100",
	}, ev)
}

func TestConvertEventsAPIEvent_IgnoresOtherEvents(t *testing.T) {
	_, ok := ConvertEventsAPIEvent("workspace_b", slackevents.EventsAPIEvent{Type: slackevents.URLVerification})
	assert.False(t, ok)

	_, ok = ConvertEventsAPIEvent("workspace_b", slackevents.EventsAPIEvent{
		Type:       slackevents.CallbackEvent,
		InnerEvent: slackevents.EventsAPIInnerEvent{Type: "reaction_added", Data: &slackevents.ReactionAddedEvent{}},
	})
	assert.False(t, ok)
}

func TestEventsHandler_RejectsUnsignedRequests(t *testing.T) {
	h, router := newTestServer(t)

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "workspace without signing secret", path: "/events/workspace_d", body: messageBody("TD", "<@U444> forged")},
		{name: "workspace without secret via team_id", path: "/events", body: messageBody("TD", "<@U444> forged")},
		{name: "workspace with secret but no headers", path: "/events/workspace_c", body: messageBody("TC", "<@U999> forged")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodPost, tt.path, tt.body, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "invalid_signature", decodeAck(t, rec).Error)
		})
	}
	assert.Empty(t, router.calls())
}

func TestEventsHandler_RoutePanicIsRecovered(t *testing.T) {
	router := &fakeRouter{panics: true}
	h := newTestServerWithRouter(t, router)
	body := messageBody("TB", "hi <@U123>")

	rec := doRequest(h, http.MethodPost, "/slack/events/workspace_b", body, signed(testSecrets["workspace_b"], body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeAck(t, rec).OK)
	assert.Len(t, router.calls(), 1)
}

func TestEventsHandler_BodyTooLarge(t *testing.T) {
	h, router := newTestServer(t)
	body := `{"type":"event_callback","team_id":"TB","event":{"type":"message","text":"` +
		strings.Repeat("a", maxBodyBytes) + `"}}`

	rec := doRequest(h, http.MethodPost, "/slack/events/workspace_b", body, signed(testSecrets["workspace_b"], body))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "malformed_event", decodeAck(t, rec).Error)
	assert.Empty(t, router.calls())
}

func TestRecover_AfterResponseStarted(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("partial"))
		panic("late boom")
	}), zerolog.Nop())

	rec := doRequest(h, http.MethodPost, "/slack/events", "{}", nil)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}
