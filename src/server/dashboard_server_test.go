package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-dashboard/src/interfaces"
	"trade-dashboard/src/logger"
	"trade-dashboard/src/metrics"
	"trade-dashboard/src/models"
	"trade-dashboard/src/testutils"
)

type fakeController struct {
	mu        sync.Mutex
	overrides int
	refreshes int
}

func (f *fakeController) ForcePollingOnly() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides++
}

func (f *fakeController) RefreshNow() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
}

func (f *fakeController) Status(ctx context.Context) (models.MPipelineStatus, error) {
	return models.MPipelineStatus{Channel: "BACKOFF", Link: models.LinkPoll, Polling: true, ReconnectDelayMs: 2000}, nil
}

type fakeHistory struct {
	samples []models.MStateSample
}

func (f *fakeHistory) Initialize() error                         { return nil }
func (f *fakeHistory) SaveStateSample(models.MStateSample) error { return nil }
func (f *fakeHistory) SaveLinkEvent(models.MLinkEvent) error     { return nil }
func (f *fakeHistory) CleanupOldData() error                     { return nil }
func (f *fakeHistory) Close() error                              { return nil }
func (f *fakeHistory) RecentSamples(limit int) ([]models.MStateSample, error) {
	if limit < len(f.samples) {
		return f.samples[:limit], nil
	}
	return f.samples, nil
}

func testFrame(t *testing.T) *models.MFrame {
	t.Helper()
	view := models.NewMergedView()
	state, err := models.ParseDocument([]byte(`{"status":"WARN","ts_ms":1700000000000}`))
	require.NoError(t, err)
	report, err := models.ParseDocument([]byte(`{"series":[[1,10],[2,20],[3,30],[4,40]]}`))
	require.NoError(t, err)
	view.State, view.Report = state, report

	return &models.MFrame{
		View:        view,
		Range:       4,
		Series:      []models.MSeriesPoint{{Time: 1, Value: 10}, {Time: 2, Value: 20}, {Time: 3, Value: 30}, {Time: 4, Value: 40}},
		Status:      models.StatusWarn,
		StatusLevel: "warn",
		Stale:       false,
		AgeMillis:   1500,
		Link:        models.LinkLive,
		Origin:      models.OriginPush,
		RenderedAt:  1700000001500,
	}
}

func newTestServer(history interfaces.IDatabase) (*DashboardServer, *fakeController) {
	cfg := &models.MConfig{Host: "127.0.0.1", Port: 8080}
	s := NewDashboardServer(cfg, history, metrics.NewMetrics(), logger.NewNop())
	ctrl := &fakeController{}
	s.SetController(ctrl)
	return s, ctrl
}

func do(t *testing.T, s *DashboardServer, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

// -----------------------------------------------------------------------------

func TestViewBeforeFirstFrame(t *testing.T) {
	s, _ := newTestServer(nil)

	rec, _ := do(t, s, http.MethodGet, "/api/view")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, body := do(t, s, http.MethodGet, "/api/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["stale"])
	assert.Equal(t, "poll", body["link"])
}

func TestViewAndStatusAfterRender(t *testing.T) {
	s, _ := newTestServer(nil)
	s.Render(testFrame(t))

	rec, body := do(t, s, http.MethodGet, "/api/view")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "WARN", body["status"])
	assert.Equal(t, "live", body["link"])

	_, body = do(t, s, http.MethodGet, "/api/status")
	assert.Equal(t, "warn", body["level"])
	assert.Equal(t, false, body["stale"])
	pipeline, ok := body["pipeline"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "BACKOFF", pipeline["channel"])
}

func TestLinkStatusUpdatesIndicator(t *testing.T) {
	s, _ := newTestServer(nil)
	s.Render(testFrame(t))

	s.SetLinkStatus(models.LinkPoll)

	_, body := do(t, s, http.MethodGet, "/api/status")
	assert.Equal(t, "poll", body["link"])
}

func TestSeriesRange(t *testing.T) {
	s, _ := newTestServer(nil)
	s.Render(testFrame(t))

	rec, body := do(t, s, http.MethodGet, "/api/series?range=2")
	require.Equal(t, http.StatusOK, rec.Code)
	series := body["series"].([]interface{})
	require.Len(t, series, 2)
	assert.Equal(t, 30.0, series[0].(map[string]interface{})["value"])

	rec, _ = do(t, s, http.MethodGet, "/api/series?range=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = do(t, s, http.MethodGet, "/api/series?range=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOverrideAndRefresh(t *testing.T) {
	s, ctrl := newTestServer(nil)

	rec, _ := do(t, s, http.MethodPost, "/api/override?push=off")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	rec, _ = do(t, s, http.MethodPost, "/api/override?push=on")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = do(t, s, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	assert.Equal(t, 1, ctrl.overrides)
	assert.Equal(t, 1, ctrl.refreshes)
}

func TestHistory(t *testing.T) {
	s, _ := newTestServer(nil)
	rec, _ := do(t, s, http.MethodGet, "/api/history")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s, _ = newTestServer(&fakeHistory{samples: []models.MStateSample{
		{SessionID: "a", Status: "OK"}, {SessionID: "a", Status: "WARN"},
	}})
	rec, body := do(t, s, http.MethodGet, "/api/history?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["samples"], 1)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(nil)
	s.metrics.RecordPollCycle()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dashboard_poll_cycles_total")
}

func TestWebsocketReceivesFrames(t *testing.T) {
	s, _ := newTestServer(nil)
	s.StartHub()
	s.Render(testFrame(t))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	defer s.Stop(context.Background())

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first wsMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "frame", first.Type)
	assert.Equal(t, models.StatusWarn, first.Frame.Status)

	require.Eventually(t, func() bool {
		_, body := do(t, s, http.MethodGet, "/api/health")
		return body["connections"] == 1.0
	}, 2*time.Second, 10*time.Millisecond)

	s.SetLinkStatus(models.LinkPoll)
	for {
		var next wsMessage
		require.NoError(t, conn.ReadJSON(&next))
		if next.Type == "link" {
			assert.Equal(t, models.LinkPoll, next.Link)
			break
		}
	}
}

func TestMultiRendererFansOut(t *testing.T) {
	a, b := &testutils.CapturingRenderer{}, &testutils.CapturingRenderer{}
	multi := MultiRenderer{a, b}

	multi.SetLinkStatus(models.LinkLive)
	multi.Render(testFrame(t))

	for _, r := range []*testutils.CapturingRenderer{a, b} {
		assert.Len(t, r.Frames(), 1)
		assert.Equal(t, models.LinkLive, r.Link())
	}
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

// readType reads until a message of the given type arrives.
func readType(t *testing.T, conn *websocket.Conn, typ string) wsMessage {
	t.Helper()
	for {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func TestWebsocketRangeSubscription(t *testing.T) {
	s, _ := newTestServer(nil)
	s.StartHub()
	s.Render(testFrame(t))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	defer s.Stop(context.Background())

	conn := dialWS(t, srv)
	first := readType(t, conn, "frame")
	assert.Len(t, first.Frame.Series, 4)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"command": "range", "range": 2}))
	resized := readType(t, conn, "frame")
	assert.Equal(t, 2, resized.Frame.Range)
	assert.Equal(t, []models.MSeriesPoint{{Time: 3, Value: 30}, {Time: 4, Value: 40}}, resized.Frame.Series)
	assert.Equal(t, 2, resized.Frame.Summary.Points)

	// Later broadcasts keep the subscribed window.
	s.Render(testFrame(t))
	next := readType(t, conn, "frame")
	assert.Equal(t, 2, next.Frame.Range)
	assert.Len(t, next.Frame.Series, 2)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"command": "range", "range": 0}))
	bad := readType(t, conn, "error")
	assert.Contains(t, bad.Error, "range")

	// The server-wide frame is untouched.
	assert.Len(t, s.Latest().Series, 4)
}

func TestRangeBeforeFirstFrameIsAcknowledged(t *testing.T) {
	s, _ := newTestServer(nil)
	client := &Client{hub: s, send: make(chan interface{}, 4)}
	s.clients[client] = struct{}{}

	s.answer(clientRequest{client: client, cmd: clientCommand{Command: "range", Range: 10}})

	require.Len(t, client.send, 1)
	msg := (<-client.send).(*wsMessage)
	assert.Equal(t, "range", msg.Type)
	assert.Equal(t, 10, msg.Range)

	s.answer(clientRequest{client: client, cmd: clientCommand{Command: "status"}})
	body := (<-client.send).(gin.H)
	assert.Equal(t, "status", body["type"])
	assert.Equal(t, 10, body["range"])
}

func TestReplyToDepartedClientIsSkipped(t *testing.T) {
	s, _ := newTestServer(nil)
	s.Render(testFrame(t))

	client := &Client{hub: s, send: make(chan interface{}, 4)}
	s.clients[client] = struct{}{}
	s.stateMutex.Lock()
	s.dropLocked(client)
	s.stateMutex.Unlock()

	assert.NotPanics(t, func() {
		s.answer(clientRequest{client: client, cmd: clientCommand{Command: "snapshot"}})
		s.answer(clientRequest{client: client, cmd: clientCommand{Command: "status"}})
	})
	_, open := <-client.send
	assert.False(t, open)
}
