package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/simplainvest/wealthboard/internal/clients/wealthfeed"
	"github.com/simplainvest/wealthboard/internal/config"
	"github.com/simplainvest/wealthboard/internal/events"
	"github.com/simplainvest/wealthboard/internal/modules/dashboard"
	"github.com/simplainvest/wealthboard/internal/modules/series"
)

type stubFeed struct{}

func (stubFeed) Fetch(ctx context.Context, endpoint string) (wealthfeed.Result, error) {
	records := map[string][]series.RawRecord{
		wealthfeed.EndpointCustody: {{dashboard.FieldXPBrasil: 10.0, dashboard.FieldCustodyTotal: 10.0}},
		wealthfeed.EndpointWeekly: {
			{dashboard.FieldWeek: "1.Junho", dashboard.FieldInflow: 1.0, dashboard.FieldAccumulated: 1.0},
			{dashboard.FieldWeek: "2.Junho", dashboard.FieldInflow: 2.0, dashboard.FieldAccumulated: 3.0},
		},
	}
	return wealthfeed.Result{Endpoint: endpoint, Records: records[endpoint], FetchedAt: time.Now()}, nil
}

type testServer struct {
	server    *Server
	dashboard *dashboard.Service
	bus       *events.Bus
}

func setupTestServer(t *testing.T) *testServer {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	cfg := &config.Config{
		DataDir:          t.TempDir(),
		FeedTimeout:      time.Second,
		RefreshSchedule:  "@every 5m",
		RefreshRateLimit: time.Second,
		Port:             8080,
		DevMode:          true,
	}

	normalizer, err := series.NewNormalizer(series.Unscaled, log)
	require.NoError(t, err)

	bus := events.NewBus()
	manager := events.NewManager(bus, log)
	svc := dashboard.NewService(stubFeed{}, normalizer, dashboard.NewRangeStore(nil, log),
		dashboard.DefaultActivity(), manager, log)
	t.Cleanup(svc.Close)

	return &testServer{
		server: New(Config{
			Log:          log,
			Config:       cfg,
			Dashboard:    svc,
			EventManager: manager,
		}),
		dashboard: svc,
		bus:       bus,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "wealthboard", body["service"])
}

func TestRoutes(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/dashboard", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(t, http.MethodPost, "/api/dashboard/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/dashboard/charts/weekly-inflow", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/charts/gauge", `{"value":750,"max":1000}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/system/status", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/dashboard", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// readData returns the payload of the next SSE data line
func readData(t *testing.T, r *bufio.Reader) map[string]interface{} {
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if payload, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
			var out map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(payload), &out))
			return out
		}
	}
}

func TestEventsStream(t *testing.T) {
	ts := setupTestServer(t)
	srv := httptest.NewServer(ts.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events/stream?types=RANGE_CHANGED", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, "connected", readData(t, reader)["type"])

	// filtered out
	ts.bus.Emit(events.DashboardRefreshed, "dashboard", map[string]interface{}{"snapshot_id": "x"})
	ts.bus.Emit(events.RangeChanged, "dashboard", map[string]interface{}{"chart": "weekly-inflow", "start": 1, "end": 2})

	msg := readData(t, reader)
	assert.Equal(t, string(events.RangeChanged), msg["type"])
	assert.Equal(t, "weekly-inflow", msg["data"].(map[string]interface{})["chart"])
}

func TestEventsSocket(t *testing.T) {
	ts := setupTestServer(t)
	srv := httptest.NewServer(ts.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/events/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var msg map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "connected", msg["type"])

	_, err = ts.dashboard.RefreshAll(ctx)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for !seen[string(events.DashboardRefreshed)] {
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		seen[msg["type"].(string)] = true
	}
	assert.True(t, seen[string(events.DatasetUpdated)])
}
