package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canchaya/canchaya/internal/server"
	"github.com/canchaya/canchaya/pkg/alerts"
	"github.com/canchaya/canchaya/pkg/format"
	"github.com/canchaya/canchaya/pkg/geocode"
	"github.com/canchaya/canchaya/pkg/model"
	"github.com/canchaya/canchaya/pkg/notify"
	"github.com/canchaya/canchaya/pkg/report"
	"github.com/canchaya/canchaya/pkg/storage"
)

const testSecret = "test-secret"

type testEnv struct {
	srv      *server.Server
	dispatch *notify.Dispatcher
	hub      *server.Hub
	lookups  atomic.Int32
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupServer(t *testing.T, secret string) *testEnv {
	t.Helper()
	logger := testLogger()
	env := &testEnv{}

	geocoder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.lookups.Add(1)
		if strings.Contains(r.URL.Query().Get("q"), "Obelisco") {
			w.Write([]byte(`[{"lat":"-34.6037","lon":"-58.3816","display_name":"Obelisco, Buenos Aires"}]`))
			return
		}
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(geocoder.Close)

	kv := storage.NewMemory()
	store := alerts.NewKVStore(kv)

	env.hub = server.NewHub(nil, logger)
	t.Cleanup(env.hub.Close)
	env.dispatch = notify.NewDispatcher(env.hub, logger)

	router := alerts.NewRouter(logger).Route(model.ChannelInApp, alerts.NewInAppNotifier(env.dispatch))
	evaluator := alerts.NewEvaluator(store, router, logger)

	client := geocode.NewClient(geocode.NewCache(kv, logger), geocode.Options{BaseURL: geocoder.URL}, logger)
	reports := report.NewService(store, report.NewExporter(nil), report.NewHistory(kv), env.dispatch, logger)

	env.srv = server.NewServer(server.Deps{
		Store:         store,
		Evaluator:     evaluator,
		Notifications: env.dispatch,
		Geocoder:      client,
		Reports:       reports,
		Hub:           env.hub,
		Locale:        format.ESAR,
		JWTSecret:     secret,
	}, logger)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func occupancyAlert() map[string]any {
	return map[string]any{
		"name":             "Ocupación alta",
		"metric_id":        "occupancy_pct",
		"condition":        ">",
		"threshold":        80,
		"severity":         "HIGH",
		"channels":         []string{"IN_APP"},
		"cooldown_minutes": 30,
	}
}

func TestServer_Health(t *testing.T) {
	env := setupServer(t, "")

	w := env.do(t, "GET", "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decode[map[string]any](t, w)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, 0.0, resp["ws_clients"])
}

func TestServer_CORSCredentials(t *testing.T) {
	get := func(origins []string) http.Header {
		srv := server.NewServer(server.Deps{AllowedOrigins: origins}, testLogger())
		req := httptest.NewRequest("GET", "/healthz", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		return w.Header()
	}

	wildcard := get(nil)
	assert.Empty(t, wildcard.Get("Access-Control-Allow-Credentials"))
	assert.NotEqual(t, "https://evil.example", wildcard.Get("Access-Control-Allow-Origin"))

	explicit := get([]string{"https://evil.example"})
	assert.Equal(t, "true", explicit.Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "https://evil.example", explicit.Get("Access-Control-Allow-Origin"))

	other := get([]string{"https://canchaya.app"})
	assert.Empty(t, other.Get("Access-Control-Allow-Origin"))
}

func TestServer_AlertCRUD(t *testing.T) {
	env := setupServer(t, "")

	w := env.do(t, "POST", "/api/v1/alerts", occupancyAlert(), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[model.AlertDefinition](t, w)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Active, "active defaults to true")

	w = env.do(t, "GET", "/api/v1/alerts", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.AlertDefinition](t, w), 1)

	update := occupancyAlert()
	update["name"] = "Ocupación crítica"
	update["condition"] = "between"
	update["threshold"] = []float64{90, 100}
	w = env.do(t, "PUT", "/api/v1/alerts/"+created.ID, update, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[model.AlertDefinition](t, w)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Ocupación crítica", updated.Name)
	assert.True(t, updated.Active)
	assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())

	w = env.do(t, "POST", "/api/v1/alerts/"+created.ID+"/toggle", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[model.AlertDefinition](t, w).Active)

	w = env.do(t, "DELETE", "/api/v1/alerts/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "GET", "/api/v1/alerts/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_CreateAlertValidation(t *testing.T) {
	env := setupServer(t, "")

	bad := occupancyAlert()
	bad["condition"] = "between"
	w := env.do(t, "POST", "/api/v1/alerts", bad, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "between needs [min, max]")

	bad = occupancyAlert()
	delete(bad, "channels")
	w = env.do(t, "POST", "/api/v1/alerts", bad, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest("POST", "/api/v1/alerts", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_AdminAuth(t *testing.T) {
	env := setupServer(t, testSecret)

	w := env.do(t, "POST", "/api/v1/alerts", occupancyAlert(), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, "POST", "/api/v1/alerts", occupancyAlert(), "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	wrongKey, err := server.IssueToken("other-secret", "ana", server.RoleAdmin, time.Hour)
	require.NoError(t, err)
	w = env.do(t, "POST", "/api/v1/alerts", occupancyAlert(), wrongKey)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	player, err := server.IssueToken(testSecret, "juan", "player", time.Hour)
	require.NoError(t, err)
	w = env.do(t, "POST", "/api/v1/alerts", occupancyAlert(), player)
	assert.Equal(t, http.StatusForbidden, w.Code)

	expired, err := server.IssueToken(testSecret, "ana", server.RoleAdmin, -time.Minute)
	require.NoError(t, err)
	w = env.do(t, "POST", "/api/v1/alerts", occupancyAlert(), expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	admin, err := server.IssueToken(testSecret, "ana", server.RoleAdmin, time.Hour)
	require.NoError(t, err)
	w = env.do(t, "POST", "/api/v1/alerts", occupancyAlert(), admin)
	assert.Equal(t, http.StatusCreated, w.Code)

	// Reads stay public.
	w = env.do(t, "GET", "/api/v1/alerts", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIssueToken_EmptySecret(t *testing.T) {
	_, err := server.IssueToken("", "ana", server.RoleAdmin, time.Hour)
	assert.Error(t, err)
}

func TestServer_EvaluateMetric(t *testing.T) {
	env := setupServer(t, "")

	w := env.do(t, "POST", "/api/v1/alerts", occupancyAlert(), "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, "POST", "/api/v1/metrics/occupancy_pct", map[string]float64{"value": 50}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[map[string][]model.AlertTrigger](t, w)["triggers"])

	w = env.do(t, "POST", "/api/v1/metrics/occupancy_pct", map[string]float64{"value": 92}, "")
	require.Equal(t, http.StatusOK, w.Code)
	triggers := decode[map[string][]model.AlertTrigger](t, w)["triggers"]
	require.Len(t, triggers, 1)
	assert.Equal(t, 92.0, triggers[0].Value)

	history := env.dispatch.History()
	require.Len(t, history, 1)
	assert.Equal(t, model.NotificationError, history[0].Type)
	assert.Equal(t, "[HIGH] Ocupación alta", history[0].Title)

	// Cooling down.
	w = env.do(t, "POST", "/api/v1/metrics", map[string]float64{"occupancy_pct": 99}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[map[string][]model.AlertTrigger](t, w)["triggers"])

	w = env.do(t, "POST", "/api/v1/metrics/occupancy_pct", map[string]any{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Notifications(t *testing.T) {
	env := setupServer(t, "")

	w := env.do(t, "POST", "/api/v1/notifications", map[string]any{
		"type":        "SUCCESS",
		"title":       "Reserva confirmada",
		"description": "Cancha 3, 20:00",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]string](t, w)["id"]
	assert.NotEmpty(t, id)

	w = env.do(t, "GET", "/api/v1/notifications", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]model.Notification](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].ID)
	assert.Equal(t, "Cancha 3, 20:00", history[0].Description)

	w = env.do(t, "POST", "/api/v1/notifications", map[string]any{"title": " "}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/v1/notifications", map[string]any{"type": "LOUD", "title": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "DELETE", "/api/v1/notifications/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "DELETE", "/api/v1/notifications", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, env.dispatch.Len(), "dismissing leaves history intact")

	w = env.do(t, "POST", "/api/v1/notifications/"+id+"/action", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_NotificationAction(t *testing.T) {
	env := setupServer(t, "")

	ran := false
	id := env.dispatch.NotifyWarning(testContext(t), "Pago pendiente", notify.WithAction("Reintentar", func() { ran = true }))

	w := env.do(t, "POST", "/api/v1/notifications/"+id+"/action", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, ran)
}

func TestServer_Geocode(t *testing.T) {
	env := setupServer(t, "")

	w := env.do(t, "GET", "/api/v1/geocode?address=Obelisco", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[model.GeocodeResult](t, w)
	assert.InDelta(t, -34.6037, res.Latitude, 1e-9)
	assert.Equal(t, "Obelisco, Buenos Aires", res.DisplayName)

	w = env.do(t, "GET", "/api/v1/geocode?address=Nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "GET", "/api/v1/geocode?address=%20", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/v1/geocode/batch", map[string]any{
		"addresses": []string{"Obelisco", "Nowhere", ""},
		"delay_ms":  0,
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var batch struct {
		Results []*model.GeocodeResult `json:"results"`
		Error   string                 `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&batch))
	require.Len(t, batch.Results, 3)
	assert.NotNil(t, batch.Results[0])
	assert.Nil(t, batch.Results[1])
	assert.Nil(t, batch.Results[2])
	assert.Empty(t, batch.Error)
	assert.Equal(t, int32(2), env.lookups.Load(), "batch served from cache")

	w = env.do(t, "GET", "/api/v1/geocode/stats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[geocode.Stats](t, w)
	assert.Equal(t, int64(2), stats.Lookups)
	assert.Equal(t, int64(2), stats.CacheHits)

	tooMany := make([]string, 51)
	w = env.do(t, "POST", "/api/v1/geocode/batch", map[string]any{"addresses": tooMany}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Reports(t *testing.T) {
	env := setupServer(t, "")
	require.Equal(t, http.StatusCreated, env.do(t, "POST", "/api/v1/alerts", occupancyAlert(), "").Code)

	w := env.do(t, "GET", "/api/v1/reports/alerts", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "alertas-configuradas-")
	assert.Contains(t, w.Body.String(), "occupancy_pct")

	w = env.do(t, "GET", "/api/v1/reports/alerts?format=html", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<table")

	w = env.do(t, "GET", "/api/v1/reports/alerts?format=pdf", nil, "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	res := decode[report.Result](t, w)
	assert.False(t, res.Success)
	assert.Equal(t, report.ErrPDFNotImplemented, res.Error)

	last := env.dispatch.History()[env.dispatch.Len()-1]
	assert.Equal(t, model.NotificationWarning, last.Type)

	w = env.do(t, "GET", "/api/v1/reports/alerts?format=docx", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "GET", "/api/v1/reports/history", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	records := decode[[]model.ReportRecord](t, w)
	require.Len(t, records, 4)
	assert.Equal(t, model.ReportFormat("docx"), records[0].Format, "newest first")
}

func TestServer_Format(t *testing.T) {
	env := setupServer(t, "")

	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/format/price?value=1500", "$1.500,00"},
		{"/api/v1/format/price?value=1500&locale=en-US", "$1,500.00"},
		{"/api/v1/format/compact?value=2500000", "$2.5M"},
		{"/api/v1/format/number?value=1234567.891&decimals=2", "1.234.567,89"},
		{"/api/v1/format/rating?value=4.5", "4,5"},
		{"/api/v1/format/date?value=2024-03-04&style=LONG", "4 de marzo de 2024"},
		{"/api/v1/format/date?value=nope", format.InvalidDate},
		{"/api/v1/format/coords?lat=-34.6037&lon=-58.3816", "-34.603700, -58.381600"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := env.do(t, "GET", tt.path, nil, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.want, decode[map[string]string](t, w)["formatted"])
		})
	}

	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/v1/format/price?value=abc", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/v1/format/phone?value=1", nil, "").Code)
}
