package web

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chronoview/internal/config"
	"chronoview/internal/dateparse"
	"chronoview/internal/model"
	"chronoview/internal/timeline"
)

type staticEvents []model.RawEvent

func (s staticEvents) Events() []model.RawEvent { return s }

func newTestServer(t *testing.T, events []model.RawEvent) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	r := &timeline.Renderer{
		Settings: timeline.Settings{DateFormat: dateparse.DefaultConfig()},
		Loc:      time.UTC,
		Now:      func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) },
	}
	return NewServer(cfg, r, staticEvents(events), nil)
}

func getPass(t *testing.T, h http.Handler, target string) timeline.Pass {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var pass timeline.Pass
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pass))
	return pass
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}

func TestTimelineSmartViewport(t *testing.T) {
	s := newTestServer(t, []model.RawEvent{
		{Title: "Moon landing", Start: "1969-07-20", Type: "point"},
		{Title: "Millennium", Start: "2000"},
		{Title: "Bad", Start: "abc"},
	})

	pass := getPass(t, s.Handler(), "/api/timeline")
	require.Len(t, pass.Items, 2)
	require.Equal(t, 1, pass.Rejected)
	require.Equal(t, timeline.SourceSmart, pass.ViewportSource)
	require.NotEmpty(t, pass.ID)
}

func TestTimelineExplicitWindowIsSanitized(t *testing.T) {
	s := newTestServer(t, nil)

	start := time.Date(1800, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	pass := getPass(t, s.Handler(), "/api/timeline?start="+itoa(start)+"&end=garbage")

	vp := pass.Viewport
	require.Equal(t, timeline.SourceExplicit, pass.ViewportSource)
	for _, v := range []float64{vp.Start, vp.End, vp.Min, vp.Max, vp.ZoomMin, vp.ZoomMax} {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
	require.Less(t, vp.Start, vp.End)
	require.LessOrEqual(t, vp.Min, vp.Start)
	require.LessOrEqual(t, vp.End, vp.Max)
}

func TestTimelinePanicFallsBackToEmptyPass(t *testing.T) {
	s := newTestServer(t, []model.RawEvent{{Start: "2020"}})
	calls := 0
	s.renderer.Now = func() time.Time {
		calls++
		if calls == 1 {
			panic("clock broke")
		}
		return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	}

	pass := getPass(t, s.Handler(), "/api/timeline")
	require.Empty(t, pass.Items)
	require.NotEmpty(t, pass.Notice)
	require.Equal(t, timeline.SourceDefault, pass.ViewportSource)
}

func TestOnRenderedHook(t *testing.T) {
	s := newTestServer(t, []model.RawEvent{{Start: "2020"}})
	var got []timeline.Pass
	s.OnRendered = func(p timeline.Pass) { got = append(got, p) }

	pass := getPass(t, s.Handler(), "/api/timeline")
	require.Len(t, got, 1)
	require.Equal(t, pass.ID, got[0].ID)
}

func TestTimelinePage(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/timeline", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `data-ready`))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/timeline", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	s := newTestServer(t, nil)
	s.cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/timeline", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/timeline", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWindowFromQuery(t *testing.T) {
	require.Nil(t, windowFromQuery(httptest.NewRequest(http.MethodGet, "/api/timeline?min=5", nil)))

	w := windowFromQuery(httptest.NewRequest(http.MethodGet, "/api/timeline?start=10&end=20", nil))
	require.NotNil(t, w)
	require.Equal(t, 10.0, w.Start)
	require.Equal(t, 20.0, w.End)
	require.True(t, math.IsNaN(w.Min))
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestTimelineExplicitWindowOutsideFallbackRange(t *testing.T) {
	s := newTestServer(t, nil)

	start := time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	end := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	pass := getPass(t, s.Handler(), "/api/timeline?start="+itoa(start)+"&end="+itoa(end))

	vp := pass.Viewport
	require.Equal(t, timeline.SourceExplicit, pass.ViewportSource)
	require.Equal(t, float64(start), vp.Start)
	require.Equal(t, float64(end), vp.End)
	require.Equal(t, float64(start-(end-start)), vp.Min)
	require.Equal(t, float64(end+(end-start)), vp.Max)
}
