package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	applogger "QuoteCache/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(e *echo.Echo, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, GetRequestID(c))
	})

	rec := serve(e, http.MethodGet, "/", nil)
	id := rec.Header().Get(echo.HeaderXRequestID)
	assert.Len(t, id, 36)
	assert.Equal(t, id, rec.Body.String())

	rec = serve(e, http.MethodGet, "/", map[string]string{echo.HeaderXRequestID: "abc"})
	assert.Equal(t, "abc", rec.Body.String())
}

func TestRecover(t *testing.T) {
	e := echo.New()
	e.Use(Recover(applogger.Nop()))
	e.GET("/", func(c echo.Context) error { panic("calendar: exchange \"XX\" not registered") })

	rec := serve(e, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2022, 2, 7, 12, 0, 0, 0, time.UTC)
	e := echo.New()
	e.Use(RateLimit(RateLimitConfig{RPS: 1, Burst: 2, now: func() time.Time { return now }}))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	a := map[string]string{echo.HeaderXRealIP: "10.0.0.1"}
	b := map[string]string{echo.HeaderXRealIP: "10.0.0.2"}
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/", a).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/", a).Code)
	rec := serve(e, http.MethodGet, "/", a)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/", b).Code, "budgets are per client")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/", a).Code, "refilled")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := echo.New()
	e.Use(Metrics(reg, applogger.Nop(), 0))
	e.GET("/ok/:id", func(c echo.Context) error { return c.String(http.StatusOK, "hi") })
	e.GET("/fail", func(c echo.Context) error { return errors.New("boom") })

	serve(e, http.MethodGet, "/ok/1", nil)
	serve(e, http.MethodGet, "/ok/2", nil)
	rec := serve(e, http.MethodGet, "/fail", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	m := newHTTPMetrics(reg)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/ok/:id", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/fail", "GET", "500")))

	require.NotPanics(t, func() { Metrics(reg, nil, 0) }, "re-registering reuses collectors")
}

func TestCORS(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{AllowOrigins: []string{"https://a.example"}, AllowMethods: []string{"GET"}, MaxAge: 60}))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, http.MethodGet, "/", map[string]string{echo.HeaderOrigin: "https://a.example"})
	assert.Equal(t, "https://a.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = serve(e, http.MethodGet, "/", map[string]string{echo.HeaderOrigin: "https://b.example"})
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = serve(e, http.MethodOptions, "/", map[string]string{echo.HeaderOrigin: "https://a.example"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "60", rec.Header().Get(echo.HeaderAccessControlMaxAge))
}
