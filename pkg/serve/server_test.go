package serve

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/traceport/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const origin = "https://ui.perfetto.dev"

func newTestServer(temporary bool) *Server {
	return New(logging.NewLogger("serve-test"), Options{Origin: origin, Temporary: temporary, Grace: 10 * time.Millisecond})
}

func TestLink(t *testing.T) {
	assert.Equal(t,
		"https://ui.perfetto.dev/#!/?url=http://127.0.0.1:9001/trace.proto",
		Link(origin, DefaultAddr))
}

func TestTraceEndpoint(t *testing.T) {
	s := newTestServer(false)
	h := s.Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, TracePath, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	s.SetTrace([]byte("pftrace-bytes"))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, TracePath, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pftrace-bytes", rr.Body.String())
	assert.Equal(t, "application/octet-stream", rr.Header().Get("Content-Type"))
	assert.Equal(t, origin, rr.Header().Get("Access-Control-Allow-Origin"))
	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, TracePath, nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotModified, rr.Code)

	s.SetTrace([]byte("other"))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, TracePath, nil))
	assert.NotEqual(t, etag, rr.Header().Get("ETag"))

	select {
	case <-s.Served():
	default:
		t.Error("Served should be closed after a download")
	}
}

func TestStatusAndPreflight(t *testing.T) {
	h := newTestServer(false).Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/status", strings.NewReader("{}")))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, TracePath, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, origin, rr.Header().Get("Access-Control-Allow-Origin"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/elsewhere", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "traceport_traces_served_total")
}

func TestTemporaryServerStopsAfterDownload(t *testing.T) {
	s := newTestServer(true)
	s.SetTrace([]byte("once"))
	require.NoError(t, s.Start("127.0.0.1:0"))

	resp, err := http.Get("http://" + s.Addr() + TracePath)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "once", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	assert.NoError(t, ctx.Err(), "server should stop on its own")
}

func TestWaitShutsDownOnContext(t *testing.T) {
	s := newTestServer(false)
	require.NoError(t, s.Start("127.0.0.1:0"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Wait(ctx))

	_, err := http.Get("http://" + s.Addr() + "/status")
	assert.Error(t, err)
}
