package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trafficgen/internal/core"
)

func TestRecorder_Emit(t *testing.T) {
	r := NewRecorder()

	r.Emit(core.Event{Kind: core.KindRegister, Details: map[string]any{"status": "success", "elapsed_ms": 12.5}})
	r.Emit(core.Event{Kind: core.KindRegister, Details: map[string]any{"status": "failed", "elapsed_ms": 3.0}})
	r.Emit(core.Event{Kind: core.KindAnonAction, Details: map[string]any{"status": "recorded", "action": "search", "elapsed_ms": 1.0}})
	r.Emit(core.Event{Kind: core.KindTopTransition, Details: map[string]any{"from": "logged_in", "to": "logged_out"}})
	r.Emit(core.Event{Kind: core.KindComplete, Details: map[string]any{"reason": "done", "final_state": "done"}})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.events.WithLabelValues(core.KindRegister, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.events.WithLabelValues(core.KindRegister, "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("logged_in", "logged_out")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessions.WithLabelValues("done", "done")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.latency))
}

func TestServer_Endpoints(t *testing.T) {
	r := NewRecorder()
	var active atomic.Int64
	active.Store(4)
	r.Gauge("active_sessions", "Sessions currently running.", func() float64 { return float64(active.Load()) })

	srv := NewServer(r, zap.NewNop())
	var ready atomic.Bool
	srv.AddReadinessCheck("catalog", func() error {
		if !ready.Load() {
			return errors.New("catalog not loaded")
		}
		return nil
	})
	require.NoError(t, srv.Start("127.0.0.1:0"))
	defer srv.Shutdown(context.Background())

	base := "http://" + srv.Addr()

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "trafficgen_active_sessions 4")

	resp, err = http.Get(base + "/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	ready.Store(true)
	resp, err = http.Get(base + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
