package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"clawtui/internal/sessionsync"
)

func TestObserverCountsCoalescing(t *testing.T) {
	m := New()
	m.RefreshRequested()
	m.FetchIssued()
	m.RefreshStateChanged(sessionsync.RefreshInFlight)
	m.RefreshRequested()
	m.RefreshJoined()
	m.RefreshStateChanged(sessionsync.RefreshInFlightWithPending)
	m.FetchFailed()
	m.FetchIssued()
	m.FetchSucceeded()
	m.RefreshStateChanged(sessionsync.RefreshIdle)

	require.Equal(t, 2.0, testutil.ToFloat64(m.RefreshRequests))
	require.Equal(t, 1.0, testutil.ToFloat64(m.JoinedRequests))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Fetches.WithLabelValues("issued")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Fetches.WithLabelValues("failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Fetches.WithLabelValues("succeeded")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.RefreshState))
}

func TestObserverCountsHistoryOutcomes(t *testing.T) {
	m := New()
	m.HistoryRequested()
	m.HistoryRequested()
	m.HistoryRequested()
	m.HistoryDiscarded()
	m.HistoryFailed()
	m.HistoryApplied(7)

	require.Equal(t, 3.0, testutil.ToFloat64(m.HistoryRequests))
	require.Equal(t, 1.0, testutil.ToFloat64(m.HistoryOutcomes.WithLabelValues("applied")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.HistoryOutcomes.WithLabelValues("discarded")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.HistoryOutcomes.WithLabelValues("failed")))
	require.Equal(t, 7.0, testutil.ToFloat64(m.HistoryMessages))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.FetchIssued()

	server := httptest.NewServer(m.Handler())
	defer server.Close()
	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `clawtui_session_list_fetches_total{outcome="issued"} 1`)

	expected := `
# HELP clawtui_refresh_joined_total Refresh requests absorbed by an outstanding or trailing fetch.
# TYPE clawtui_refresh_joined_total counter
clawtui_refresh_joined_total 0
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "clawtui_refresh_joined_total"))
}

func TestServeStopsWithContext(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	m := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatalf("metrics server did not stop")
	}
}
