package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/endorses/stringmatch/internal/pkg/ahocorasick"
	"github.com/endorses/stringmatch/internal/pkg/matcher"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ObservePacket(t *testing.T) {
	c := New()

	c.ObservePacket(matcher.KindAhoCorasick, 100, true)
	c.ObservePacket(matcher.KindAhoCorasick, 50, false)
	c.ObservePacket(matcher.KindWuManber, 10, true)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.packets))
	assert.Equal(t, 160.0, testutil.ToFloat64(c.bytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.matches.WithLabelValues("ahocorasick")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.matches.WithLabelValues("wumanber")))
}

func TestCollector_ObserveScan(t *testing.T) {
	c := New()

	c.ObserveScan(ahocorasick.MachineStats{Gotos: 6, Failures: 1}, false)
	c.ObserveScan(ahocorasick.MachineStats{Gotos: 4, Failures: 3}, true)

	assert.Equal(t, 10.0, testutil.ToFloat64(c.gotos))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.failures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.heavy))
}

func TestCollector_ObserveCompileAndReload(t *testing.T) {
	c := New()

	c.ObserveCompile(matcher.Stats{Kind: matcher.KindCompressedAhoCorasick, Patterns: 4, States: 10}, 20*time.Millisecond)
	c.ObserveReload(nil)
	c.ObserveReload(errors.New("bad file"))
	c.ObserveReload(nil)

	assert.Equal(t, 4.0, testutil.ToFloat64(c.patterns))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.states))
	assert.Equal(t, 1, testutil.CollectAndCount(c.compileDuration))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.reloads.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reloads.WithLabelValues("error")))
}

func TestCollector_BuildInfo(t *testing.T) {
	c := New()

	families, err := c.Registry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if mf.GetName() == "stringmatch_build_info" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, 1.0, mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)
}

func TestServer_EnableDisable(t *testing.T) {
	c := New()
	c.ObservePacket(matcher.KindAhoCorasick, 5, true)

	s := NewServer(c, "127.0.0.1:0")
	assert.False(t, s.IsEnabled())
	assert.Empty(t, s.Addr())

	require.NoError(t, s.Enable())
	require.NoError(t, s.Enable(), "enabling twice is a no-op")
	assert.True(t, s.IsEnabled())
	base := "http://" + s.Addr()

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "stringmatch_packets_scanned_total 1"))

	require.NoError(t, s.Disable(context.Background()))
	require.NoError(t, s.Disable(context.Background()))
	assert.False(t, s.IsEnabled())
}

func TestServer_EnableBadAddress(t *testing.T) {
	s := NewServer(New(), "256.0.0.1:bad")
	assert.Error(t, s.Enable())
	assert.False(t, s.IsEnabled())
}
