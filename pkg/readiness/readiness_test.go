package readiness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObserveProgressesMonotonically(t *testing.T) {
	c := New(DefaultConfig())

	require.Equal(t, NotReady, c.Observe(5, 0.3, 0.1, 1000))
	require.Equal(t, Warming, c.Observe(40, 0.3, 0.1, 2000))
	require.Equal(t, Ready, c.Observe(100, 0.3, 0.7, 3000))

	// A later low-confidence observation must not regress Ready.
	require.Equal(t, Ready, c.Observe(110, 0.3, 0.1, 4000))
}

func TestObserveSilenceDoesNotAdvance(t *testing.T) {
	cfg := DefaultConfig()
	c := New(cfg)
	require.Equal(t, NotReady, c.Observe(200, cfg.SilenceVarianceMin/2, 0.9, 1000))
}

func TestCheckStallAppliesAfterTimeout(t *testing.T) {
	cfg := DefaultConfig()
	c := New(cfg)
	c.Observe(100, 0.3, 0.7, 0)
	require.Equal(t, Ready, c.State())

	require.Equal(t, Ready, c.CheckStall(cfg.StallTimeoutMs-1))
	require.Equal(t, Stalled, c.CheckStall(cfg.StallTimeoutMs))
}

func TestCheckStallResumesPreStallStateOnNewActivity(t *testing.T) {
	cfg := DefaultConfig()
	c := New(cfg)
	c.Observe(100, 0.3, 0.7, 0)
	c.CheckStall(cfg.StallTimeoutMs)
	require.Equal(t, Stalled, c.State())

	require.Equal(t, Ready, c.Observe(110, 0.3, 0.7, cfg.StallTimeoutMs+10))
}

func TestResetReturnsToNotReady(t *testing.T) {
	c := New(DefaultConfig())
	c.Observe(100, 0.3, 0.7, 0)
	require.Equal(t, Ready, c.State())

	c.Reset()
	require.Equal(t, NotReady, c.State())
}

func TestStateStringNames(t *testing.T) {
	require.Equal(t, "not_ready", NotReady.String())
	require.Equal(t, "warming", Warming.String())
	require.Equal(t, "ready", Ready.String())
	require.Equal(t, "stalled", Stalled.String())
}
