// Package readiness implements the session readiness state machine
// (spec.md §4.9): NOT_READY → WARMING → READY, with an orthogonal
// STALLED flag for idle timeouts.
//
// Grounded on the small, explicit state-transition shape of
// haivivi-giztoy's pkg/voiceprint.Detector (with a plain New(cfg)
// constructor rather than functional options),
// adapted from a sliding-hash-window classifier to a monotonic state
// machine driven by frame counts, variance, and confidence.
package readiness

// State is one of the four readiness states.
type State int

const (
	NotReady State = iota
	Warming
	Ready
	Stalled
)

func (s State) String() string {
	switch s {
	case NotReady:
		return "not_ready"
	case Warming:
		return "warming"
	case Ready:
		return "ready"
	case Stalled:
		return "stalled"
	default:
		return "unknown"
	}
}

// Config controls the frame-count and confidence thresholds.
type Config struct {
	MinFrames        int
	ReliableFrames   int
	ReadyConfidence  float64
	SilenceVarianceMin float64
	StallTimeoutMs   int64
}

// DefaultConfig returns spec.md §4.9's stated defaults.
func DefaultConfig() Config {
	return Config{
		MinFrames:          25,
		ReliableFrames:     75,
		ReadyConfidence:     0.6,
		SilenceVarianceMin: 1e-6,
		StallTimeoutMs:     1500,
	}
}

// Controller tracks one session's readiness state. Transitions are
// strictly monotonic NOT_READY → WARMING → READY except via Reset;
// Stalled is applied and cleared independently of the underlying
// progression, which is preserved underneath it.
type Controller struct {
	cfg Config

	state       State
	preStallState State // the non-stalled state to resume once new input arrives
	lastActivityMs int64
}

// New creates a Controller starting at NotReady.
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg, state: NotReady, preStallState: NotReady}
}

// Observe updates readiness from the current frame count, user
// sequence variance, blended confidence, and the current wall-clock
// time in milliseconds (monotonic source supplied by the caller —
// this package performs no I/O or clock reads, keeping it
// deterministic and testable).
func (c *Controller) Observe(frameCount int, variance, confidence float64, nowMs int64) State {
	c.lastActivityMs = nowMs

	target := c.preStallState
	silent := variance < c.cfg.SilenceVarianceMin

	switch {
	case frameCount < c.cfg.MinFrames || silent:
		// Not enough signal to advance; invariant 3 forbids regressing
		// a state already reached, so target is left unchanged.
	case frameCount < c.cfg.ReliableFrames:
		target = maxState(target, Warming)
	case confidence >= c.cfg.ReadyConfidence:
		target = maxState(target, Ready)
	default:
		target = maxState(target, Warming)
	}

	c.preStallState = target
	c.state = target
	return c.state
}

// CheckStall applies the idle-timeout rule: if nowMs is at least
// StallTimeoutMs past the last observed activity and the controller
// is in Warming or Ready, the reported state becomes Stalled (the
// underlying progression is retained and resumes on the next
// Observe).
func (c *Controller) CheckStall(nowMs int64) State {
	if c.preStallState == Warming || c.preStallState == Ready {
		if nowMs-c.lastActivityMs >= c.cfg.StallTimeoutMs {
			c.state = Stalled
			return c.state
		}
	}
	return c.state
}

// State returns the last computed state.
func (c *Controller) State() State { return c.state }

// Reset returns the controller to NotReady, the only transition that
// may regress state (spec.md §4.9).
func (c *Controller) Reset() {
	c.state = NotReady
	c.preStallState = NotReady
	c.lastActivityMs = 0
}

func maxState(a, b State) State {
	// NotReady < Warming < Ready as progression order; Stalled is
	// never produced here (handled separately by CheckStall), so
	// ordinary integer comparison gives monotonic progression.
	if b > a {
		return b
	}
	return a
}
