// Package subsequence finds the best contiguous window of a longer
// user sequence against the whole master, for callers whose recording
// runs long or starts offset from the call itself (spec.md §4.7).
//
// Reuses pkg/dtw's banded alignment and CWBudde-algo-piano's
// exp(-k·cost) similarity-conversion shape, with the coverage-uplift
// term layered on top.
package subsequence

import (
	"math"

	"github.com/wildmatch/callecho/pkg/dtw"
)

// Config controls the candidate-window search and similarity
// conversion.
type Config struct {
	DTW Config_DTW
	// Gamma scales the best normalized cost into similarity via
	// exp(-Gamma·cost); the default is 0.75, lower than DTW's default
	// Beta of 2.0.
	Gamma float64
	// CoverageUpliftMax caps how much the coverage term can raise the
	// component above a full-length match.
	CoverageUpliftMax float64
	// LengthRatioMin/Max bound candidate window length L' as a
	// fraction of the master length N.
	LengthRatioMin, LengthRatioMax float64
	// NumLengths is how many candidate L' values to try within the
	// ratio bounds (evenly spaced).
	NumLengths int
	// StartStride skips candidate start offsets to bound work; 1
	// tries every offset.
	StartStride int
}

// Config_DTW mirrors the handful of dtw.Config fields subsequence
// matching reuses; kept separate so this package doesn't need to
// import dtw.Config's full surface for construction.
type Config_DTW struct {
	BandRatio float64
	Metric    dtw.LocalMetric
}

// DefaultConfig returns spec.md §4.7's stated defaults.
func DefaultConfig() Config {
	return Config{
		DTW:               Config_DTW{BandRatio: 0.1, Metric: dtw.EuclideanZScore},
		Gamma:             0.75,
		CoverageUpliftMax: 1.15,
		LengthRatioMin:    0.7,
		LengthRatioMax:    1.4,
		NumLengths:        8,
		StartStride:       1,
	}
}

// Result is the outcome of a subsequence search.
type Result struct {
	BestNormalizedCost float64
	Similarity         float64
	Start              int
	Length             int
}

// Search finds the best-aligned contiguous window of user against the
// whole of master.
func Search(cfg Config, user, master [][]float64) (Result, bool) {
	n := len(master)
	m := len(user)
	if n < 2 || m < 2 {
		return Result{}, false
	}

	dtwCfg := dtw.Config{BandRatio: cfg.DTW.BandRatio, Beta: 1, Metric: cfg.DTW.Metric}

	lengths := candidateLengths(cfg, n, m)
	if len(lengths) == 0 {
		return Result{}, false
	}

	bestCost := math.Inf(1)
	bestStart, bestLen := 0, 0
	found := false

	for _, length := range lengths {
		if length > m {
			continue
		}
		stride := cfg.StartStride
		if stride < 1 {
			stride = 1
		}
		for start := 0; start+length <= m; start += stride {
			window := user[start : start+length]
			res, err := dtw.Compare(dtwCfg, window, master)
			if err != nil {
				continue
			}
			found = true
			if res.NormalizedCost < bestCost {
				bestCost = res.NormalizedCost
				bestStart = start
				bestLen = length
			}
		}
	}
	if !found {
		return Result{}, false
	}

	similarity := math.Exp(-cfg.Gamma * bestCost)
	coverage := math.Min(float64(bestLen)/float64(n), 1)

	component := similarity * coverage
	maxAllowed := similarity * cfg.CoverageUpliftMax
	if component > maxAllowed {
		component = maxAllowed
	}

	return Result{
		BestNormalizedCost: bestCost,
		Similarity:         clamp01(component),
		Start:              bestStart,
		Length:             bestLen,
	}, true
}

func candidateLengths(cfg Config, n, userLen int) []int {
	minLen := int(cfg.LengthRatioMin * float64(n))
	maxLen := int(cfg.LengthRatioMax * float64(n))
	if minLen < 2 {
		minLen = 2
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	if maxLen > userLen {
		maxLen = userLen
	}
	if minLen > maxLen {
		// The user sequence is shorter than LengthRatioMin·n (e.g. a
		// recording covering only the central portion of a longer
		// master, spec.md §8 S3): clamp down to what's actually
		// available rather than reporting no candidates at all.
		minLen = maxLen
	}

	count := cfg.NumLengths
	if count < 1 {
		count = 1
	}
	out := make([]int, 0, count)
	if count == 1 {
		return append(out, maxLen)
	}
	step := float64(maxLen-minLen) / float64(count-1)
	seen := map[int]bool{}
	for i := 0; i < count; i++ {
		l := minLen + int(math.Round(step*float64(i)))
		if l < 2 || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
