// Package dtw computes a Sakoe–Chiba banded Dynamic Time Warping
// distance between two MFCC sequences and converts it to a bounded
// similarity score.
//
// The weighted-normalization and exp(-k·cost) similarity-conversion
// shape is grounded on CWBudde-algo-piano's analysis.Compare /
// Metrics (Score → exp(-4·Score) → Similarity); the banded alignment
// itself is the spec's own algorithm, using gonum/stat for the z-score
// statistics and gonum/floats for the vector-level numerics (Euclidean
// distance, dot products, norms).
package dtw

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrTooShort is returned when a sequence has fewer than 2 frames,
// for which DTW is undefined (spec.md §4.6 edge case).
var ErrTooShort = errors.New("dtw: sequence has fewer than 2 frames")

// LocalMetric selects the per-vector distance DTW accumulates.
type LocalMetric int

const (
	// EuclideanZScore normalizes each vector's dimensions to zero
	// mean/unit variance (computed per comparison, across both
	// sequences jointly) before taking Euclidean distance. This is
	// the documented default (spec.md §9 open question resolution,
	// see DESIGN.md).
	EuclideanZScore LocalMetric = iota
	// CosineLocal uses 1 - cosine similarity as the local distance.
	CosineLocal
)

// Config controls band width and the local distance metric.
type Config struct {
	// BandRatio sets the Sakoe-Chiba band width as a fraction of
	// max(M, N): w = max(8, BandRatio * max(M, N)).
	BandRatio float64
	// Beta scales normalized cost into a similarity via exp(-Beta*cost).
	Beta float64
	Metric LocalMetric
}

// DefaultConfig returns spec.md §4.6's stated defaults.
func DefaultConfig() Config {
	return Config{BandRatio: 0.1, Beta: 2.0, Metric: EuclideanZScore}
}

// Result is the outcome of a banded DTW comparison.
type Result struct {
	NormalizedCost float64
	Similarity     float64
	BandWidened    bool // true if the band had to be widened to cover extreme length ratios
	// Path is the optimal alignment as (userIndex, masterIndex) pairs,
	// in increasing order. Populated only by CompareWithPath.
	Path []Pair
}

// Pair is one aligned (user, master) index in a DTW path.
type Pair struct{ User, Master int }

// Compare runs banded DTW between user (length M) and master (length
// N) and converts the result to a similarity in (0,1].
func Compare(cfg Config, user, master [][]float64) (Result, error) {
	return compare(cfg, user, master, false)
}

// CompareWithPath is like Compare but also reconstructs the optimal
// alignment path, needed by the blender's offset-cosine component.
func CompareWithPath(cfg Config, user, master [][]float64) (Result, error) {
	return compare(cfg, user, master, true)
}

func compare(cfg Config, user, master [][]float64, withPath bool) (Result, error) {
	m, n := len(user), len(master)
	if m < 2 || n < 2 {
		return Result{}, ErrTooShort
	}

	u, mm := normalizeForMetric(cfg.Metric, user, master)

	maxLen := m
	if n > maxLen {
		maxLen = n
	}
	w := int(cfg.BandRatio * float64(maxLen))
	if w < 8 {
		w = 8
	}

	widened := false
	// Widen the band to cover the full matrix when the band as sized
	// would exclude the diagonal at extreme length ratios (spec.md
	// §4.6 edge case).
	ratio := float64(m) / float64(n)
	if ratio > 4 || ratio < 0.25 {
		w = maxLen
		widened = true
	}

	cost, pathLen, path := bandedDTW(u, mm, w, cfg.Metric, withPath)
	normalized := cost / float64(pathLen)
	similarity := math.Exp(-cfg.Beta * normalized)

	return Result{NormalizedCost: normalized, Similarity: clamp01(similarity), BandWidened: widened, Path: path}, nil
}

// move direction, used only to reconstruct the path when requested.
type move uint8

const (
	moveDiag move = iota
	moveUp
	moveLeft
)

// bandedDTW computes the minimum accumulated cost path within a
// Sakoe-Chiba band of half-width w, breaking ties toward the diagonal
// move (spec.md §4.6 edge case).
func bandedDTW(a, b [][]float64, w int, metric LocalMetric, withPath bool) (cost float64, pathLen int, path []Pair) {
	m, n := len(a), len(b)
	const inf = math.MaxFloat64 / 4

	dist := make([][]float64, m+1)
	plen := make([][]int, m+1)
	var from [][]move
	if withPath {
		from = make([][]move, m+1)
	}
	for i := range dist {
		dist[i] = make([]float64, n+1)
		plen[i] = make([]int, n+1)
		if withPath {
			from[i] = make([]move, n+1)
		}
		for j := range dist[i] {
			dist[i][j] = inf
		}
	}
	dist[0][0] = 0
	plen[0][0] = 0

	for i := 1; i <= m; i++ {
		lo := i - w
		if lo < 1 {
			lo = 1
		}
		hi := i + w
		if hi > n {
			hi = n
		}
		for j := lo; j <= hi; j++ {
			d := localDistance(a[i-1], b[j-1], metric)

			diag, diagLen := dist[i-1][j-1], plen[i-1][j-1]
			up, upLen := dist[i-1][j], plen[i-1][j]
			left, leftLen := dist[i][j-1], plen[i][j-1]

			best, bestLen, bestMove := diag, diagLen, moveDiag
			// Ties prefer the diagonal move: only replace on strict
			// improvement, and diag is checked first.
			if up < best {
				best, bestLen, bestMove = up, upLen, moveUp
			}
			if left < best {
				best, bestLen, bestMove = left, leftLen, moveLeft
			}
			dist[i][j] = best + d
			plen[i][j] = bestLen + 1
			if withPath {
				from[i][j] = bestMove
			}
		}
	}

	if withPath && m > 0 && n > 0 {
		i, j := m, n
		for i > 0 && j > 0 {
			path = append(path, Pair{User: i - 1, Master: j - 1})
			switch from[i][j] {
			case moveDiag:
				i--
				j--
			case moveUp:
				i--
			case moveLeft:
				j--
			}
		}
		for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
			path[l], path[r] = path[r], path[l]
		}
	}

	return dist[m][n], plen[m][n], path
}

func localDistance(x, y []float64, metric LocalMetric) float64 {
	switch metric {
	case CosineLocal:
		return 1 - cosine(x, y)
	default:
		return floats.Distance(x, y, 2)
	}
}

func cosine(x, y []float64) float64 {
	dot := floats.Dot(x, y)
	nx := floats.Norm(x, 2)
	ny := floats.Norm(y, 2)
	if nx < 1e-12 || ny < 1e-12 {
		return 0
	}
	return dot / (nx * ny)
}

// normalizeForMetric applies per-dimension z-score normalization
// across the concatenation of both sequences when the metric calls
// for it; cosine-based comparison is scale-invariant and left as-is.
func normalizeForMetric(metric LocalMetric, user, master [][]float64) (u, m [][]float64) {
	if metric != EuclideanZScore || len(user) == 0 || len(master) == 0 {
		return user, master
	}
	dim := len(user[0])

	means := make([]float64, dim)
	stdevs := make([]float64, dim)
	col := make([]float64, 0, len(user)+len(master))
	for d := 0; d < dim; d++ {
		col = col[:0]
		for _, v := range user {
			col = append(col, v[d])
		}
		for _, v := range master {
			col = append(col, v[d])
		}
		mean, std := stat.MeanStdDev(col, nil)
		means[d] = mean
		if std < 1e-12 {
			std = 1
		}
		stdevs[d] = std
	}

	normalize := func(seq [][]float64) [][]float64 {
		out := make([][]float64, len(seq))
		for i, v := range seq {
			row := make([]float64, dim)
			for d := 0; d < dim; d++ {
				row[d] = (v[d] - means[d]) / stdevs[d]
			}
			out[i] = row
		}
		return out
	}
	return normalize(user), normalize(master)
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
