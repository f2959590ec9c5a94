package mfcc

// DeltaComputer turns a stream of raw cepstral vectors into a stream
// of augmented [raw, delta, delta-delta] vectors, using a symmetric
// ±2 frame regression window with reflect padding at the sequence
// edges (spec.md §4.2).
//
// Because delta needs two frames of lookahead and delta-delta needs
// two more beyond that, augmented vectors lag four raw frames behind
// in streaming use; Finalize flushes the remainder once the caller
// knows no more raw frames are coming, applying reflect padding at
// the true tail instead of waiting indefinitely. This keeps the
// streaming result identical to a whole-sequence batch computation —
// the reflect edge is only ever applied once the edge is real,
// never guessed at mid-stream — which is what the chunk-invariance
// property (spec.md §8, property 1) requires.
type DeltaComputer struct {
	raw   [][]float64
	delta [][]float64
	dd    [][]float64
}

// NewDeltaComputer creates an empty DeltaComputer.
func NewDeltaComputer() *DeltaComputer {
	return &DeltaComputer{}
}

// Feed appends one raw cepstral vector and returns zero or more newly
// ready augmented vectors (in order).
func (c *DeltaComputer) Feed(raw []float64) [][]float64 {
	c.raw = append(c.raw, raw)
	return c.drain(false)
}

// Finalize flushes all remaining frames, reflect-padding at the true
// end of the sequence, and returns the remaining augmented vectors.
func (c *DeltaComputer) Finalize() [][]float64 {
	return c.drain(true)
}

func (c *DeltaComputer) drain(final bool) [][]float64 {
	var emitted [][]float64
	for {
		t := len(c.delta)
		if t >= len(c.raw) {
			break
		}
		d, ok := regress(c.raw, t, final)
		if !ok {
			break
		}
		c.delta = append(c.delta, d)
	}
	for {
		t := len(c.dd)
		if t >= len(c.delta) {
			break
		}
		dd, ok := regress(c.delta, t, final)
		if !ok {
			break
		}
		c.dd = append(c.dd, dd)
		emitted = append(emitted, c.augmented(t))
	}
	return emitted
}

func (c *DeltaComputer) augmented(t int) []float64 {
	raw, delta, dd := c.raw[t], c.delta[t], c.dd[t]
	out := make([]float64, 0, len(raw)+len(delta)+len(dd))
	out = append(out, raw...)
	out = append(out, delta...)
	out = append(out, dd...)
	return out
}

// regress computes a ±2-frame linear regression derivative of seq at
// index t. If final is false, it refuses (returns ok=false) when the
// lookahead frames (t+1, t+2) don't exist yet in seq — they may still
// arrive. If final is true, missing frames on either side are
// produced by reflection against the sequence's actual bounds.
func regress(seq [][]float64, t int, final bool) (vec []float64, ok bool) {
	n := len(seq)
	if n == 0 {
		return nil, false
	}

	get := func(i int) ([]float64, bool) {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			if !final {
				return nil, false
			}
			i = 2*(n-1) - i
			if i < 0 {
				i = 0
			}
			if i >= n {
				i = n - 1
			}
		}
		return seq[i], true
	}

	p1, ok1 := get(t - 1)
	p2, ok2 := get(t - 2)
	f1, ok3 := get(t + 1)
	f2, ok4 := get(t + 2)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, false
	}

	dim := len(seq[0])
	out := make([]float64, dim)
	for d := 0; d < dim; d++ {
		out[d] = (1*(f1[d]-p1[d]) + 2*(f2[d]-p2[d])) / 10
	}
	return out, true
}
