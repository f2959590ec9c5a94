// Package testsignal generates synthetic PCM waveforms for exercising
// the analysis pipeline without recorded audio fixtures.
//
// Every generator is a pure function of its parameters: no
// math/rand, so tests built on these signals reproduce exactly.
package testsignal

import "math"

// Sine returns a pure tone at freqHz sampled at sampleRate for
// durationMs, amplitude in [0,1].
func Sine(sampleRate int, freqHz, amplitude float64, durationMs int) []float32 {
	n := samplesFor(sampleRate, durationMs)
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freqHz*t))
	}
	return out
}

// HarmonicStack returns a fundamental plus a falling series of
// harmonics, approximating a voiced call with overtones.
func HarmonicStack(sampleRate int, fundamentalHz, amplitude float64, numHarmonics int, durationMs int) []float32 {
	n := samplesFor(sampleRate, durationMs)
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		var v float64
		for h := 1; h <= numHarmonics; h++ {
			v += (amplitude / float64(h)) * math.Sin(2*math.Pi*fundamentalHz*float64(h)*t)
		}
		out[i] = float32(v)
	}
	return out
}

// AMEnvelope multiplies carrier by a low-frequency amplitude envelope,
// approximating the rhythmic loudness modulation of a repeated call.
func AMEnvelope(carrier []float32, sampleRate int, envelopeHz, depth float64) []float32 {
	out := make([]float32, len(carrier))
	for i, s := range carrier {
		t := float64(i) / float64(sampleRate)
		env := 1 - depth + depth*0.5*(1+math.Sin(2*math.Pi*envelopeHz*t))
		out[i] = float32(float64(s) * env)
	}
	return out
}

// WhiteNoise returns deterministic pseudo-noise generated from a
// simple linear congruential generator seeded by seed, avoiding
// math/rand so output is stable across Go versions.
func WhiteNoise(sampleRate int, amplitude float64, durationMs int, seed uint32) []float32 {
	n := samplesFor(sampleRate, durationMs)
	out := make([]float32, n)
	state := seed
	if state == 0 {
		state = 1
	}
	for i := range out {
		state = state*1664525 + 1013904223
		unit := float64(state) / float64(^uint32(0))
		out[i] = float32(amplitude * (2*unit - 1))
	}
	return out
}

// Chirp returns a linear frequency sweep from startHz to endHz over
// the signal's duration.
func Chirp(sampleRate int, startHz, endHz, amplitude float64, durationMs int) []float32 {
	n := samplesFor(sampleRate, durationMs)
	out := make([]float32, n)
	duration := float64(durationMs) / 1000
	rate := (endHz - startHz) / duration
	for i := range out {
		t := float64(i) / float64(sampleRate)
		phase := 2 * math.Pi * (startHz*t + 0.5*rate*t*t)
		out[i] = float32(amplitude * math.Sin(phase))
	}
	return out
}

// Silence returns durationMs worth of zero samples.
func Silence(sampleRate, durationMs int) []float32 {
	return make([]float32, samplesFor(sampleRate, durationMs))
}

// Concat joins signals end to end.
func Concat(signals ...[]float32) []float32 {
	var total int
	for _, s := range signals {
		total += len(s)
	}
	out := make([]float32, 0, total)
	for _, s := range signals {
		out = append(out, s...)
	}
	return out
}

// Scale multiplies every sample by factor, for building quieter or
// louder variants of a reference signal without regenerating it.
func Scale(signal []float32, factor float64) []float32 {
	out := make([]float32, len(signal))
	for i, s := range signal {
		out[i] = float32(float64(s) * factor)
	}
	return out
}

// Chunks splits signal into pieces of at most chunkSize samples, for
// feeding a streaming pipeline in irregular Append boundaries.
func Chunks(signal []float32, chunkSize int) [][]float32 {
	if chunkSize <= 0 {
		return [][]float32{signal}
	}
	var out [][]float32
	for start := 0; start < len(signal); start += chunkSize {
		end := start + chunkSize
		if end > len(signal) {
			end = len(signal)
		}
		out = append(out, signal[start:end])
	}
	return out
}

func samplesFor(sampleRate, durationMs int) int {
	return sampleRate * durationMs / 1000
}
