// Package spectrum computes the single windowed-FFT power spectrum
// that every per-frame analyzer (MFCC, VAD, pitch, harmonic, cadence)
// consumes, so the FFT itself only ever runs once per frame no matter
// how many analyzers are wired into a session (spec.md §4.4: "these
// are cheap on the frames already produced").
package spectrum

import (
	"math"

	"github.com/wildmatch/callecho/pkg/dsptables"
)

// Frame is the shared per-frame spectral view handed to every
// analyzer. Power holds fftSize/2+1 bins; Windowed holds the
// time-domain windowed (and zero-padded) samples, needed by analyzers
// that work in the time domain (pitch autocorrelation).
type Frame struct {
	Tables    *dsptables.Tables
	Windowed  []float64
	Power     []float64 // |X[k]|^2, length fftSize/2+1
	LogEnergy float64   // natural log of sum(windowed^2), floored
}

const logFloor = 1e-10

// Compute windows frame with tables' Hann coefficients, zero-pads to
// the FFT size, and returns the power spectrum and log energy.
func Compute(tables *dsptables.Tables, frame []float32) (*Frame, error) {
	fftSize := tables.Geometry.FFTSize
	windowed := make([]float64, fftSize)
	win := tables.Window
	var energy float64
	for i, s := range frame {
		v := float64(s) * win[i]
		windowed[i] = v
		energy += v * v
	}
	if energy < logFloor {
		energy = logFloor
	}

	coeffs := tables.FFT().Coefficients(nil, windowed)
	power := make([]float64, len(coeffs))
	for k, c := range coeffs {
		power[k] = real(c)*real(c) + imag(c)*imag(c)
	}

	return &Frame{
		Tables:    tables,
		Windowed:  windowed,
		Power:     power,
		LogEnergy: math.Log(energy),
	}, nil
}
