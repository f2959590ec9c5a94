package commands

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wildmatch/callecho/internal/testsignal"
	"github.com/wildmatch/callecho/pkg/engine"
	"github.com/wildmatch/callecho/pkg/wire"
)

var (
	demoSampleRate  int
	demoFundamental float64
	demoChunkMs     int
	demoNoisy       bool
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Stream a synthetic attempt against a synthetic reference call",
	RunE:  runDemo,
}

func init() {
	demoCmd.Flags().IntVar(&demoSampleRate, "sample-rate", 44100, "sample rate in Hz")
	demoCmd.Flags().Float64Var(&demoFundamental, "fundamental", 420, "fundamental frequency of the synthetic call in Hz")
	demoCmd.Flags().IntVar(&demoChunkMs, "chunk-ms", 80, "PCM append chunk size in milliseconds")
	demoCmd.Flags().BoolVar(&demoNoisy, "noisy", false, "overlay white noise on the attempt signal")
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

func runDemo(cmd *cobra.Command, args []string) error {
	cfg := engine.Defaults()
	cfg.SampleRate = demoSampleRate

	eng, err := engine.New(cfg)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}
	defer eng.Close()

	master := buildReferenceCall(demoSampleRate, demoFundamental)
	attempt := buildAttempt(demoSampleRate, demoFundamental, demoNoisy)

	bundle := wire.MasterBundle{
		Geometry: wire.FrameGeometry{
			SampleRate: demoSampleRate,
			FrameSize:  cfg.FrameSize,
			HopSize:    cfg.HopSize,
			FFTSize:    cfg.FFTSize,
			NumMels:    cfg.NumMels,
			NCepstra:   cfg.NCepstra,
			HighFreqHz: float64(demoSampleRate) / 2,
		},
		PCM:   master,
		Label: "synthetic reference call",
	}

	s, err := eng.Create(bundle, demoSampleRate)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	sessionID := s.ID()
	defer eng.Destroy(sessionID)

	if err := eng.Start(sessionID); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("callecho demo — session %s", sessionID)))
	fmt.Println(dimStyle.Render(fmt.Sprintf("reference: %.0fHz harmonic call, %d ms attempt chunks", demoFundamental, demoChunkMs)))
	fmt.Println()

	chunkSize := demoSampleRate * demoChunkMs / 1000
	var result wire.SimilarityResult
	for i, chunk := range testsignal.Chunks(attempt, chunkSize) {
		result, err = eng.Append(sessionID, chunk)
		if err != nil {
			return fmt.Errorf("append chunk %d: %w", i, err)
		}
		printResult(result)
		time.Sleep(time.Duration(demoChunkMs) * time.Millisecond / 4)
	}

	result, err = eng.Finalize(sessionID)
	if err != nil {
		return fmt.Errorf("finalize session: %w", err)
	}
	fmt.Println()
	fmt.Println(labelStyle.Render("final:"))
	printResult(result)
	return nil
}

func printResult(r wire.SimilarityResult) {
	overall := "—"
	if r.Overall != nil {
		overall = fmt.Sprintf("%.3f", *r.Overall)
	}
	fmt.Printf("%s  overall=%-6s confidence=%.3f reliable=%-5v frames=%d/%d\n",
		labelStyle.Render(string(r.Readiness)), overall, r.Confidence, r.IsReliable, r.FramesObserved, r.FramesRequired)
}

func buildReferenceCall(sampleRate int, fundamental float64) []float32 {
	tone := testsignal.HarmonicStack(sampleRate, fundamental, 0.6, 4, 900)
	return testsignal.AMEnvelope(tone, sampleRate, 5, 0.3)
}

func buildAttempt(sampleRate int, fundamental float64, noisy bool) []float32 {
	// A slightly slower, slightly detuned rendition of the reference
	// call, the kind of near-match the blender's DTW/subsequence
	// components are meant to still recognize.
	tone := testsignal.HarmonicStack(sampleRate, fundamental*0.97, 0.55, 4, 1050)
	attempt := testsignal.AMEnvelope(tone, sampleRate, 4.6, 0.3)
	if noisy {
		noise := testsignal.WhiteNoise(sampleRate, 0.05, 1050, 7)
		for i := range attempt {
			attempt[i] += noise[i]
		}
	}
	return testsignal.Concat(testsignal.Silence(sampleRate, 150), attempt)
}
