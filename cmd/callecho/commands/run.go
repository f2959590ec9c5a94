package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wildmatch/callecho/internal/wavfile"
	"github.com/wildmatch/callecho/pkg/engine"
	"github.com/wildmatch/callecho/pkg/wire"
)

var (
	runMaster   string
	runUser     string
	runChunkMs  int
	runConfig   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stream a recorded attempt WAV against a recorded reference WAV",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runMaster, "master", "", "path to the reference call WAV file")
	runCmd.Flags().StringVar(&runUser, "user", "", "path to the attempt WAV file")
	runCmd.Flags().IntVar(&runChunkMs, "chunk-ms", 80, "PCM append chunk size in milliseconds")
	runCmd.Flags().StringVar(&runConfig, "config", "", "optional engine config YAML file")
	runCmd.MarkFlagRequired("master")
	runCmd.MarkFlagRequired("user")
}

func runRun(cmd *cobra.Command, args []string) error {
	master, err := wavfile.Read(runMaster)
	if err != nil {
		return fmt.Errorf("read master WAV: %w", err)
	}
	user, err := wavfile.Read(runUser)
	if err != nil {
		return fmt.Errorf("read user WAV: %w", err)
	}
	if master.SampleRate != user.SampleRate {
		return fmt.Errorf("master sample rate %d does not match user sample rate %d", master.SampleRate, user.SampleRate)
	}

	cfg := engine.Defaults()
	if runConfig != "" {
		cfg, err = engine.LoadConfig(runConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	cfg.SampleRate = master.SampleRate

	eng, err := engine.New(cfg)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}
	defer eng.Close()

	bundle := wire.MasterBundle{
		Geometry: wire.FrameGeometry{
			SampleRate: cfg.SampleRate,
			FrameSize:  cfg.FrameSize,
			HopSize:    cfg.HopSize,
			FFTSize:    cfg.FFTSize,
			NumMels:    cfg.NumMels,
			NCepstra:   cfg.NCepstra,
			HighFreqHz: float64(cfg.SampleRate) / 2,
		},
		PCM:   master.Samples,
		Label: runMaster,
	}

	s, err := eng.Create(bundle, cfg.SampleRate)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	sessionID := s.ID()
	defer eng.Destroy(sessionID)

	if err := eng.Start(sessionID); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("callecho run — session %s", sessionID)))
	fmt.Println(dimStyle.Render(fmt.Sprintf("master=%s user=%s sampleRate=%d", runMaster, runUser, cfg.SampleRate)))
	fmt.Println()

	chunkSize := cfg.SampleRate * runChunkMs / 1000
	if chunkSize <= 0 {
		chunkSize = cfg.SampleRate / 10
	}

	var result wire.SimilarityResult
	for start := 0; start < len(user.Samples); start += chunkSize {
		end := start + chunkSize
		if end > len(user.Samples) {
			end = len(user.Samples)
		}
		result, err = eng.Append(sessionID, user.Samples[start:end])
		if err != nil {
			return fmt.Errorf("append chunk at sample %d: %w", start, err)
		}
		printResult(result)
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
