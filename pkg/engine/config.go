package engine

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// yamlConfig mirrors Config with yaml tags, grounded on
// haivivi-giztoy's pkg/cortex.CtxConfig convention of a separate
// tagged struct for the on-disk shape.
type yamlConfig struct {
	SampleRate   int  `yaml:"sampleRate"`
	FrameSize    int  `yaml:"frameSize"`
	HopSize      int  `yaml:"hopSize"`
	FFTSize      int  `yaml:"fftSize"`
	NumMels      int  `yaml:"numMels"`
	NCepstra     int  `yaml:"nCepstra"`
	EnableDeltas bool `yaml:"enableDeltas"`

	VADEnergyDb   float64 `yaml:"vadEnergyDb"`
	VADHangoverMs float64 `yaml:"vadHangoverMs"`

	DTWBandRatio          float64 `yaml:"dtwBandRatio"`
	SubsequenceGamma      float64 `yaml:"subsequenceGamma"`
	CoverageUpliftMax     float64 `yaml:"coverageUpliftMax"`
	CosineRejectThreshold float64 `yaml:"cosineRejectThreshold"`

	KMinFrames      int   `yaml:"kMinFrames"`
	KReliableFrames int   `yaml:"kReliableFrames"`
	KStallTimeoutMs int64 `yaml:"kStallTimeoutMs"`

	MaxSessions       int `yaml:"maxSessions"`
	SessionTTLSeconds int `yaml:"sessionTtlSeconds"`
}

func (c Config) toYAML() yamlConfig {
	return yamlConfig{
		SampleRate:            c.SampleRate,
		FrameSize:             c.FrameSize,
		HopSize:               c.HopSize,
		FFTSize:               c.FFTSize,
		NumMels:               c.NumMels,
		NCepstra:              c.NCepstra,
		EnableDeltas:          c.EnableDeltas,
		VADEnergyDb:           c.VADEnergyDb,
		VADHangoverMs:         c.VADHangoverMs,
		DTWBandRatio:          c.DTWBandRatio,
		SubsequenceGamma:      c.SubsequenceGamma,
		CoverageUpliftMax:     c.CoverageUpliftMax,
		CosineRejectThreshold: c.CosineRejectThreshold,
		KMinFrames:            c.KMinFrames,
		KReliableFrames:       c.KReliableFrames,
		KStallTimeoutMs:       c.KStallTimeoutMs,
		MaxSessions:           c.MaxSessions,
		SessionTTLSeconds:     c.SessionTTLSeconds,
	}
}

func (y yamlConfig) toConfig() Config {
	return Config{
		SampleRate:            y.SampleRate,
		FrameSize:             y.FrameSize,
		HopSize:               y.HopSize,
		FFTSize:               y.FFTSize,
		NumMels:               y.NumMels,
		NCepstra:              y.NCepstra,
		EnableDeltas:          y.EnableDeltas,
		VADEnergyDb:           y.VADEnergyDb,
		VADHangoverMs:         y.VADHangoverMs,
		DTWBandRatio:          y.DTWBandRatio,
		SubsequenceGamma:      y.SubsequenceGamma,
		CoverageUpliftMax:     y.CoverageUpliftMax,
		CosineRejectThreshold: y.CosineRejectThreshold,
		KMinFrames:            y.KMinFrames,
		KReliableFrames:       y.KReliableFrames,
		KStallTimeoutMs:       y.KStallTimeoutMs,
		MaxSessions:           y.MaxSessions,
		SessionTTLSeconds:     y.SessionTTLSeconds,
	}
}

// LoadConfig reads a YAML config file, starting from Defaults() so a
// partial file only overrides what it sets.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: reading %s: %v", ErrBadConfig, path, err)
	}
	y := Defaults().toYAML()
	if err := yaml.Unmarshal(data, &y); err != nil {
		return Config{}, fmt.Errorf("%w: parsing %s: %v", ErrBadConfig, path, err)
	}
	cfg := y.toConfig()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteConfig writes cfg to path as YAML, for operators to dump a
// starting point and hand-edit.
func WriteConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg.toYAML())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrInternal, path, err)
	}
	return nil
}
