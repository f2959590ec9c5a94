// Package wire defines the external wire shapes for session results
// and master bundle provisioning (spec.md §6), carrying both json and
// msgpack tags in the style of haivivi-giztoy's pkg/recall.Segment so
// the same struct serves HTTP/JSON callers and the lower-latency
// msgpack transport mode.
package wire

import "github.com/vmihailenco/msgpack/v5"

// Readiness mirrors the session's readiness state as a wire string.
type Readiness string

const (
	ReadinessNotReady Readiness = "not_ready"
	ReadinessWarming  Readiness = "warming"
	ReadinessReady    Readiness = "ready"
	ReadinessStalled  Readiness = "stalled"
)

// Components carries each similarity component, nil when absent
// (encoded as null, not omitted).
type Components struct {
	DTW          *float64 `json:"dtw" msgpack:"dtw"`
	OffsetCosine *float64 `json:"offsetCosine" msgpack:"offsetCosine"`
	MeanCosine   *float64 `json:"meanCosine" msgpack:"meanCosine"`
	Subsequence  *float64 `json:"subsequence" msgpack:"subsequence"`
}

// SimilarityResult is the wire shape from spec.md §6.
type SimilarityResult struct {
	Overall         *float64   `json:"overall" msgpack:"overall"`
	Components      Components `json:"components" msgpack:"components"`
	Confidence      float64    `json:"confidence" msgpack:"confidence"`
	IsReliable      bool       `json:"isReliable" msgpack:"isReliable"`
	Readiness       Readiness  `json:"readiness" msgpack:"readiness"`
	FramesObserved  int        `json:"framesObserved" msgpack:"framesObserved"`
	FramesRequired  int        `json:"framesRequired" msgpack:"framesRequired"`
}

// vmihailenco/msgpack encodes these structs through their msgpack
// struct tags alone (there are no custom MarshalMsgpack/UnmarshalMsgpack
// methods); Encode/Decode below are thin convenience wrappers around
// msgpack.Marshal/Unmarshal.

// Encode serializes r as msgpack bytes.
func (r SimilarityResult) Encode() ([]byte, error) {
	return msgpack.Marshal(r)
}

// Decode parses msgpack bytes produced by Encode.
func Decode(data []byte) (SimilarityResult, error) {
	var r SimilarityResult
	err := msgpack.Unmarshal(data, &r)
	return r, err
}

// FrameGeometry describes the fixed frame parameters a MasterBundle
// was computed with, so the engine can reject a mismatched bundle
// with BAD_CONFIG instead of silently comparing incompatible vectors.
type FrameGeometry struct {
	SampleRate int     `json:"sampleRate" msgpack:"sampleRate"`
	FrameSize  int     `json:"frameSize" msgpack:"frameSize"`
	HopSize    int     `json:"hopSize" msgpack:"hopSize"`
	FFTSize    int     `json:"fftSize" msgpack:"fftSize"`
	NumMels    int     `json:"numMels" msgpack:"numMels"`
	NCepstra   int     `json:"nCepstra" msgpack:"nCepstra"`
	LowFreqHz  float64 `json:"lowFreqHz" msgpack:"lowFreqHz"`
	HighFreqHz float64 `json:"highFreqHz" msgpack:"highFreqHz"`
	EnableDeltas bool  `json:"enableDeltas" msgpack:"enableDeltas"`
}

// MasterBundle provisions a session's reference call, either as raw
// PCM (mode a, extracted by the engine on create) or as a
// precomputed feature sequence (mode b, preferred for latency).
type MasterBundle struct {
	Geometry FrameGeometry `json:"geometry" msgpack:"geometry"`

	// PCM is set for mode (a) provisioning; mutually exclusive with
	// Features.
	PCM []float32 `json:"pcm,omitempty" msgpack:"pcm,omitempty"`

	// Features is set for mode (b) provisioning: a precomputed
	// feature sequence matching Geometry.
	Features [][]float64 `json:"features,omitempty" msgpack:"features,omitempty"`

	Label string `json:"label,omitempty" msgpack:"label,omitempty"`
}

// Encode serializes b as msgpack bytes, the preferred mode (b)
// provisioning transport.
func (b MasterBundle) Encode() ([]byte, error) {
	return msgpack.Marshal(b)
}

// DecodeMasterBundle parses msgpack bytes produced by Encode.
func DecodeMasterBundle(data []byte) (MasterBundle, error) {
	var b MasterBundle
	err := msgpack.Unmarshal(data, &b)
	return b, err
}
