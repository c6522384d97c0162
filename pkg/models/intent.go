package models

import "strings"

// Signal is a coarse intent category detected in a raw request.
type Signal string

const (
	// SignalBuild indicates the request asks for something to be built or changed.
	SignalBuild Signal = "BUILD"
	// SignalResearch indicates the request asks for investigation or analysis.
	SignalResearch Signal = "RESEARCH"
	// SignalChat indicates the request is conversational or explanatory.
	SignalChat Signal = "CHAT"
	// SignalWorkflow indicates the request asks for automation or sequencing.
	SignalWorkflow Signal = "WORKFLOW"
	// SignalEstimate indicates the request asks about cost or pricing.
	SignalEstimate Signal = "ESTIMATE"
)

// Valid returns true if the signal is a known value.
func (s Signal) Valid() bool {
	switch s {
	case SignalBuild, SignalResearch, SignalChat, SignalWorkflow, SignalEstimate:
		return true
	default:
		return false
	}
}

// Ambiguity codes recorded by the intent normalizer. Each entry in
// NormalizedIntent.Ambiguities is "CODE: human-readable detail".
const (
	// AmbiguityNoClearIntent means no signal keyword matched the request.
	AmbiguityNoClearIntent = "NO_CLEAR_INTENT"
	// AmbiguityMultiIntent means more than two signals matched.
	AmbiguityMultiIntent = "MULTI_INTENT"
	// AmbiguityVagueInput means the request is too short to classify reliably.
	AmbiguityVagueInput = "VAGUE_INPUT"
)

// NormalizedIntent is the structured form of a raw request.
// It is produced once by the normalizer and never mutated afterwards.
type NormalizedIntent struct {
	// Raw is the original request text, untouched.
	Raw string `json:"raw"`
	// Normalized is the noise-stripped, whitespace-collapsed text.
	Normalized string `json:"normalized"`
	// Signals lists every intent category with at least one keyword hit.
	Signals []Signal `json:"signals"`
	// Ambiguities lists detected problems as "CODE: detail" strings.
	Ambiguities []string `json:"ambiguities"`
	// NoiseFiltered lists the stop-word tokens that were stripped.
	NoiseFiltered []string `json:"noise_filtered"`
	// Language is the detected language of the request.
	Language string `json:"language"`
}

// HasSignal returns true if the given signal was detected.
func (n NormalizedIntent) HasSignal(s Signal) bool {
	for _, sig := range n.Signals {
		if sig == s {
			return true
		}
	}
	return false
}

// HasAmbiguity returns true if an ambiguity with the given code was flagged.
func (n NormalizedIntent) HasAmbiguity(code string) bool {
	for _, a := range n.Ambiguities {
		if a == code || strings.HasPrefix(a, code+":") {
			return true
		}
	}
	return false
}
