// Package intent normalizes raw request text into a structured intent.
// Normalization never fails: the worst case is an intent carrying every
// ambiguity flag, which downstream governance turns into a blocked packet.
package intent

import (
	"regexp"
	"strings"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// signalKeywords maps each intent category to its detection keywords.
// The order is fixed so detected signals come out deterministically.
var signalKeywords = []struct {
	signal   models.Signal
	keywords []string
}{
	{models.SignalBuild, []string{"build", "create", "deploy", "implement", "develop", "code", "make"}},
	{models.SignalResearch, []string{"research", "analyze", "study", "investigate", "compare", "assess"}},
	{models.SignalChat, []string{"explain", "help", "what", "how", "why", "tell me"}},
	{models.SignalWorkflow, []string{"workflow", "automate", "pipeline", "sequence", "schedule"}},
	{models.SignalEstimate, []string{"cost", "estimate", "price", "how much", "budget", "quote"}},
}

// noiseTokens are politeness and filler tokens stripped during normalization.
var noiseTokens = []string{"please", "thanks", "hey", "hi", "um", "so", "like", "just", "can you"}

// minNormalizedLength is the threshold below which input is flagged vague.
const minNormalizedLength = 10

// noisePatterns holds a precompiled word-boundary matcher per noise token.
var noisePatterns = buildNoisePatterns()

func buildNoisePatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(noiseTokens))
	for _, tok := range noiseTokens {
		patterns[tok] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(tok) + `\b`)
	}
	return patterns
}

var whitespace = regexp.MustCompile(`\s+`)

// Normalize cleans raw request text into a structured intent with detected
// signals and ambiguity flags.
func Normalize(raw string) models.NormalizedIntent {
	lower := strings.ToLower(strings.TrimSpace(raw))

	// Signal extraction: record every category with at least one keyword hit.
	var signals []models.Signal
	for _, entry := range signalKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				signals = append(signals, entry.signal)
				break
			}
		}
	}

	// Ambiguity detection.
	var ambiguities []string
	if len(signals) == 0 {
		ambiguities = append(ambiguities, models.AmbiguityNoClearIntent+": could not detect a primary intent signal")
	}
	if len(signals) > 2 {
		ambiguities = append(ambiguities, models.AmbiguityMultiIntent+": request contains multiple intent signals and may need decomposition")
	}
	if len(lower) < minNormalizedLength {
		ambiguities = append(ambiguities, models.AmbiguityVagueInput+": request is too short for reliable intent classification")
	}

	// Noise filtering: record which stop-word tokens appear, then strip them.
	var filtered []string
	for _, tok := range noiseTokens {
		if strings.Contains(lower, tok) {
			filtered = append(filtered, tok)
		}
	}

	normalized := strings.TrimSpace(raw)
	for _, tok := range noiseTokens {
		normalized = strings.TrimSpace(noisePatterns[tok].ReplaceAllString(normalized, ""))
	}
	normalized = whitespace.ReplaceAllString(normalized, " ")

	return models.NormalizedIntent{
		Raw:           raw,
		Normalized:    normalized,
		Signals:       signals,
		Ambiguities:   ambiguities,
		NoiseFiltered: filtered,
		Language:      "en",
	}
}
